package cases

import (
	"fmt"
	"strings"
)

// PolyString renders the defining polynomial in the catalog's conventional
// form, e.g. "x^8 + 315*x^6 + 34020*x^4 + 1488375*x^2 + 22325625".
func (c Case) PolyString() string { return FormatPoly(c.Coeffs) }

// FormatPoly renders an integer polynomial (constant term first) with
// descending powers, omitting zero terms and unit coefficients.
func FormatPoly(coeffs []int64) string {
	deg := len(coeffs) - 1
	for deg > 0 && coeffs[deg] == 0 {
		deg--
	}
	var b strings.Builder
	wrote := false
	for k := deg; k >= 0; k-- {
		c := coeffs[k]
		if c == 0 {
			continue
		}
		mag := c
		if !wrote {
			if c < 0 {
				b.WriteByte('-')
				mag = -c
			}
		} else {
			if c < 0 {
				b.WriteString(" - ")
				mag = -c
			} else {
				b.WriteString(" + ")
			}
		}
		b.WriteString(formatTerm(mag, k))
		wrote = true
	}
	if !wrote {
		return "0"
	}
	return b.String()
}

func formatTerm(mag int64, k int) string {
	switch {
	case k == 0:
		return fmt.Sprintf("%d", mag)
	case k == 1 && mag == 1:
		return "x"
	case k == 1:
		return fmt.Sprintf("%d*x", mag)
	case mag == 1:
		return fmt.Sprintf("x^%d", k)
	default:
		return fmt.Sprintf("%d*x^%d", mag, k)
	}
}
