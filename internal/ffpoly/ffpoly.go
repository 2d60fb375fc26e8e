package ffpoly

// Package ffpoly implements dense univariate polynomial arithmetic over prime
// fields F_p. It is self-contained and provides reduction of integer
// polynomials mod p, squarefreeness testing, and distinct-degree factorization
// patterns used by the Frobenius classifiers.

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Poly is a dense F_p polynomial, constant term first.
type Poly []uint64

// ErrNotSquarefree reports that a reduction f mod p has a repeated factor, so
// its factor-degree pattern does not reflect the Frobenius cycle type.
var ErrNotSquarefree = errors.New("ffpoly: polynomial is not squarefree")

// Reduce maps an integer polynomial (constant term first) to F_p[x].
// Negative coefficients are lifted to their canonical residues.
func Reduce(coeffs []int64, p uint64) Poly {
	out := make(Poly, len(coeffs))
	m := int64(p)
	for i, c := range coeffs {
		r := c % m
		if r < 0 {
			r += m
		}
		out[i] = uint64(r)
	}
	return polyTrim(out, p)
}

// Degree returns the degree of f, with deg(0) = -1.
func (f Poly) Degree() int {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] != 0 {
			return i
		}
	}
	return -1
}

// IsSquarefree reports whether f has no repeated irreducible factor over F_p,
// i.e. gcd(f, f') is constant.
func IsSquarefree(f Poly, p uint64) bool {
	ft := polyTrim(f, p)
	if len(ft) <= 1 {
		return false
	}
	d := derivative(ft, p)
	if d.Degree() < 0 {
		// f is a p-th power (or constant); certainly not squarefree here.
		return false
	}
	g := polyGCD(ft, d, p)
	return len(g) == 1
}

// Pattern is the multiset of irreducible factor degrees of a squarefree
// polynomial, sorted ascending.
type Pattern []int

// Total returns the sum of factor degrees (the degree of the polynomial).
func (pt Pattern) Total() int {
	s := 0
	for _, d := range pt {
		s += d
	}
	return s
}

// Max returns the largest factor degree, 0 for an empty pattern.
func (pt Pattern) Max() int {
	if len(pt) == 0 {
		return 0
	}
	return pt[len(pt)-1]
}

// String renders the pattern in power notation, e.g. "1^4 2^2" or "4^2".
func (pt Pattern) String() string {
	if len(pt) == 0 {
		return "-"
	}
	var b strings.Builder
	for i := 0; i < len(pt); {
		j := i
		for j < len(pt) && pt[j] == pt[i] {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d^%d", pt[i], j-i)
		i = j
	}
	return b.String()
}

// DegreePattern computes the factor-degree pattern of f over F_p via
// distinct-degree factorization: for ascending d, gcd(x^{p^d} - x, f*)
// splits off the product of all irreducible factors of degree d.
// f must be squarefree mod p; otherwise ErrNotSquarefree is returned.
func DegreePattern(f Poly, p uint64) (Pattern, error) {
	ft := polyTrim(f, p)
	n := ft.Degree()
	if n < 1 {
		return nil, fmt.Errorf("ffpoly: degenerate reduction of degree %d", n)
	}
	if !IsSquarefree(ft, p) {
		return nil, ErrNotSquarefree
	}

	var pat Pattern
	remaining := monic(ft, p)
	x := Poly{0, 1}
	h := Poly{0, 1}
	for d := 1; remaining.Degree() > 0; d++ {
		if 2*d > remaining.Degree() {
			// remaining is irreducible of its own degree
			pat = append(pat, remaining.Degree())
			break
		}
		h = polyPowMod(h, p, remaining, p)
		g := polyGCD(polySub(h, x, p), remaining, p)
		if len(g) > 1 {
			k := g.Degree() / d
			for i := 0; i < k; i++ {
				pat = append(pat, d)
			}
			remaining, _ = polyDivMod(remaining, g, p)
			h = polyMod(h, remaining, p)
		}
	}
	sort.Ints(pat)
	if pat.Total() != n {
		return nil, fmt.Errorf("ffpoly: pattern degrees sum to %d, want %d", pat.Total(), n)
	}
	return pat, nil
}

func derivative(f Poly, p uint64) Poly {
	if len(f) <= 1 {
		return Poly{0}
	}
	out := make(Poly, len(f)-1)
	for i := 1; i < len(f); i++ {
		out[i-1] = modMul(uint64(i)%p, f[i], p)
	}
	return polyTrim(out, p)
}

func monic(f Poly, p uint64) Poly {
	ft := polyTrim(f, p)
	lead := ft[len(ft)-1]
	if lead == 1 {
		return ft
	}
	inv := modInv(lead, p)
	out := make(Poly, len(ft))
	for i := range ft {
		out[i] = modMul(ft[i], inv, p)
	}
	return out
}

func modAdd(a, b, q uint64) uint64 {
	a %= q
	b %= q
	sum := a + b
	if sum >= q || sum < a {
		sum -= q
	}
	return sum
}

func modSub(a, b, q uint64) uint64 {
	a %= q
	b %= q
	if a >= b {
		return a - b
	}
	return a + q - b
}

func modMul(a, b, q uint64) uint64 {
	a %= q
	b %= q
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, q)
	return rem
}

func modPow(a, e, q uint64) uint64 {
	if q == 1 {
		return 0
	}
	result := uint64(1 % q)
	base := a % q
	exp := e
	for exp > 0 {
		if exp&1 == 1 {
			result = modMul(result, base, q)
		}
		exp >>= 1
		if exp > 0 {
			base = modMul(base, base, q)
		}
	}
	return result
}

func modInv(a, q uint64) uint64 {
	if a%q == 0 {
		panic("ffpoly: inverse of zero")
	}
	return modPow(a, q-2, q)
}

func polyTrim(p Poly, q uint64) Poly {
	if len(p) == 0 {
		return Poly{0}
	}
	idx := len(p) - 1
	for idx > 0 {
		if p[idx]%q != 0 {
			break
		}
		idx--
	}
	out := make(Poly, idx+1)
	for i := 0; i <= idx; i++ {
		out[i] = p[i] % q
	}
	return out
}

func polySub(a, b Poly, q uint64) Poly {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make(Poly, n)
	for i := 0; i < n; i++ {
		var ai, bi uint64
		if i < len(a) {
			ai = a[i]
		}
		if i < len(b) {
			bi = b[i]
		}
		out[i] = modSub(ai, bi, q)
	}
	return polyTrim(out, q)
}

func polyMul(a, b Poly, q uint64) Poly {
	if len(a) == 0 || len(b) == 0 {
		return Poly{0}
	}
	out := make(Poly, len(a)+len(b)-1)
	for i := 0; i < len(a); i++ {
		if a[i]%q == 0 {
			continue
		}
		for j := 0; j < len(b); j++ {
			if b[j]%q == 0 {
				continue
			}
			out[i+j] = modAdd(out[i+j], modMul(a[i], b[j], q), q)
		}
	}
	return polyTrim(out, q)
}

func polyDivMod(a, b Poly, q uint64) (Poly, Poly) {
	A := polyTrim(a, q)
	B := polyTrim(b, q)
	if len(B) == 1 && B[0] == 0 {
		panic("ffpoly: divide by zero polynomial")
	}
	if len(A) < len(B) {
		return Poly{0}, A
	}
	rem := make(Poly, len(A))
	copy(rem, A)
	quotient := make(Poly, len(A)-len(B)+1)
	invLead := modInv(B[len(B)-1], q)
	for i := len(A) - 1; i >= len(B)-1; i-- {
		coeff := rem[i]
		if coeff != 0 {
			coeff = modMul(coeff, invLead, q)
			qIdx := i - (len(B) - 1)
			quotient[qIdx] = coeff
			for j := 0; j < len(B); j++ {
				remIdx := i - j
				rem[remIdx] = modSub(rem[remIdx], modMul(coeff, B[len(B)-1-j], q), q)
			}
		}
		if i == len(B)-1 {
			break
		}
	}
	return polyTrim(quotient, q), polyTrim(rem[:len(B)-1], q)
}

func polyMod(a, b Poly, q uint64) Poly {
	_, r := polyDivMod(a, b, q)
	return r
}

func polyGCD(a, b Poly, q uint64) Poly {
	A := polyTrim(a, q)
	B := polyTrim(b, q)
	zero := func(p Poly) bool { return len(p) == 1 && p[0] == 0 }
	for !zero(B) {
		_, r := polyDivMod(A, B, q)
		A, B = B, r
	}
	lead := A[len(A)-1]
	inv := modInv(lead, q)
	out := make(Poly, len(A))
	for i := range A {
		out[i] = modMul(A[i], inv, q)
	}
	return polyTrim(out, q)
}

func polyPowMod(base Poly, exp uint64, modulus Poly, q uint64) Poly {
	result := Poly{1}
	b := polyMod(polyTrim(base, q), modulus, q)
	m := polyTrim(modulus, q)
	e := exp
	for e > 0 {
		if e&1 == 1 {
			result = polyMod(polyMul(result, b, q), m, q)
		}
		e >>= 1
		if e > 0 {
			b = polyMod(polyMul(b, b, q), m, q)
		}
	}
	return polyTrim(result, q)
}
