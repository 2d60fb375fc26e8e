package frob

import (
	"errors"
	"fmt"
	"time"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/internal/ffpoly"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/prof"
)

// ErrScanUndecided is returned when more than one candidate triple is
// still consistent with every degree pattern below the scan bound.
var ErrScanUndecided = errors.New("frob: subfield scan left several candidates, raise the bound")

// SubfieldScan derives the quadratic-subfield discriminant triple of c
// by elimination. Group theory limits the triple to the candidates
// enumerated by cases.CandidateTriples; every unramified prime with a
// squarefree reduction then imposes a hard constraint, since the degree
// pattern of f mod p is the cycle type of Frobenius:
//
//	1^8, 2^4  ->  Frobenius is central, all three symbols are +1
//	4^2       ->  Frobenius has order 4, exactly one symbol is +1
//
// A candidate that violates the constraint at any prime is wrong, so
// the survivor of a scan that eliminates all others is the true triple,
// not a guess. Index divisors are skipped; any other pattern means the
// catalog entry does not define a quaternion extension, which is
// reported as ErrInconsistent.
func SubfieldScan(c cases.Case, bound uint64) ([3]int64, error) {
	defer prof.Track(time.Now(), "SubfieldScan")
	cands := c.CandidateTriples()
	if len(cands) == 0 {
		return [3]int64{}, fmt.Errorf("frob: %s: no candidate triples", c.Name())
	}
	alive := make([]bool, len(cands))
	for i := range alive {
		alive[i] = true
	}
	nAlive := len(cands)
	usable := 0

	for _, p := range nt.SievePrimes(2, bound+1) {
		if c.IsRamified(p) {
			continue
		}
		pat, err := ffpoly.DegreePattern(ffpoly.Reduce(c.Coeffs, p), p)
		if err != nil {
			if errors.Is(err, ffpoly.ErrNotSquarefree) {
				continue
			}
			return [3]int64{}, fmt.Errorf("frob: %s: p=%d: %w", c.Name(), p, err)
		}
		var needPlus int
		switch pat.String() {
		case "1^8", "2^4":
			needPlus = 3
		case "4^2":
			needPlus = 1
		default:
			return [3]int64{}, fmt.Errorf("frob: %s: p=%d: pattern %s: %w",
				c.Name(), p, pat, ErrInconsistent)
		}
		usable++
		for i, d := range cands {
			if !alive[i] {
				continue
			}
			plus := 0
			for _, s := range nt.SymbolTriple(d, p) {
				if s > 0 {
					plus++
				}
			}
			if plus != needPlus {
				alive[i] = false
				nAlive--
			}
		}
		if nAlive == 0 {
			return [3]int64{}, fmt.Errorf("frob: %s: p=%d eliminated every candidate triple: %w",
				c.Name(), p, ErrInconsistent)
		}
	}

	if usable == 0 {
		return [3]int64{}, fmt.Errorf("frob: %s: no usable primes below %d", c.Name(), bound)
	}
	if nAlive > 1 {
		return [3]int64{}, fmt.Errorf("frob: %s: %d of %d candidates alive after scanning to %d: %w",
			c.Name(), nAlive, len(cands), bound, ErrScanUndecided)
	}
	for i, d := range cands {
		if alive[i] {
			return d, nil
		}
	}
	return [3]int64{}, fmt.Errorf("frob: %s: scan bookkeeping lost the survivor", c.Name())
}

// EnsureSubfields returns c with a usable subfield triple, running the
// scan only when the catalog does not already carry one.
func EnsureSubfields(c cases.Case, bound uint64) (cases.Case, error) {
	if c.HasSubfields() {
		return c, nil
	}
	d, err := SubfieldScan(c, bound)
	if err != nil {
		return c, err
	}
	return c.WithSubfields(d, cases.TripleScanned), nil
}

// VerifyTriple re-derives the triple of a case that already has one and
// reports a mismatch. Used by the data checker to cross-examine forced
// and attested catalog entries against observed factorizations.
func VerifyTriple(c cases.Case, bound uint64) error {
	if !c.HasSubfields() {
		return fmt.Errorf("%s: %w", c.Name(), ErrNoSubfields)
	}
	d, err := SubfieldScan(c, bound)
	if err != nil {
		return err
	}
	if d != c.Subfields {
		return fmt.Errorf("frob: %s: scan derived triple %v but catalog carries %v: %w",
			c.Name(), d, c.Subfields, ErrInconsistent)
	}
	return nil
}
