// Package frob classifies the Frobenius conjugacy class of unramified
// primes in the quaternion fields of the case catalog.
//
// Two classifiers are provided. ExactClassifier proves the class of
// every unramified prime from the quadratic-subfield Kronecker symbols
// together with the Dedekind degree pattern of the defining polynomial;
// it never guesses. TableClassifier replays a decision table fitted to
// labeled data (see Fit) and carries the measured accuracy of that
// table; it is the replacement for hard-coded per-case pattern maps and
// is never substituted for the exact path silently.
package frob

import (
	"errors"
	"fmt"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/internal/ffpoly"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/quat"
)

var (
	// ErrRamified marks primes dividing the field discriminant; they
	// carry no Frobenius class and are excluded from every count.
	ErrRamified = errors.New("frob: prime ramifies in the field")

	// ErrInconclusive marks unramified primes whose reduction is not
	// squarefree (divisors of the index [O_K : Z[alpha]]) at which the
	// degree pattern cannot decide between the two central classes.
	ErrInconclusive = errors.New("frob: index divisor, degree pattern unavailable")

	// ErrNoSubfields is returned by NewExact for a case whose
	// quadratic-subfield discriminants are not known yet.
	ErrNoSubfields = errors.New("frob: quadratic subfield discriminants unknown")

	// ErrNoTableEntry is returned by TableClassifier when no tier of
	// the fitted table covers the observed features.
	ErrNoTableEntry = errors.New("frob: no decision-table entry for features")

	// ErrInconsistent signals observations that contradict the Galois
	// structure of the case, e.g. an order-4 degree pattern at a prime
	// whose subfield symbols are all +1. It indicates a wrong subfield
	// triple or a corrupted catalog entry, never a property of the prime.
	ErrInconsistent = errors.New("frob: observation contradicts group structure")
)

// Method records which classifier produced a Record.
type Method uint8

const (
	MethodExact Method = iota + 1
	MethodTable
	MethodImported
)

func (m Method) String() string {
	switch m {
	case MethodExact:
		return "exact"
	case MethodTable:
		return "table"
	case MethodImported:
		return "imported"
	default:
		return "unknown"
	}
}

// Record is the classification of a single unramified prime.
//
// Label is an 8-way group element: for class-level certificates it is
// the positive representative of Class, for table classifications the
// fitted label. Class is the conjugacy class and is the value all
// distribution counts are built on. Pattern and Symbols keep the
// invariants the decision was derived from; Pattern is empty when the
// class was settled by symbols alone.
type Record struct {
	Prime   uint64       `json:"prime"`
	Label   quat.Element `json:"label"`
	Class   quat.Class   `json:"class"`
	Pattern string       `json:"pattern,omitempty"`
	Symbols [3]int       `json:"symbols,omitempty"`
	Method  Method       `json:"method"`
}

// Classifier assigns Frobenius classes to primes for one fixed case.
// Exact reports whether every returned Record is proved; Accuracy is
// the measured reliability in percent (100 for exact classifiers).
type Classifier interface {
	Case() cases.Case
	Classify(p uint64) (Record, error)
	Exact() bool
	Accuracy() float64
}

// ExactClassifier resolves classes from first principles.
//
// The Kronecker symbols of the three quadratic-subfield discriminants
// locate Frobenius inside one of the cyclic subgroups <i>, <j>, <k>:
// exactly one symbol is +1 for the order-4 classes, all three are +1
// when Frobenius is central. The central split between the identity
// and -1 is read off the degree pattern of f mod p, which equals the
// cycle type of Frobenius whenever the reduction is squarefree.
type ExactClassifier struct {
	c cases.Case
}

// NewExact builds the exact classifier for c. The case must carry its
// quadratic-subfield triple; run SubfieldScan (or use a catalog entry
// with a forced or attested triple) before constructing the classifier.
func NewExact(c cases.Case) (*ExactClassifier, error) {
	if !c.HasSubfields() {
		return nil, fmt.Errorf("%s: %w", c.Name(), ErrNoSubfields)
	}
	return &ExactClassifier{c: c}, nil
}

func (e *ExactClassifier) Case() cases.Case  { return e.c }
func (e *ExactClassifier) Exact() bool       { return true }
func (e *ExactClassifier) Accuracy() float64 { return 100 }

func (e *ExactClassifier) Classify(p uint64) (Record, error) {
	if e.c.IsRamified(p) {
		return Record{}, fmt.Errorf("p=%d: %w", p, ErrRamified)
	}
	s := nt.SymbolTriple(e.c.Subfields, p)
	if s[0] == 0 || s[1] == 0 || s[2] == 0 {
		// Subfield discriminants only contain ramified primes, so an
		// unramified p never divides them.
		return Record{}, fmt.Errorf("p=%d: zero subfield symbol: %w", p, ErrInconsistent)
	}
	rec := Record{Prime: p, Symbols: s, Method: MethodExact}

	var class quat.Class
	switch {
	case s[0] == 1 && s[1] == 1 && s[2] == 1:
		// Central Frobenius. The degree pattern separates 1 from -1.
		pat, err := ffpoly.DegreePattern(ffpoly.Reduce(e.c.Coeffs, p), p)
		if err != nil {
			if errors.Is(err, ffpoly.ErrNotSquarefree) {
				return Record{}, fmt.Errorf("p=%d: %w", p, ErrInconclusive)
			}
			return Record{}, fmt.Errorf("p=%d: degree pattern: %w", p, err)
		}
		rec.Pattern = pat.String()
		switch rec.Pattern {
		case "1^8":
			class = quat.ClassOne
		case "2^4":
			class = quat.ClassMinusOne
		default:
			return Record{}, fmt.Errorf("p=%d: central symbols with pattern %s: %w",
				p, rec.Pattern, ErrInconsistent)
		}
	case s[0] == 1 && s[1] == -1 && s[2] == -1:
		class = quat.ClassI
	case s[0] == -1 && s[1] == 1 && s[2] == -1:
		class = quat.ClassJ
	case s[0] == -1 && s[1] == -1 && s[2] == 1:
		class = quat.ClassK
	default:
		// The product of the three symbols is +1 because d1*d2*d3 is a
		// square, so the remaining sign patterns cannot occur.
		return Record{}, fmt.Errorf("p=%d: symbol triple %v: %w", p, s, ErrInconsistent)
	}

	rec.Class = class
	rec.Label = class.Representative()
	return rec, nil
}
