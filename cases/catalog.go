// Package cases holds the catalog of the thirteen degree-8 polynomials whose
// splitting fields are quaternion (Q8) extensions of Q, together with the
// arithmetic data the classifiers need: discriminant factorization, the
// m_rho0 parameter selecting the bias coefficient set, and the discriminants
// of the three quadratic subfields where they are pinned down.
package cases

import (
	"fmt"
	"sort"
	"strings"
)

// PrimePower is one factor p^e of a discriminant factorization.
type PrimePower struct {
	P uint64
	E int
}

// TripleSource records how a case's quadratic-subfield discriminant triple
// was obtained.
type TripleSource uint8

const (
	// TripleUnknown: the triple must be derived from classified primes
	// before exact order-4 resolution is possible (see frob.SubfieldScan).
	TripleUnknown TripleSource = iota
	// TripleForced: the ramified primes admit exactly one valid triple.
	TripleForced
	// TripleAttested: the triple is carried over from the original
	// experiment data for this case.
	TripleAttested
	// TripleScanned: the triple was derived at runtime by eliminating
	// candidates against observed degree patterns.
	TripleScanned
)

func (s TripleSource) String() string {
	switch s {
	case TripleForced:
		return "forced"
	case TripleAttested:
		return "attested"
	case TripleScanned:
		return "scanned"
	default:
		return "unknown"
	}
}

// Case describes one polynomial of the family.
type Case struct {
	ID     int
	Coeffs []int64 // constant term first, degree 8, monic
	Disc   []PrimePower
	MRho0  int

	// Subfields are the quadratic-subfield discriminants (d1 < d2 < d3,
	// d3 the squarefree kernel of d1*d2), zero-valued when Source is
	// TripleUnknown. The order fixes the naming of the order-4 classes:
	// d1 belongs to class i, d2 to j, d3 to k.
	Subfields [3]int64
	Source    TripleSource
}

var catalog = []Case{
	{
		ID:     1,
		Coeffs: []int64{-395, 1345, -1090, -305, 361, 29, -34, -1, 1},
		Disc:   []PrimePower{{3, 6}, {5, 6}, {7, 6}},
		MRho0:  0,
	},
	{
		ID:        2,
		Coeffs:    []int64{22325625, 0, 1488375, 0, 34020, 0, 315, 0, 1},
		Disc:      []PrimePower{{3, 6}, {5, 6}, {7, 6}},
		MRho0:     1,
		Subfields: [3]int64{5, 21, 105},
		Source:    TripleAttested,
	},
	{
		ID:        3,
		Coeffs:    []int64{3404025, 0, -378225, 0, 13940, 0, -205, 0, 1},
		Disc:      []PrimePower{{5, 6}, {41, 6}},
		MRho0:     1,
		Subfields: [3]int64{5, 41, 205},
		Source:    TripleForced,
	},
	{
		ID:        4,
		Coeffs:    []int64{2031361, 152941, 157938, 3055, 6641, -115, 142, -3, 1},
		Disc:      []PrimePower{{3, 4}, {5, 6}, {41, 6}},
		MRho0:     1,
		Subfields: [3]int64{5, 41, 205},
		Source:    TripleForced,
	},
	{
		ID:     5,
		Coeffs: []int64{4096, -45392, 55928, 44407, 7225, -550, -178, -1, 1},
		Disc:   []PrimePower{{3, 6}, {11, 6}, {17, 6}},
		MRho0:  0,
	},
	{
		ID:     6,
		Coeffs: []int64{253168, 151740, 44497, -8475, 414, 381, 106, -3, 1},
		Disc:   []PrimePower{{3, 6}, {11, 6}, {17, 6}},
		MRho0:  1,
	},
	{
		ID:        7,
		Coeffs:    []int64{2396941, 5788174, 3280440, 732202, 56669, -2386, -475, -3, 1},
		Disc:      []PrimePower{{3, 7}, {41, 6}},
		MRho0:     1,
		Subfields: [3]int64{3, 41, 123},
		Source:    TripleForced,
	},
	{
		ID:        8,
		Coeffs:    []int64{-48031623, -28827252, 4218300, 2321042, 194805, -4250, -847, -3, 1},
		Disc:      []PrimePower{{3, 7}, {73, 6}},
		MRho0:     1,
		Subfields: [3]int64{3, 73, 219},
		Source:    TripleForced,
	},
	{
		ID:        9,
		Coeffs:    []int64{2847007172, 2861780247, 370857442, 15385779, 1134753, 14657, 1854, -3, 1},
		Disc:      []PrimePower{{3, 4}, {37, 6}, {73, 6}},
		MRho0:     1,
		Subfields: [3]int64{37, 73, 2701},
		Source:    TripleForced,
	},
	{
		ID:        10,
		Coeffs:    []int64{404059099, 179998937, 42209694, 4899401, 284219, 8233, 1042, -3, 1},
		Disc:      []PrimePower{{3, 4}, {37, 6}, {41, 6}},
		MRho0:     1,
		Subfields: [3]int64{37, 41, 1517},
		Source:    TripleForced,
	},
	{
		ID:     11,
		Coeffs: []int64{159160192, -32864208, -8786448, 1072207, 197617, -2686, -866, -1, 1},
		Disc:   []PrimePower{{7, 6}, {17, 6}, {23, 6}},
		MRho0:  0,
	},
	{
		ID:        12,
		Coeffs:    []int64{235862473, -433628432, -29006964, 8174530, 718061, -7978, -1591, -3, 1},
		Disc:      []PrimePower{{3, 7}, {137, 6}},
		MRho0:     1,
		Subfields: [3]int64{3, 137, 411},
		Source:    TripleForced,
	},
	{
		ID:        13,
		Coeffs:    []int64{6510614292, 2622034450, 297252028, 53881703, 4489397, 27505, 3478, -3, 1},
		Disc:      []PrimePower{{3, 4}, {37, 6}, {137, 6}},
		MRho0:     1,
		Subfields: [3]int64{37, 137, 5069},
		Source:    TripleForced,
	},
}

// NumCases is the size of the family.
const NumCases = 13

// All returns the full catalog in ID order.
func All() []Case {
	out := make([]Case, len(catalog))
	copy(out, catalog)
	return out
}

// ByID returns the case with the given 1-based ID.
func ByID(id int) (Case, error) {
	if id < 1 || id > len(catalog) {
		return Case{}, fmt.Errorf("cases: no case %d (valid range 1..%d)", id, len(catalog))
	}
	return catalog[id-1], nil
}

// Name returns the canonical case name used in file names and the result
// store, e.g. "case_02".
func (c Case) Name() string { return fmt.Sprintf("case_%02d", c.ID) }

// DiscString renders the discriminant factorization in the catalog's
// conventional form, e.g. "3^6 * 5^6 * 7^6".
func (c Case) DiscString() string {
	parts := make([]string, len(c.Disc))
	for i, pp := range c.Disc {
		parts[i] = fmt.Sprintf("%d^%d", pp.P, pp.E)
	}
	return strings.Join(parts, " * ")
}

// RamifiedPrimes returns the primes dividing the field discriminant, in
// ascending order.
func (c Case) RamifiedPrimes() []uint64 {
	out := make([]uint64, len(c.Disc))
	for i, pp := range c.Disc {
		out[i] = pp.P
	}
	return out
}

// IsRamified reports whether p divides the field discriminant.
func (c Case) IsRamified(p uint64) bool {
	for _, pp := range c.Disc {
		if pp.P == p {
			return true
		}
	}
	return false
}

// HasSubfields reports whether the quadratic-subfield triple is available.
func (c Case) HasSubfields() bool { return c.Source != TripleUnknown }

// WithSubfields returns a copy of the case carrying a derived triple.
func (c Case) WithSubfields(d [3]int64, src TripleSource) Case {
	c.Subfields = d
	c.Source = src
	return c
}

// subfieldPrimes returns the ramified primes that can divide a quadratic
// subfield discriminant. A prime with discriminant valuation 4 has central
// inertia {+-1}, acts trivially on the biquadratic layer and is excluded;
// all others carry order-4 inertia and must divide exactly two of the three
// subfield discriminants.
func (c Case) subfieldPrimes() []uint64 {
	var out []uint64
	for _, pp := range c.Disc {
		if pp.E != 4 {
			out = append(out, pp.P)
		}
	}
	return out
}

// CandidateTriples enumerates every subfield-discriminant triple compatible
// with the case's ramification: the sets {d1,d2,d3} closed under squarefree
// products in which each order-4 prime divides exactly two members. Two
// eligible primes force a single candidate; three give four.
func (c Case) CandidateTriples() [][3]int64 {
	qs := c.subfieldPrimes()
	switch len(qs) {
	case 2:
		return [][3]int64{sortTriple(int64(qs[0]), int64(qs[1]), int64(qs[0]*qs[1]))}
	case 3:
		q1, q2, q3 := int64(qs[0]), int64(qs[1]), int64(qs[2])
		return [][3]int64{
			sortTriple(q1*q2, q1*q3, q2*q3),
			sortTriple(q1, q2*q3, q1*q2*q3),
			sortTriple(q2, q1*q3, q1*q2*q3),
			sortTriple(q3, q1*q2, q1*q2*q3),
		}
	default:
		return nil
	}
}

func sortTriple(a, b, c int64) [3]int64 {
	v := []int64{a, b, c}
	sort.Slice(v, func(i, j int) bool { return v[i] < v[j] })
	return [3]int64{v[0], v[1], v[2]}
}

// ProbeIntegers returns the auxiliary integers whose Kronecker symbols feed
// the heuristic feature sets: all products of non-empty subsets of the
// ramified primes, ascending (e.g. 3,5,7,15,21,35,105 for cases 1 and 2).
func (c Case) ProbeIntegers() []int64 {
	ps := c.RamifiedPrimes()
	n := len(ps)
	var out []int64
	for mask := 1; mask < 1<<n; mask++ {
		prod := int64(1)
		for b := 0; b < n; b++ {
			if mask&(1<<b) != 0 {
				prod *= int64(ps[b])
			}
		}
		out = append(out, prod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
