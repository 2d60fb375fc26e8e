package frob

import (
	"errors"
	"testing"

	"Q8-Frobenius/cases"
)

func TestSubfieldScanRecoversAttestedTriple(t *testing.T) {
	c := mustCase(t, 2)
	got, err := SubfieldScan(c, 250)
	if err != nil {
		t.Fatalf("SubfieldScan: %v", err)
	}
	if got != c.Subfields {
		t.Fatalf("SubfieldScan: got=%v want=%v", got, c.Subfields)
	}
}

func TestVerifyTripleForcedCase(t *testing.T) {
	c := mustCase(t, 3)
	if c.Source != cases.TripleForced {
		t.Fatalf("case_03 source=%s want=forced", c.Source)
	}
	if err := VerifyTriple(c, 500); err != nil {
		t.Fatalf("VerifyTriple: %v", err)
	}
}

func TestEnsureSubfieldsDerivesUnknownTriple(t *testing.T) {
	c := mustCase(t, 1)
	got, err := EnsureSubfields(c, 1000)
	if err != nil {
		t.Fatalf("EnsureSubfields: %v", err)
	}
	if !got.HasSubfields() || got.Source != cases.TripleScanned {
		t.Fatalf("EnsureSubfields: source=%s want=scanned", got.Source)
	}
	found := false
	for _, cand := range c.CandidateTriples() {
		if cand == got.Subfields {
			found = true
		}
	}
	if !found {
		t.Fatalf("EnsureSubfields: triple %v is not among the candidates", got.Subfields)
	}
	if got.Subfields[0] >= got.Subfields[1] || got.Subfields[1] >= got.Subfields[2] {
		t.Fatalf("EnsureSubfields: triple %v is not ascending", got.Subfields)
	}
	// The three subfields multiply to a square times the largest one.
	prod := got.Subfields[0] * got.Subfields[1]
	if prod%got.Subfields[2] != 0 || !isSquare(prod/got.Subfields[2]) {
		t.Fatalf("EnsureSubfields: %v is not closed under squarefree products", got.Subfields)
	}

	// A case that already carries a triple is returned untouched. The
	// tiny bound would make a rescan fail, proving none runs.
	again, err := EnsureSubfields(got, 10)
	if err != nil {
		t.Fatalf("EnsureSubfields (cached): %v", err)
	}
	if again.Subfields != got.Subfields || again.Source != got.Source {
		t.Fatalf("EnsureSubfields (cached): %v/%s differs from %v/%s",
			again.Subfields, again.Source, got.Subfields, got.Source)
	}
}

func TestSubfieldScanRejectsWrongPolynomial(t *testing.T) {
	// x^8 - 2 over a fake two-prime catalog entry: mod 7 it splits as
	// 1^2 2^3, which no quaternion field allows, so the scan must flag
	// the entry instead of electing a triple.
	c := cases.Case{
		ID:     1,
		Coeffs: []int64{-2, 0, 0, 0, 0, 0, 0, 0, 1},
		Disc:   []cases.PrimePower{{P: 3, E: 6}, {P: 5, E: 6}},
	}
	if _, err := SubfieldScan(c, 100); !errors.Is(err, ErrInconsistent) {
		t.Fatalf("SubfieldScan: err=%v want ErrInconsistent", err)
	}
}

func isSquare(n int64) bool {
	if n < 0 {
		return false
	}
	r := int64(0)
	for r*r < n {
		r++
	}
	return r*r == n
}
