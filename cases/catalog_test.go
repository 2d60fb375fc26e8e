package cases

import "testing"

// The polynomial and discriminant strings below are the authoritative forms
// of the family; the formatter must reproduce them exactly from the stored
// coefficient vectors, which guards against transcription slips.
var wantPoly = map[int]string{
	1:  "x^8 - x^7 - 34*x^6 + 29*x^5 + 361*x^4 - 305*x^3 - 1090*x^2 + 1345*x - 395",
	2:  "x^8 + 315*x^6 + 34020*x^4 + 1488375*x^2 + 22325625",
	3:  "x^8 - 205*x^6 + 13940*x^4 - 378225*x^2 + 3404025",
	4:  "x^8 - 3*x^7 + 142*x^6 - 115*x^5 + 6641*x^4 + 3055*x^3 + 157938*x^2 + 152941*x + 2031361",
	5:  "x^8 - x^7 - 178*x^6 - 550*x^5 + 7225*x^4 + 44407*x^3 + 55928*x^2 - 45392*x + 4096",
	6:  "x^8 - 3*x^7 + 106*x^6 + 381*x^5 + 414*x^4 - 8475*x^3 + 44497*x^2 + 151740*x + 253168",
	7:  "x^8 - 3*x^7 - 475*x^6 - 2386*x^5 + 56669*x^4 + 732202*x^3 + 3280440*x^2 + 5788174*x + 2396941",
	8:  "x^8 - 3*x^7 - 847*x^6 - 4250*x^5 + 194805*x^4 + 2321042*x^3 + 4218300*x^2 - 28827252*x - 48031623",
	9:  "x^8 - 3*x^7 + 1854*x^6 + 14657*x^5 + 1134753*x^4 + 15385779*x^3 + 370857442*x^2 + 2861780247*x + 2847007172",
	10: "x^8 - 3*x^7 + 1042*x^6 + 8233*x^5 + 284219*x^4 + 4899401*x^3 + 42209694*x^2 + 179998937*x + 404059099",
	11: "x^8 - x^7 - 866*x^6 - 2686*x^5 + 197617*x^4 + 1072207*x^3 - 8786448*x^2 - 32864208*x + 159160192",
	12: "x^8 - 3*x^7 - 1591*x^6 - 7978*x^5 + 718061*x^4 + 8174530*x^3 - 29006964*x^2 - 433628432*x + 235862473",
	13: "x^8 - 3*x^7 + 3478*x^6 + 27505*x^5 + 4489397*x^4 + 53881703*x^3 + 297252028*x^2 + 2622034450*x + 6510614292",
}

var wantDisc = map[int]string{
	1:  "3^6 * 5^6 * 7^6",
	2:  "3^6 * 5^6 * 7^6",
	3:  "5^6 * 41^6",
	4:  "3^4 * 5^6 * 41^6",
	5:  "3^6 * 11^6 * 17^6",
	6:  "3^6 * 11^6 * 17^6",
	7:  "3^7 * 41^6",
	8:  "3^7 * 73^6",
	9:  "3^4 * 37^6 * 73^6",
	10: "3^4 * 37^6 * 41^6",
	11: "7^6 * 17^6 * 23^6",
	12: "3^7 * 137^6",
	13: "3^4 * 37^6 * 137^6",
}

func TestCatalogStrings(t *testing.T) {
	all := All()
	if len(all) != NumCases {
		t.Fatalf("catalog size mismatch: got=%d want=%d", len(all), NumCases)
	}
	for _, c := range all {
		if got := c.PolyString(); got != wantPoly[c.ID] {
			t.Fatalf("case %d polynomial mismatch:\n got=%q\nwant=%q", c.ID, got, wantPoly[c.ID])
		}
		if got := c.DiscString(); got != wantDisc[c.ID] {
			t.Fatalf("case %d discriminant mismatch: got=%q want=%q", c.ID, got, wantDisc[c.ID])
		}
		if len(c.Coeffs) != 9 || c.Coeffs[8] != 1 {
			t.Fatalf("case %d polynomial is not monic degree 8", c.ID)
		}
	}
}

func TestByID(t *testing.T) {
	c, err := ByID(2)
	if err != nil {
		t.Fatalf("ByID(2): %v", err)
	}
	if c.ID != 2 || c.MRho0 != 1 {
		t.Fatalf("ByID(2) mismatch: id=%d m_rho0=%d", c.ID, c.MRho0)
	}
	if c.Name() != "case_02" {
		t.Fatalf("Name mismatch: got=%q want=%q", c.Name(), "case_02")
	}
	for _, bad := range []int{0, 14, -1} {
		if _, err := ByID(bad); err == nil {
			t.Fatalf("ByID(%d) should fail", bad)
		}
	}
}

func TestMRho0Values(t *testing.T) {
	zero := map[int]bool{1: true, 5: true, 11: true}
	for _, c := range All() {
		want := 1
		if zero[c.ID] {
			want = 0
		}
		if c.MRho0 != want {
			t.Fatalf("case %d m_rho0 mismatch: got=%d want=%d", c.ID, c.MRho0, want)
		}
	}
}

func TestRamification(t *testing.T) {
	c, _ := ByID(4)
	for _, p := range []uint64{3, 5, 41} {
		if !c.IsRamified(p) {
			t.Fatalf("case 4 should be ramified at %d", p)
		}
	}
	for _, p := range []uint64{2, 7, 11, 43} {
		if c.IsRamified(p) {
			t.Fatalf("case 4 should be unramified at %d", p)
		}
	}
}

func TestSubfieldTriples(t *testing.T) {
	for _, c := range All() {
		if !c.HasSubfields() {
			continue
		}
		d := c.Subfields
		if !(d[0] < d[1] && d[1] < d[2]) {
			t.Fatalf("case %d triple not ascending: %v", c.ID, d)
		}
		// d3 is the squarefree kernel of d1*d2
		prod := d[0] * d[1]
		if prod%d[2] != 0 {
			t.Fatalf("case %d triple not multiplicative: %v", c.ID, d)
		}
		q := prod / d[2]
		r := isqrt64(q)
		if r*r != q {
			t.Fatalf("case %d: d1*d2/d3 = %d is not a square", c.ID, q)
		}
	}
}

func TestCandidateTriples(t *testing.T) {
	// Forced cases admit exactly one candidate, and it is the stored one.
	for _, c := range All() {
		cand := c.CandidateTriples()
		switch c.Source {
		case TripleForced:
			if len(cand) != 1 {
				t.Fatalf("case %d: got %d candidates, want 1", c.ID, len(cand))
			}
			if cand[0] != c.Subfields {
				t.Fatalf("case %d candidate mismatch: got=%v want=%v", c.ID, cand[0], c.Subfields)
			}
		case TripleAttested:
			if len(cand) != 4 {
				t.Fatalf("case %d: got %d candidates, want 4", c.ID, len(cand))
			}
			found := false
			for _, d := range cand {
				if d == c.Subfields {
					found = true
				}
			}
			if !found {
				t.Fatalf("case %d: attested triple %v not among candidates %v", c.ID, c.Subfields, cand)
			}
		case TripleUnknown:
			if len(cand) != 4 {
				t.Fatalf("case %d: got %d candidates, want 4", c.ID, len(cand))
			}
		}
	}
}

func TestProbeIntegers(t *testing.T) {
	c, _ := ByID(2)
	got := c.ProbeIntegers()
	want := []int64{3, 5, 7, 15, 21, 35, 105}
	if len(got) != len(want) {
		t.Fatalf("ProbeIntegers length mismatch: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ProbeIntegers[%d] mismatch: got=%d want=%d", i, got[i], want[i])
		}
	}
}

func isqrt64(n int64) int64 {
	if n < 0 {
		return -1
	}
	x := int64(1)
	for x*x < n {
		x++
	}
	if x*x == n {
		return x
	}
	return x - 1
}
