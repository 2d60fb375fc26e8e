package ffpoly

import (
	"errors"
	"testing"
)

func TestReduceNegativeCoefficients(t *testing.T) {
	// x^2 - 3x - 1 mod 5 -> x^2 + 2x + 4
	f := Reduce([]int64{-1, -3, 1}, 5)
	want := Poly{4, 2, 1}
	if len(f) != len(want) {
		t.Fatalf("Reduce length mismatch: got=%d want=%d", len(f), len(want))
	}
	for i := range want {
		if f[i] != want[i] {
			t.Fatalf("Reduce coeff %d mismatch: got=%d want=%d", i, f[i], want[i])
		}
	}
}

func TestIsSquarefree(t *testing.T) {
	// x^3 + x^2 = x^2 (x+1) has a repeated factor mod 5
	if IsSquarefree(Poly{0, 0, 1, 1}, 5) {
		t.Fatalf("x^2(x+1) reported squarefree")
	}
	// x^2 + 1 is squarefree mod 5
	if !IsSquarefree(Poly{1, 0, 1}, 5) {
		t.Fatalf("x^2+1 reported non-squarefree")
	}
	// char 2: even polynomial is a square
	if IsSquarefree(Poly{1, 0, 1}, 2) {
		t.Fatalf("(x+1)^2 reported squarefree mod 2")
	}
}

func TestDegreePatternSplitAndInert(t *testing.T) {
	// x^2+1 = (x+2)(x+3) mod 5
	pat, err := DegreePattern(Poly{1, 0, 1}, 5)
	if err != nil {
		t.Fatalf("DegreePattern mod 5: %v", err)
	}
	if got := pat.String(); got != "1^2" {
		t.Fatalf("pattern mismatch: got=%q want=%q", got, "1^2")
	}
	// x^2+1 is irreducible mod 3
	pat, err = DegreePattern(Poly{1, 0, 1}, 3)
	if err != nil {
		t.Fatalf("DegreePattern mod 3: %v", err)
	}
	if got := pat.String(); got != "2^1" {
		t.Fatalf("pattern mismatch: got=%q want=%q", got, "2^1")
	}
	if pat.Max() != 2 || pat.Total() != 2 {
		t.Fatalf("pattern stats mismatch: max=%d total=%d", pat.Max(), pat.Total())
	}
}

func TestDegreePatternMixed(t *testing.T) {
	// x^4 + x = x (x+1) (x^2+x+1) mod 2
	pat, err := DegreePattern(Poly{0, 1, 0, 0, 1}, 2)
	if err != nil {
		t.Fatalf("DegreePattern: %v", err)
	}
	if got := pat.String(); got != "1^2 2^1" {
		t.Fatalf("pattern mismatch: got=%q want=%q", got, "1^2 2^1")
	}
}

func TestDegreePatternDegree8(t *testing.T) {
	// x^8 - 1 splits completely mod 17 (8 | 17-1)
	f := Reduce([]int64{-1, 0, 0, 0, 0, 0, 0, 0, 1}, 17)
	pat, err := DegreePattern(f, 17)
	if err != nil {
		t.Fatalf("DegreePattern mod 17: %v", err)
	}
	if got := pat.String(); got != "1^8" {
		t.Fatalf("pattern mismatch: got=%q want=%q", got, "1^8")
	}
	// x^8 - 1 = (x-1)(x+1)(x^2+1)(x^2+x+2)(x^2+2x+2) mod 3
	f = Reduce([]int64{-1, 0, 0, 0, 0, 0, 0, 0, 1}, 3)
	pat, err = DegreePattern(f, 3)
	if err != nil {
		t.Fatalf("DegreePattern mod 3: %v", err)
	}
	if got := pat.String(); got != "1^2 2^3" {
		t.Fatalf("pattern mismatch: got=%q want=%q", got, "1^2 2^3")
	}
	if pat.Total() != 8 {
		t.Fatalf("pattern total mismatch: got=%d want=8", pat.Total())
	}
}

func TestDegreePatternRejectsNonSquarefree(t *testing.T) {
	// (x+1)^2 mod 5
	_, err := DegreePattern(Poly{1, 2, 1}, 5)
	if !errors.Is(err, ErrNotSquarefree) {
		t.Fatalf("expected ErrNotSquarefree, got %v", err)
	}
}

func TestPatternString(t *testing.T) {
	cases := []struct {
		pat  Pattern
		want string
	}{
		{Pattern{1, 1, 1, 1, 1, 1, 1, 1}, "1^8"},
		{Pattern{2, 2, 2, 2}, "2^4"},
		{Pattern{4, 4}, "4^2"},
		{Pattern{1, 1, 1, 1, 2, 2}, "1^4 2^2"},
		{Pattern{}, "-"},
	}
	for _, tc := range cases {
		if got := tc.pat.String(); got != tc.want {
			t.Fatalf("Pattern.String mismatch: got=%q want=%q", got, tc.want)
		}
	}
}
