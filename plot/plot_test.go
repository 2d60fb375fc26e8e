package plot

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Q8-Frobenius/bias"
	"Q8-Frobenius/quat"
)

func sampleResult(t *testing.T, caseID int) *bias.Result {
	t.Helper()
	coef, err := bias.Coefficients(1)
	if err != nil {
		t.Fatalf("coefficients: %v", err)
	}
	res := &bias.Result{CaseID: caseID, MRho0: 1, MaxX: 1000}
	res.Distribution.Classified = 160
	res.Distribution.ByClass = [quat.NumClasses]uint64{20, 20, 40, 40, 40}
	for k := quat.Class(0); k < quat.NumClasses; k++ {
		s := bias.Series{Class: k, Coefficient: coef[k]}
		for _, x := range []uint64{10, 100, 1000} {
			s.Points = append(s.Points, bias.Point{
				X:           x,
				Observed:    0.1 * float64(k+1),
				Theoretical: coef[k] * math.Log(math.Log(float64(x))),
			})
		}
		res.Series[k] = s
	}
	return res
}

func TestCasePageName(t *testing.T) {
	if got := CasePageName(2); got != "case_02_bias.html" {
		t.Fatalf("CasePageName(2)=%q", got)
	}
	if got := CasePageName(13); got != "case_13_bias.html" {
		t.Fatalf("CasePageName(13)=%q", got)
	}
}

func TestWriteCasePage(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCasePage(dir, sampleResult(t, 2))
	if err != nil {
		t.Fatalf("WriteCasePage: %v", err)
	}
	if filepath.Base(path) != "case_02_bias.html" {
		t.Fatalf("unexpected page path %q", path)
	}
	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	for _, want := range []string{
		"Case 2: S1 (sigma = 1)",
		"Case 2: S3 (sigma = i)",
		"observed bias",
		"log(log x)",
		"Frobenius distribution",
		"Chebyshev density",
	} {
		if !strings.Contains(string(html), want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestWriteOverviewPage(t *testing.T) {
	dir := t.TempDir()
	results := []*bias.Result{sampleResult(t, 2), sampleResult(t, 3)}
	path, err := WriteOverviewPage(dir, results)
	if err != nil {
		t.Fatalf("WriteOverviewPage: %v", err)
	}
	if filepath.Base(path) != OverviewPageName {
		t.Fatalf("unexpected overview path %q", path)
	}
	html, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	for _, want := range []string{"Final bias by case and class", "sigma = k"} {
		if !strings.Contains(string(html), want) {
			t.Fatalf("overview missing %q", want)
		}
	}
	// writePage creates missing directories.
	nested := filepath.Join(dir, "a", "b")
	if _, err := WriteOverviewPage(nested, results); err != nil {
		t.Fatalf("nested WriteOverviewPage: %v", err)
	}
}
