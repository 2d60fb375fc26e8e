package bias

import (
	"math"
	"testing"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/quat"
)

func TestCoefficients(t *testing.T) {
	c0, err := Coefficients(0)
	if err != nil {
		t.Fatalf("Coefficients(0): %v", err)
	}
	if c0 != [quat.NumClasses]float64{0.5, 2.5, -0.5, -0.5, -0.5} {
		t.Fatalf("Coefficients(0)=%v", c0)
	}
	c1, err := Coefficients(1)
	if err != nil {
		t.Fatalf("Coefficients(1): %v", err)
	}
	if c1 != [quat.NumClasses]float64{2.5, 0.5, -0.5, -0.5, -0.5} {
		t.Fatalf("Coefficients(1)=%v", c1)
	}
	if _, err := Coefficients(2); err == nil {
		t.Fatalf("Coefficients(2) accepted")
	}
}

func TestSamplePointsGrid(t *testing.T) {
	pts := SamplePoints(1_000_000, DefaultSamples)
	if len(pts) == 0 {
		t.Fatalf("no sample points")
	}
	if pts[0] < MinSampleX {
		t.Fatalf("first point %d below %d", pts[0], MinSampleX)
	}
	if pts[len(pts)-1] != 1_000_000 {
		t.Fatalf("last point %d, want max height", pts[len(pts)-1])
	}
	low, mid, high := 0, 0, 0
	for i, x := range pts {
		if i > 0 && pts[i-1] >= x {
			t.Fatalf("points not strictly ascending at %d", x)
		}
		switch {
		case x <= 1000:
			low++
		case x <= 100_000:
			mid++
		default:
			high++
		}
	}
	if low < 300 || mid < 250 || high < 150 {
		t.Fatalf("grid allocation low=%d mid=%d high=%d too thin", low, mid, high)
	}
	if len(pts) > DefaultSamples+1 {
		t.Fatalf("grid has %d points, budget %d", len(pts), DefaultSamples)
	}
}

func TestSamplePointsSmallHeights(t *testing.T) {
	if pts := SamplePoints(2, 100); pts != nil {
		t.Fatalf("SamplePoints(2)=%v, want nil", pts)
	}
	pts := SamplePoints(3, 100)
	if len(pts) != 1 || pts[0] != 3 {
		t.Fatalf("SamplePoints(3)=%v", pts)
	}
	pts = SamplePoints(50, 100)
	if pts[0] != 3 || pts[len(pts)-1] != 50 {
		t.Fatalf("SamplePoints(50) spans [%d, %d]", pts[0], pts[len(pts)-1])
	}
}

// classify labels every classifiable prime below hi for the case.
func classify(t *testing.T, c cases.Case, hi uint64) []frob.Record {
	t.Helper()
	ec, err := frob.NewExact(c)
	if err != nil {
		t.Fatalf("NewExact: %v", err)
	}
	var recs []frob.Record
	for _, p := range nt.SievePrimes(2, hi) {
		rec, err := ec.Classify(p)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestAggregateWeightedBiasSumsToZero(t *testing.T) {
	c, err := cases.ByID(2)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	recs := classify(t, c, 20_000)
	heights := SamplePoints(20_000, 200)
	res, err := Aggregate(c, recs, heights)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}

	if res.Distribution.Classified != uint64(len(recs)) {
		t.Fatalf("classified=%d want=%d", res.Distribution.Classified, len(recs))
	}
	var classTotal uint64
	for _, n := range res.Distribution.ByClass {
		classTotal += n
	}
	if classTotal != res.Distribution.Classified {
		t.Fatalf("class counts sum to %d of %d", classTotal, res.Distribution.Classified)
	}

	// The class-size weighted average of the observed biases telescopes
	// to zero at every height: sum_k (|c_k|/8) * observed_k = 0.
	for i := range heights {
		var sum float64
		for k := range res.Series {
			w := float64(quat.Class(k).Size()) / 8
			sum += w * res.Series[k].Points[i].Observed
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("weighted bias sum at x=%d is %g", heights[i], sum)
		}
	}

	// Theoretical curve: coefficient times log log x, increasing in x.
	s := res.Series[quat.ClassMinusOne]
	if s.Coefficient != 0.5 {
		t.Fatalf("case_02 has m_rho0=1, so class -1 coefficient=%.2f want 0.5", s.Coefficient)
	}
	for i := 1; i < len(s.Points); i++ {
		if s.Points[i].Theoretical <= s.Points[i-1].Theoretical {
			t.Fatalf("theoretical curve not increasing at x=%d", s.Points[i].X)
		}
	}
	one := res.Series[quat.ClassOne]
	want := 2.5 * math.Log(math.Log(float64(one.Points[0].X)))
	if math.Abs(one.Points[0].Theoretical-want) > 1e-12 {
		t.Fatalf("theoretical=%g want %g", one.Points[0].Theoretical, want)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	c, err := cases.ByID(2)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	res, err := Aggregate(c, nil, []uint64{3, 10, 100})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if res.Distribution.Classified != 0 {
		t.Fatalf("classified=%d want 0", res.Distribution.Classified)
	}
	for k := range res.Series {
		for _, pt := range res.Series[k].Points {
			if pt.Observed != 0 {
				t.Fatalf("class %s observed=%g at x=%d, want 0", quat.Class(k), pt.Observed, pt.X)
			}
			if math.IsNaN(pt.Theoretical) || math.IsInf(pt.Theoretical, 0) {
				t.Fatalf("class %s theoretical not finite at x=%d", quat.Class(k), pt.X)
			}
		}
	}
}

func TestAggregateRejectsBadInput(t *testing.T) {
	c, err := cases.ByID(2)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	recs := []frob.Record{
		{Prime: 13, Label: quat.K, Class: quat.ClassK},
		{Prime: 11, Label: quat.I, Class: quat.ClassI},
	}
	if _, err := Aggregate(c, recs, []uint64{100}); err == nil {
		t.Fatalf("accepted out-of-order records")
	}
	if _, err := Aggregate(c, nil, []uint64{2}); err == nil {
		t.Fatalf("accepted a height below MinSampleX")
	}
	if _, err := Aggregate(c, nil, []uint64{10, 10}); err == nil {
		t.Fatalf("accepted duplicate heights")
	}
	bad := c
	bad.MRho0 = 5
	if _, err := Aggregate(bad, nil, []uint64{10}); err == nil {
		t.Fatalf("accepted m_rho0=5")
	}
}
