// Package bias aggregates classified primes into empirical Chebyshev
// bias measurements and pairs them with the conjectured asymptotic
// curve (M(sigma)+m(sigma)) * log log x.
//
// The observed bias of a class sigma at height x is
//
//	pi_half(x) - (8/|sigma|) * pi_half(x, sigma)
//
// where pi_half sums p^(-1/2) over classified unramified primes up to
// x, and pi_half(x, sigma) restricts the sum to primes with Frobenius
// class sigma. Classes of full density make the weighted difference
// oscillate around the conjectured curve; the coefficient depends only
// on the class and on the case's m_rho0 invariant.
package bias

import (
	"fmt"
	"math"
	"sort"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/quat"
)

// Coefficients returns (M+m) per conjugacy class for a case with the
// given m_rho0. Only the central classes react to m_rho0: the order-4
// classes always sit at -1/2.
func Coefficients(mRho0 int) ([quat.NumClasses]float64, error) {
	switch mRho0 {
	case 0:
		return [quat.NumClasses]float64{0.5, 2.5, -0.5, -0.5, -0.5}, nil
	case 1:
		return [quat.NumClasses]float64{2.5, 0.5, -0.5, -0.5, -0.5}, nil
	default:
		return [quat.NumClasses]float64{}, fmt.Errorf("bias: m_rho0=%d outside {0,1}", mRho0)
	}
}

// MinSampleX is the smallest admissible sample height: log log x needs
// x >= 3 to stay positive and finite.
const MinSampleX = 3

// DefaultSamples is the sample budget used by the sweep pipeline.
const DefaultSamples = 1000

// SamplePoints lays a grid of about target heights over [3, maxX],
// dense where the curves move fastest: 40% of the budget on [3, 1000],
// 35% on the mid range up to max(10^4, maxX/10), and the rest
// geometrically through the tail. maxX itself is always the last
// point. Returns nil when maxX < 3.
func SamplePoints(maxX uint64, target int) []uint64 {
	if maxX < MinSampleX {
		return nil
	}
	if target < 1 {
		target = 1
	}
	lowHi := uint64(1000)
	if lowHi > maxX {
		lowHi = maxX
	}
	midHi := uint64(10000)
	if h := maxX / 10; h > midHi {
		midHi = h
	}
	if midHi > maxX {
		midHi = maxX
	}

	pts := make([]uint64, 0, target+3)
	pts = append(pts, linspace(MinSampleX, lowHi, target*40/100)...)
	if midHi > lowHi {
		pts = append(pts, linspace(lowHi+1, midHi, target*35/100)...)
	}
	if maxX > midHi {
		pts = append(pts, geomspace(midHi+1, maxX, target*25/100)...)
	}
	pts = append(pts, maxX)

	sort.Slice(pts, func(i, j int) bool { return pts[i] < pts[j] })
	out := pts[:0]
	var last uint64
	for _, x := range pts {
		if x != last {
			out = append(out, x)
			last = x
		}
	}
	return out
}

// linspace emits n integer heights evenly spread over [lo, hi].
func linspace(lo, hi uint64, n int) []uint64 {
	if hi < lo {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if span := int(hi - lo + 1); n > span {
		n = span
	}
	out := make([]uint64, 0, n)
	if n == 1 {
		return append(out, hi)
	}
	step := float64(hi-lo) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, lo+uint64(math.Round(float64(i)*step)))
	}
	return out
}

// geomspace emits n integer heights geometrically spread over [lo, hi].
func geomspace(lo, hi uint64, n int) []uint64 {
	if hi < lo {
		return nil
	}
	if n < 1 {
		n = 1
	}
	out := make([]uint64, 0, n)
	if n == 1 || hi == lo {
		return append(out, hi)
	}
	ratio := math.Pow(float64(hi)/float64(lo), 1/float64(n-1))
	x := float64(lo)
	for i := 0; i < n; i++ {
		out = append(out, uint64(math.Round(x)))
		x *= ratio
	}
	return out
}

// Distribution counts classified primes per class and per 8-way label.
type Distribution struct {
	Classified uint64                   `json:"classified"`
	ByClass    [quat.NumClasses]uint64  `json:"by_class"`
	ByLabel    [quat.NumElements]uint64 `json:"by_label"`
}

// Percent returns the share of class k among classified primes.
func (d Distribution) Percent(k quat.Class) float64 {
	if d.Classified == 0 {
		return 0
	}
	return 100 * float64(d.ByClass[k]) / float64(d.Classified)
}

// LabelCounts renders the 8-way counts under the persisted long names,
// the exact shape of the classification files.
func (d Distribution) LabelCounts() map[string]uint64 {
	out := make(map[string]uint64, quat.NumElements)
	for e := quat.Element(0); e < quat.NumElements; e++ {
		out[e.LongName()] = d.ByLabel[e]
	}
	return out
}

// Point is one height on a bias curve.
type Point struct {
	X           uint64  `json:"x"`
	Observed    float64 `json:"observed"`
	Theoretical float64 `json:"theoretical"`
}

// Series is the bias curve of one conjugacy class.
type Series struct {
	Class       quat.Class `json:"class"`
	Coefficient float64    `json:"coefficient"`
	Points      []Point    `json:"points"`
}

// Result is the full aggregation of one case's classified primes.
type Result struct {
	CaseID       int                     `json:"case_id"`
	MRho0        int                     `json:"m_rho0"`
	MaxX         uint64                  `json:"max_x"`
	Distribution Distribution            `json:"distribution"`
	Series       [quat.NumClasses]Series `json:"series"`
}

// Aggregate walks classified primes in ascending order and evaluates
// the five bias curves at the given heights. Records must be sorted by
// prime and free of duplicates; heights must be ascending and at least
// MinSampleX. Empty input yields all-zero observations and the usual
// theoretical curve, never NaN.
func Aggregate(c cases.Case, recs []frob.Record, heights []uint64) (*Result, error) {
	coef, err := Coefficients(c.MRho0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Name(), err)
	}
	res := &Result{CaseID: c.ID, MRho0: c.MRho0}
	if len(heights) > 0 {
		res.MaxX = heights[len(heights)-1]
	}
	for k := range res.Series {
		res.Series[k] = Series{
			Class:       quat.Class(k),
			Coefficient: coef[k],
			Points:      make([]Point, 0, len(heights)),
		}
	}

	var (
		piAll   float64
		piClass [quat.NumClasses]float64
		idx     int
		lastX   uint64
	)
	consume := func(upTo uint64) error {
		for idx < len(recs) && recs[idx].Prime <= upTo {
			r := recs[idx]
			if idx > 0 && recs[idx-1].Prime >= r.Prime {
				return fmt.Errorf("bias: %s: records out of order at p=%d", c.Name(), r.Prime)
			}
			if r.Class >= quat.NumClasses || !r.Label.Valid() {
				return fmt.Errorf("bias: %s: invalid record at p=%d", c.Name(), r.Prime)
			}
			w := 1 / math.Sqrt(float64(r.Prime))
			piAll += w
			piClass[r.Class] += w
			res.Distribution.Classified++
			res.Distribution.ByClass[r.Class]++
			res.Distribution.ByLabel[r.Label]++
			idx++
		}
		return nil
	}

	for _, x := range heights {
		if x < MinSampleX {
			return nil, fmt.Errorf("bias: %s: sample height %d below %d", c.Name(), x, MinSampleX)
		}
		if x <= lastX {
			return nil, fmt.Errorf("bias: %s: sample heights not ascending at %d", c.Name(), x)
		}
		lastX = x
		if err := consume(x); err != nil {
			return nil, err
		}
		loglog := math.Log(math.Log(float64(x)))
		for k := range res.Series {
			size := float64(quat.Class(k).Size())
			res.Series[k].Points = append(res.Series[k].Points, Point{
				X:           x,
				Observed:    piAll - (8/size)*piClass[k],
				Theoretical: coef[k] * loglog,
			})
		}
	}
	// Primes beyond the last height still belong to the distribution.
	if err := consume(math.MaxUint64); err != nil {
		return nil, err
	}
	return res, nil
}
