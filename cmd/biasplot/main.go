// Command biasplot aggregates classified sweeps into the five
// Chebyshev bias curves per case, renders the HTML pages, and writes
// the aggregation as JSON next to them.
//
// Usage:
//
//	biasplot -case 2 -data frobenius_data -out graphs
//	biasplot -all -max-x 100000000
//
// With -max-x 0 the evaluation height is picked from the data: the
// largest classified prime rounded up to a power of ten, never below
// 10^3.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"Q8-Frobenius/bias"
	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/plot"
	"Q8-Frobenius/quat"
	"Q8-Frobenius/store"
)

const (
	defaultDataDir = "frobenius_data"
	defaultOutDir  = "graphs"
	minAutoMaxX    = 1000
)

func main() {
	caseID := flag.Int("case", 0, "case id 1..13 (omit with -all)")
	all := flag.Bool("all", false, "plot every case that has a data file")
	dataDir := flag.String("data", defaultDataDir, "directory holding classification files")
	outDir := flag.String("out", defaultOutDir, "directory for HTML pages and bias JSON")
	maxX := flag.Uint64("max-x", 0, "bias evaluation height (0 = auto from the data)")
	points := flag.Int("points", bias.DefaultSamples, "target number of sample heights")
	stats := flag.Bool("stats", true, "print per-case distribution statistics")
	flag.Parse()

	var ids []int
	switch {
	case *all:
		for _, c := range cases.All() {
			ids = append(ids, c.ID)
		}
	case *caseID != 0:
		ids = []int{*caseID}
	default:
		exitErr("pick a case with -case N or plot everything with -all")
	}

	var results []*bias.Result
	for _, id := range ids {
		res, err := plotCase(id, *dataDir, *outDir, *maxX, *points, *stats)
		if errors.Is(err, os.ErrNotExist) {
			if *all {
				fmt.Fprintf(os.Stderr, "case %d: no data file, skipped\n", id)
				continue
			}
			exitErr("case %d: no data file under %s (run frobsweep first)", id, *dataDir)
		}
		if err != nil {
			exitErr("case %d: %v", id, err)
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		exitErr("no case data found under %s", *dataDir)
	}
	if len(results) > 1 {
		path, err := plot.WriteOverviewPage(*outDir, results)
		if err != nil {
			exitErr("overview: %v", err)
		}
		fmt.Printf("Overview -> %s\n", path)
	}
}

func plotCase(id int, dataDir, outDir string, maxX uint64, points int, stats bool) (*bias.Result, error) {
	c, err := cases.ByID(id)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, store.CaseFileName(id))
	cf, err := store.ReadCaseFile(path)
	if err != nil {
		return nil, err
	}
	if cf.MRho0 != c.MRho0 {
		return nil, fmt.Errorf("%s: m_rho0=%d disagrees with the catalog's %d", path, cf.MRho0, c.MRho0)
	}
	recs, err := cf.Records()
	if err != nil {
		return nil, err
	}
	if maxX == 0 {
		maxX = autoMaxX(recs)
	}
	res, err := bias.Aggregate(c, recs, bias.SamplePoints(maxX, points))
	if err != nil {
		return nil, err
	}

	page, err := plot.WriteCasePage(outDir, res)
	if err != nil {
		return nil, err
	}
	jsonPath, err := writeResultJSON(outDir, res)
	if err != nil {
		return nil, err
	}
	if stats {
		printStatistics(c, cf, res)
	}
	fmt.Printf("case %d: %s, %s\n", id, page, jsonPath)
	return res, nil
}

// autoMaxX picks the evaluation height from the data: the largest
// classified prime rounded up to a power of ten, floored at 10^3 so
// sparse files still get a usable log axis.
func autoMaxX(recs []frob.Record) uint64 {
	if len(recs) == 0 {
		return minAutoMaxX
	}
	x := nt.NextPow10(recs[len(recs)-1].Prime)
	if x < minAutoMaxX {
		x = minAutoMaxX
	}
	return x
}

func biasResultName(id int) string {
	return fmt.Sprintf("case_%02d_bias.json", id)
}

func writeResultJSON(dir string, res *bias.Result) (string, error) {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	path := filepath.Join(dir, biasResultName(res.CaseID))
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func printStatistics(c cases.Case, cf *store.CaseFile, res *bias.Result) {
	fmt.Printf("\nCase %d results:\n", c.ID)
	fmt.Printf("  polynomial:   %s\n", cf.Polynomial)
	fmt.Printf("  discriminant: %s\n", cf.Discriminant)
	fmt.Printf("  m_rho0:       %d\n", cf.MRho0)
	fmt.Printf("  classified:   %d primes up to %d\n", res.Distribution.Classified, cf.MaxPrime)
	fmt.Println("  frobenius distribution:")
	for e := quat.Element(0); e < quat.NumElements; e++ {
		n := res.Distribution.ByLabel[e]
		pct := 0.0
		if res.Distribution.Classified > 0 {
			pct = 100 * float64(n) / float64(res.Distribution.Classified)
		}
		fmt.Printf("    %s (%s): %d primes (%.2f%%)\n", e.GroupKey(), e, n, pct)
	}
	fmt.Println("  class shares vs Chebyshev density:")
	for k := quat.Class(0); k < quat.NumClasses; k++ {
		fmt.Printf("    %s: %.2f%% observed, %.2f%% expected\n",
			k, res.Distribution.Percent(k), 100*float64(k.Size())/float64(quat.NumElements))
	}
	fmt.Println()
}

func exitErr(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
