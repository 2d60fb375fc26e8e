// Command mapfit fits a feature-to-label decision table for one case
// from exactly classified training primes, optionally measures its
// accuracy on a held-out range, and saves it for frobsweep -mode table.
//
// Usage:
//
//	mapfit -case 2 -train-bound 100000 -validate
//	mapfit -case 7 -features extended -out tables/case_07_table.json
//
// A table without a validation run carries no measured accuracy and
// frobsweep refuses to sweep with it.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/prof"
	"Q8-Frobenius/store"
)

const (
	defaultDataDir    = "frobenius_data"
	defaultTrainBound = 100_000
)

func main() {
	caseID := flag.Int("case", 0, "case id 1..13 (required)")
	dataDir := flag.String("data", defaultDataDir, "data directory (scan cache, default table location)")
	featSpec := flag.String("features", "basic", "feature set: basic or extended")
	trainBound := flag.Uint64("train-bound", defaultTrainBound, "fit on primes up to this bound")
	validate := flag.Bool("validate", false, "measure accuracy on the next range of primes")
	validateBound := flag.Uint64("validate-bound", 0, "validation range upper end (0 = twice the train bound)")
	scan := flag.Bool("scan", false, "rederive the subfield triple by scan even if already known")
	scanBound := flag.Uint64("scan-bound", store.DefaultScanBound, "prime bound for the subfield triple scan")
	outPath := flag.String("out", "", "table output path (default DATA/tables/case_NN_table.json)")
	timings := flag.Bool("timings", false, "print a stage timing profile at the end")
	flag.Parse()

	start := time.Now()
	if *caseID == 0 {
		exitErr("pick a case with -case N")
	}
	c, err := cases.ByID(*caseID)
	if err != nil {
		exitErr("%v", err)
	}
	set, err := frob.ParseFeatureSet(*featSpec)
	if err != nil {
		exitErr("%v", err)
	}
	if *validateBound == 0 {
		*validateBound = 2 * *trainBound
	}
	if *validate && *validateBound <= *trainBound {
		exitErr("validate-bound %d must exceed train-bound %d", *validateBound, *trainBound)
	}
	if *outPath == "" {
		*outPath = filepath.Join(*dataDir, "tables", frob.TableFileName(c.ID))
	}

	c, err = resolveTriple(c, *dataDir, *scan, *scanBound)
	if err != nil {
		exitErr("%v", err)
	}
	exact, err := frob.NewExact(c)
	if err != nil {
		exitErr("%v", err)
	}

	train := collectSamples(exact, 2, *trainBound)
	table, rep, err := frob.Fit(c, set, *trainBound, train)
	if err != nil {
		exitErr("fit: %v", err)
	}
	fmt.Printf("fit case %d: %d samples, %d used, %d skipped, %d contested keys\n",
		c.ID, rep.Samples, rep.Used, rep.Skipped, rep.Conflicts)

	if *validate {
		held := collectSamples(exact, *trainBound+1, *validateBound)
		vrep, err := frob.Validate(c, table, held)
		if err != nil {
			exitErr("validate: %v", err)
		}
		fmt.Printf("validate on (%d, %d]: %.2f%% of %d primes (%d table misses, %d skipped)\n",
			*trainBound, *validateBound, vrep.Accuracy, vrep.Total, vrep.Misses, vrep.Skipped)
		for tier, hits := range vrep.ByTier {
			fmt.Printf("  tier %-10s %d hits\n", tier, hits)
		}
	} else {
		fmt.Println("not validated; frobsweep will refuse this table until it carries a measured accuracy")
	}

	if err := frob.SaveTable(*outPath, table); err != nil {
		exitErr("save: %v", err)
	}
	fmt.Printf("table -> %s\n%s", *outPath, table.Summary())
	if *timings {
		prof.Report(os.Stdout, time.Since(start))
	}
}

// resolveTriple mirrors frobsweep's lookup order, except -scan forces
// a fresh elimination scan and overwrites the cache.
func resolveTriple(c cases.Case, dataDir string, force bool, bound uint64) (cases.Case, error) {
	if force {
		d, err := frob.SubfieldScan(c, bound)
		if err != nil {
			return c, err
		}
		c = c.WithSubfields(d, cases.TripleScanned)
		if _, err := store.WriteSubfieldCache(dataDir, c, bound); err != nil {
			return c, err
		}
		fmt.Printf("case %d: triple %v by scan up to %d\n", c.ID, d, bound)
		return c, nil
	}
	if c.HasSubfields() {
		return c, nil
	}
	sc, ok, err := store.ReadSubfieldCache(dataDir, c.ID)
	if err != nil {
		return c, err
	}
	if ok {
		return sc.Apply(c)
	}
	derived, err := frob.EnsureSubfields(c, bound)
	if err != nil {
		return c, err
	}
	if _, err := store.WriteSubfieldCache(dataDir, derived, bound); err != nil {
		return c, err
	}
	return derived, nil
}

// collectSamples labels the primes in [lo, hi] with the exact
// classifier. Ramified and inconclusive primes are dropped here
// rather than pushed into the fit.
func collectSamples(exact *frob.ExactClassifier, lo, hi uint64) []frob.Sample {
	primes := nt.SievePrimes(lo, hi+1)
	out := make([]frob.Sample, 0, len(primes))
	for _, p := range primes {
		rec, err := exact.Classify(p)
		if err != nil {
			continue
		}
		out = append(out, frob.Sample{Prime: p, Label: rec.Label})
	}
	return out
}

func exitErr(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
