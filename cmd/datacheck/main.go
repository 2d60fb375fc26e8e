// Command datacheck audits a data directory: per-case file integrity,
// catalog agreement, digest verification, and, when a bundle manifest
// is present, independent re-derivation of its spot-check primes with
// the exact classifier.
//
// Usage:
//
//	datacheck -data frobenius_data
//	datacheck -data frobenius_data -triples
//
// Exit status is 1 when any check fails, 0 when the directory is clean.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/store"
)

const defaultDataDir = "frobenius_data"

func main() {
	dataDir := flag.String("data", defaultDataDir, "data directory to audit")
	triples := flag.Bool("triples", false, "re-verify catalog subfield triples by scan")
	scanBound := flag.Uint64("scan-bound", store.DefaultScanBound, "prime bound for triple verification")
	flag.Parse()

	failures := 0
	seen := 0
	for _, c := range cases.All() {
		path := filepath.Join(*dataDir, store.CaseFileName(c.ID))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		seen++
		if !checkCase(c, path) {
			failures++
		}
	}
	if seen == 0 {
		fmt.Printf("no case files under %s\n", *dataDir)
	}

	if *triples {
		for _, c := range cases.All() {
			if !c.HasSubfields() {
				fmt.Printf("case %02d: triple unknown, nothing to verify\n", c.ID)
				continue
			}
			if err := frob.VerifyTriple(c, *scanBound); err != nil {
				failures++
				fmt.Printf("case %02d: FAIL triple %v: %v\n", c.ID, c.Subfields, err)
				continue
			}
			fmt.Printf("case %02d: triple %v verified up to %d (%s)\n",
				c.ID, c.Subfields, *scanBound, c.Source)
		}
	}

	if _, err := os.Stat(filepath.Join(*dataDir, store.BundleFileName)); err == nil {
		failures += checkBundle(*dataDir, *scanBound)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d check(s) failed\n", failures)
		os.Exit(1)
	}
	fmt.Println("all checks passed")
}

// checkCase audits one classification file and reports to stdout.
func checkCase(c cases.Case, path string) bool {
	cf, err := store.ReadCaseFile(path)
	if err != nil {
		fmt.Printf("case %02d: FAIL %v\n", c.ID, err)
		return false
	}
	ok := true
	if cf.CaseID != c.ID {
		fmt.Printf("case %02d: FAIL file claims case %d\n", c.ID, cf.CaseID)
		ok = false
	}
	if cf.Polynomial != c.PolyString() {
		fmt.Printf("case %02d: FAIL polynomial %q, catalog has %q\n", c.ID, cf.Polynomial, c.PolyString())
		ok = false
	}
	if cf.MRho0 != c.MRho0 {
		fmt.Printf("case %02d: FAIL m_rho0=%d, catalog has %d\n", c.ID, cf.MRho0, c.MRho0)
		ok = false
	}
	if err := store.VerifyDigest(path); err != nil {
		fmt.Printf("case %02d: FAIL digest: %v\n", c.ID, err)
		ok = false
	}
	recs, err := cf.Records()
	if err != nil {
		fmt.Printf("case %02d: FAIL %v\n", c.ID, err)
		return false
	}
	for _, r := range recs {
		if !nt.IsPrime(r.Prime) {
			fmt.Printf("case %02d: FAIL composite key %d in file\n", c.ID, r.Prime)
			ok = false
		}
		if c.IsRamified(r.Prime) {
			fmt.Printf("case %02d: FAIL ramified prime %d classified\n", c.ID, r.Prime)
			ok = false
		}
		if r.Prime > cf.MaxPrime {
			fmt.Printf("case %02d: FAIL prime %d beyond declared bound %d\n", c.ID, r.Prime, cf.MaxPrime)
			ok = false
		}
	}
	if ok {
		var high uint64
		if len(recs) > 0 {
			high = recs[len(recs)-1].Prime
		}
		fmt.Printf("case %02d: ok, %d primes, max %d, digest ok, suggest -max-x %d\n",
			c.ID, len(recs), high, nt.NextPow10(cf.MaxPrime))
	}
	return ok
}

// checkBundle verifies the manifest and re-derives every spot check
// with the exact classifier. Returns the number of failures.
func checkBundle(dir string, scanBound uint64) int {
	b, err := store.LoadBundle(dir)
	if err != nil {
		fmt.Printf("bundle: FAIL %v\n", err)
		return 1
	}
	if err := b.Verify(dir); err != nil {
		fmt.Printf("bundle %s: FAIL %v\n", b.ID, err)
		return 1
	}
	fmt.Printf("bundle %s: digests ok (%d cases, seed %s)\n", b.ID, len(b.Entries), b.Seed)

	failures := 0
	for _, entry := range b.Entries {
		c, err := cases.ByID(entry.CaseID)
		if err != nil {
			fmt.Printf("bundle case %d: FAIL %v\n", entry.CaseID, err)
			failures++
			continue
		}
		exact, err := exactFor(c, dir, scanBound)
		if err != nil {
			fmt.Printf("bundle case %d: FAIL classifier: %v\n", entry.CaseID, err)
			failures++
			continue
		}
		bad := 0
		for _, sc := range entry.SpotChecks {
			rec, err := exact.Classify(sc.Prime)
			if err != nil {
				fmt.Printf("bundle case %d: FAIL p=%d: %v\n", entry.CaseID, sc.Prime, err)
				bad++
				continue
			}
			if rec.Label != sc.Label {
				fmt.Printf("bundle case %d: FAIL p=%d stored %s, derived %s\n",
					entry.CaseID, sc.Prime, sc.Label, rec.Label)
				bad++
			}
		}
		if bad == 0 {
			fmt.Printf("bundle case %d: %d spot checks re-derived\n", entry.CaseID, len(entry.SpotChecks))
		}
		failures += bad
	}
	return failures
}

func exactFor(c cases.Case, dir string, scanBound uint64) (*frob.ExactClassifier, error) {
	if !c.HasSubfields() {
		if sc, ok, err := store.ReadSubfieldCache(dir, c.ID); err != nil {
			return nil, err
		} else if ok {
			if c, err = sc.Apply(c); err != nil {
				return nil, err
			}
		} else if c, err = frob.EnsureSubfields(c, scanBound); err != nil {
			return nil, err
		}
	}
	return frob.NewExact(c)
}
