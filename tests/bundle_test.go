package tests

import (
	"strings"
	"testing"

	"Q8-Frobenius/frob"
	"Q8-Frobenius/store"
)

// A bundle built over two swept cases must verify against the files it
// manifests, and every spot check must re-derive under the exact
// classifier, which is what the data checker relies on.
func TestBundleSpotChecksRederive(t *testing.T) {
	const maxPrime = 1500
	dir := t.TempDir()

	var files []string
	byCase := map[int]*frob.ExactClassifier{}
	for _, id := range []int{2, 3} {
		cl := exactClassifier(t, id)
		recs := sweepRecords(t, cl, maxPrime)
		if _, err := store.WriteCaseFile(dir, store.NewCaseFile(cl.Case(), maxPrime, recs)); err != nil {
			t.Fatalf("WriteCaseFile(%d): %v", id, err)
		}
		files = append(files, store.CaseFileName(id))
		byCase[id] = cl
	}

	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i * 7)
	}
	b, err := store.BuildBundle(dir, files, maxPrime, 5, seed, nil)
	if err != nil {
		t.Fatalf("BuildBundle: %v", err)
	}
	if _, err := store.SaveBundle(dir, b); err != nil {
		t.Fatalf("SaveBundle: %v", err)
	}

	loaded, err := store.LoadBundle(dir)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	if err := loaded.Verify(dir); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(loaded.Entries) != 2 {
		t.Fatalf("bundle has %d entries", len(loaded.Entries))
	}
	for _, entry := range loaded.Entries {
		cl := byCase[entry.CaseID]
		if cl == nil {
			t.Fatalf("unexpected case %d in bundle", entry.CaseID)
		}
		if len(entry.SpotChecks) != 5 {
			t.Fatalf("case %d: %d spot checks", entry.CaseID, len(entry.SpotChecks))
		}
		// Both cases have m_rho0 = 1, so the central class leads.
		if entry.Coefficients["1"] != 2.5 {
			t.Fatalf("case %d: coefficient set %v", entry.CaseID, entry.Coefficients)
		}
		for _, sc := range entry.SpotChecks {
			rec, err := cl.Classify(sc.Prime)
			if err != nil {
				t.Fatalf("case %d p=%d: %v", entry.CaseID, sc.Prime, err)
			}
			if rec.Label != sc.Label {
				t.Fatalf("case %d p=%d: stored %s, derived %s", entry.CaseID, sc.Prime, sc.Label, rec.Label)
			}
		}
	}
}

// Rewriting a manifested file, even with a fresh valid digest sidecar,
// must break bundle verification: the manifest pins the exact bytes it
// was built over.
func TestBundleDetectsRewrittenCaseFile(t *testing.T) {
	const maxPrime = 1000
	dir := t.TempDir()

	cl := exactClassifier(t, 2)
	recs := sweepRecords(t, cl, maxPrime)
	if _, err := store.WriteCaseFile(dir, store.NewCaseFile(cl.Case(), maxPrime, recs)); err != nil {
		t.Fatalf("WriteCaseFile: %v", err)
	}

	seed := make([]byte, 32)
	b, err := store.BuildBundle(dir, []string{store.CaseFileName(2)}, maxPrime, 3, seed, nil)
	if err != nil {
		t.Fatalf("BuildBundle: %v", err)
	}
	if err := b.Verify(dir); err != nil {
		t.Fatalf("fresh bundle must verify: %v", err)
	}

	// Drop one record and rewrite. The sidecar digest is regenerated,
	// so only the bundle notices.
	path, err := store.WriteCaseFile(dir, store.NewCaseFile(cl.Case(), maxPrime, recs[:len(recs)-1]))
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := store.VerifyDigest(path); err != nil {
		t.Fatalf("sidecar should match the rewritten file: %v", err)
	}
	err = b.Verify(dir)
	if err == nil {
		t.Fatal("bundle verified a rewritten file")
	}
	if !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("unexpected verify error: %v", err)
	}
}
