package store

import (
	"context"
	"path/filepath"
	"testing"

	"Q8-Frobenius/frob"
	"Q8-Frobenius/quat"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	node := NewNodeID()
	if len(node) != 8 {
		t.Fatalf("node id %q, want 8 hex chars", node)
	}
	db, err := OpenDB(filepath.Join(t.TempDir(), "results.db"), node)
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBChunkRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, recs := classifyCase(t, 2, 300)
	mid := len(recs) / 2

	id, err := db.BeginExperiment(ctx, "case_02")
	if err != nil {
		t.Fatalf("BeginExperiment: %v", err)
	}
	if err := db.InsertChunk(ctx, "case_02", 1, recs[:mid]); err != nil {
		t.Fatalf("InsertChunk 1: %v", err)
	}
	if err := db.InsertChunk(ctx, "case_02", 2, recs[mid:]); err != nil {
		t.Fatalf("InsertChunk 2: %v", err)
	}
	n, err := db.CountResults(ctx, "case_02")
	if err != nil {
		t.Fatalf("CountResults: %v", err)
	}
	if n != uint64(len(recs)) {
		t.Fatalf("CountResults=%d want=%d", n, len(recs))
	}

	got, err := db.CaseRecords(ctx, "case_02")
	if err != nil {
		t.Fatalf("CaseRecords: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("CaseRecords: got=%d want=%d", len(got), len(recs))
	}
	for i := range got {
		if got[i].Prime != recs[i].Prime || got[i].Label != recs[i].Label {
			t.Fatalf("row %d: got p=%d %s want p=%d %s",
				i, got[i].Prime, got[i].Label, recs[i].Prime, recs[i].Label)
		}
	}

	high, ok, err := db.MaxPrime(ctx, "case_02")
	if err != nil || !ok {
		t.Fatalf("MaxPrime: ok=%v err=%v", ok, err)
	}
	if want := recs[len(recs)-1].Prime; high != want {
		t.Fatalf("MaxPrime=%d want=%d", high, want)
	}
	if _, ok, err := db.MaxPrime(ctx, "case_09"); err != nil || ok {
		t.Fatalf("MaxPrime on empty case: ok=%v err=%v", ok, err)
	}

	if err := db.FinishExperiment(ctx, id, "completed", "case_02_frobenius.json"); err != nil {
		t.Fatalf("FinishExperiment: %v", err)
	}
}

func TestDBRetriedChunksCollapse(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, recs := classifyCase(t, 2, 100)

	if err := db.InsertChunk(ctx, "case_02", 1, recs); err != nil {
		t.Fatalf("InsertChunk: %v", err)
	}
	// A retried chunk writes the same rows again.
	if err := db.InsertChunk(ctx, "case_02", 1, recs); err != nil {
		t.Fatalf("InsertChunk (retry): %v", err)
	}
	got, err := db.CaseRecords(ctx, "case_02")
	if err != nil {
		t.Fatalf("CaseRecords: %v", err)
	}
	if len(got) != len(recs) {
		t.Fatalf("retried rows did not collapse: got=%d want=%d", len(got), len(recs))
	}
}

func TestDBConflictingLabelsError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a := []frob.Record{{Prime: 11, Label: quat.I, Class: quat.ClassI, Method: frob.MethodExact}}
	b := []frob.Record{{Prime: 11, Label: quat.J, Class: quat.ClassJ, Method: frob.MethodExact}}
	if err := db.InsertChunk(ctx, "case_02", 1, a); err != nil {
		t.Fatalf("InsertChunk: %v", err)
	}
	if err := db.InsertChunk(ctx, "case_02", 2, b); err != nil {
		t.Fatalf("InsertChunk: %v", err)
	}
	if _, err := db.CaseRecords(ctx, "case_02"); err == nil {
		t.Fatalf("CaseRecords accepted conflicting labels for one prime")
	}
}

func TestDBCheckpoints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, _, ok, err := db.LatestCheckpoint(ctx, "case_02"); err != nil || ok {
		t.Fatalf("LatestCheckpoint on empty table: ok=%v err=%v", ok, err)
	}
	if err := db.SaveCheckpoint(ctx, "case_02", 5, 0.25, "chk_5.json"); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	if err := db.SaveCheckpoint(ctx, "case_02", 10, 0.5, "chk_10.json"); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}
	chunk, progress, ok, err := db.LatestCheckpoint(ctx, "case_02")
	if err != nil || !ok {
		t.Fatalf("LatestCheckpoint: ok=%v err=%v", ok, err)
	}
	if chunk != 10 || progress != 0.5 {
		t.Fatalf("LatestCheckpoint: chunk=%d progress=%v", chunk, progress)
	}
	// Other cases see their own trail only.
	if _, _, ok, _ := db.LatestCheckpoint(ctx, "case_03"); ok {
		t.Fatalf("checkpoint leaked across cases")
	}
}
