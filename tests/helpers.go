package tests

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/sweep"
)

// exactClassifier builds the exact classifier for a catalog case,
// scanning for the subfield triple when the catalog does not carry one.
func exactClassifier(t *testing.T, id int) *frob.ExactClassifier {
	t.Helper()
	c, err := cases.ByID(id)
	if err != nil {
		t.Fatalf("ByID(%d): %v", id, err)
	}
	c, err = frob.EnsureSubfields(c, 2000)
	if err != nil {
		t.Fatalf("EnsureSubfields: %v", err)
	}
	cl, err := frob.NewExact(c)
	if err != nil {
		t.Fatalf("NewExact: %v", err)
	}
	return cl
}

// sweepRecords runs an in-memory sweep and returns its records.
func sweepRecords(t *testing.T, cl frob.Classifier, maxPrime uint64) []frob.Record {
	t.Helper()
	eng, err := sweep.New(sweep.Config{
		ChunkSize: 100,
		Workers:   4,
		Logger:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("sweep.New: %v", err)
	}
	recs, _, err := eng.Run(context.Background(), cl, maxPrime)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return recs
}
