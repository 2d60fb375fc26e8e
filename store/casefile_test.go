package store

import (
	"os"
	"path/filepath"
	"testing"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/internal/nt"
)

func classifyCase(t *testing.T, id int, hi uint64) (cases.Case, []frob.Record) {
	t.Helper()
	c, err := cases.ByID(id)
	if err != nil {
		t.Fatalf("ByID(%d): %v", id, err)
	}
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
	if len(recs) == 0 {
		t.Fatalf("no records below %d", hi)
	}
	return c, recs
}

func TestCaseFileRoundTrip(t *testing.T) {
	c, recs := classifyCase(t, 2, 200)
	cf := NewCaseFile(c, 200, recs)

	dir := t.TempDir()
	path, err := WriteCaseFile(dir, cf)
	if err != nil {
		t.Fatalf("WriteCaseFile: %v", err)
	}
	if filepath.Base(path) != "case_02_frobenius.json" {
		t.Fatalf("file name %s", filepath.Base(path))
	}
	if err := VerifyDigest(path); err != nil {
		t.Fatalf("VerifyDigest: %v", err)
	}

	got, err := ReadCaseFile(path)
	if err != nil {
		t.Fatalf("ReadCaseFile: %v", err)
	}
	if got.Polynomial != c.PolyString() || got.Discriminant != c.DiscString() {
		t.Fatalf("metadata drifted: %q / %q", got.Polynomial, got.Discriminant)
	}
	if got.GroupStructure["g5"] != "minus_i (-i)" {
		t.Fatalf("group structure g5=%q", got.GroupStructure["g5"])
	}

	back, err := got.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(back) != len(recs) {
		t.Fatalf("records: got=%d want=%d", len(back), len(recs))
	}
	for i := range back {
		if back[i].Prime != recs[i].Prime || back[i].Label != recs[i].Label {
			t.Fatalf("record %d: got p=%d %s want p=%d %s",
				i, back[i].Prime, back[i].Label, recs[i].Prime, recs[i].Label)
		}
		if back[i].Method != frob.MethodImported {
			t.Fatalf("record %d: method=%s want=imported", i, back[i].Method)
		}
	}
}

func TestVerifyDigestDetectsTamper(t *testing.T) {
	c, recs := classifyCase(t, 2, 100)
	path, err := WriteCaseFile(t.TempDir(), NewCaseFile(c, 100, recs))
	if err != nil {
		t.Fatalf("WriteCaseFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(path, append(data, ' '), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := VerifyDigest(path); err == nil {
		t.Fatalf("VerifyDigest accepted a tampered file")
	}
}

func TestCaseFileRejectsBadData(t *testing.T) {
	if _, err := WriteCaseFile(t.TempDir(), &CaseFile{CaseID: 99}); err == nil {
		t.Fatalf("accepted case id 99")
	}
	bad := &CaseFile{CaseID: 2, Elements: map[string]int{"abc": 1}}
	if _, err := bad.Records(); err == nil {
		t.Fatalf("accepted a non-numeric prime key")
	}
	bad = &CaseFile{CaseID: 2, Elements: map[string]int{"11": 9}}
	if _, err := bad.Records(); err == nil {
		t.Fatalf("accepted element index 9")
	}
}
