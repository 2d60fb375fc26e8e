package prof

import (
	"strings"
	"testing"
	"time"
)

func TestTrackAggregatesByLabel(t *testing.T) {
	SnapshotAndReset()
	base := time.Now().Add(-10 * time.Millisecond)
	Track(base, "scan")
	Track(base, "scan")
	Track(base, "fit")

	entries := SnapshotAndReset()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Label != "scan" || entries[0].Count != 2 {
		t.Fatalf("slowest entry %+v", entries[0])
	}
	if entries[1].Label != "fit" || entries[1].Count != 1 {
		t.Fatalf("second entry %+v", entries[1])
	}
	if len(SnapshotAndReset()) != 0 {
		t.Fatal("registry not cleared")
	}
}

func TestReportRendersShares(t *testing.T) {
	SnapshotAndReset()
	Track(time.Now().Add(-20*time.Millisecond), "sweep")
	var sb strings.Builder
	Report(&sb, 40*time.Millisecond)
	out := sb.String()
	if !strings.Contains(out, "sweep") || !strings.Contains(out, "%") {
		t.Fatalf("report output %q", out)
	}
	var empty strings.Builder
	Report(&empty, time.Second)
	if empty.Len() != 0 {
		t.Fatal("report after reset should be empty")
	}
}
