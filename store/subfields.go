package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"Q8-Frobenius/cases"
)

// SubfieldCache persists a scan-derived quadratic-subfield triple so
// later runs skip the elimination scan.
type SubfieldCache struct {
	CaseID    int      `json:"case_id"`
	Probes    [3]int64 `json:"probes"`
	Source    string   `json:"source"`
	ScanBound uint64   `json:"scan_bound"`
}

// SubfieldCacheName returns the cache file name for one case.
func SubfieldCacheName(id int) string {
	return fmt.Sprintf("case_%02d_subfields.json", id)
}

// WriteSubfieldCache records the case's triple under dir.
func WriteSubfieldCache(dir string, c cases.Case, scanBound uint64) (string, error) {
	if !c.HasSubfields() {
		return "", fmt.Errorf("store: %s has no triple to cache", c.Name())
	}
	sc := SubfieldCache{
		CaseID:    c.ID,
		Probes:    c.Subfields,
		Source:    c.Source.String(),
		ScanBound: scanBound,
	}
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("store: encode subfield cache: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: %w", err)
	}
	path := filepath.Join(dir, SubfieldCacheName(c.ID))
	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSubfieldCache loads a cached triple; ok is false when no cache
// file exists for the case.
func ReadSubfieldCache(dir string, id int) (SubfieldCache, bool, error) {
	var sc SubfieldCache
	b, err := os.ReadFile(filepath.Join(dir, SubfieldCacheName(id)))
	if os.IsNotExist(err) {
		return sc, false, nil
	}
	if err != nil {
		return sc, false, fmt.Errorf("store: read subfield cache: %w", err)
	}
	if err := json.Unmarshal(b, &sc); err != nil {
		return sc, false, fmt.Errorf("store: decode subfield cache: %w", err)
	}
	if sc.CaseID != id {
		return sc, false, fmt.Errorf("store: subfield cache holds case %d, want %d", sc.CaseID, id)
	}
	return sc, true, nil
}

// Apply copies the cached triple onto the case.
func (sc SubfieldCache) Apply(c cases.Case) (cases.Case, error) {
	if sc.CaseID != c.ID {
		return c, fmt.Errorf("store: subfield cache for case %d applied to %s", sc.CaseID, c.Name())
	}
	for _, d := range sc.Probes {
		if d < 2 {
			return c, fmt.Errorf("store: subfield cache for case %d holds probe %d", sc.CaseID, d)
		}
	}
	return c.WithSubfields(sc.Probes, cases.TripleScanned), nil
}
