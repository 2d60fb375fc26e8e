// Package store persists experiment artifacts: per-case classification
// files in the original JSON layout, SHAKE-256 digest sidecars, signed
// result bundles with deterministic spot checks, the sqlite results
// database used by streaming sweeps, and run parameter files.
package store

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/crypto/sha3"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/quat"
)

// CaseFile is the on-disk classification record of one case. Field
// names and shapes follow the historical format: frobenius_elements
// maps decimal prime strings to 8-way element indices, group_structure
// spells out the index legend.
type CaseFile struct {
	CaseID         int               `json:"case_id"`
	Polynomial     string            `json:"polynomial"`
	Discriminant   string            `json:"discriminant"`
	MRho0          int               `json:"m_rho0"`
	MaxPrime       uint64            `json:"max_prime"`
	Elements       map[string]int    `json:"frobenius_elements"`
	GroupStructure map[string]string `json:"group_structure"`
}

// CaseFileName is the canonical file name for a case's classification
// data.
func CaseFileName(id int) string {
	return fmt.Sprintf("case_%02d_frobenius.json", id)
}

// NewCaseFile assembles the persistable form of a classified sweep.
func NewCaseFile(c cases.Case, maxPrime uint64, recs []frob.Record) *CaseFile {
	f := &CaseFile{
		CaseID:         c.ID,
		Polynomial:     c.PolyString(),
		Discriminant:   c.DiscString(),
		MRho0:          c.MRho0,
		MaxPrime:       maxPrime,
		Elements:       make(map[string]int, len(recs)),
		GroupStructure: quat.GroupStructure(),
	}
	for _, r := range recs {
		f.Elements[strconv.FormatUint(r.Prime, 10)] = int(r.Label)
	}
	return f
}

// Records decodes the element map back into classification records,
// sorted by prime. Labels are marked MethodImported: files do not say
// which classifier produced them.
func (f *CaseFile) Records() ([]frob.Record, error) {
	out := make([]frob.Record, 0, len(f.Elements))
	for key, v := range f.Elements {
		p, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("store: case %d: prime key %q: %w", f.CaseID, key, err)
		}
		label, err := quat.ParseElement(v)
		if err != nil {
			return nil, fmt.Errorf("store: case %d: p=%s: %w", f.CaseID, key, err)
		}
		out = append(out, frob.Record{
			Prime:  p,
			Label:  label,
			Class:  label.Class(),
			Method: frob.MethodImported,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prime < out[j].Prime })
	return out, nil
}

func (f *CaseFile) validate() error {
	if f.CaseID < 1 || f.CaseID > cases.NumCases {
		return fmt.Errorf("store: case id %d out of range", f.CaseID)
	}
	if f.MRho0 != 0 && f.MRho0 != 1 {
		return fmt.Errorf("store: case %d: m_rho0=%d outside {0,1}", f.CaseID, f.MRho0)
	}
	return nil
}

// WriteCaseFile writes f under its canonical name in dir, atomically,
// and drops a digest sidecar next to it. Returns the file path.
func WriteCaseFile(dir string, f *CaseFile) (string, error) {
	if err := f.validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: create output dir: %w", err)
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", fmt.Errorf("store: encode case %d: %w", f.CaseID, err)
	}
	path := filepath.Join(dir, CaseFileName(f.CaseID))
	if err := writeAtomic(path, append(b, '\n')); err != nil {
		return "", err
	}
	if _, err := WriteDigest(path); err != nil {
		return "", err
	}
	return path, nil
}

// ReadCaseFile loads and validates a classification file.
func ReadCaseFile(path string) (*CaseFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read case file: %w", err)
	}
	var f CaseFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// writeAtomic lands data at path through a rename so readers never see
// a half-written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename into %s: %w", path, err)
	}
	return nil
}

// DigestSize is the SHAKE-256 output length used for artifact digests.
const DigestSize = 32

// FileDigest returns the hex SHAKE-256 digest of a file's contents.
func FileDigest(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("store: digest read: %w", err)
	}
	h := sha3.NewShake256()
	h.Write(b)
	sum := make([]byte, DigestSize)
	h.Read(sum)
	return hex.EncodeToString(sum), nil
}

// WriteDigest writes the sidecar <path>.digest and returns the digest.
func WriteDigest(path string) (string, error) {
	d, err := FileDigest(path)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path+".digest", []byte(d+"\n")); err != nil {
		return "", err
	}
	return d, nil
}

// VerifyDigest recomputes a file's digest against its sidecar.
func VerifyDigest(path string) error {
	want, err := os.ReadFile(path + ".digest")
	if err != nil {
		return fmt.Errorf("store: read digest sidecar: %w", err)
	}
	got, err := FileDigest(path)
	if err != nil {
		return err
	}
	if got != string(trimNewline(want)) {
		return fmt.Errorf("store: digest mismatch for %s", path)
	}
	return nil
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
