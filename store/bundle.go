package store

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tuneinsight/lattigo/v4/utils"

	"Q8-Frobenius/bias"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/quat"
)

// SpotCheck is one prime singled out for independent re-verification.
type SpotCheck struct {
	Prime uint64       `json:"prime"`
	Label quat.Element `json:"label"`
}

// RunInfo carries the sweep outcome for one case so a bundle can record
// how its file was produced. The zero value marks a bundle built after
// the fact, with no run counters available.
type RunInfo struct {
	Ramified uint64
	Dropped  uint64
	Seconds  float64
}

// BundleEntry references one case file inside a bundle. Classified,
// the run counters, and the coefficient set describe the run; Digest
// and SpotChecks are what Verify holds the file to.
type BundleEntry struct {
	CaseID       int                `json:"case_id"`
	File         string             `json:"file"`
	Digest       string             `json:"digest"`
	Classified   int                `json:"classified"`
	Ramified     uint64             `json:"ramified,omitempty"`
	Dropped      uint64             `json:"dropped,omitempty"`
	Seconds      float64            `json:"seconds,omitempty"`
	Coefficients map[string]float64 `json:"bias_coefficients"`
	SpotChecks   []SpotCheck        `json:"spot_checks"`
}

// Bundle is a manifest over a directory of case files: content digests
// plus a seeded subsample of classifications per case. The subsample
// is drawn with a keyed PRNG, so a verifier holding the same seed
// reproduces the selection exactly and can re-derive the chosen primes
// with the exact classifier without trusting the producer.
type Bundle struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	MaxPrime   uint64        `json:"max_prime"`
	Seed       string        `json:"seed"`
	SampleSize int           `json:"sample_size"`
	Entries    []BundleEntry `json:"entries"`
}

// BundleFileName is the manifest's name inside its directory.
const BundleFileName = "bundle.json"

// BuildBundle manifests every named case file in dir. files are paths
// relative to dir; sampleSize primes per case are selected by the
// seeded PRNG (all of them when a case holds fewer). runs, keyed by
// case id, supplies the sweep counters; nil leaves them zero.
func BuildBundle(dir string, files []string, maxPrime uint64, sampleSize int, seed []byte, runs map[int]RunInfo) (*Bundle, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("store: bundle with no case files")
	}
	if sampleSize < 1 {
		return nil, fmt.Errorf("store: bundle sample size %d", sampleSize)
	}
	b := &Bundle{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		MaxPrime:   maxPrime,
		Seed:       hex.EncodeToString(seed),
		SampleSize: sampleSize,
	}
	for _, rel := range files {
		path := filepath.Join(dir, rel)
		cf, err := ReadCaseFile(path)
		if err != nil {
			return nil, err
		}
		digest, err := FileDigest(path)
		if err != nil {
			return nil, err
		}
		recs, err := cf.Records()
		if err != nil {
			return nil, err
		}
		// One PRNG per case, keyed by seed and case id, so adding a
		// case never shifts the selections of the others.
		prng, err := utils.NewKeyedPRNG(append(append([]byte{}, seed...), byte(cf.CaseID)))
		if err != nil {
			return nil, fmt.Errorf("store: bundle prng: %w", err)
		}
		checks, err := subsample(recs, sampleSize, prng)
		if err != nil {
			return nil, err
		}
		coeffs, err := coefficientSet(cf.MRho0)
		if err != nil {
			return nil, fmt.Errorf("store: bundle case %d: %w", cf.CaseID, err)
		}
		info := runs[cf.CaseID]
		b.Entries = append(b.Entries, BundleEntry{
			CaseID:       cf.CaseID,
			File:         rel,
			Digest:       digest,
			Classified:   len(recs),
			Ramified:     info.Ramified,
			Dropped:      info.Dropped,
			Seconds:      info.Seconds,
			Coefficients: coeffs,
			SpotChecks:   checks,
		})
	}
	sort.Slice(b.Entries, func(i, j int) bool { return b.Entries[i].CaseID < b.Entries[j].CaseID })
	return b, nil
}

// coefficientSet maps class names to the (M+m) curve coefficients for
// the given m_rho0, the set biasplot will plot against this data.
func coefficientSet(mRho0 int) (map[string]float64, error) {
	coeffs, err := bias.Coefficients(mRho0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, quat.NumClasses)
	for k := quat.Class(0); k < quat.NumClasses; k++ {
		out[k.String()] = coeffs[k]
	}
	return out, nil
}

// subsample picks n records uniformly without replacement, in prime
// order, using threshold rejection to keep the draw unbiased.
func subsample(recs []frob.Record, n int, prng utils.PRNG) ([]SpotCheck, error) {
	if n >= len(recs) {
		out := make([]SpotCheck, len(recs))
		for i, r := range recs {
			out[i] = SpotCheck{Prime: r.Prime, Label: r.Label}
		}
		return out, nil
	}
	idx := make([]int, len(recs))
	for i := range idx {
		idx[i] = i
	}
	buf := make([]byte, 8)
	for i := 0; i < n; i++ {
		span := uint64(len(recs) - i)
		threshold := (^uint64(0) / span) * span
		var word uint64
		for {
			if _, err := io.ReadFull(prng, buf); err != nil {
				return nil, fmt.Errorf("store: subsample read: %w", err)
			}
			word = binary.LittleEndian.Uint64(buf)
			if word < threshold {
				break
			}
		}
		j := i + int(word%span)
		idx[i], idx[j] = idx[j], idx[i]
	}
	picked := append([]int{}, idx[:n]...)
	sort.Ints(picked)
	out := make([]SpotCheck, n)
	for i, k := range picked {
		out[i] = SpotCheck{Prime: recs[k].Prime, Label: recs[k].Label}
	}
	return out, nil
}

// SaveBundle writes the manifest into dir.
func SaveBundle(dir string, b *Bundle) (string, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("store: encode bundle: %w", err)
	}
	path := filepath.Join(dir, BundleFileName)
	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// LoadBundle reads a manifest from dir.
func LoadBundle(dir string) (*Bundle, error) {
	b, err := os.ReadFile(filepath.Join(dir, BundleFileName))
	if err != nil {
		return nil, fmt.Errorf("store: read bundle: %w", err)
	}
	var out Bundle
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("store: decode bundle: %w", err)
	}
	return &out, nil
}

// Verify checks every entry of the manifest against the files in dir:
// content digests must match, the recorded coefficient set must agree
// with the file's m_rho0, and every spot-checked prime must still
// carry the recorded label. The arithmetic re-verification of the spot
// checks is the data checker's job; Verify covers integrity.
func (b *Bundle) Verify(dir string) error {
	if len(b.Entries) == 0 {
		return fmt.Errorf("store: bundle %s has no entries", b.ID)
	}
	for _, e := range b.Entries {
		path := filepath.Join(dir, e.File)
		digest, err := FileDigest(path)
		if err != nil {
			return err
		}
		if digest != e.Digest {
			return fmt.Errorf("store: bundle %s: digest mismatch for %s", b.ID, e.File)
		}
		cf, err := ReadCaseFile(path)
		if err != nil {
			return err
		}
		if len(e.Coefficients) > 0 {
			want, err := coefficientSet(cf.MRho0)
			if err != nil {
				return fmt.Errorf("store: bundle %s: case %d: %w", b.ID, e.CaseID, err)
			}
			for name, got := range e.Coefficients {
				if w, ok := want[name]; !ok || got != w {
					return fmt.Errorf("store: bundle %s: case %d coefficient for %s drifted",
						b.ID, e.CaseID, name)
				}
			}
		}
		for _, sc := range e.SpotChecks {
			v, ok := cf.Elements[fmt.Sprintf("%d", sc.Prime)]
			if !ok {
				return fmt.Errorf("store: bundle %s: case %d lost p=%d", b.ID, e.CaseID, sc.Prime)
			}
			if quat.Element(v) != sc.Label {
				return fmt.Errorf("store: bundle %s: case %d p=%d label drifted", b.ID, e.CaseID, sc.Prime)
			}
		}
	}
	return nil
}
