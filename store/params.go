package store

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"Q8-Frobenius/cases"
)

// SweepParams configures a sweep run. Zero values mean "use the
// default"; Normalize fills them in, Validate rejects nonsense.
type SweepParams struct {
	Cases           []int  `json:"cases"`            // empty = all thirteen
	MaxPrime        uint64 `json:"max_prime"`        // sweep height
	ChunkSize       uint64 `json:"chunk_size"`       // primes per work unit
	Workers         int    `json:"workers"`          // parallel classifiers
	CheckpointEvery uint64 `json:"checkpoint_every"` // primes between checkpoints
	SamplePoints    int    `json:"sample_points"`    // bias grid budget
	ScanBound       uint64 `json:"scan_bound"`       // subfield scan height
	Heuristic       bool   `json:"heuristic"`        // allow fitted tables
	TableDir        string `json:"table_dir"`        // fitted tables location
	OutputDir       string `json:"output_dir"`       // artifact directory
}

// Default sweep tuning: 10k-prime chunks, checkpoints every 50k
// primes, at most 16 workers.
const (
	DefaultMaxPrime        = 1_000_000
	DefaultChunkSize       = 10_000
	DefaultCheckpointEvery = 50_000
	DefaultScanBound       = 10_000
	MaxWorkers             = 16
)

// DefaultSweepParams returns the tuning used when no parameter file is
// given.
func DefaultSweepParams() SweepParams {
	p := SweepParams{}
	p.Normalize()
	return p
}

// Normalize fills zero fields with defaults.
func (p *SweepParams) Normalize() {
	if p.MaxPrime == 0 {
		p.MaxPrime = DefaultMaxPrime
	}
	if p.ChunkSize == 0 {
		p.ChunkSize = DefaultChunkSize
	}
	if p.Workers == 0 {
		p.Workers = runtime.NumCPU()
	}
	if p.Workers > MaxWorkers {
		p.Workers = MaxWorkers
	}
	if p.CheckpointEvery == 0 {
		p.CheckpointEvery = DefaultCheckpointEvery
	}
	if p.SamplePoints == 0 {
		p.SamplePoints = 1000
	}
	if p.ScanBound == 0 {
		p.ScanBound = DefaultScanBound
	}
	if p.OutputDir == "" {
		p.OutputDir = "frobenius_data"
	}
}

// Validate rejects parameter combinations that cannot run.
func (p *SweepParams) Validate() error {
	if p.MaxPrime < 3 {
		return fmt.Errorf("store: max_prime=%d below 3", p.MaxPrime)
	}
	if p.ChunkSize < 1 {
		return fmt.Errorf("store: chunk_size=%d", p.ChunkSize)
	}
	if p.Workers < 1 {
		return fmt.Errorf("store: workers=%d", p.Workers)
	}
	if p.CheckpointEvery < p.ChunkSize {
		return fmt.Errorf("store: checkpoint_every=%d below chunk_size=%d",
			p.CheckpointEvery, p.ChunkSize)
	}
	if p.SamplePoints < 1 {
		return fmt.Errorf("store: sample_points=%d", p.SamplePoints)
	}
	for _, id := range p.Cases {
		if _, err := cases.ByID(id); err != nil {
			return fmt.Errorf("store: %w", err)
		}
	}
	if p.Heuristic && p.TableDir == "" {
		return fmt.Errorf("store: heuristic sweeps need table_dir")
	}
	return nil
}

// CaseIDs resolves the configured case list, defaulting to the whole
// catalog.
func (p *SweepParams) CaseIDs() []int {
	if len(p.Cases) > 0 {
		return p.Cases
	}
	ids := make([]int, 0, cases.NumCases)
	for _, c := range cases.All() {
		ids = append(ids, c.ID)
	}
	return ids
}

// LoadSweepParams reads a parameter file, normalizes and validates it.
func LoadSweepParams(path string) (SweepParams, error) {
	var p SweepParams
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("store: read params: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("store: decode params %s: %w", path, err)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
