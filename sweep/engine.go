// Package sweep runs classifiers over prime ranges: a producer sieves
// primes into fixed-size chunks, a worker pool classifies them, and a
// collector merges results, feeds the sink, and cuts checkpoints.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"Q8-Frobenius/frob"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/prof"
)

// Stats counts every prime the sweep touched, bucketed by outcome.
// Processed always equals the sum of the other counters.
type Stats struct {
	Processed    uint64 `json:"processed"`
	Classified   uint64 `json:"classified"`
	Ramified     uint64 `json:"ramified"`
	Inconclusive uint64 `json:"inconclusive"`
	Inconsistent uint64 `json:"inconsistent"`
	NoTableEntry uint64 `json:"no_table_entry"`
	Failed       uint64 `json:"failed"`
	Chunks       int    `json:"chunks"`
	SinkRetries  int    `json:"sink_retries"`
}

func (s *Stats) merge(o Stats) {
	s.Processed += o.Processed
	s.Classified += o.Classified
	s.Ramified += o.Ramified
	s.Inconclusive += o.Inconclusive
	s.Inconsistent += o.Inconsistent
	s.NoTableEntry += o.NoTableEntry
	s.Failed += o.Failed
}

// Sink receives classified chunks as they complete, in completion
// order. Implementations must be safe for reuse across chunks but are
// called from a single goroutine.
type Sink interface {
	StoreChunk(ctx context.Context, chunkID uint64, recs []frob.Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, chunkID uint64, recs []frob.Record) error

func (f SinkFunc) StoreChunk(ctx context.Context, chunkID uint64, recs []frob.Record) error {
	return f(ctx, chunkID, recs)
}

// Checkpoint is a progress mark cut every CheckpointEvery primes.
type Checkpoint struct {
	ChunkID   uint64
	Processed uint64
	Progress  float64 // 0..1 against the prime-count estimate
}

// Checkpointer persists progress marks for resumption.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
}

// CheckpointFunc adapts a function to the Checkpointer interface.
type CheckpointFunc func(ctx context.Context, cp Checkpoint) error

func (f CheckpointFunc) SaveCheckpoint(ctx context.Context, cp Checkpoint) error {
	return f(ctx, cp)
}

// Config tunes one engine. The zero value is usable: defaults are
// filled by New.
type Config struct {
	ChunkSize       uint64 // primes per work unit
	Workers         int    // classifier goroutines
	CheckpointEvery uint64 // primes between checkpoints, 0 disables
	MaxRetries      int    // sink delivery attempts per chunk
	Discard         bool   // drop records after the sink saw them
	StartAfter      uint64 // resume: skip primes <= this
	Sink            Sink
	Checkpointer    Checkpointer
	Logger          *zap.Logger
	Progress        func(processed, estimated uint64)
}

// Engine sweeps one classifier across a prime range.
type Engine struct {
	cfg Config
}

const (
	defaultChunkSize  = 10_000
	defaultMaxRetries = 3
	maxWorkers        = 16
	sieveSpan         = uint64(1) << 22
	retryBackoff      = 100 * time.Millisecond
)

// New validates and normalizes the configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Workers > maxWorkers {
		cfg.Workers = maxWorkers
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.CheckpointEvery != 0 && cfg.CheckpointEvery < cfg.ChunkSize {
		return nil, fmt.Errorf("sweep: checkpoint interval %d below chunk size %d",
			cfg.CheckpointEvery, cfg.ChunkSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{cfg: cfg}, nil
}

type job struct {
	id     uint64
	primes []uint64
}

type jobResult struct {
	id   uint64
	recs []frob.Record
	st   Stats
}

// Run classifies every prime in (StartAfter, maxPrime] and returns the
// records sorted by prime (nil when Discard is set) plus outcome
// counts. Per-prime failures are counted and skipped: a partial sweep
// always beats an aborted one. Only sink exhaustion and cancellation
// stop the run.
func (e *Engine) Run(ctx context.Context, cl frob.Classifier, maxPrime uint64) ([]frob.Record, Stats, error) {
	defer prof.Track(time.Now(), "Engine.Run")
	if maxPrime < 2 {
		return nil, Stats{}, fmt.Errorf("sweep: max prime %d", maxPrime)
	}
	cfg := e.cfg
	log := cfg.Logger.With(zap.String("case", cl.Case().Name()))
	estimated := nt.EstimatePrimeCount(maxPrime)
	log.Info("sweep starting",
		zap.Uint64("max_prime", maxPrime),
		zap.Uint64("estimated_primes", estimated),
		zap.Int("workers", cfg.Workers),
		zap.Bool("exact", cl.Exact()),
		zap.Float64("accuracy", cl.Accuracy()))

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan job, cfg.Workers)
	results := make(chan jobResult, cfg.Workers)

	// Producer: sieve segments, slice into chunks.
	g.Go(func() error {
		defer close(jobs)
		var (
			id  uint64
			buf []uint64
		)
		emit := func() error {
			j := job{id: id, primes: buf}
			id++
			buf = nil
			select {
			case jobs <- j:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		lo := uint64(2)
		if cfg.StartAfter >= lo {
			lo = cfg.StartAfter + 1
		}
		for ; lo <= maxPrime; lo += sieveSpan {
			hi := maxPrime + 1
			if lo+sieveSpan < hi {
				hi = lo + sieveSpan
			}
			for _, p := range nt.SievePrimes(lo, hi) {
				buf = append(buf, p)
				if uint64(len(buf)) == cfg.ChunkSize {
					if err := emit(); err != nil {
						return err
					}
				}
			}
		}
		if len(buf) > 0 {
			return emit()
		}
		return nil
	})

	// Workers: classify chunk primes, bucket the failures.
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				res := jobResult{id: j.id, recs: make([]frob.Record, 0, len(j.primes))}
				for _, p := range j.primes {
					rec, err := cl.Classify(p)
					res.st.Processed++
					switch {
					case err == nil:
						res.st.Classified++
						res.recs = append(res.recs, rec)
					case errors.Is(err, frob.ErrRamified):
						res.st.Ramified++
					case errors.Is(err, frob.ErrInconclusive):
						res.st.Inconclusive++
					case errors.Is(err, frob.ErrNoTableEntry):
						res.st.NoTableEntry++
					case errors.Is(err, frob.ErrInconsistent):
						res.st.Inconsistent++
						log.Warn("inconsistent data at prime", zap.Uint64("prime", p), zap.Error(err))
					default:
						res.st.Failed++
						log.Warn("classification failed", zap.Uint64("prime", p), zap.Error(err))
					}
				}
				select {
				case results <- res:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		wg.Wait()
		close(results)
		return nil
	})

	// Collector: sink, checkpoint, accumulate.
	var (
		all            []frob.Record
		stats          Stats
		nextCheckpoint = cfg.CheckpointEvery
	)
	g.Go(func() error {
		for res := range results {
			if cfg.Sink != nil {
				if err := e.deliver(gctx, log, res.id, res.recs, &stats); err != nil {
					return err
				}
			}
			stats.merge(res.st)
			stats.Chunks++
			if !cfg.Discard {
				all = append(all, res.recs...)
			}
			if cfg.Progress != nil {
				cfg.Progress(stats.Processed, estimated)
			}
			if cfg.Checkpointer != nil && cfg.CheckpointEvery > 0 && stats.Processed >= nextCheckpoint {
				nextCheckpoint += cfg.CheckpointEvery
				progress := float64(stats.Processed) / float64(estimated)
				if progress > 1 {
					progress = 1
				}
				cp := Checkpoint{ChunkID: res.id, Processed: stats.Processed, Progress: progress}
				if err := cfg.Checkpointer.SaveCheckpoint(gctx, cp); err != nil {
					return fmt.Errorf("sweep: checkpoint at %d primes: %w", cp.Processed, err)
				}
				log.Debug("checkpoint",
					zap.Uint64("processed", cp.Processed),
					zap.Float64("progress", cp.Progress))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Prime < all[j].Prime })
	log.Info("sweep finished",
		zap.Uint64("processed", stats.Processed),
		zap.Uint64("classified", stats.Classified),
		zap.Uint64("ramified", stats.Ramified),
		zap.Uint64("inconclusive", stats.Inconclusive),
		zap.Uint64("dropped", stats.Inconsistent+stats.Failed+stats.NoTableEntry),
		zap.Int("chunks", stats.Chunks))
	return all, stats, nil
}

// deliver pushes one chunk into the sink, retrying transient failures
// with linear backoff.
func (e *Engine) deliver(ctx context.Context, log *zap.Logger, chunkID uint64, recs []frob.Record, stats *Stats) error {
	var last error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = e.cfg.Sink.StoreChunk(ctx, chunkID, recs)
		if last == nil {
			return nil
		}
		stats.SinkRetries++
		log.Warn("sink delivery failed",
			zap.Uint64("chunk", chunkID),
			zap.Int("attempt", attempt),
			zap.Error(last))
		select {
		case <-time.After(time.Duration(attempt) * retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("sweep: chunk %d undeliverable after %d attempts: %w",
		chunkID, e.cfg.MaxRetries, last)
}
