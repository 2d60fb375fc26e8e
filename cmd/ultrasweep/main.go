// Command ultrasweep runs one case at billion-prime scale with every
// chunk streamed into a SQLite database, so a crashed or interrupted
// run resumes where it stopped instead of starting over.
//
// Usage:
//
//	ultrasweep -case 2 -max-prime 1000000000
//	ultrasweep -case 2 -resume
//
// Results never sit in memory: chunks land in the database as they
// complete and the consolidated classification file is produced from
// the database at the end. -node-id tags rows when several machines
// share a database file over a network mount.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/frob"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/store"
	"Q8-Frobenius/sweep"
)

const (
	defaultDataDir    = "frobenius_data"
	defaultMaxPrime   = 1_000_000_000
	defaultChunkSize  = 50_000
	defaultCheckpoint = 1_000_000
	progressBarWidth  = 40
)

func main() {
	caseID := flag.Int("case", 0, "case id 1..13 (required)")
	maxPrime := flag.Uint64("max-prime", defaultMaxPrime, "classify primes up to this bound")
	dbPath := flag.String("db", "", "experiment database (default DATA/experiment.db)")
	nodeID := flag.String("node-id", "", "node tag for shared databases (default random)")
	resume := flag.Bool("resume", false, "continue from the largest prime already in the database")
	workers := flag.Int("workers", 0, "classifier goroutines (0 = NumCPU, capped)")
	chunk := flag.Uint64("chunk", defaultChunkSize, "primes per work unit")
	checkpoint := flag.Uint64("checkpoint", defaultCheckpoint, "primes between database checkpoints")
	dataDir := flag.String("data", defaultDataDir, "directory for the consolidated case file")
	scanBound := flag.Uint64("scan-bound", store.DefaultScanBound, "prime bound for the subfield triple scan")
	quiet := flag.Bool("quiet", false, "suppress the progress bar")
	flag.Parse()

	if *caseID == 0 {
		exitErr("pick a case with -case N")
	}
	c, err := cases.ByID(*caseID)
	if err != nil {
		exitErr("%v", err)
	}
	if *dbPath == "" {
		*dbPath = filepath.Join(*dataDir, "experiment.db")
	}
	if *nodeID == "" {
		*nodeID = store.NewNodeID()
	}
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		exitErr("create %s: %v", *dataDir, err)
	}
	logger, err := newLogger(*dataDir)
	if err != nil {
		exitErr("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if c, err = resolveTriple(logger, c, *dataDir, *scanBound); err != nil {
		exitErr("case %d: %v", c.ID, err)
	}
	cl, err := frob.NewExact(c)
	if err != nil {
		exitErr("case %d: %v", c.ID, err)
	}

	db, err := store.OpenDB(*dbPath, *nodeID)
	if err != nil {
		exitErr("open db: %v", err)
	}
	defer db.Close()

	var startAfter uint64
	if *resume {
		high, ok, err := db.MaxPrime(ctx, c.Name())
		if err != nil {
			exitErr("resume: %v", err)
		}
		if ok {
			startAfter = high
			fmt.Printf("resuming %s after prime %d\n", c.Name(), high)
		} else {
			fmt.Printf("nothing stored for %s yet, starting fresh\n", c.Name())
		}
	}
	if startAfter >= *maxPrime {
		fmt.Printf("%s already swept past %d, nothing to do\n", c.Name(), *maxPrime)
		return
	}

	expID, err := db.BeginExperiment(ctx, c.Name())
	if err != nil {
		exitErr("begin experiment: %v", err)
	}

	cfg := sweep.Config{
		ChunkSize:       *chunk,
		Workers:         *workers,
		CheckpointEvery: *checkpoint,
		Discard:         true,
		StartAfter:      startAfter,
		Logger:          logger,
		Sink: sweep.SinkFunc(func(ctx context.Context, chunkID uint64, recs []frob.Record) error {
			return db.InsertChunk(ctx, c.Name(), chunkID, recs)
		}),
		Checkpointer: sweep.CheckpointFunc(func(ctx context.Context, cp sweep.Checkpoint) error {
			return db.SaveCheckpoint(ctx, c.Name(), cp.ChunkID, cp.Progress, *dbPath)
		}),
	}
	var bar *progressBar
	if !*quiet {
		total := nt.EstimatePrimeCount(*maxPrime) - nt.EstimatePrimeCount(startAfter)
		bar = newProgressBar(int(total))
		cfg.Progress = func(done, estimated uint64) { bar.Update(int(done)) }
	}
	eng, err := sweep.New(cfg)
	if err != nil {
		exitErr("%v", err)
	}

	fmt.Printf("Sweeping %s over (%d, %d] into %s (node %s)\n",
		c.Name(), startAfter, *maxPrime, db.Path(), db.NodeID())
	start := time.Now()
	_, stats, err := eng.Run(ctx, cl, *maxPrime)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			finish(db, expID, "interrupted", "")
			fmt.Fprintf(os.Stderr, "interrupted after %d primes; rerun with -resume\n", stats.Processed)
			return
		}
		finish(db, expID, "failed", "")
		exitErr("sweep: %v", err)
	}

	recs, err := db.CaseRecords(context.Background(), c.Name())
	if err != nil {
		finish(db, expID, "failed", "")
		exitErr("consolidate: %v", err)
	}
	path, err := store.WriteCaseFile(*dataDir, store.NewCaseFile(c, *maxPrime, recs))
	if err != nil {
		finish(db, expID, "failed", "")
		exitErr("case file: %v", err)
	}
	finish(db, expID, "completed", path)

	dropped := stats.Inconclusive + stats.Inconsistent + stats.Failed
	fmt.Printf("%s: %d classified this run, %d ramified, %d dropped in %s\n",
		c.Name(), stats.Classified, stats.Ramified, dropped, formatDuration(time.Since(start)))
	fmt.Printf("consolidated %d primes -> %s\n", len(recs), path)
}

// finish records the experiment outcome; a bookkeeping failure at this
// point is only worth a warning.
func finish(db *store.DB, id int64, status, resultPath string) {
	if err := db.FinishExperiment(context.Background(), id, status, resultPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: experiment status not recorded: %v\n", err)
	}
}

func resolveTriple(logger *zap.Logger, c cases.Case, dataDir string, scanBound uint64) (cases.Case, error) {
	if c.HasSubfields() {
		return c, nil
	}
	sc, ok, err := store.ReadSubfieldCache(dataDir, c.ID)
	if err != nil {
		return c, err
	}
	if ok {
		return sc.Apply(c)
	}
	derived, err := frob.EnsureSubfields(c, scanBound)
	if err != nil {
		return c, err
	}
	logger.Info("subfield triple derived by scan",
		zap.Int("case", c.ID), zap.Int64s("triple", derived.Subfields[:]))
	if _, err := store.WriteSubfieldCache(dataDir, derived, scanBound); err != nil {
		return c, err
	}
	return derived, nil
}

func newLogger(dir string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr", filepath.Join(dir, "ultrasweep.log")}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

type progressBar struct {
	total int
	start time.Time
}

func newProgressBar(total int) *progressBar {
	return &progressBar{total: total}
}

func (bar *progressBar) Update(done int) {
	if bar.total <= 0 {
		return
	}
	if done > bar.total {
		done = bar.total
	}
	if bar.start.IsZero() {
		bar.start = time.Now()
	}
	ratio := float64(done) / float64(bar.total)
	filled := int(ratio * progressBarWidth)
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	barStr := strings.Repeat("█", filled) + strings.Repeat(" ", progressBarWidth-filled)
	elapsed := time.Since(bar.start)
	var eta time.Duration
	if done > 0 && done < bar.total {
		eta = time.Duration(float64(elapsed) * (float64(bar.total-done) / float64(done)))
	}
	fmt.Printf("\r\033[32m[%s]\033[0m %3.0f%% (%d/%d) ETA %s", barStr, ratio*100, done, bar.total, formatDuration(eta))
	if done == bar.total {
		fmt.Print("\n")
	}
}

func (bar *progressBar) Finish() {
	bar.Update(bar.total)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "--s"
	}
	sec := d.Round(time.Second)
	return sec.String()
}

func exitErr(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
