// Command frobsweep classifies the Frobenius class at every unramified
// prime up to a bound for one or all catalog cases and writes the
// classification files consumed by biasplot and datacheck.
//
// Usage:
//
//	frobsweep -case 2 -max-prime 1000000
//	frobsweep -all -max-prime 100000000 -workers 16 -bundle
//	frobsweep -params sweep.json -data results/
//
// A parameter file supplies defaults; explicit flags override it. The
// sweep keeps going when a case fails and exits zero as long as the
// configuration was sound, so partial results survive interrupted or
// partly broken runs.
package main

import (
	"context"
	"crypto/rand"
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
	"Q8-Frobenius/prof"
	"Q8-Frobenius/store"
	"Q8-Frobenius/sweep"
)

const (
	defaultDataDir       = "frobenius_data"
	defaultBundleSamples = 10
	progressBarWidth     = 40
)

func main() {
	caseID := flag.Int("case", 0, "case id 1..13 (omit with -all)")
	all := flag.Bool("all", false, "sweep every catalog case")
	maxPrime := flag.Uint64("max-prime", store.DefaultMaxPrime, "classify primes up to this bound")
	workers := flag.Int("workers", 0, "classifier goroutines (0 = NumCPU, capped)")
	chunk := flag.Uint64("chunk", store.DefaultChunkSize, "primes per work unit")
	checkpoint := flag.Uint64("checkpoint", store.DefaultCheckpointEvery, "primes between checkpoint logs")
	mode := flag.String("mode", "exact", "classifier: exact or table")
	tableDir := flag.String("table", "", "fitted-table directory (required with -mode table)")
	dataDir := flag.String("data", defaultDataDir, "output directory for case files")
	scanBound := flag.Uint64("scan-bound", store.DefaultScanBound, "prime bound for the subfield triple scan")
	paramsPath := flag.String("params", "", "JSON sweep parameter file (flags override its values)")
	bundle := flag.Bool("bundle", false, "write a verification bundle over the swept cases")
	bundleSamples := flag.Int("bundle-samples", defaultBundleSamples, "spot-check primes per case in the bundle")
	quiet := flag.Bool("quiet", false, "suppress the progress bar")
	timings := flag.Bool("timings", false, "print a stage timing profile at the end")
	flag.Parse()

	if *mode != "exact" && *mode != "table" {
		exitErr("unknown -mode %q (want exact or table)", *mode)
	}

	params := store.DefaultSweepParams()
	if *paramsPath != "" {
		var err error
		if params, err = store.LoadSweepParams(*paramsPath); err != nil {
			exitErr("params: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "case":
			params.Cases = []int{*caseID}
		case "max-prime":
			params.MaxPrime = *maxPrime
		case "workers":
			params.Workers = *workers
		case "chunk":
			params.ChunkSize = *chunk
		case "checkpoint":
			params.CheckpointEvery = *checkpoint
		case "mode":
			params.Heuristic = *mode == "table"
		case "table":
			params.TableDir = *tableDir
		case "data":
			params.OutputDir = *dataDir
		case "scan-bound":
			params.ScanBound = *scanBound
		}
	})
	if *all {
		params.Cases = nil
	}
	params.Normalize()
	if err := params.Validate(); err != nil {
		exitErr("%v", err)
	}
	if !*all && len(params.Cases) == 0 {
		exitErr("pick a case with -case N or sweep everything with -all")
	}

	if err := os.MkdirAll(params.OutputDir, 0o755); err != nil {
		exitErr("create %s: %v", params.OutputDir, err)
	}
	logger, err := newLogger(params.OutputDir)
	if err != nil {
		exitErr("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ids := params.CaseIDs()
	classifier := "exact"
	if params.Heuristic {
		classifier = "table"
	}
	fmt.Printf("Sweeping %d case(s) up to %d with %d workers (%s classifier)\n",
		len(ids), params.MaxPrime, params.Workers, classifier)

	runStart := time.Now()
	var written []string
	runs := map[int]store.RunInfo{}
	failed := 0
	for _, id := range ids {
		rel, info, err := sweepCase(ctx, logger, params, id, *quiet)
		if err != nil {
			failed++
			logger.Error("case failed", zap.Int("case", id), zap.Error(err))
			fmt.Fprintf(os.Stderr, "case %d failed: %v\n", id, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		written = append(written, rel)
		runs[id] = info
	}

	if *bundle && len(written) > 0 {
		seed := make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			exitErr("bundle seed: %v", err)
		}
		b, err := store.BuildBundle(params.OutputDir, written, params.MaxPrime, *bundleSamples, seed, runs)
		if err != nil {
			exitErr("bundle: %v", err)
		}
		path, err := store.SaveBundle(params.OutputDir, b)
		if err != nil {
			exitErr("bundle: %v", err)
		}
		fmt.Printf("Bundle %s over %d case(s) -> %s\n", b.ID, len(b.Entries), path)
	}
	if *timings {
		prof.Report(os.Stdout, time.Since(runStart))
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d case(s) failed\n", failed, len(ids))
	}
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "interrupted; partial results kept")
	}
}

// sweepCase runs one case end to end and returns the written case file
// name relative to the output directory plus the run counters for the
// bundle.
func sweepCase(ctx context.Context, logger *zap.Logger, params store.SweepParams, id int, quiet bool) (string, store.RunInfo, error) {
	c, err := cases.ByID(id)
	if err != nil {
		return "", store.RunInfo{}, err
	}

	var cl frob.Classifier
	if params.Heuristic {
		t, err := frob.LoadTable(filepath.Join(params.TableDir, frob.TableFileName(id)))
		if err != nil {
			return "", store.RunInfo{}, err
		}
		if t.ValidatedOn == 0 {
			return "", store.RunInfo{}, fmt.Errorf("table for case %d carries no measured accuracy; run mapfit -validate first", id)
		}
		if cl, err = frob.NewTable(c, t); err != nil {
			return "", store.RunInfo{}, err
		}
		fmt.Printf("case %d: fitted table, %.2f%% accuracy measured on %d primes\n",
			id, t.Accuracy, t.ValidatedOn)
	} else {
		if c, err = resolveTriple(logger, params, c); err != nil {
			return "", store.RunInfo{}, err
		}
		if cl, err = frob.NewExact(c); err != nil {
			return "", store.RunInfo{}, err
		}
	}

	cfg := sweep.Config{
		ChunkSize:       params.ChunkSize,
		Workers:         params.Workers,
		CheckpointEvery: params.CheckpointEvery,
		Logger:          logger,
	}
	var bar *progressBar
	if !quiet {
		bar = newProgressBar(int(nt.EstimatePrimeCount(params.MaxPrime)))
		cfg.Progress = func(done, total uint64) { bar.Update(int(done)) }
	}
	eng, err := sweep.New(cfg)
	if err != nil {
		return "", store.RunInfo{}, err
	}

	start := time.Now()
	recs, stats, err := eng.Run(ctx, cl, params.MaxPrime)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return "", store.RunInfo{}, err
	}

	path, err := store.WriteCaseFile(params.OutputDir, store.NewCaseFile(c, params.MaxPrime, recs))
	if err != nil {
		return "", store.RunInfo{}, err
	}
	elapsed := time.Since(start)
	dropped := stats.Inconclusive + stats.Inconsistent + stats.NoTableEntry + stats.Failed
	fmt.Printf("case %d: %d classified, %d ramified, %d dropped in %s -> %s\n",
		id, stats.Classified, stats.Ramified, dropped, formatDuration(elapsed), path)
	info := store.RunInfo{
		Ramified: stats.Ramified,
		Dropped:  dropped,
		Seconds:  elapsed.Seconds(),
	}
	return store.CaseFileName(id), info, nil
}

// resolveTriple makes sure the case carries its quadratic-subfield
// triple: catalog first, then the scan cache next to the data, then a
// fresh elimination scan whose result is cached for the next run.
func resolveTriple(logger *zap.Logger, params store.SweepParams, c cases.Case) (cases.Case, error) {
	if c.HasSubfields() {
		return c, nil
	}
	sc, ok, err := store.ReadSubfieldCache(params.OutputDir, c.ID)
	if err != nil {
		return c, err
	}
	if ok {
		logger.Info("subfield triple from cache",
			zap.Int("case", c.ID), zap.Int64s("triple", sc.Probes[:]))
		return sc.Apply(c)
	}
	derived, err := frob.EnsureSubfields(c, params.ScanBound)
	if err != nil {
		return c, err
	}
	logger.Info("subfield triple derived by scan",
		zap.Int("case", c.ID),
		zap.Int64s("triple", derived.Subfields[:]),
		zap.Uint64("scan_bound", params.ScanBound))
	if _, err := store.WriteSubfieldCache(params.OutputDir, derived, params.ScanBound); err != nil {
		return c, err
	}
	return derived, nil
}

// newLogger builds the sweep logger: JSON to stderr plus a log file
// alongside the data, so long runs keep a trail next to their results.
func newLogger(dir string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr", filepath.Join(dir, "frobsweep.log")}
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

// Finish closes the bar line. The total is an estimate from the prime
// counting approximation, so the last chunk rarely lands on it exactly.
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
