package frob

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/prof"
	"Q8-Frobenius/quat"
)

// Sample is one labeled prime used for fitting or validating a table.
type Sample struct {
	Prime uint64       `json:"prime"`
	Label quat.Element `json:"label"`
}

// FitReport summarizes one fitting run.
type FitReport struct {
	Samples   int // labeled primes offered
	Used      int // primes that yielded features
	Skipped   int // ramified primes and index divisors dropped
	Conflicts int // keys whose votes were not unanimous
}

// Fit builds a decision table from labeled primes by majority vote.
// Every sample votes its label under each of the four key tiers; each
// key keeps the winning label. Ties break toward the smaller element
// index so fitting is deterministic. Samples at ramified primes or
// index divisors are dropped, not errors.
func Fit(c cases.Case, set FeatureSet, trainedTo uint64, samples []Sample) (*Table, FitReport, error) {
	defer prof.Track(time.Now(), "Fit")
	if len(samples) == 0 {
		return nil, FitReport{}, fmt.Errorf("frob: fit %s: no samples", c.Name())
	}
	tuple := featureTuple(c, set)
	votes := map[string]map[string]map[quat.Element]int{
		TierCombined:  {},
		TierPattern:   {},
		TierMaxDegree: {},
		TierSymbols:   {},
	}
	rep := FitReport{Samples: len(samples)}
	for _, s := range samples {
		if !s.Label.Valid() {
			return nil, FitReport{}, fmt.Errorf("frob: fit %s: invalid label %d at p=%d",
				c.Name(), uint8(s.Label), s.Prime)
		}
		f, err := extract(c, tuple, set, s.Prime)
		if err != nil {
			rep.Skipped++
			continue
		}
		rep.Used++
		vote(votes[TierCombined], f.combinedKey(), s.Label)
		vote(votes[TierPattern], f.Pattern, s.Label)
		vote(votes[TierMaxDegree], strconv.Itoa(f.MaxDeg), s.Label)
		vote(votes[TierSymbols], f.symbolsKey(), s.Label)
	}
	if rep.Used == 0 {
		return nil, rep, fmt.Errorf("frob: fit %s: every sample was ramified or inconclusive", c.Name())
	}
	t := &Table{
		CaseID:    c.ID,
		Features:  set,
		Tuple:     tuple,
		TrainedTo: trainedTo,
		Combined:  map[string]quat.Element{},
		ByPattern: map[string]quat.Element{},
		ByMaxDeg:  map[string]quat.Element{},
		BySymbols: map[string]quat.Element{},
	}
	rep.Conflicts += settle(t.Combined, votes[TierCombined])
	rep.Conflicts += settle(t.ByPattern, votes[TierPattern])
	rep.Conflicts += settle(t.ByMaxDeg, votes[TierMaxDegree])
	rep.Conflicts += settle(t.BySymbols, votes[TierSymbols])
	return t, rep, nil
}

func vote(tier map[string]map[quat.Element]int, key string, label quat.Element) {
	m := tier[key]
	if m == nil {
		m = map[quat.Element]int{}
		tier[key] = m
	}
	m[label]++
}

// settle fills dst with the majority label per key and returns the
// number of contested keys.
func settle(dst map[string]quat.Element, tier map[string]map[quat.Element]int) int {
	conflicts := 0
	for key, counts := range tier {
		if len(counts) > 1 {
			conflicts++
		}
		labels := make([]quat.Element, 0, len(counts))
		for l := range counts {
			labels = append(labels, l)
		}
		sort.Slice(labels, func(a, b int) bool { return labels[a] < labels[b] })
		best := labels[0]
		for _, l := range labels[1:] {
			if counts[l] > counts[best] {
				best = l
			}
		}
		dst[key] = best
	}
	return conflicts
}

// ValidationReport is the outcome of replaying a table against labeled
// primes it was not fitted on.
type ValidationReport struct {
	Correct  int            `json:"correct"`
	Total    int            `json:"total"`
	Accuracy float64        `json:"accuracy_percent"`
	Misses   int            `json:"misses"`  // primes no tier covered, counted as wrong
	Skipped  int            `json:"skipped"` // ramified primes and index divisors
	ByTier   map[string]int `json:"by_tier"` // hits per deciding tier
}

// Validate replays t against labeled primes and stamps the measured
// accuracy onto the table. Predictions are compared as 8-way labels.
// Total only counts primes with usable features; a prime the table has
// no entry for counts as wrong.
func Validate(c cases.Case, t *Table, samples []Sample) (ValidationReport, error) {
	defer prof.Track(time.Now(), "Validate")
	if t.CaseID != c.ID {
		return ValidationReport{}, fmt.Errorf("frob: table fitted for case %d validated against %s",
			t.CaseID, c.Name())
	}
	rep := ValidationReport{ByTier: map[string]int{}}
	for _, s := range samples {
		f, err := extract(c, t.Tuple, t.Features, s.Prime)
		if err != nil {
			rep.Skipped++
			continue
		}
		rep.Total++
		label, tier, ok := t.Lookup(f)
		if !ok {
			rep.Misses++
			continue
		}
		rep.ByTier[tier]++
		if label == s.Label {
			rep.Correct++
		}
	}
	if rep.Correct > rep.Total {
		return ValidationReport{}, fmt.Errorf("frob: validation counted %d correct out of %d",
			rep.Correct, rep.Total)
	}
	if rep.Total > 0 {
		rep.Accuracy = 100 * float64(rep.Correct) / float64(rep.Total)
	}
	t.Accuracy = rep.Accuracy
	t.ValidatedOn = rep.Total
	return rep, nil
}
