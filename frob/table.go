package frob

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/internal/ffpoly"
	"Q8-Frobenius/internal/nt"
	"Q8-Frobenius/quat"
)

// FeatureSet selects which invariants of a prime a decision table is
// keyed on.
type FeatureSet uint8

const (
	// FeaturesBasic keys on the degree pattern and the Kronecker
	// symbols of the quadratic-subfield triple (or, when the triple is
	// unknown, of the three smallest probe integers).
	FeaturesBasic FeatureSet = iota
	// FeaturesExtended additionally keys on the symbols of every probe
	// integer and on p mod 8.
	FeaturesExtended
)

func (s FeatureSet) String() string {
	if s == FeaturesExtended {
		return "extended"
	}
	return "basic"
}

// ParseFeatureSet resolves a -features flag value.
func ParseFeatureSet(v string) (FeatureSet, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "basic":
		return FeaturesBasic, nil
	case "extended":
		return FeaturesExtended, nil
	default:
		return 0, fmt.Errorf("frob: unknown feature set %q (want basic or extended)", v)
	}
}

// MarshalJSON encodes the set as its flag name.
func (s FeatureSet) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts a flag name.
func (s *FeatureSet) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' {
		return fmt.Errorf("frob: feature set literal %s: want a quoted name", b)
	}
	v, err := ParseFeatureSet(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// featureTuple returns the integers whose Kronecker symbols key the
// table for c under the given set.
func featureTuple(c cases.Case, set FeatureSet) []int64 {
	probes := c.ProbeIntegers()
	if set == FeaturesExtended {
		return probes
	}
	if c.HasSubfields() {
		d := c.Subfields
		return []int64{d[0], d[1], d[2]}
	}
	if len(probes) > 3 {
		probes = probes[:3]
	}
	return probes
}

// features are the observable invariants of one prime.
type features struct {
	MaxDeg  int
	Pattern string
	Signs   string // one '+' or '-' per tuple integer
	PMod8   int    // -1 unless the extended set is in use
}

// extract computes the invariants of p. Ramified primes and index
// divisors are reported through ErrRamified and ErrInconclusive so
// that fitting and validation can drop them.
func extract(c cases.Case, tuple []int64, set FeatureSet, p uint64) (features, error) {
	if c.IsRamified(p) {
		return features{}, fmt.Errorf("p=%d: %w", p, ErrRamified)
	}
	pat, err := ffpoly.DegreePattern(ffpoly.Reduce(c.Coeffs, p), p)
	if err != nil {
		if errors.Is(err, ffpoly.ErrNotSquarefree) {
			return features{}, fmt.Errorf("p=%d: %w", p, ErrInconclusive)
		}
		return features{}, fmt.Errorf("p=%d: degree pattern: %w", p, err)
	}
	var sb strings.Builder
	for _, d := range tuple {
		if nt.Kronecker(d, p) > 0 {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('-')
		}
	}
	f := features{
		MaxDeg:  pat.Max(),
		Pattern: pat.String(),
		Signs:   sb.String(),
		PMod8:   -1,
	}
	if set == FeaturesExtended {
		f.PMod8 = int(p % 8)
	}
	return f, nil
}

func (f features) symbolsKey() string {
	if f.PMod8 >= 0 {
		return f.Signs + "|m" + strconv.Itoa(f.PMod8)
	}
	return f.Signs
}

func (f features) combinedKey() string {
	return "d" + strconv.Itoa(f.MaxDeg) + "|" + f.symbolsKey()
}

// Lookup tiers, most to least specific.
const (
	TierCombined  = "combined"
	TierPattern   = "pattern"
	TierMaxDegree = "max_degree"
	TierSymbols   = "symbols"
)

// Table is a fitted classification table for one case. Lookups walk
// four tiers from the most specific key to the least and stop at the
// first hit. Accuracy is measured by Validate and travels with the
// table; a table that was never validated reports accuracy 0.
type Table struct {
	CaseID      int                     `json:"case_id"`
	Features    FeatureSet              `json:"feature_set"`
	Tuple       []int64                 `json:"kronecker_tuple"`
	TrainedTo   uint64                  `json:"trained_to"`
	Combined    map[string]quat.Element `json:"combined"`
	ByPattern   map[string]quat.Element `json:"by_pattern"`
	ByMaxDeg    map[string]quat.Element `json:"by_max_degree"`
	BySymbols   map[string]quat.Element `json:"by_symbols"`
	Accuracy    float64                 `json:"accuracy_percent"`
	ValidatedOn int                     `json:"validated_on"`
}

// Lookup resolves features against the table and names the tier that
// decided. ok is false when no tier covers the observation.
func (t *Table) Lookup(f features) (label quat.Element, tier string, ok bool) {
	if v, hit := t.Combined[f.combinedKey()]; hit {
		return v, TierCombined, true
	}
	if v, hit := t.ByPattern[f.Pattern]; hit {
		return v, TierPattern, true
	}
	if v, hit := t.ByMaxDeg[strconv.Itoa(f.MaxDeg)]; hit {
		return v, TierMaxDegree, true
	}
	if v, hit := t.BySymbols[f.symbolsKey()]; hit {
		return v, TierSymbols, true
	}
	return 0, "", false
}

// Keys reports the number of keys per tier, for fit summaries.
func (t *Table) Keys() map[string]int {
	return map[string]int{
		TierCombined:  len(t.Combined),
		TierPattern:   len(t.ByPattern),
		TierMaxDegree: len(t.ByMaxDeg),
		TierSymbols:   len(t.BySymbols),
	}
}

func (t *Table) validate() error {
	if t.CaseID < 1 || t.CaseID > cases.NumCases {
		return fmt.Errorf("frob: table case id %d out of range", t.CaseID)
	}
	if len(t.Tuple) == 0 {
		return fmt.Errorf("frob: table for case %d has an empty kronecker tuple", t.CaseID)
	}
	if t.Accuracy < 0 || t.Accuracy > 100 {
		return fmt.Errorf("frob: table accuracy %.2f%% out of range", t.Accuracy)
	}
	return nil
}

// TableFileName returns the canonical file name for a case's fitted
// table, e.g. "case_02_table.json".
func TableFileName(caseID int) string {
	return fmt.Sprintf("case_%02d_table.json", caseID)
}

// SaveTable writes t as indented JSON, creating parent directories.
func SaveTable(path string, t *Table) error {
	if err := t.validate(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("frob: encode table: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("frob: create table dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("frob: write table: %w", err)
	}
	return nil
}

// LoadTable reads a table written by SaveTable.
func LoadTable(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frob: read table: %w", err)
	}
	var t Table
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("frob: decode table %s: %w", path, err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// TableClassifier replays a fitted table. It is heuristic: Classify
// answers with the table's majority label for the observed features
// and the declared accuracy is whatever Validate measured, so callers
// must opt into it explicitly (frobsweep's -mode table).
type TableClassifier struct {
	c cases.Case
	t *Table
}

// NewTable builds a table classifier for c from a fitted table.
func NewTable(c cases.Case, t *Table) (*TableClassifier, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	if t.CaseID != c.ID {
		return nil, fmt.Errorf("frob: table fitted for case %d applied to %s", t.CaseID, c.Name())
	}
	return &TableClassifier{c: c, t: t}, nil
}

func (tc *TableClassifier) Case() cases.Case  { return tc.c }
func (tc *TableClassifier) Exact() bool       { return false }
func (tc *TableClassifier) Accuracy() float64 { return tc.t.Accuracy }

// Table returns the underlying fitted table.
func (tc *TableClassifier) Table() *Table { return tc.t }

func (tc *TableClassifier) Classify(p uint64) (Record, error) {
	f, err := extract(tc.c, tc.t.Tuple, tc.t.Features, p)
	if err != nil {
		return Record{}, err
	}
	label, _, ok := tc.t.Lookup(f)
	if !ok {
		return Record{}, fmt.Errorf("p=%d: %w", p, ErrNoTableEntry)
	}
	return Record{
		Prime:   p,
		Label:   label,
		Class:   label.Class(),
		Pattern: f.Pattern,
		Method:  MethodTable,
	}, nil
}

// Summary renders the table in a stable order for fit reports.
func (t *Table) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "case %d, %s features, trained to %d, accuracy %.2f%% (on %d primes)\n",
		t.CaseID, t.Features, t.TrainedTo, t.Accuracy, t.ValidatedOn)
	dump := func(tier string, m map[string]quat.Element) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(&sb, "  %s (%d keys)\n", tier, len(m))
		for _, k := range sortedKeys(m) {
			fmt.Fprintf(&sb, "    %-24s -> %s\n", k, m[k])
		}
	}
	dump(TierCombined, t.Combined)
	dump(TierPattern, t.ByPattern)
	dump(TierMaxDegree, t.ByMaxDeg)
	dump(TierSymbols, t.BySymbols)
	return sb.String()
}

func sortedKeys(m map[string]quat.Element) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
