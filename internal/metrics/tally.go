package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/nypl/scsbxml/internal/scsb"
)

// Snapshot is a point-in-time copy of a Tally.
type Snapshot struct {
	Records           int            `yaml:"records"`
	RecordsWithItems  int            `yaml:"records_with_items"`
	BibsWithOCLC      int            `yaml:"bibs_with_oclc"`
	Holdings          int            `yaml:"holdings"`
	Items             int            `yaml:"items"`
	UseRestrictions   map[string]int `yaml:"use_restrictions"`
	GroupDesignations map[string]int `yaml:"group_designations"`
	Rules             map[string]int `yaml:"rules"`
	Rejected          map[string]int `yaml:"rejected"`
}

// RejectedTotal sums rejections across reasons.
func (s Snapshot) RejectedTotal() int {
	n := 0
	for _, v := range s.Rejected {
		n += v
	}
	return n
}

// Tally counts conversion events in memory. It implements scsb.Reporter
// and is safe for concurrent use.
type Tally struct {
	mu   sync.Mutex
	snap Snapshot
}

var _ scsb.Reporter = (*Tally)(nil)

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{snap: Snapshot{
		UseRestrictions:   map[string]int{},
		GroupDesignations: map[string]int{},
		Rules:             map[string]int{},
		Rejected:          map[string]int{},
	}}
}

func (t *Tally) BibWithOCLC() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.BibsWithOCLC++
}

func (t *Tally) ItemRejected(reason scsb.RejectReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Rejected[string(reason)]++
}

func (t *Tally) ItemClassified(class scsb.Classification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Items++
	t.snap.UseRestrictions[useRestrictionLabel(class.UseRestriction)]++
	t.snap.GroupDesignations[class.GroupDesignation]++
	t.snap.Rules[class.UseRule+"/"+class.GroupRule]++
}

func (t *Tally) HoldingAssembled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Holdings++
}

func (t *Tally) RecordConverted(items int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Records++
	if items > 0 {
		t.snap.RecordsWithItems++
	}
}

// Snapshot copies the current counts.
func (t *Tally) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.snap
	out.UseRestrictions = copyCounts(t.snap.UseRestrictions)
	out.GroupDesignations = copyCounts(t.snap.GroupDesignations)
	out.Rules = copyCounts(t.snap.Rules)
	out.Rejected = copyCounts(t.snap.Rejected)
	return out
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// useRestrictionLabel names the empty use restriction for display.
func useRestrictionLabel(s string) string {
	if s == scsb.NoRestriction {
		return "none"
	}
	return s
}

// PrintSummary writes a human readable summary of a run.
func PrintSummary(w io.Writer, s Snapshot) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Conversion Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Records:            %d\n", s.Records)
	fmt.Fprintf(w, "Records with items: %d\n", s.RecordsWithItems)
	fmt.Fprintf(w, "Bibs with OCLC:     %d\n", s.BibsWithOCLC)
	fmt.Fprintf(w, "Holdings:           %d\n", s.Holdings)
	fmt.Fprintf(w, "Items:              %d\n", s.Items)
	fmt.Fprintf(w, "Items rejected:     %d\n", s.RejectedTotal())

	printCounts(w, "Use Restrictions", s.UseRestrictions)
	printCounts(w, "Group Designations", s.GroupDesignations)
	printCounts(w, "Rules", s.Rules)
	printCounts(w, "Rejections", s.Rejected)
	fmt.Fprintln(w, "========================================")
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", title)

	// Sort keys for consistent output
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
}
