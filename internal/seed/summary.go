package seed

import (
	"errors"
	"fmt"
	"time"

	"examseed/internal/gateway"
	"examseed/internal/types"
)

// ErrFailures is returned by Summary.Err when any creation failed.
var ErrFailures = errors.New("one or more creations failed")

// State is the lifecycle of one item: Pending -> Creating -> {Done, Failed, Skipped}.
// Ineligible marks a student no exam serves; it never reaches Creating.
type State int

const (
	Pending State = iota
	Creating
	Done
	Failed
	Skipped
	Ineligible
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Creating:
		return "creating"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Ineligible:
		return "ineligible"
	}
	return "unknown"
}

// Final reports whether the state is terminal.
func (s State) Final() bool {
	return s >= Done
}

// stateFor maps a classified outcome to the terminal item state.
func stateFor(out gateway.Outcome) State {
	switch out.Kind {
	case gateway.Created:
		return Done
	case gateway.Duplicate:
		return Skipped
	default:
		return Failed
	}
}

// Record is one item the seeder handled.
type Record struct {
	Kind     types.EntityKind
	ParentID int64
	Index    int
	Label    string
	State    State
	Outcome  gateway.Outcome
	// Reason explains a Skipped or Ineligible record that made no remote call.
	Reason string
}

// Observer receives every record once it reaches a terminal state.
type Observer interface {
	Finished(Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Record)

func (f ObserverFunc) Finished(r Record) { f(r) }

// Counts holds the per-kind tallies.
type Counts struct {
	Created    int
	Failed     int
	Skipped    int
	Ineligible int
}

// Total is the number of items handled.
func (c Counts) Total() int {
	return c.Created + c.Failed + c.Skipped + c.Ineligible
}

// Summary aggregates the outcome of a run.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Failures []Record

	counts map[types.EntityKind]*Counts
}

// NewSummary starts an empty summary.
func NewSummary(runID string, started time.Time) *Summary {
	return &Summary{
		RunID:   runID,
		Started: started,
		counts:  make(map[types.EntityKind]*Counts),
	}
}

// Add tallies a finished record.
func (s *Summary) Add(r Record) {
	c, ok := s.counts[r.Kind]
	if !ok {
		c = &Counts{}
		s.counts[r.Kind] = c
	}
	switch r.State {
	case Done:
		c.Created++
	case Failed:
		c.Failed++
		s.Failures = append(s.Failures, r)
	case Skipped:
		c.Skipped++
	case Ineligible:
		c.Ineligible++
	}
}

// For returns the tallies of one kind.
func (s *Summary) For(kind types.EntityKind) Counts {
	if c, ok := s.counts[kind]; ok {
		return *c
	}
	return Counts{}
}

// Kinds lists the kinds that have at least one record, in hierarchy order.
func (s *Summary) Kinds() []types.EntityKind {
	var kinds []types.EntityKind
	for _, k := range types.AllKinds {
		if _, ok := s.counts[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Totals sums the tallies of every kind.
func (s *Summary) Totals() Counts {
	var t Counts
	for _, c := range s.counts {
		t.Created += c.Created
		t.Failed += c.Failed
		t.Skipped += c.Skipped
		t.Ineligible += c.Ineligible
	}
	return t
}

// HasFailures reports whether any item failed.
func (s *Summary) HasFailures() bool {
	return len(s.Failures) > 0
}

// Err returns ErrFailures wrapped with the failure count, or nil.
func (s *Summary) Err() error {
	if !s.HasFailures() {
		return nil
	}
	return fmt.Errorf("%d failed: %w", len(s.Failures), ErrFailures)
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}
