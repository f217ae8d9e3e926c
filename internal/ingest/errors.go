package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSourceNotFound is returned when a configured dataset file does not
// exist. Wrapped with the offending path; match with errors.Is.
var ErrSourceNotFound = errors.New("source file not found")

// SchemaError is returned when a dataset is missing required columns
// entirely. Per-row malformed values are not schema errors; they are dropped
// and counted instead.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset %q: required columns missing: %s", e.Source, strings.Join(e.Missing, ", "))
}

// DropReason enumerates why a row was rejected during ingestion.
type DropReason string

const (
	DropBadDate      DropReason = "bad_date"
	DropBadNumber    DropReason = "bad_number"
	DropNegative     DropReason = "negative_value"
	DropClicksExceed DropReason = "clicks_exceed_impressions"
)

// Stats counts the outcome of one ingestion pass. Malformed rows and rows
// excluded by the date filter are tracked separately so a run can be
// explained without re-running it.
type Stats struct {
	Ingested   int
	Malformed  int
	OutOfRange int
	Reasons    map[DropReason]int
}

func (s *Stats) drop(reason DropReason) {
	s.Malformed++
	if s.Reasons == nil {
		s.Reasons = make(map[DropReason]int)
	}
	s.Reasons[reason]++
}

// Merge folds another pass's counts into s.
func (s *Stats) Merge(o Stats) {
	s.Ingested += o.Ingested
	s.Malformed += o.Malformed
	s.OutOfRange += o.OutOfRange
	for reason, n := range o.Reasons {
		if s.Reasons == nil {
			s.Reasons = make(map[DropReason]int)
		}
		s.Reasons[reason] += n
	}
}

// ReasonCounts returns the per-reason malformed counts keyed by string,
// in the shape bundle metadata expects.
func (s *Stats) ReasonCounts() map[string]int {
	if len(s.Reasons) == 0 {
		return nil
	}
	out := make(map[string]int, len(s.Reasons))
	for reason, n := range s.Reasons {
		out[string(reason)] = n
	}
	return out
}
