// Package aggregate turns fetch results into the sorted rows of the clock table.
package aggregate

import (
	"errors"
	"strings"

	"worldclock/collector"
	"worldclock/models"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slices"
)

// Policy decides what happens to the table when some zones failed
type Policy int

const (
	// PolicyBestEffort keeps every successful row and reports the failures
	PolicyBestEffort Policy = iota
	// PolicyFailFast drops all rows as soon as one zone failed
	PolicyFailFast
)

func (p Policy) String() string {
	switch p {
	case PolicyFailFast:
		return "fail-fast"
	default:
		return "best-effort"
	}
}

// TieBreak orders rows that share an offset
type TieBreak int

const (
	// TieBreakArrival keeps the order in which results arrived. That order
	// follows network completion and is not reproducible between runs.
	TieBreakArrival TieBreak = iota
	// TieBreakZone orders equal offsets by zone identifier
	TieBreakZone
)

// Options configures Aggregate
type Options struct {
	Policy   Policy
	TieBreak TieBreak
}

// Report is the aggregated outcome of a run
type Report struct {
	Rows   []models.OutputRow
	Failed []collector.Result
}

// ErrAborted is wrapped by the error returned under PolicyFailFast
var ErrAborted = errors.New("aborted: at least one zone failed")

// Aggregate converts results into rows sorted by offset, highest first.
// Under PolicyBestEffort the returned error combines every failure and the
// report still carries the successful rows. Under PolicyFailFast a single
// failure yields a report without rows.
func Aggregate(results []collector.Result, opts Options) (Report, error) {
	report := Report{
		Rows: make([]models.OutputRow, 0, len(results)),
	}

	var errs *multierror.Error
	for _, result := range results {
		if !result.OK() {
			report.Failed = append(report.Failed, result)
			errs = multierror.Append(errs, result.Err)
			continue
		}
		report.Rows = append(report.Rows, result.Record.Row())
	}

	if errs != nil {
		errs.ErrorFormat = formatErrors
	}

	if errs != nil && opts.Policy == PolicyFailFast {
		report.Rows = nil
		return report, &AbortError{Cause: errs}
	}

	SortRows(report.Rows, opts.TieBreak)
	return report, errs.ErrorOrNil()
}

// SortRows sorts by offset descending. The sort is stable, so with
// TieBreakArrival rows sharing an offset keep their input order.
func SortRows(rows []models.OutputRow, tieBreak TieBreak) {
	slices.SortStableFunc(rows, func(a, b models.OutputRow) int {
		if a.Offset != b.Offset {
			return int(b.Offset) - int(a.Offset)
		}
		if tieBreak == TieBreakZone {
			return strings.Compare(a.Zone, b.Zone)
		}
		return 0
	})
}

// AbortError is returned under PolicyFailFast
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	return ErrAborted.Error() + ": " + e.Cause.Error()
}

func (e *AbortError) Unwrap() []error {
	return []error{ErrAborted, e.Cause}
}

func formatErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
