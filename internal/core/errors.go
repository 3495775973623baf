package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

var (
	// ErrCancelled is returned when the caller declines a decision.
	ErrCancelled = errors.New("merge cancelled")

	// ErrNoOutputPath is returned when no destination was given or chosen.
	ErrNoOutputPath = errors.New("no output path selected")

	// ErrNoSources is returned when every source was skipped or none was given.
	ErrNoSources = errors.New("no readable sources")

	// ErrTooManyMerges is returned when all merge slots are occupied and the
	// wait timeout expires. Clients should retry after a short delay.
	ErrTooManyMerges = errors.New("too many concurrent merges, please try again later")
)

// InvalidSourceError reports an empty or unparseable source.
type InvalidSourceError struct {
	Path   string
	Sheet  string
	Reason string
}

func (e *InvalidSourceError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("invalid source %s [%s]: %s", e.Path, e.Sheet, e.Reason)
	}
	return fmt.Sprintf("invalid source %s: %s", e.Path, e.Reason)
}

// HeaderMismatchError reports tables whose column counts cannot be reconciled.
type HeaderMismatchError struct {
	Source   string
	Expected int
	Got      int
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("header mismatch: %s has %d columns, expected %d", e.Source, e.Got, e.Expected)
}

// UnsupportedFormatError reports an unknown input extension or output format.
type UnsupportedFormatError struct {
	Path   string
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("unsupported format %q for %s", e.Format, e.Path)
	}
	return fmt.Sprintf("unsupported output format %q", e.Format)
}

// CapacityExceededError reports more rows than the output format can hold.
type CapacityExceededError struct {
	Format Format
	Rows   int
	Limit  int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: %s rows exceed the %s limit of %s",
		humanize.Comma(int64(e.Rows)), e.Format, humanize.Comma(int64(e.Limit)))
}

// DecisionRequiredError is returned by non-interactive deciders when a
// decision was not supplied up front. Request describes what is needed.
type DecisionRequiredError struct {
	Request Request
}

func (e *DecisionRequiredError) Error() string {
	return fmt.Sprintf("decision required: %s", e.Request.Kind())
}

// IsSkippable reports whether err only affects a single source unit.
func IsSkippable(err error) bool {
	var invalid *InvalidSourceError
	var unsupported *UnsupportedFormatError
	return errors.As(err, &invalid) || errors.As(err, &unsupported)
}

// joinReasons renders skip reasons for an ErrNoSources failure.
func joinReasons(skipped []SkippedSource) string {
	parts := make([]string, 0, len(skipped))
	for _, s := range skipped {
		parts = append(parts, s.Source+": "+s.Reason)
	}
	return strings.Join(parts, "; ")
}
