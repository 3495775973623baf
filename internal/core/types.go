// Package core provides the table merge pipeline.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Format identifies a tabular file format by its lowercase extension.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatTXT  Format = "txt"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatZIP  Format = "zip"
)

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) Format {
	return Format(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")))
}

// IsInput reports whether the format can be read as a source.
func (f Format) IsInput() bool {
	switch f {
	case FormatCSV, FormatTSV, FormatTXT, FormatXLSX, FormatJSON, FormatZIP:
		return true
	}
	return false
}

// IsOutput reports whether the format can be written as merge output.
func (f Format) IsOutput() bool {
	switch f {
	case FormatCSV, FormatTSV, FormatTXT, FormatXLSX, FormatJSON:
		return true
	}
	return false
}

// IsArchiveMember reports whether a file of this format is kept when expanding an archive.
// Nested archives are not expanded.
func (f Format) IsArchiveMember() bool {
	return f.IsOutput()
}

// SheetSelection selects one worksheet of an XLSX source with its own options.
type SheetSelection struct {
	Name      string `json:"name"`
	HasHeader bool   `json:"hasHeader"`
	Dedup     bool   `json:"dedup"`
}

// SourceOptions overrides the defaults of one archive member.
// Sheets and AllSheets apply to XLSX members only; a workbook member with
// neither contributes every sheet.
type SourceOptions struct {
	HasHeader bool             `json:"hasHeader"`
	Dedup     bool             `json:"dedup"`
	Sheets    []SheetSelection `json:"sheets,omitempty"`
	AllSheets bool             `json:"allSheets,omitempty"`
}

// SourceFile describes one input chosen by the caller.
// It is treated as immutable once a merge starts.
type SourceFile struct {
	Path      string `json:"path"`
	Format    Format `json:"format,omitempty"` // derived from Path when empty
	HasHeader bool   `json:"hasHeader"`
	Dedup     bool   `json:"dedup"`

	// XLSX only. With no Sheets and AllSheets unset the workbook contributes nothing.
	Sheets    []SheetSelection `json:"sheets,omitempty"`
	AllSheets bool             `json:"allSheets,omitempty"`

	// ZIP only. Keyed by member name inside the archive.
	Members map[string]SourceOptions `json:"members,omitempty"`
}

// ResolvedFormat returns the declared format or the one implied by the path.
func (s SourceFile) ResolvedFormat() Format {
	if s.Format != "" {
		return Format(strings.ToLower(string(s.Format)))
	}
	return FormatFromPath(s.Path)
}

// ParsedTable is the content of one source file or one worksheet.
// Headers are unique. Every row has exactly len(Headers) values, in header order.
// Values are string, float64, bool or nil.
type ParsedTable struct {
	Source  string
	Sheet   string
	Headers []string
	Rows    [][]any
	Dedup   bool

	// WideRows counts rows that held more values than Headers. Their
	// extra values were dropped.
	WideRows int
}

// Label identifies the table in warnings and header prompts.
func (t *ParsedTable) Label() string {
	name := filepath.Base(t.Source)
	if t.Sheet != "" {
		return fmt.Sprintf("%s [%s]", name, t.Sheet)
	}
	return name
}

// HeaderSet is the canonical ordered column list of the merged output.
type HeaderSet []string

// Equal reports whether both header sequences have the same names in the same order.
func (h HeaderSet) Equal(other []string) bool {
	if len(h) != len(other) {
		return false
	}
	for i := range h {
		if h[i] != other[i] {
			return false
		}
	}
	return true
}

// MergedTable holds rows re-keyed positionally onto a HeaderSet.
type MergedTable struct {
	Headers HeaderSet
	Rows    [][]any
}

// Notation is the decimal separator convention used in the output.
type Notation string

const (
	NotationDot   Notation = "dot"
	NotationComma Notation = "comma"
)

// Separator returns the decimal separator rune for the notation.
func (n Notation) Separator() string {
	if n == NotationComma {
		return ","
	}
	return "."
}

// ParseNotation accepts "dot"/"." and "comma"/",".
func ParseNotation(s string) (Notation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dot", ".":
		return NotationDot, nil
	case "comma", ",":
		return NotationComma, nil
	}
	return "", fmt.Errorf("invalid decimal notation %q: use dot or comma", s)
}

// NumericStyle is the single numeric convention applied to the whole merged table.
type NumericStyle struct {
	Notation  Notation
	Precision int
}

// CleanupOptions toggles the optional cleanup steps.
type CleanupOptions struct {
	TrimSpaces         bool `json:"trimSpaces"`
	NormalizeMissing   bool `json:"normalizeMissing"`
	RemoveEmptyColumns bool `json:"removeEmptyColumns"`
}

// Any reports whether at least one cleanup step is enabled.
func (c CleanupOptions) Any() bool {
	return c.TrimSpaces || c.NormalizeMissing || c.RemoveEmptyColumns
}

// MergeConfig is everything the caller supplies for one merge.
type MergeConfig struct {
	Sources      []SourceFile
	OutputFormat Format
	OutputPath   string // asked from the Decider when empty
	Cleanup      CleanupOptions

	// Strict aborts on the first unreadable source instead of skipping it.
	// Used by the quick merge path that runs before any configuration.
	Strict bool
}

// SkippedSource records a source or sheet left out of the merge.
type SkippedSource struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// Result is returned for every merge, successful or not.
type Result struct {
	MergeID        string          `json:"mergeId"`
	Success        bool            `json:"success"`
	OutputPath     string          `json:"outputPath,omitempty"`
	Format         Format          `json:"format,omitempty"`
	Rows           int             `json:"rows"`
	Columns        int             `json:"columns"`
	Notation       Notation        `json:"notation,omitempty"`
	Precision      int             `json:"precision"`
	Truncated      bool            `json:"truncated,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	Skipped        []SkippedSource `json:"skipped,omitempty"`
	RemovedColumns []string        `json:"removedColumns,omitempty"`
	Duration       time.Duration   `json:"duration"`
	Error          string          `json:"error,omitempty"`
}

// Warn appends a formatted warning to the result.
func (r *Result) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
