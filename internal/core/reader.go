package core

// reader.go turns one SourceFile into ParsedTables.
//
// CSV, TSV and TXT are read with encoding/csv after BOM stripping and UTF-8
// sanitizing. XLSX and JSON live in reader_xlsx.go and reader_json.go.
// Every table leaves the reader with unique headers and rows padded or cut
// to exactly len(Headers) values. Cut rows are counted in WideRows so the
// merge can warn about them.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SourceReader parses source files.
type SourceReader struct {
	// MaxFileSize rejects larger files. Zero disables the check.
	MaxFileSize int64
}

// ReadOutcome is what one SourceFile contributed.
// Skipped lists sheets that were left out without failing the source.
type ReadOutcome struct {
	Tables  []*ParsedTable
	Skipped []SkippedSource
}

// Read parses src according to its format. ZIP sources must be expanded
// with a Workspace first; passing one here is an UnsupportedFormatError.
func (r *SourceReader) Read(src SourceFile) (ReadOutcome, error) {
	format := src.ResolvedFormat()

	if err := r.checkSize(src.Path); err != nil {
		return ReadOutcome{}, err
	}

	switch format {
	case FormatCSV, FormatTSV, FormatTXT:
		t, err := r.readDelimited(src, format)
		if err != nil {
			return ReadOutcome{}, err
		}
		return ReadOutcome{Tables: []*ParsedTable{t}}, nil
	case FormatJSON:
		t, err := r.readJSON(src)
		if err != nil {
			return ReadOutcome{}, err
		}
		return ReadOutcome{Tables: []*ParsedTable{t}}, nil
	case FormatXLSX:
		return r.readWorkbook(src)
	default:
		return ReadOutcome{}, &UnsupportedFormatError{Path: src.Path, Format: format}
	}
}

func (r *SourceReader) checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return &InvalidSourceError{Path: path, Reason: "is a directory"}
	}
	if r.MaxFileSize > 0 && info.Size() > r.MaxFileSize {
		return &InvalidSourceError{Path: path, Reason: fmt.Sprintf("file too large (%d bytes)", info.Size())}
	}
	return nil
}

// =============================================================================
// Delimited text
// =============================================================================

// delimiterCandidates are tried in order when sniffing; ties go to the earlier one.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffLines is how many leading lines the delimiter sniffer looks at.
const sniffLines = 10

func (r *SourceReader) readDelimited(src SourceFile, format Format) (*ParsedTable, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src.Path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(WrapSource(f, r.MaxFileSize))
	if err != nil {
		return nil, &InvalidSourceError{Path: src.Path, Reason: err.Error()}
	}

	delim := '\t'
	if format != FormatTSV {
		delim = sniffDelimiter(data)
	}

	records, err := parseDelimited(data, delim)
	if err != nil {
		return nil, &InvalidSourceError{Path: src.Path, Reason: err.Error()}
	}

	t, err := tableFromRecords(records, src.HasHeader)
	if err != nil {
		return nil, &InvalidSourceError{Path: src.Path, Reason: err.Error()}
	}
	t.Source = src.Path
	t.Dedup = src.Dedup
	return t, nil
}

// parseDelimited reads every record. Blank lines are skipped by encoding/csv.
func parseDelimited(data []byte, delim rune) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return records, nil
}

// noDelimiter splits nothing. Single-column files are parsed with it so
// commas inside values stay in the value.
const noDelimiter = '\x1f'

// sniffDelimiter picks the candidate that splits the first line and every
// sampled line after it into the same number of fields, preferring more
// fields. Quoted sections are ignored. A first line with no candidate at all
// means a single column. Otherwise the first-line candidate that agrees with
// the most lines wins, which keeps ragged files on their real delimiter.
func sniffDelimiter(data []byte) rune {
	lines := sampleLines(data)
	if len(lines) == 0 {
		return ','
	}
	first, rest := lines[0], lines[1:]

	best, bestCount := rune(0), 0
	for _, cand := range delimiterCandidates {
		n := countUnquoted(first, cand)
		if n == 0 || n <= bestCount {
			continue
		}
		if agreeing(rest, cand, n) == len(rest) {
			best, bestCount = cand, n
		}
	}
	if best != 0 {
		return best
	}

	best, bestAgree := noDelimiter, -1
	for _, cand := range delimiterCandidates {
		n := countUnquoted(first, cand)
		if n == 0 {
			continue
		}
		if a := agreeing(rest, cand, n); a > bestAgree {
			best, bestAgree = cand, a
		}
	}
	return best
}

func sampleLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() && len(lines) < sniffLines {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// agreeing counts the lines holding exactly n unquoted delim runes.
func agreeing(lines []string, delim rune, n int) int {
	count := 0
	for _, line := range lines {
		if countUnquoted(line, delim) == n {
			count++
		}
	}
	return count
}

func countUnquoted(line string, delim rune) int {
	n, quoted := 0, false
	for _, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == delim && !quoted:
			n++
		}
	}
	return n
}

// tableFromRecords builds a ParsedTable from raw records.
// With hasHeader the first record names the columns; otherwise columns are
// named "Column 1".."Column N" after the width of the first record.
func tableFromRecords(records [][]string, hasHeader bool) (*ParsedTable, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	var headers []string
	body := records
	if hasHeader {
		if isBlankRecord(records[0]) {
			return nil, fmt.Errorf("header row has no fields")
		}
		headers = uniqueHeaders(records[0])
		body = records[1:]
	} else {
		headers = syntheticHeaders(len(records[0]))
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	t := &ParsedTable{Headers: headers, Rows: make([][]any, 0, len(body))}
	for _, rec := range body {
		row, wide := fitRow(rec, len(headers))
		if wide {
			t.WideRows++
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// fitRow pads short records with "" to width. It reports whether rec held
// more values than width; those are dropped.
func fitRow[T any](rec []T, width int) ([]any, bool) {
	row := make([]any, width)
	for i := range row {
		if i < len(rec) {
			row[i] = rec[i]
		} else {
			row[i] = ""
		}
	}
	return row, len(rec) > width
}

func syntheticHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = "Column " + strconv.Itoa(i+1)
	}
	return headers
}

// uniqueHeaders names blank headers "__EMPTY" and suffixes repeats with
// "_1", "_2" so every column key is distinct.
func uniqueHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "__EMPTY"
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			seen[base]++
			name = fmt.Sprintf("%s_%d", base, seen[base])
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
