package core

// writer.go serializes a MergedTable.
//
// Output goes to a temporary file next to the destination and is renamed
// into place only after everything was written, so a failed or aborted
// write never leaves a partial output file behind.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// XLSXSheetName is the single worksheet written to XLSX output.
const XLSXSheetName = "Sheet1"

// MaxDataRows returns how many data rows the format can hold below its
// header row, or -1 when unbounded. sheetLimit is the worksheet row limit
// including the header.
func MaxDataRows(format Format, sheetLimit int) int {
	if format == FormatXLSX {
		return sheetLimit - 1
	}
	return -1
}

// WriteTable writes t to path in the given format.
func WriteTable(path string, format Format, t *MergedTable) error {
	if !format.IsOutput() {
		return &UnsupportedFormatError{Format: format}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tabmerge-*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	switch format {
	case FormatCSV:
		err = writeDelimited(bw, t, ',')
	case FormatTSV, FormatTXT:
		err = writeDelimited(bw, t, '\t')
	case FormatJSON:
		err = writeJSON(bw, t)
	case FormatXLSX:
		err = writeXLSX(bw, t)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	committed = true
	return nil
}

func writeDelimited(w io.Writer, t *MergedTable, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim

	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	record := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = cellText(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON writes an array of objects indented by two spaces, with keys
// in header order.
func writeJSON(w io.Writer, t *MergedTable) error {
	if len(t.Rows) == 0 {
		_, err := io.WriteString(w, "[]")
		return err
	}

	keys := make([][]byte, len(t.Headers))
	for i, h := range t.Headers {
		k, err := marshalJSON(h)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteString("[\n")
	for r, row := range t.Rows {
		buf.WriteString("  {")
		for i, v := range row {
			if i > 0 {
				buf.WriteByte(',')
			}
			val, err := marshalJSON(v)
			if err != nil {
				return fmt.Errorf("row %d, column %s: %w", r+1, t.Headers[i], err)
			}
			buf.WriteString("\n    ")
			buf.Write(keys[i])
			buf.WriteString(": ")
			buf.Write(val)
		}
		if len(row) > 0 {
			buf.WriteString("\n  ")
		}
		buf.WriteByte('}')
		if r < len(t.Rows)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')

		if buf.Len() > 64*1024 {
			if _, err := w.Write(buf.Bytes()); err != nil {
				return err
			}
			buf.Reset()
		}
	}
	buf.WriteByte(']')
	_, err := w.Write(buf.Bytes())
	return err
}

// marshalJSON encodes v without HTML escaping and without a trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeXLSX(w io.Writer, t *MergedTable) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(XLSXSheetName)
	if err != nil {
		return err
	}

	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("row %d: %w", r+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
