package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ListSheets returns the worksheet names of an XLSX workbook in tab order.
func ListSheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &InvalidSourceError{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// readWorkbook reads the selected sheets of an XLSX source. A workbook with
// no selection, a missing sheet and an empty sheet are skipped, not failed.
func (r *SourceReader) readWorkbook(src SourceFile) (ReadOutcome, error) {
	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return ReadOutcome{}, &InvalidSourceError{Path: src.Path, Reason: err.Error()}
	}
	defer f.Close()

	available := f.GetSheetList()
	selections := src.Sheets
	if src.AllSheets {
		selections = make([]SheetSelection, 0, len(available))
		for _, name := range available {
			selections = append(selections, SheetSelection{Name: name, HasHeader: src.HasHeader, Dedup: src.Dedup})
		}
	}

	var out ReadOutcome
	if len(selections) == 0 {
		out.Skipped = append(out.Skipped, SkippedSource{Source: src.Path, Reason: "no sheets selected"})
		return out, nil
	}

	for _, sel := range selections {
		label := fmt.Sprintf("%s [%s]", src.Path, sel.Name)
		if !containsString(available, sel.Name) {
			out.Skipped = append(out.Skipped, SkippedSource{Source: label, Reason: "sheet not found"})
			continue
		}

		t, err := readSheet(f, sel)
		if err != nil {
			out.Skipped = append(out.Skipped, SkippedSource{Source: label, Reason: err.Error()})
			continue
		}
		t.Source = src.Path
		out.Tables = append(out.Tables, t)
	}
	return out, nil
}

// readSheet converts one worksheet. Blank rows are dropped. Numeric and
// boolean cells keep their type; everything else is read as raw text.
func readSheet(f *excelize.File, sel SheetSelection) (*ParsedTable, error) {
	rows, err := f.Rows(sel.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records [][]any
	rowNum := 0
	for rows.Next() {
		rowNum++
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if isBlankRecord(cols) {
			continue
		}

		rec := make([]any, len(cols))
		for i, raw := range cols {
			rec[i] = typedCell(f, sel.Name, i+1, rowNum, raw)
		}
		records = append(records, rec)
	}
	if err := rows.Error(); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}

	var headers []string
	body := records
	if sel.HasHeader {
		names := make([]string, len(records[0]))
		for i, v := range records[0] {
			names[i] = cellText(v)
		}
		headers = uniqueHeaders(names)
		body = records[1:]
	} else {
		headers = syntheticHeaders(len(records[0]))
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	t := &ParsedTable{
		Sheet:   sel.Name,
		Headers: headers,
		Rows:    make([][]any, 0, len(body)),
		Dedup:   sel.Dedup,
	}
	for _, rec := range body {
		row, wide := fitRow(rec, len(headers))
		if wide {
			t.WideRows++
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// typedCell returns float64 for numeric cells, bool for boolean cells and
// the raw string otherwise. Numbers are stored without a type attribute,
// so an unset type with a parseable value counts as numeric.
func typedCell(f *excelize.File, sheet string, col, row int, raw string) any {
	if raw == "" {
		return ""
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return raw
	}
	cellType, err := f.GetCellType(sheet, ref)
	if err != nil {
		return raw
	}

	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	}
	return raw
}

// cellText renders a typed cell the way it appears in text output.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
