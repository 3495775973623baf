package core

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sampleTable() *MergedTable {
	return &MergedTable{
		Headers: HeaderSet{"id", "note", "amount"},
		Rows: [][]any{
			{"1", "a, \"quoted\" <b>", "1,50"},
			{"2", nil, 3.0},
		},
	}
}

func TestWriteTable_Delimited(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		format Format
		comma  rune
	}{
		{FormatCSV, ','},
		{FormatTSV, '\t'},
		{FormatTXT, '\t'},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			path := filepath.Join(dir, "out."+string(tt.format))
			if err := WriteTable(path, tt.format, sampleTable()); err != nil {
				t.Fatalf("WriteTable() error = %v", err)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			r := csv.NewReader(f)
			r.Comma = tt.comma
			records, err := r.ReadAll()
			if err != nil {
				t.Fatalf("read back: %v", err)
			}

			want := [][]string{
				{"id", "note", "amount"},
				{"1", "a, \"quoted\" <b>", "1,50"},
				{"2", "", "3"},
			}
			if !reflect.DeepEqual(records, want) {
				t.Errorf("records = %q, want %q", records, want)
			}
		})
	}
}

func TestWriteTable_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteTable(path, FormatJSON, sampleTable()); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "id": "1",
    "note": "a, \"quoted\" <b>",
    "amount": "1,50"
  },
  {
    "id": "2",
    "note": null,
    "amount": 3
  }
]`
	if string(data) != want {
		t.Errorf("output =\n%s\nwant\n%s", data, want)
	}
}

func TestWriteTable_JSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteTable(path, FormatJSON, &MergedTable{Headers: HeaderSet{"a"}}); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[]" {
		t.Errorf("output = %q, want []", data)
	}
}

func TestWriteTable_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := WriteTable(path, FormatXLSX, sampleTable()); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); !reflect.DeepEqual(sheets, []string{XLSXSheetName}) {
		t.Errorf("sheets = %q", sheets)
	}
	rows, err := f.GetRows(XLSXSheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || !reflect.DeepEqual(rows[0], []string{"id", "note", "amount"}) {
		t.Errorf("rows = %q", rows)
	}
	if rows[1][2] != "1,50" {
		t.Errorf("text cell = %q, want 1,50", rows[1][2])
	}
}

func TestWriteTable_UnsupportedFormatLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.zip")

	err := WriteTable(path, FormatZIP, sampleTable())
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want UnsupportedFormatError", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("directory not empty: %v", entries)
	}
}

func TestWriteTable_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	if err := WriteTable(path, FormatCSV, sampleTable()); err == nil || !strings.Contains(err.Error(), "create output") {
		t.Errorf("error = %v, want create output failure", err)
	}
}

func TestMaxDataRows(t *testing.T) {
	if got := MaxDataRows(FormatXLSX, excelize.TotalRows); got != 1048575 {
		t.Errorf("MaxDataRows(xlsx) = %d, want 1048575", got)
	}
	if got := MaxDataRows(FormatCSV, excelize.TotalRows); got != -1 {
		t.Errorf("MaxDataRows(csv) = %d, want -1", got)
	}
}
