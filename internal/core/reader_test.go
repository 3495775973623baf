package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "a,b,c\n1,2,3\n", ','},
		{"semicolon with comma decimals", "a;b\n1,5;2,25\n3,0;4\n", ';'},
		{"tab", "a\tb\n1\t2\n", '\t'},
		{"pipe", "a|b|c\n1|2|3\n", '|'},
		{"quoted commas ignored", "a;b\n\"x,y,z\";1\n\"p,q\";2\n", ';'},
		{"single column", "name\nalice\nbob\n", noDelimiter},
		{"single column with comma decimals", "y\n2,25\n", noDelimiter},
		{"first line decides over data lines", "a|b\n1,5|2\n3|4,25\n", '|'},
		{"ragged rows keep first-line delimiter", "a;b\n1;2\n3\n4;5\n", ';'},
		{"inconsistent widths fall back to first-line candidate", "a,b\n1,2,3\n", ','},
		{"empty", "", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffDelimiter([]byte(tt.data)); got != tt.want {
				t.Errorf("sniffDelimiter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUniqueHeaders(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"a", "b"}, []string{"a", "b"}},
		{[]string{"a", "a", "a"}, []string{"a", "a_1", "a_2"}},
		{[]string{"", " ", "x"}, []string{"__EMPTY", "__EMPTY_1", "x"}},
		{[]string{"a", "a_1", "a"}, []string{"a", "a_1", "a_2"}},
	}

	for _, tt := range tests {
		if got := uniqueHeaders(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("uniqueHeaders(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSourceReader_Delimited(t *testing.T) {
	dir := t.TempDir()
	r := &SourceReader{}

	tests := []struct {
		name        string
		file        string
		content     string
		hasHeader   bool
		wantHeaders []string
		wantRows    [][]string
		wantWide    int
	}{
		{
			name:        "csv with header",
			file:        "a.csv",
			content:     "id,amount\n1,\"1,50\"\n2,2.00\n",
			hasHeader:   true,
			wantHeaders: []string{"id", "amount"},
			wantRows:    [][]string{{"1", "1,50"}, {"2", "2.00"}},
		},
		{
			name:        "csv without header synthesizes columns",
			file:        "b.csv",
			content:     "x,y,z\n1,2,3\n",
			hasHeader:   false,
			wantHeaders: []string{"Column 1", "Column 2", "Column 3"},
			wantRows:    [][]string{{"x", "y", "z"}, {"1", "2", "3"}},
		},
		{
			name:        "tsv always uses tab",
			file:        "c.tsv",
			content:     "a,b\tc\n1,2\t3\n",
			hasHeader:   true,
			wantHeaders: []string{"a,b", "c"},
			wantRows:    [][]string{{"1,2", "3"}},
		},
		{
			name:        "short rows padded and long rows cut",
			file:        "d.txt",
			content:     "a;b;c\n1\n1;2;3;4\n",
			hasHeader:   true,
			wantHeaders: []string{"a", "b", "c"},
			wantRows:    [][]string{{"1", "", ""}, {"1", "2", "3"}},
			wantWide:    1,
		},
		{
			name:        "single column keeps comma decimals",
			file:        "f.csv",
			content:     "y\n2,25\n",
			hasHeader:   true,
			wantHeaders: []string{"y"},
			wantRows:    [][]string{{"2,25"}},
		},
		{
			name:        "header-less rows wider than the first",
			file:        "g.csv",
			content:     "1,2\n3,4\n5,6\n7,8,9\n",
			hasHeader:   false,
			wantHeaders: []string{"Column 1", "Column 2"},
			wantRows:    [][]string{{"1", "2"}, {"3", "4"}, {"5", "6"}, {"7", "8"}},
			wantWide:    1,
		},
		{
			name:        "BOM and blank lines",
			file:        "e.csv",
			content:     "\xEF\xBB\xBFa,b\n\n1,2\n\n",
			hasHeader:   true,
			wantHeaders: []string{"a", "b"},
			wantRows:    [][]string{{"1", "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			out, err := r.Read(SourceFile{Path: path, HasHeader: tt.hasHeader, Dedup: true})
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if len(out.Tables) != 1 {
				t.Fatalf("got %d tables, want 1", len(out.Tables))
			}
			tbl := out.Tables[0]
			if !reflect.DeepEqual(tbl.Headers, tt.wantHeaders) {
				t.Errorf("Headers = %q, want %q", tbl.Headers, tt.wantHeaders)
			}
			if got := stringRows(tbl.Rows); !reflect.DeepEqual(got, tt.wantRows) {
				t.Errorf("Rows = %q, want %q", got, tt.wantRows)
			}
			if !tbl.Dedup {
				t.Error("Dedup flag not carried onto table")
			}
			if tbl.WideRows != tt.wantWide {
				t.Errorf("WideRows = %d, want %d", tbl.WideRows, tt.wantWide)
			}
		})
	}
}

func TestSourceReader_InvalidSources(t *testing.T) {
	dir := t.TempDir()
	r := &SourceReader{}

	tests := []struct {
		name      string
		file      string
		content   string
		hasHeader bool
	}{
		{"empty file", "empty.csv", "", true},
		{"header only", "header.csv", "a,b\n", true},
		{"blank header", "blank.csv", ",,\n1,2,3\n", true},
		{"json not an array", "obj.json", `{"a":1}`, true},
		{"json empty array", "arr.json", `[]`, true},
		{"json array of scalars", "scalars.json", `[1,2]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := r.Read(SourceFile{Path: path, HasHeader: tt.hasHeader})
			var invalid *InvalidSourceError
			if !errors.As(err, &invalid) {
				t.Fatalf("Read() error = %v, want InvalidSourceError", err)
			}
		})
	}
}

func TestSourceReader_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.pdf", "whatever")
	_, err := (&SourceReader{}).Read(SourceFile{Path: path})

	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Read() error = %v, want UnsupportedFormatError", err)
	}
	if unsupported.Format != "pdf" {
		t.Errorf("Format = %q, want pdf", unsupported.Format)
	}
}

func TestSourceReader_MaxFileSize(t *testing.T) {
	path := writeFile(t, t.TempDir(), "big.csv", "a,b\n"+strings.Repeat("1,2\n", 100))
	_, err := (&SourceReader{MaxFileSize: 64}).Read(SourceFile{Path: path, HasHeader: true})

	var invalid *InvalidSourceError
	if !errors.As(err, &invalid) || !strings.Contains(err.Error(), "file too large") {
		t.Fatalf("Read() error = %v, want file too large", err)
	}
}

func TestSourceReader_JSON(t *testing.T) {
	content := `[
		{"name": "a", "price": 1.5, "active": true, "tags": ["x", "y"], "note": null},
		{"price": 2, "name": "b", "extra": "ignored"},
		{"name": "c"}
	]`
	path := writeFile(t, t.TempDir(), "items.json", content)

	out, err := (&SourceReader{}).Read(SourceFile{Path: path, HasHeader: true})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	tbl := out.Tables[0]

	wantHeaders := []string{"name", "price", "active", "tags", "note"}
	if !reflect.DeepEqual(tbl.Headers, wantHeaders) {
		t.Fatalf("Headers = %q, want %q", tbl.Headers, wantHeaders)
	}

	want := [][]any{
		{"a", 1.5, true, `["x","y"]`, nil},
		{2.0, "b", "ignored", "", ""},
		{"c", "", "", "", ""},
	}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Errorf("Rows = %#v, want %#v", tbl.Rows, want)
	}
	if tbl.WideRows != 0 {
		t.Errorf("WideRows = %d, want 0", tbl.WideRows)
	}
}

func TestSourceReader_JSONValuesByPosition(t *testing.T) {
	content := `[{"a":"1","b":"2"},{"b":"X","a":"Y"},{"c":"P","d":"Q","e":"R"},{"a":"S","a":"T"}]`
	path := writeFile(t, t.TempDir(), "pos.json", content)

	out, err := (&SourceReader{}).Read(SourceFile{Path: path, HasHeader: true})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	tbl := out.Tables[0]

	if !reflect.DeepEqual(tbl.Headers, []string{"a", "b"}) {
		t.Fatalf("Headers = %q", tbl.Headers)
	}
	want := [][]string{{"1", "2"}, {"X", "Y"}, {"P", "Q"}, {"T", ""}}
	if got := stringRows(tbl.Rows); !reflect.DeepEqual(got, want) {
		t.Errorf("Rows = %q, want %q", got, want)
	}
	if tbl.WideRows != 1 {
		t.Errorf("WideRows = %d, want 1", tbl.WideRows)
	}
}

func TestSourceReader_XLSX(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkbook(t, dir, "book.xlsx", []testSheet{
		{name: "Q1", rows: [][]any{{"id", "amount"}, {"a", 1.25}, {"b", "2,50"}}},
		{name: "Q2", rows: [][]any{{"x", 3.0}, {nil, nil}, {"y", 4.5}}},
		{name: "Empty"},
	})
	r := &SourceReader{}

	t.Run("selected sheets with per-sheet options", func(t *testing.T) {
		out, err := r.Read(SourceFile{Path: path, Sheets: []SheetSelection{
			{Name: "Q1", HasHeader: true, Dedup: true},
			{Name: "Q2", HasHeader: false},
			{Name: "Missing", HasHeader: true},
			{Name: "Empty", HasHeader: true},
		}})
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(out.Tables) != 2 {
			t.Fatalf("got %d tables, want 2", len(out.Tables))
		}
		if len(out.Skipped) != 2 {
			t.Errorf("got %d skipped sheets, want 2: %+v", len(out.Skipped), out.Skipped)
		}

		q1 := out.Tables[0]
		if q1.Sheet != "Q1" || !q1.Dedup {
			t.Errorf("Q1 table = sheet %q dedup %v", q1.Sheet, q1.Dedup)
		}
		if !reflect.DeepEqual(q1.Headers, []string{"id", "amount"}) {
			t.Errorf("Q1 headers = %q", q1.Headers)
		}
		if q1.Rows[0][1] != 1.25 {
			t.Errorf("numeric cell = %#v, want float64 1.25", q1.Rows[0][1])
		}
		if q1.Rows[1][1] != "2,50" {
			t.Errorf("text cell = %#v, want \"2,50\"", q1.Rows[1][1])
		}

		q2 := out.Tables[1]
		if !reflect.DeepEqual(q2.Headers, []string{"Column 1", "Column 2"}) {
			t.Errorf("Q2 headers = %q", q2.Headers)
		}
		if len(q2.Rows) != 2 {
			t.Errorf("Q2 rows = %d, want 2 (blank row dropped)", len(q2.Rows))
		}
	})

	t.Run("no selection is skipped", func(t *testing.T) {
		out, err := r.Read(SourceFile{Path: path, HasHeader: true})
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if len(out.Tables) != 0 || len(out.Skipped) != 1 {
			t.Errorf("got %d tables, %d skipped; want 0, 1", len(out.Tables), len(out.Skipped))
		}
	})

	t.Run("list sheets", func(t *testing.T) {
		names, err := ListSheets(path)
		if err != nil {
			t.Fatalf("ListSheets() error = %v", err)
		}
		if !reflect.DeepEqual(names, []string{"Q1", "Q2", "Empty"}) {
			t.Errorf("ListSheets() = %q", names)
		}
	})
}
