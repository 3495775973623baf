package core

import (
	"reflect"
	"testing"
)

func TestApplyCleanup(t *testing.T) {
	tests := []struct {
		name        string
		opts        CleanupOptions
		headers     HeaderSet
		rows        [][]any
		wantHeaders HeaderSet
		wantRows    [][]any
		wantRemoved []string
	}{
		{
			name:        "nothing enabled",
			opts:        CleanupOptions{},
			headers:     HeaderSet{"a", "b"},
			rows:        [][]any{{" x ", "N/A"}},
			wantHeaders: HeaderSet{"a", "b"},
			wantRows:    [][]any{{" x ", "N/A"}},
		},
		{
			name:        "trim only",
			opts:        CleanupOptions{TrimSpaces: true},
			headers:     HeaderSet{"a"},
			rows:        [][]any{{"  x\t"}, {1.5}},
			wantHeaders: HeaderSet{"a"},
			wantRows:    [][]any{{"x"}, {1.5}},
		},
		{
			name:        "missing sentinels",
			opts:        CleanupOptions{NormalizeMissing: true},
			headers:     HeaderSet{"a", "b", "c"},
			rows:        [][]any{{"null", " n/a ", "(blank)"}, {"-", "nullable", "NULL"}},
			wantHeaders: HeaderSet{"a", "b", "c"},
			wantRows:    [][]any{{"", "", ""}, {"", "nullable", ""}},
		},
		{
			name:        "empty columns removed after normalization",
			opts:        CleanupOptions{NormalizeMissing: true, RemoveEmptyColumns: true},
			headers:     HeaderSet{"a", "b", "c"},
			rows:        [][]any{{"1", "N/A", nil}, {"2", "", ""}},
			wantHeaders: HeaderSet{"a"},
			wantRows:    [][]any{{"1"}, {"2"}},
			wantRemoved: []string{"b", "c"},
		},
		{
			name:        "no rows keeps columns",
			opts:        CleanupOptions{RemoveEmptyColumns: true},
			headers:     HeaderSet{"a", "b"},
			rows:        [][]any{},
			wantHeaders: HeaderSet{"a", "b"},
			wantRows:    [][]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := &MergedTable{Headers: tt.headers, Rows: tt.rows}
			removed := ApplyCleanup(tbl, tt.opts)

			if !reflect.DeepEqual(removed, tt.wantRemoved) {
				t.Errorf("removed = %q, want %q", removed, tt.wantRemoved)
			}
			if !reflect.DeepEqual(tbl.Headers, tt.wantHeaders) {
				t.Errorf("headers = %q, want %q", tbl.Headers, tt.wantHeaders)
			}
			if !reflect.DeepEqual(tbl.Rows, tt.wantRows) {
				t.Errorf("rows = %#v, want %#v", tbl.Rows, tt.wantRows)
			}
		})
	}
}
