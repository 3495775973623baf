package core

import (
	"strconv"
	"strings"
)

// DedupRows drops rows whose full content repeats an earlier row of the same
// table. First occurrences keep their order. Values of different types never
// collide, so the number 1 and the string "1" stay distinct.
func DedupRows(rows [][]any) [][]any {
	seen := make(map[string]struct{}, len(rows))
	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		key := rowKey(row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// rowKey serializes a row with a type tag and length prefix per value.
func rowKey(row []any) string {
	var b strings.Builder
	for _, v := range row {
		var tag byte
		var s string
		switch x := v.(type) {
		case nil:
			tag = 'n'
		case string:
			tag, s = 's', x
		case float64:
			tag, s = 'f', strconv.FormatFloat(x, 'g', -1, 64)
		case bool:
			tag, s = 'b', strconv.FormatBool(x)
		default:
			tag, s = '?', cellText(x)
		}
		b.WriteByte(tag)
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// MergeTables concatenates every table's rows under headers, in table order.
// Tables flagged for dedup are deduplicated first, within themselves only.
// Values are assigned by position: value i lands under headers[i].
func MergeTables(tables []*ParsedTable, headers HeaderSet) *MergedTable {
	prepared := make([][][]any, len(tables))
	total := 0
	for i, t := range tables {
		rows := t.Rows
		if t.Dedup {
			rows = DedupRows(rows)
		}
		prepared[i] = rows
		total += len(rows)
	}

	width := len(headers)
	merged := make([][]any, 0, total)
	for _, rows := range prepared {
		for _, src := range rows {
			row := make([]any, width)
			n := copy(row, src)
			for j := n; j < width; j++ {
				row[j] = ""
			}
			merged = append(merged, row)
		}
	}

	return &MergedTable{Headers: cloneHeaders(headers), Rows: merged}
}
