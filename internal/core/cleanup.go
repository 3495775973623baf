package core

import "strings"

// missingSentinels are cell values that mean "no value".
var missingSentinels = map[string]struct{}{
	"null":    {},
	"NULL":    {},
	"n/a":     {},
	"N/A":     {},
	"-":       {},
	"(blank)": {},
}

// ApplyCleanup runs the enabled cleanup steps in order: trim, missing-value
// normalization, then empty-column removal. It returns the names of the
// removed columns.
func ApplyCleanup(t *MergedTable, opts CleanupOptions) []string {
	if opts.TrimSpaces || opts.NormalizeMissing {
		for _, row := range t.Rows {
			for i, v := range row {
				s, ok := v.(string)
				if !ok {
					continue
				}
				if opts.TrimSpaces {
					s = strings.TrimSpace(s)
				}
				if opts.NormalizeMissing {
					if _, missing := missingSentinels[strings.TrimSpace(s)]; missing {
						s = ""
					}
				}
				row[i] = s
			}
		}
	}

	if !opts.RemoveEmptyColumns || len(t.Rows) == 0 {
		return nil
	}
	return removeEmptyColumns(t)
}

// removeEmptyColumns drops every column whose values are all empty or nil.
// The order of the remaining columns is kept.
func removeEmptyColumns(t *MergedTable) []string {
	keep := make([]bool, len(t.Headers))
	for _, row := range t.Rows {
		for i, v := range row {
			if !keep[i] && !isEmptyValue(v) {
				keep[i] = true
			}
		}
	}

	var removed []string
	headers := make(HeaderSet, 0, len(t.Headers))
	for i, h := range t.Headers {
		if keep[i] {
			headers = append(headers, h)
		} else {
			removed = append(removed, h)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	for r, row := range t.Rows {
		compact := row[:0]
		for i, v := range row {
			if keep[i] {
				compact = append(compact, v)
			}
		}
		t.Rows[r] = compact
	}
	t.Headers = headers
	return removed
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}
