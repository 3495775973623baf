package core

import (
	"context"
	"fmt"
)

// ReconcileHeaders chooses the canonical HeaderSet for the merge.
//
// The first table's headers are the default. If every table matches them
// exactly they are used as is. If any differing table has a different
// column count the merge fails with HeaderMismatchError. Otherwise the
// decider picks which table's labels become canonical; the choice is applied
// purely by position, never by matching names.
//
// The returned bool reports whether the headers differed and had to be chosen.
func ReconcileHeaders(ctx context.Context, tables []*ParsedTable, decider Decider) (HeaderSet, bool, error) {
	if len(tables) == 0 {
		return nil, false, ErrNoSources
	}

	canonical := HeaderSet(tables[0].Headers)
	differs := false
	for _, t := range tables[1:] {
		if canonical.Equal(t.Headers) {
			continue
		}
		if len(t.Headers) != len(canonical) {
			return nil, false, &HeaderMismatchError{
				Source:   t.Label(),
				Expected: len(canonical),
				Got:      len(t.Headers),
			}
		}
		differs = true
	}

	if !differs {
		return cloneHeaders(canonical), false, nil
	}

	req := HeaderRequest{Candidates: make([]HeaderCandidate, len(tables))}
	for i, t := range tables {
		req.Candidates[i] = HeaderCandidate{Index: i, Label: t.Label(), Headers: cloneHeaders(t.Headers)}
	}

	idx, err := decider.CanonicalHeaders(ctx, req)
	if err != nil {
		return nil, true, fmt.Errorf("choose canonical headers: %w", err)
	}
	if idx < 0 || idx >= len(tables) {
		return nil, true, fmt.Errorf("choose canonical headers: index %d out of range [0,%d)", idx, len(tables))
	}
	return cloneHeaders(tables[idx].Headers), true, nil
}

func cloneHeaders(h []string) HeaderSet {
	out := make(HeaderSet, len(h))
	copy(out, h)
	return out
}
