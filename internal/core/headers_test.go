package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestReconcileHeaders(t *testing.T) {
	ctx := context.Background()

	t.Run("identical headers need no decision", func(t *testing.T) {
		tables := []*ParsedTable{
			table("a.csv", []string{"id", "name"}),
			table("b.csv", []string{"id", "name"}),
		}
		got, chosen, err := ReconcileHeaders(ctx, tables, PresetDecider{})
		if err != nil {
			t.Fatalf("ReconcileHeaders() error = %v", err)
		}
		if chosen {
			t.Error("chosen = true, want false")
		}
		if !got.Equal([]string{"id", "name"}) {
			t.Errorf("headers = %q", got)
		}
	})

	t.Run("count mismatch names the offending source", func(t *testing.T) {
		tables := []*ParsedTable{
			table("a.csv", []string{"a", "b", "c"}),
			table("b.csv", []string{"a", "b", "c", "d"}),
		}
		_, _, err := ReconcileHeaders(ctx, tables, PresetDecider{HeaderIndex: intPtr(0)})
		var mismatch *HeaderMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("error = %v, want HeaderMismatchError", err)
		}
		if mismatch.Source != "b.csv" || mismatch.Expected != 3 || mismatch.Got != 4 {
			t.Errorf("mismatch = %+v", mismatch)
		}
	})

	t.Run("differing labels ask the decider", func(t *testing.T) {
		tables := []*ParsedTable{
			table("a.csv", []string{"id", "name"}),
			{Source: "b.xlsx", Sheet: "S", Headers: []string{"ID", "Name"}},
		}
		var seen HeaderRequest
		decider := recordingDecider{PresetDecider: PresetDecider{HeaderIndex: intPtr(1)}, headers: &seen}

		got, chosen, err := ReconcileHeaders(ctx, tables, decider)
		if err != nil {
			t.Fatalf("ReconcileHeaders() error = %v", err)
		}
		if !chosen || !got.Equal([]string{"ID", "Name"}) {
			t.Errorf("got %q chosen=%v", got, chosen)
		}
		if len(seen.Candidates) != 2 || seen.Candidates[1].Label != "b.xlsx [S]" {
			t.Errorf("candidates = %+v", seen.Candidates)
		}
	})

	t.Run("out of range choice", func(t *testing.T) {
		tables := []*ParsedTable{
			table("a.csv", []string{"x"}),
			table("b.csv", []string{"y"}),
		}
		if _, _, err := ReconcileHeaders(ctx, tables, PresetDecider{HeaderIndex: intPtr(5)}); err == nil {
			t.Error("expected error for index out of range")
		}
	})

	t.Run("cancel", func(t *testing.T) {
		tables := []*ParsedTable{
			table("a.csv", []string{"x"}),
			table("b.csv", []string{"y"}),
		}
		_, _, err := ReconcileHeaders(ctx, tables, PresetDecider{HeaderIndex: intPtr(-1)})
		if !errors.Is(err, ErrCancelled) {
			t.Errorf("error = %v, want ErrCancelled", err)
		}
	})

	t.Run("result does not alias source headers", func(t *testing.T) {
		src := []string{"a", "b"}
		got, _, _ := ReconcileHeaders(ctx, []*ParsedTable{table("a.csv", src)}, PresetDecider{})
		got[0] = "changed"
		if !reflect.DeepEqual(src, []string{"a", "b"}) {
			t.Errorf("source headers modified: %q", src)
		}
	})
}

// recordingDecider captures the header request it receives.
type recordingDecider struct {
	PresetDecider
	headers *HeaderRequest
}

func (d recordingDecider) CanonicalHeaders(ctx context.Context, req HeaderRequest) (int, error) {
	*d.headers = req
	return d.PresetDecider.CanonicalHeaders(ctx, req)
}
