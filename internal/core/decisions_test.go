package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPresetDecider(t *testing.T) {
	ctx := context.Background()
	zero, neg := 0, -1
	yes := true

	t.Run("unset decisions are required", func(t *testing.T) {
		var p PresetDecider
		var required *DecisionRequiredError

		if _, err := p.DecimalNotation(ctx, DecimalRequest{}); !errors.As(err, &required) {
			t.Errorf("DecimalNotation error = %v, want DecisionRequiredError", err)
		}
		if _, err := p.CanonicalHeaders(ctx, HeaderRequest{}); !errors.As(err, &required) {
			t.Errorf("CanonicalHeaders error = %v, want DecisionRequiredError", err)
		}
		if _, err := p.ConfirmTruncate(ctx, TruncateRequest{}); !errors.As(err, &required) {
			t.Errorf("ConfirmTruncate error = %v, want DecisionRequiredError", err)
		}
		if _, err := p.OutputPath(ctx, OutputRequest{}); !errors.As(err, &required) {
			t.Errorf("OutputPath error = %v, want DecisionRequiredError", err)
		}
		if required.Request.Kind() != KindOutputPath {
			t.Errorf("Request.Kind() = %q, want %q", required.Request.Kind(), KindOutputPath)
		}
	})

	t.Run("preset answers", func(t *testing.T) {
		p := PresetDecider{Notation: NotationComma, HeaderIndex: &zero, Truncate: &yes, Path: "out.csv"}

		if n, _ := p.DecimalNotation(ctx, DecimalRequest{Suggested: NotationDot}); n != NotationComma {
			t.Errorf("DecimalNotation = %q, want comma", n)
		}
		if i, _ := p.CanonicalHeaders(ctx, HeaderRequest{}); i != 0 {
			t.Errorf("CanonicalHeaders = %d, want 0", i)
		}
		if ok, _ := p.ConfirmTruncate(ctx, TruncateRequest{}); !ok {
			t.Error("ConfirmTruncate = false, want true")
		}
		if path, _ := p.OutputPath(ctx, OutputRequest{}); path != "out.csv" {
			t.Errorf("OutputPath = %q, want out.csv", path)
		}
	})

	t.Run("accept suggested notation", func(t *testing.T) {
		p := PresetDecider{AcceptSuggested: true}
		n, err := p.DecimalNotation(ctx, DecimalRequest{Suggested: NotationDot})
		if err != nil || n != NotationDot {
			t.Errorf("DecimalNotation = %q, %v; want dot, nil", n, err)
		}
	})

	t.Run("negative header index cancels", func(t *testing.T) {
		p := PresetDecider{HeaderIndex: &neg}
		if _, err := p.CanonicalHeaders(ctx, HeaderRequest{}); !errors.Is(err, ErrCancelled) {
			t.Errorf("error = %v, want ErrCancelled", err)
		}
	})
}

func TestChannelDecider(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d := NewChannelDecider()
	go func() {
		for p := range d.Prompts() {
			switch req := p.Request.(type) {
			case DecimalRequest:
				p.Reply(Answer{Notation: req.Suggested})
			case HeaderRequest:
				p.Reply(Answer{HeaderIndex: len(req.Candidates) - 1})
			case TruncateRequest:
				p.Reply(Answer{Cancel: true})
			case OutputRequest:
				p.Reply(Answer{Path: "/tmp/" + req.DefaultName})
			}
		}
	}()
	defer d.Close()

	n, err := d.DecimalNotation(ctx, DecimalRequest{Suggested: NotationComma})
	if err != nil || n != NotationComma {
		t.Errorf("DecimalNotation = %q, %v; want comma, nil", n, err)
	}

	i, err := d.CanonicalHeaders(ctx, HeaderRequest{Candidates: make([]HeaderCandidate, 3)})
	if err != nil || i != 2 {
		t.Errorf("CanonicalHeaders = %d, %v; want 2, nil", i, err)
	}

	if _, err := d.ConfirmTruncate(ctx, TruncateRequest{}); !errors.Is(err, ErrCancelled) {
		t.Errorf("ConfirmTruncate error = %v, want ErrCancelled", err)
	}

	path, err := d.OutputPath(ctx, OutputRequest{DefaultName: "merged.csv"})
	if err != nil || path != "/tmp/merged.csv" {
		t.Errorf("OutputPath = %q, %v; want /tmp/merged.csv, nil", path, err)
	}
}

func TestChannelDecider_ContextCancelled(t *testing.T) {
	d := NewChannelDecider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.OutputPath(ctx, OutputRequest{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestWithFallback(t *testing.T) {
	ctx := context.Background()
	one := 1
	d := WithFallback(PresetDecider{Path: "primary.csv"}, PresetDecider{HeaderIndex: &one})

	path, err := d.OutputPath(ctx, OutputRequest{})
	if err != nil || path != "primary.csv" {
		t.Errorf("OutputPath = %q, %v; want primary.csv", path, err)
	}

	i, err := d.CanonicalHeaders(ctx, HeaderRequest{})
	if err != nil || i != 1 {
		t.Errorf("CanonicalHeaders = %d, %v; want 1 from fallback", i, err)
	}

	var required *DecisionRequiredError
	if _, err := d.ConfirmTruncate(ctx, TruncateRequest{}); !errors.As(err, &required) {
		t.Errorf("ConfirmTruncate error = %v, want DecisionRequiredError from fallback", err)
	}
}
