package core

// decisions.go defines the suspension points of a merge.
//
// The pipeline never talks to a user directly. When it needs a choice it
// emits a typed Request and waits for an Answer from a Decider. Three
// deciders ship with the package:
//
//   - ChannelDecider: hands each request to another goroutine over a channel
//   - PresetDecider: answers from values supplied before the merge started
//   - WithFallback: tries one decider and falls back to another

import (
	"context"
	"errors"
	"fmt"
)

// RequestKind names the decision being asked for.
type RequestKind string

const (
	KindDecimalNotation RequestKind = "decimal_notation"
	KindCanonicalHeader RequestKind = "canonical_header"
	KindTruncate        RequestKind = "truncate"
	KindOutputPath      RequestKind = "output_path"
)

// Request is a typed question emitted by the pipeline.
type Request interface {
	Kind() RequestKind
}

// DecimalRequest asks which decimal notation the output uses.
type DecimalRequest struct {
	Suggested  Notation `json:"suggested"`
	DotCount   int      `json:"dotCount"`
	CommaCount int      `json:"commaCount"`
	Precision  int      `json:"precision"`
}

func (DecimalRequest) Kind() RequestKind { return KindDecimalNotation }

// HeaderCandidate is one table whose header labels could become canonical.
type HeaderCandidate struct {
	Index   int      `json:"index"`
	Label   string   `json:"label"`
	Headers []string `json:"headers"`
}

// HeaderRequest asks which table's header labels become canonical.
type HeaderRequest struct {
	Candidates []HeaderCandidate `json:"candidates"`
}

func (HeaderRequest) Kind() RequestKind { return KindCanonicalHeader }

// TruncateRequest asks whether rows beyond the format limit may be dropped.
type TruncateRequest struct {
	Format Format `json:"format"`
	Rows   int    `json:"rows"`
	Limit  int    `json:"limit"`
}

func (TruncateRequest) Kind() RequestKind { return KindTruncate }

// OutputRequest asks where the merged file is written.
type OutputRequest struct {
	Format      Format `json:"format"`
	DefaultName string `json:"defaultName"`
}

func (OutputRequest) Kind() RequestKind { return KindOutputPath }

// Decider answers the pipeline's requests. Any method may return
// ErrCancelled to abort the merge.
type Decider interface {
	DecimalNotation(ctx context.Context, req DecimalRequest) (Notation, error)
	CanonicalHeaders(ctx context.Context, req HeaderRequest) (int, error)
	ConfirmTruncate(ctx context.Context, req TruncateRequest) (bool, error)
	OutputPath(ctx context.Context, req OutputRequest) (string, error)
}

// =============================================================================
// Channel decider
// =============================================================================

// Answer is the reply to a Prompt. Only the field matching the request kind is read.
type Answer struct {
	Notation    Notation
	HeaderIndex int
	Confirm     bool
	Path        string
	Cancel      bool
}

// Prompt carries one request to the goroutine that answers it.
type Prompt struct {
	Request Request
	reply   chan Answer
}

// Reply answers the prompt. It must be called exactly once.
func (p Prompt) Reply(a Answer) {
	p.reply <- a
}

// ChannelDecider forwards requests as Prompts on a channel.
type ChannelDecider struct {
	prompts chan Prompt
}

// NewChannelDecider creates a decider with an unbuffered prompt channel.
func NewChannelDecider() *ChannelDecider {
	return &ChannelDecider{prompts: make(chan Prompt)}
}

// Prompts returns the channel the answering goroutine reads from.
func (d *ChannelDecider) Prompts() <-chan Prompt {
	return d.prompts
}

// Close ends the prompt stream. Call it after the merge returns.
func (d *ChannelDecider) Close() {
	close(d.prompts)
}

func (d *ChannelDecider) ask(ctx context.Context, req Request) (Answer, error) {
	p := Prompt{Request: req, reply: make(chan Answer, 1)}

	select {
	case d.prompts <- p:
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	}

	select {
	case a := <-p.reply:
		if a.Cancel {
			return Answer{}, ErrCancelled
		}
		return a, nil
	case <-ctx.Done():
		return Answer{}, ctx.Err()
	}
}

func (d *ChannelDecider) DecimalNotation(ctx context.Context, req DecimalRequest) (Notation, error) {
	a, err := d.ask(ctx, req)
	if err != nil {
		return "", err
	}
	return a.Notation, nil
}

func (d *ChannelDecider) CanonicalHeaders(ctx context.Context, req HeaderRequest) (int, error) {
	a, err := d.ask(ctx, req)
	if err != nil {
		return 0, err
	}
	return a.HeaderIndex, nil
}

func (d *ChannelDecider) ConfirmTruncate(ctx context.Context, req TruncateRequest) (bool, error) {
	a, err := d.ask(ctx, req)
	if err != nil {
		return false, err
	}
	return a.Confirm, nil
}

func (d *ChannelDecider) OutputPath(ctx context.Context, req OutputRequest) (string, error) {
	a, err := d.ask(ctx, req)
	if err != nil {
		return "", err
	}
	return a.Path, nil
}

// =============================================================================
// Preset decider
// =============================================================================

// PresetDecider answers from decisions made before the merge started.
// A decision left unset yields a DecisionRequiredError carrying the request,
// so a remote caller can resubmit with the missing answer.
type PresetDecider struct {
	Notation    Notation `json:"notation,omitempty"`
	HeaderIndex *int     `json:"headerIndex,omitempty"` // negative cancels
	Truncate    *bool    `json:"truncate,omitempty"`
	Path        string   `json:"outputPath,omitempty"`

	// AcceptSuggested uses DecimalRequest.Suggested when Notation is unset.
	AcceptSuggested bool `json:"acceptSuggested,omitempty"`
}

func (p PresetDecider) DecimalNotation(_ context.Context, req DecimalRequest) (Notation, error) {
	if p.Notation != "" {
		return p.Notation, nil
	}
	if p.AcceptSuggested {
		return req.Suggested, nil
	}
	return "", &DecisionRequiredError{Request: req}
}

func (p PresetDecider) CanonicalHeaders(_ context.Context, req HeaderRequest) (int, error) {
	if p.HeaderIndex == nil {
		return 0, &DecisionRequiredError{Request: req}
	}
	if *p.HeaderIndex < 0 {
		return 0, ErrCancelled
	}
	return *p.HeaderIndex, nil
}

func (p PresetDecider) ConfirmTruncate(_ context.Context, req TruncateRequest) (bool, error) {
	if p.Truncate == nil {
		return false, &DecisionRequiredError{Request: req}
	}
	return *p.Truncate, nil
}

func (p PresetDecider) OutputPath(_ context.Context, req OutputRequest) (string, error) {
	if p.Path == "" {
		return "", &DecisionRequiredError{Request: req}
	}
	return p.Path, nil
}

// =============================================================================
// Fallback
// =============================================================================

type fallbackDecider struct {
	primary  Decider
	fallback Decider
}

// WithFallback asks primary first and consults fallback only when primary
// reports a DecisionRequiredError.
func WithFallback(primary, fallback Decider) Decider {
	return fallbackDecider{primary: primary, fallback: fallback}
}

func needsFallback(err error) bool {
	var required *DecisionRequiredError
	return errors.As(err, &required)
}

func (f fallbackDecider) DecimalNotation(ctx context.Context, req DecimalRequest) (Notation, error) {
	n, err := f.primary.DecimalNotation(ctx, req)
	if needsFallback(err) {
		return f.fallback.DecimalNotation(ctx, req)
	}
	return n, err
}

func (f fallbackDecider) CanonicalHeaders(ctx context.Context, req HeaderRequest) (int, error) {
	i, err := f.primary.CanonicalHeaders(ctx, req)
	if needsFallback(err) {
		return f.fallback.CanonicalHeaders(ctx, req)
	}
	return i, err
}

func (f fallbackDecider) ConfirmTruncate(ctx context.Context, req TruncateRequest) (bool, error) {
	ok, err := f.primary.ConfirmTruncate(ctx, req)
	if needsFallback(err) {
		return f.fallback.ConfirmTruncate(ctx, req)
	}
	return ok, err
}

func (f fallbackDecider) OutputPath(ctx context.Context, req OutputRequest) (string, error) {
	p, err := f.primary.OutputPath(ctx, req)
	if needsFallback(err) {
		return f.fallback.OutputPath(ctx, req)
	}
	return p, err
}

// validateNotation rejects answers that are neither dot nor comma.
func validateNotation(n Notation) error {
	if n != NotationDot && n != NotationComma {
		return fmt.Errorf("invalid decimal notation %q", n)
	}
	return nil
}
