package core

import "context"

type callerKey struct{}

// Caller identifies who started a merge. It is written to the audit log.
type Caller struct {
	IP        string
	UserAgent string
}

// WithCaller attaches c to ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller attached to ctx. Merges started from the
// command line have none.
func CallerFrom(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}
