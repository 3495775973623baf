package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/tabmerge/internal/core"
)

// callerContext tags the request context with the client for the audit log.
// RemoteAddr has already been rewritten by TrustedRealIP.
func callerContext(r *http.Request) context.Context {
	return core.WithCaller(r.Context(), core.Caller{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
