package web

// errors.go provides unified error responses for the API.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, result)
//  3. Error is mapped via core.MapError to a user-friendly message and code
//  4. Technical error is logged with the request ID for correlation
//  5. The status code follows the error type; a missing decision also
//     carries the pending request so the caller can answer and resubmit

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/JonMunkholm/tabmerge/internal/core"
	"github.com/JonMunkholm/tabmerge/internal/logging"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error    string           `json:"error"`
	Message  string           `json:"message"`
	Action   string           `json:"action,omitempty"`
	Code     string           `json:"code"`
	Decision *DecisionPayload `json:"decision,omitempty"`
	Result   *core.Result     `json:"result,omitempty"`
}

// DecisionPayload describes the decision a merge stopped at.
type DecisionPayload struct {
	Kind    core.RequestKind `json:"kind"`
	Request core.Request     `json:"request"`
}

// respondError logs err and writes the mapped error response.
// result is included when a merge ran far enough to produce one.
func respondError(w http.ResponseWriter, r *http.Request, err error, result *core.Result) {
	msg := core.MapError(err)
	status := statusFor(err)

	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	body := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Result:  result,
	}
	var required *core.DecisionRequiredError
	if errors.As(err, &required) {
		body.Decision = &DecisionPayload{Kind: required.Request.Kind(), Request: required.Request}
	}

	writeJSON(w, status, body)
}

// badRequest writes a 400 for malformed input that never reached the core.
func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	logging.FromContext(r.Context()).Warn("bad request", "path", r.URL.Path, "reason", message)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ400",
	})
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var (
		required    *core.DecisionRequiredError
		mismatch    *core.HeaderMismatchError
		capacity    *core.CapacityExceededError
		unsupported *core.UnsupportedFormatError
		invalid     *core.InvalidSourceError
	)

	switch {
	case errors.As(err, &required):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyMerges):
		return http.StatusTooManyRequests
	case errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.As(err, &mismatch), errors.As(err, &capacity), errors.As(err, &invalid),
		errors.Is(err, core.ErrNoSources), errors.Is(err, core.ErrNoOutputPath), errors.Is(err, core.ErrCancelled):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
