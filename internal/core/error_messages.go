package core

// error_messages.go maps merge errors to user-friendly messages with codes
// for support reference. Typed errors are matched first with errors.As and
// errors.Is; anything else falls through to case-insensitive substring
// patterns.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Invalid source: a file or sheet is empty or cannot be parsed
//	         Action: Check that the file has a header row and data rows
//
//	SRC002 - File too large: a source exceeds the configured size limit
//	         Action: Split the file or raise MERGE_MAX_FILE_SIZE
//
//	SRC003 - File not found: a source path does not exist
//	         Action: Check the path and try again
//
// # Header Errors (HDR001-HDR099)
//
//	HDR001 - Header mismatch: sources have different column counts
//	         Action: Remove or fix the source with the extra or missing columns
//
// # Format Errors (FMT001-FMT099)
//
//	FMT001 - Unsupported format: extension or output format is not supported
//	         Action: Use csv, tsv, txt, xlsx, json or zip
//
// # Capacity Errors (CAP001-CAP099)
//
//	CAP001 - Capacity exceeded: too many rows for the output format
//	         Action: Allow truncation or choose CSV or JSON output
//
// # Decision Errors (DEC001-DEC099)
//
//	DEC001 - Decision required: the merge needs an answer before it can continue
//	         Action: Resubmit with the requested decision
//
// # Merge Errors (MRG001-MRG099)
//
//	MRG001 - Cancelled: the merge was cancelled at a prompt
//	MRG002 - No output path: no destination was chosen
//	MRG003 - No sources: every source was skipped
//	MRG004 - System busy: too many merges in progress
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled: the caller went away
//	REQ002 - Request timeout: the merge ran past MERGE_TIMEOUT
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check application logs for the technical error

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgInvalidSource = UserMessage{
		Message: "A source file could not be read",
		Action:  "Check that the file has a header row and data rows",
		Code:    "SRC001",
	}
	msgFileTooLarge = UserMessage{
		Message: "A source file exceeds the maximum size",
		Action:  "Split the file or raise MERGE_MAX_FILE_SIZE",
		Code:    "SRC002",
	}
	msgFileNotFound = UserMessage{
		Message: "A source file was not found",
		Action:  "Check the path and try again",
		Code:    "SRC003",
	}
	msgHeaderMismatch = UserMessage{
		Message: "Sources have different numbers of columns",
		Action:  "Remove or fix the source with the extra or missing columns",
		Code:    "HDR001",
	}
	msgUnsupportedFormat = UserMessage{
		Message: "File format is not supported",
		Action:  "Use csv, tsv, txt, xlsx, json or zip",
		Code:    "FMT001",
	}
	msgCapacityExceeded = UserMessage{
		Message: "Too many rows for the output format",
		Action:  "Allow truncation or choose CSV or JSON output",
		Code:    "CAP001",
	}
	msgDecisionRequired = UserMessage{
		Message: "The merge needs a decision before it can continue",
		Action:  "Resubmit with the requested decision",
		Code:    "DEC001",
	}
	msgCancelled = UserMessage{
		Message: "Merge was cancelled",
		Action:  "Start a new merge when ready",
		Code:    "MRG001",
	}
	msgNoOutputPath = UserMessage{
		Message: "No output file was chosen",
		Action:  "Choose where to save the merged file",
		Code:    "MRG002",
	}
	msgNoSources = UserMessage{
		Message: "None of the sources could be merged",
		Action:  "Check the skipped sources and try again",
		Code:    "MRG003",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other merges",
		Action:  "Please wait a moment and try again",
		Code:    "MRG004",
	}
	msgRequestCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}
	msgRequestTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Merge fewer or smaller files, or raise MERGE_TIMEOUT",
		Code:    "REQ002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that lost their type, for example after
// crossing a process boundary as text. The first match wins.
var errorPatterns = []errorPattern{
	{pattern: "invalid source", msg: msgInvalidSource},
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "no such file", msg: msgFileNotFound},
	{pattern: "header mismatch", msg: msgHeaderMismatch},
	{pattern: "unsupported", msg: msgUnsupportedFormat},
	{pattern: "capacity exceeded", msg: msgCapacityExceeded},
	{pattern: "decision required", msg: msgDecisionRequired},
	{pattern: "merge cancelled", msg: msgCancelled},
	{pattern: "no output path", msg: msgNoOutputPath},
	{pattern: "no readable sources", msg: msgNoSources},
	{pattern: "too many concurrent merges", msg: msgBusy},
	{pattern: "context canceled", msg: msgRequestCancelled},
	{pattern: "context deadline exceeded", msg: msgRequestTimeout},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := &HeaderMismatchError{Source: "b.csv", Expected: 3, Got: 4}
//	msg := MapError(err)
//	// msg.Code == "HDR001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		invalid     *InvalidSourceError
		mismatch    *HeaderMismatchError
		unsupported *UnsupportedFormatError
		capacity    *CapacityExceededError
		required    *DecisionRequiredError
	)

	switch {
	case errors.As(err, &required):
		return msgDecisionRequired
	case errors.As(err, &mismatch):
		return msgHeaderMismatch
	case errors.As(err, &capacity):
		return msgCapacityExceeded
	case errors.As(err, &unsupported):
		return msgUnsupportedFormat
	case errors.As(err, &invalid):
		return msgInvalidSource
	case errors.Is(err, ErrCancelled):
		return msgCancelled
	case errors.Is(err, ErrNoOutputPath):
		return msgNoOutputPath
	case errors.Is(err, ErrNoSources):
		return msgNoSources
	case errors.Is(err, ErrTooManyMerges):
		return msgBusy
	case errors.Is(err, fs.ErrNotExist):
		return msgFileNotFound
	case errors.Is(err, context.Canceled):
		return msgRequestCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgRequestTimeout
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
