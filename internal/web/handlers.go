package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/JonMunkholm/tabmerge/internal/core"
)

// maxRequestBody bounds JSON request bodies. Sources are referenced by
// path, so bodies stay small.
const maxRequestBody = 1 << 20

// MergeRequest is the body of POST /api/merge.
type MergeRequest struct {
	Sources      []core.SourceFile   `json:"sources"`
	OutputFormat core.Format         `json:"outputFormat"`
	OutputPath   string              `json:"outputPath,omitempty"`
	Cleanup      core.CleanupOptions `json:"cleanup"`
	Strict       bool                `json:"strict,omitempty"`

	// Decisions answers the merge's questions up front. A question left
	// unanswered stops the merge with 409 and the pending request.
	Decisions core.PresetDecider `json:"decisions"`
}

// SheetsRequest is the body of POST /api/sheets.
type SheetsRequest struct {
	Path string `json:"path"`
}

// SheetsResponse lists the worksheets of a workbook.
type SheetsResponse struct {
	Path   string   `json:"path"`
	Sheets []string `json:"sheets"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string                  `json:"status"`
	Merges core.MergeLimiterStatus `json:"merges"`
	Audit  bool                    `json:"audit"`
}

// handleHealth reports liveness and the merge limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Merges: s.limiter.Status(),
		Audit:  s.cfg.Database.AuditEnabled(),
	})
}

// handleListSheets lists worksheet names so the caller can build sheet selections.
func (s *Server) handleListSheets(w http.ResponseWriter, r *http.Request) {
	var req SheetsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		badRequest(w, r, "missing path")
		return
	}

	sheets, err := s.service.ListSheets(req.Path)
	if err != nil {
		respondError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, SheetsResponse{Path: req.Path, Sheets: sheets})
}

// handleMerge runs one merge synchronously. Only one request body is read,
// so every decision must be preset; see MergeRequest.Decisions.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Sources) == 0 {
		badRequest(w, r, "no sources given")
		return
	}
	if req.OutputFormat == "" {
		badRequest(w, r, "missing outputFormat")
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err, nil)
		return
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(callerContext(r), s.cfg.Merge.Timeout)
	defer cancel()

	decider := req.Decisions
	outPath, err := s.resolveOutput(req.OutputPath)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if decider.Path, err = s.resolveOutput(decider.Path); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	cfg := core.MergeConfig{
		Sources:      req.Sources,
		OutputFormat: req.OutputFormat,
		OutputPath:   outPath,
		Cleanup:      req.Cleanup,
		Strict:       req.Strict,
	}

	result, err := s.service.Merge(ctx, cfg, decider)
	if err != nil {
		respondError(w, r, err, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRecentMerges returns the newest audit records.
func (s *Server) handleRecentMerges(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultRecentLimit)
	if limit > 500 {
		limit = 500
	}

	records, err := s.service.Audit().RecentMerges(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, nil)
		return
	}
	if records == nil {
		records = []core.MergeRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// resolveOutput joins a relative output path onto the configured output dir.
// Relative paths must stay inside that dir.
func (s *Server) resolveOutput(p string) (string, error) {
	if p == "" || filepath.IsAbs(p) {
		return p, nil
	}
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("output path %q leaves the output directory", p)
	}
	if s.cfg.Merge.OutputDir == "" {
		return p, nil
	}
	return filepath.Join(s.cfg.Merge.OutputDir, p), nil
}

// decodeBody decodes a JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, r, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
