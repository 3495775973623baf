package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/tabmerge/internal/logging"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// TempDir holds per-merge archive workspaces. Empty means os.TempDir().
	TempDir string

	// MaxFileSize rejects larger sources and archive members. Zero disables.
	MaxFileSize int64

	// XLSXRowLimit is the worksheet row limit including the header row.
	// Zero means excelize.TotalRows.
	XLSXRowLimit int

	// Audit records every merge. Nil means NopAuditStore.
	Audit AuditStore
}

// Service runs merges. It holds no per-merge state and is safe for
// concurrent use; each Merge call gets its own workspace.
type Service struct {
	reader       *SourceReader
	tempDir      string
	maxFileSize  int64
	xlsxRowLimit int
	audit        AuditStore
	now          func() time.Time
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	if opts.XLSXRowLimit <= 0 {
		opts.XLSXRowLimit = excelize.TotalRows
	}
	if opts.Audit == nil {
		opts.Audit = NopAuditStore{}
	}
	return &Service{
		reader:       &SourceReader{MaxFileSize: opts.MaxFileSize},
		tempDir:      opts.TempDir,
		maxFileSize:  opts.MaxFileSize,
		xlsxRowLimit: opts.XLSXRowLimit,
		audit:        opts.Audit,
		now:          time.Now,
	}
}

// Audit returns the configured audit store.
func (s *Service) Audit() AuditStore {
	return s.audit
}

// ListSheets returns the worksheet names of an XLSX file.
func (s *Service) ListSheets(path string) ([]string, error) {
	if f := FormatFromPath(path); f != FormatXLSX {
		return nil, &UnsupportedFormatError{Path: path, Format: f}
	}
	return ListSheets(path)
}

// Merge runs the whole pipeline for cfg, asking decider at each suspension
// point. The returned Result is never nil; on failure Result.Success is
// false and no output file exists.
func (s *Service) Merge(ctx context.Context, cfg MergeConfig, decider Decider) (result *Result, err error) {
	start := s.now()
	result = &Result{MergeID: uuid.NewString(), Format: cfg.OutputFormat}
	logger := logging.WithFields(ctx, "merge_id", result.MergeID)

	ws := NewWorkspace(s.tempDir, s.maxFileSize)
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			logger.Warn("workspace cleanup failed", "dir", ws.Dir(), "error", cerr)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in merge", "panic", r)
			err = fmt.Errorf("internal error: %v", r)
		}
		result.Duration = s.now().Sub(start)
		if err != nil {
			result.Success = false
			result.OutputPath = ""
			result.Error = FormatUserError(err)
			logger.Warn("merge failed", "error", err, "code", MapError(err).Code, "duration", result.Duration)
		} else {
			result.Success = true
			logger.Info("merge completed",
				"output", result.OutputPath,
				"format", result.Format,
				"rows", result.Rows,
				"columns", result.Columns,
				"duration", result.Duration,
			)
		}
		s.record(ctx, cfg, result, err, start)
	}()

	logger.Info("merge started", "sources", len(cfg.Sources), "format", cfg.OutputFormat)

	format := Format(strings.ToLower(string(cfg.OutputFormat)))
	if !format.IsOutput() {
		return result, &UnsupportedFormatError{Format: cfg.OutputFormat}
	}
	result.Format = format
	if len(cfg.Sources) == 0 {
		return result, ErrNoSources
	}

	tables, err := s.readSources(ctx, cfg, ws, result)
	if err != nil {
		return result, err
	}
	if len(tables) == 0 {
		return result, fmt.Errorf("%w: %s", ErrNoSources, joinReasons(result.Skipped))
	}

	counts := DetectDecimals(tables)

	headers, chosen, err := ReconcileHeaders(ctx, tables, decider)
	if err != nil {
		return result, err
	}
	if chosen {
		result.Warn("header labels differ between sources; using %q by position", strings.Join(headers, ", "))
	}

	merged := MergeTables(tables, headers)

	precision := MaxPrecision(merged.Rows)
	notation, err := decider.DecimalNotation(ctx, DecimalRequest{
		Suggested:  counts.Suggested(),
		DotCount:   counts.Dot,
		CommaCount: counts.Comma,
		Precision:  precision,
	})
	if err != nil {
		return result, fmt.Errorf("choose decimal notation: %w", err)
	}
	if err := validateNotation(notation); err != nil {
		return result, err
	}
	ApplyNumericStyle(merged.Rows, NumericStyle{Notation: notation, Precision: precision})
	result.Notation = notation
	result.Precision = precision

	result.RemovedColumns = ApplyCleanup(merged, cfg.Cleanup)

	if limit := MaxDataRows(format, s.xlsxRowLimit); limit >= 0 && len(merged.Rows) > limit {
		ok, err := decider.ConfirmTruncate(ctx, TruncateRequest{Format: format, Rows: len(merged.Rows), Limit: limit})
		if err != nil {
			return result, fmt.Errorf("confirm truncation: %w", err)
		}
		if !ok {
			return result, &CapacityExceededError{Format: format, Rows: len(merged.Rows), Limit: limit}
		}
		result.Warn("truncated %d rows beyond the %s limit", len(merged.Rows)-limit, format)
		merged.Rows = merged.Rows[:limit]
		result.Truncated = true
	}

	outPath := cfg.OutputPath
	if outPath == "" {
		outPath, err = decider.OutputPath(ctx, OutputRequest{Format: format, DefaultName: "merged." + string(format)})
		if err != nil {
			return result, fmt.Errorf("choose output path: %w", err)
		}
	}
	if outPath == "" {
		return result, ErrNoOutputPath
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := WriteTable(outPath, format, merged); err != nil {
		return result, err
	}

	result.OutputPath = outPath
	result.Rows = len(merged.Rows)
	result.Columns = len(merged.Headers)
	return result, nil
}

// readSources expands archives and parses every source in order.
// Unreadable units are skipped into result.Skipped unless cfg.Strict.
func (s *Service) readSources(ctx context.Context, cfg MergeConfig, ws *Workspace, result *Result) ([]*ParsedTable, error) {
	logger := logging.WithFields(ctx, "merge_id", result.MergeID)

	skip := func(source string, err error) error {
		var invalid *InvalidSourceError
		if !IsSkippable(err) || (cfg.Strict && errors.As(err, &invalid)) {
			return err
		}
		logger.Warn("source skipped", "source", source, "reason", err)
		result.Skipped = append(result.Skipped, SkippedSource{Source: source, Reason: err.Error()})
		return nil
	}

	var tables []*ParsedTable
	for _, src := range cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		units := []SourceFile{src}
		if src.ResolvedFormat() == FormatZIP {
			members, err := ws.Expand(src)
			if err != nil {
				if err := skip(src.Path, err); err != nil {
					return nil, err
				}
				continue
			}
			if len(members) == 0 {
				if err := skip(src.Path, &InvalidSourceError{Path: src.Path, Reason: "archive has no supported files"}); err != nil {
					return nil, err
				}
				continue
			}
			units = members
		}

		for _, unit := range units {
			out, err := s.reader.Read(unit)
			if err != nil {
				if err := skip(unit.Path, err); err != nil {
					return nil, err
				}
				continue
			}
			for _, sk := range out.Skipped {
				logger.Warn("sheet skipped", "source", sk.Source, "reason", sk.Reason)
				result.Skipped = append(result.Skipped, sk)
			}
			for _, t := range out.Tables {
				if t.WideRows > 0 {
					logger.Warn("extra values dropped", "source", t.Label(), "rows", t.WideRows)
					result.Warn("%s: %d rows had more values than columns; extra values dropped", t.Label(), t.WideRows)
				}
			}
			tables = append(tables, out.Tables...)
		}
	}

	return tables, nil
}

// record writes the audit entry. Audit failures are logged, never returned.
func (s *Service) record(ctx context.Context, cfg MergeConfig, result *Result, mergeErr error, start time.Time) {
	caller := CallerFrom(ctx)
	sources := make([]string, len(cfg.Sources))
	for i, src := range cfg.Sources {
		sources[i] = src.Path
	}

	rec := MergeRecord{
		ID:           result.MergeID,
		StartedAt:    start,
		Sources:      sources,
		OutputFormat: string(cfg.OutputFormat),
		OutputPath:   result.OutputPath,
		Rows:         result.Rows,
		Columns:      result.Columns,
		Truncated:    result.Truncated,
		Success:      mergeErr == nil,
		DurationMs:   result.Duration.Milliseconds(),
		IPAddress:    caller.IP,
		UserAgent:    caller.UserAgent,
	}
	if mergeErr != nil {
		rec.ErrorCode = MapError(mergeErr).Code
		rec.ErrorMessage = mergeErr.Error()
	}

	// The merge context may already be cancelled; the record should still land.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.audit.RecordMerge(auditCtx, rec); err != nil {
		logging.FromContext(ctx).Error("audit record failed", "merge_id", result.MergeID, "error", err)
	}
}
