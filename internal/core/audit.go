package core

// audit.go records one row per merge run in PostgreSQL when an audit
// database is configured. Without one, NopAuditStore discards records.

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultRecentLimit is how many merge records RecentMerges returns by default.
const DefaultRecentLimit = 50

// MergeRecord is the audit entry of one merge run.
type MergeRecord struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"startedAt"`
	Sources      []string  `json:"sources"`
	OutputFormat string    `json:"outputFormat"`
	OutputPath   string    `json:"outputPath,omitempty"`
	Rows         int       `json:"rows"`
	Columns      int       `json:"columns"`
	Truncated    bool      `json:"truncated"`
	Success      bool      `json:"success"`
	ErrorCode    string    `json:"errorCode,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
}

// AuditStore persists merge records.
type AuditStore interface {
	RecordMerge(ctx context.Context, rec MergeRecord) error
	RecentMerges(ctx context.Context, limit int) ([]MergeRecord, error)
}

// AuditPurger is implemented by stores that support retention.
type AuditPurger interface {
	PurgeMerges(ctx context.Context, cutoff time.Time) (int64, error)
}

// NopAuditStore discards every record.
type NopAuditStore struct{}

func (NopAuditStore) RecordMerge(context.Context, MergeRecord) error { return nil }

func (NopAuditStore) RecentMerges(context.Context, int) ([]MergeRecord, error) { return nil, nil }

// PgAuditStore stores merge records in the merge_audit_log table.
type PgAuditStore struct {
	db DBTX
}

// NewPgAuditStore creates a store on a pool or transaction.
func NewPgAuditStore(db DBTX) *PgAuditStore {
	return &PgAuditStore{db: db}
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS merge_audit_log (
	id            UUID PRIMARY KEY,
	started_at    TIMESTAMPTZ NOT NULL,
	sources       TEXT[] NOT NULL,
	output_format TEXT NOT NULL,
	output_path   TEXT,
	rows_written  INTEGER NOT NULL DEFAULT 0,
	columns       INTEGER NOT NULL DEFAULT 0,
	truncated     BOOLEAN NOT NULL DEFAULT FALSE,
	success       BOOLEAN NOT NULL,
	error_code    TEXT,
	error_message TEXT,
	duration_ms   BIGINT NOT NULL,
	ip_address    INET,
	user_agent    TEXT
);
CREATE INDEX IF NOT EXISTS idx_merge_audit_log_started_at ON merge_audit_log (started_at DESC);
`

// EnsureSchema creates the audit table if it does not exist.
func (s *PgAuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("create merge_audit_log: %w", err)
	}
	return nil
}

// RecordMerge inserts one record.
func (s *PgAuditStore) RecordMerge(ctx context.Context, rec MergeRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return fmt.Errorf("audit record id: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO merge_audit_log (
			id, started_at, sources, output_format, output_path, rows_written, columns,
			truncated, success, error_code, error_message, duration_ms, ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		pgtype.UUID{Bytes: id, Valid: true},
		pgtype.Timestamptz{Time: rec.StartedAt, Valid: true},
		rec.Sources,
		rec.OutputFormat,
		toPgText(rec.OutputPath),
		int32(rec.Rows),
		int32(rec.Columns),
		rec.Truncated,
		rec.Success,
		toPgText(rec.ErrorCode),
		toPgText(rec.ErrorMessage),
		rec.DurationMs,
		parseIP(rec.IPAddress),
		toPgText(rec.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("insert merge_audit_log: %w", err)
	}
	return nil
}

// RecentMerges returns the newest records first.
func (s *PgAuditStore) RecentMerges(ctx context.Context, limit int) ([]MergeRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, started_at, sources, output_format, output_path, rows_written, columns,
			truncated, success, error_code, error_message, duration_ms, ip_address, user_agent
		FROM merge_audit_log
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query merge_audit_log: %w", err)
	}
	defer rows.Close()

	records := make([]MergeRecord, 0)
	for rows.Next() {
		var (
			rec          MergeRecord
			id           pgtype.UUID
			startedAt    pgtype.Timestamptz
			outputPath   pgtype.Text
			rowsWritten  int32
			columns      int32
			errorCode    pgtype.Text
			errorMessage pgtype.Text
			ipAddress    *netip.Addr
			userAgent    pgtype.Text
		)
		if err := rows.Scan(
			&id, &startedAt, &rec.Sources, &rec.OutputFormat, &outputPath, &rowsWritten, &columns,
			&rec.Truncated, &rec.Success, &errorCode, &errorMessage, &rec.DurationMs, &ipAddress, &userAgent,
		); err != nil {
			return nil, err
		}

		if id.Valid {
			rec.ID = uuid.UUID(id.Bytes).String()
		}
		rec.StartedAt = startedAt.Time
		rec.OutputPath = outputPath.String
		rec.Rows = int(rowsWritten)
		rec.Columns = int(columns)
		rec.ErrorCode = errorCode.String
		rec.ErrorMessage = errorMessage.String
		rec.UserAgent = userAgent.String
		if ipAddress != nil {
			rec.IPAddress = ipAddress.String()
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// PurgeMerges deletes records that started before cutoff and returns how
// many were removed.
func (s *PgAuditStore) PurgeMerges(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM merge_audit_log WHERE started_at < $1`,
		pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("purge merge_audit_log: %w", err)
	}
	return tag.RowsAffected(), nil
}

// toPgText converts a string to pgtype.Text, NULL when empty.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// parseIP strips a port if present. Unparseable addresses are stored as NULL.
func parseIP(addr string) *netip.Addr {
	if addr == "" {
		return nil
	}
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return &ip
}
