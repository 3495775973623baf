package core

// scheduler.go runs background maintenance for long-running servers.
//
// Each cycle:
//  1. Removes tabmerge-* workspace directories left behind by a crash
//  2. Purges audit records older than the retention window
//
// The scheduler is long-running and stops with its context. Failures are
// logged and never stop the loop.

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const workspacePrefix = "tabmerge-"

// MaintenanceConfig holds configuration for the maintenance scheduler.
// Zero values fall back to defaults.
type MaintenanceConfig struct {
	WorkspaceMaxAge    time.Duration // Age before an orphaned workspace is removed (default: 24h)
	AuditRetentionDays int           // Days of audit history to keep (default: 90, negative keeps all)
	CheckInterval      time.Duration // How often to run (default: 1h)
}

func (c MaintenanceConfig) withDefaults() MaintenanceConfig {
	if c.WorkspaceMaxAge <= 0 {
		c.WorkspaceMaxAge = 24 * time.Hour
	}
	if c.AuditRetentionDays == 0 {
		c.AuditRetentionDays = 90
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = time.Hour
	}
	return c
}

// StartMaintenance runs one cycle immediately, then every CheckInterval,
// until ctx is cancelled.
func (s *Service) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	cfg = cfg.withDefaults()
	slog.Info("maintenance scheduler started",
		"workspace_max_age", cfg.WorkspaceMaxAge,
		"audit_retention_days", cfg.AuditRetentionDays,
		"interval", cfg.CheckInterval,
	)

	s.runMaintenance(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.runMaintenance(ctx, cfg)
		}
	}
}

// runMaintenance performs one sweep + purge cycle.
func (s *Service) runMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	start := time.Now()

	removed, err := s.SweepWorkspaces(cfg.WorkspaceMaxAge)
	if err != nil {
		slog.Error("workspace sweep failed", "error", err)
	} else if removed > 0 {
		slog.Info("removed orphaned workspaces", "count", removed)
	}

	if purger, ok := s.audit.(AuditPurger); ok && cfg.AuditRetentionDays > 0 {
		cutoff := s.now().AddDate(0, 0, -cfg.AuditRetentionDays)
		purged, err := purger.PurgeMerges(ctx, cutoff)
		if err != nil {
			slog.Error("audit purge failed", "error", err)
		} else {
			slog.Info("purged audit records", "records_purged", purged, "cutoff", cutoff)
		}
	}

	slog.Debug("maintenance completed", "duration_ms", time.Since(start).Milliseconds())
}

// SweepWorkspaces removes workspace directories under the temp dir whose
// modification time is older than maxAge. Active merges touch their
// workspace on every extraction, so only abandoned ones qualify.
func (s *Service) SweepWorkspaces(maxAge time.Duration) (int, error) {
	base := s.tempDir
	if base == "" {
		base = os.TempDir()
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), workspacePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(base, e.Name())); err != nil {
			slog.Warn("remove workspace failed", "dir", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
