package core

// scheduler.go provides background job scheduling for retention tasks.
//
// Each run:
//  1. Marks pending invitations past their expiry as expired
//  2. Deletes audit log entries older than the audit retention
//  3. Deletes AI usage rows older than the usage retention
//
// Every step that changes rows is itself recorded in the audit log. The
// scheduler is long-running and context-aware for graceful shutdown. It logs
// progress and errors but never fails the application when a step fails.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the retention scheduler.
// Zero values fall back to the defaults noted per field.
type RetentionConfig struct {
	AuditDays     int           // Days to keep in audit_log (default: 365)
	UsageDays     int           // Days to keep in ai_usage_log (default: 90)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.AuditDays <= 0 {
		c.AuditDays = 365
	}
	if c.UsageDays <= 0 {
		c.UsageDays = 90
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// RetentionResult reports what one retention run changed.
type RetentionResult struct {
	InvitationsExpired int64
	AuditPurged        int64
	UsagePurged        int64
}

// StartRetentionScheduler starts the retention loop and blocks until ctx is
// cancelled. It runs immediately on start, then every CheckInterval.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("retention scheduler started",
		"audit_days", cfg.AuditDays,
		"usage_days", cfg.UsageDays,
		"interval", cfg.CheckInterval.String(),
	)

	// Run immediately on startup
	s.RunRetention(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.RunRetention(ctx, cfg)
		}
	}
}

// RunRetention performs one expire + purge cycle. Failed steps are logged and
// the remaining steps still run.
func (s *Service) RunRetention(ctx context.Context, cfg RetentionConfig) RetentionResult {
	cfg = cfg.withDefaults()
	slog.Debug("retention job started")
	start := time.Now()
	now := s.now().UTC()

	var res RetentionResult

	expired, err := s.store.ExpireInvitations(ctx, now)
	if err != nil {
		slog.Error("expire invitations failed", "error", err)
	} else {
		res.InvitationsExpired = expired
		slog.Info("expired invitations", "invitations_expired", expired)
		if expired > 0 {
			s.logRetention(ctx, s.audit.LogInvitationsExpired, RetentionAuditEntry{
				Target: "invitations", Before: now, RowsAffected: expired,
			})
		}
	}

	auditBefore := now.AddDate(0, 0, -cfg.AuditDays)
	purgeStart := time.Now()
	purged, err := s.store.PurgeAuditLog(ctx, auditBefore)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
	} else {
		res.AuditPurged = purged
		slog.Info("purged audit log entries",
			"entries_purged", purged,
			"duration_ms", time.Since(purgeStart).Milliseconds(),
		)
		if purged > 0 {
			s.logRetention(ctx, s.audit.LogRetentionPurge, RetentionAuditEntry{
				Target: "audit_log", Before: auditBefore, RowsAffected: purged,
			})
		}
	}

	usageBefore := now.AddDate(0, 0, -cfg.UsageDays)
	purgeStart = time.Now()
	purged, err = s.store.PurgeUsage(ctx, usageBefore)
	if err != nil {
		slog.Error("usage purge failed", "error", err)
	} else {
		res.UsagePurged = purged
		slog.Info("purged ai usage rows",
			"rows_purged", purged,
			"duration_ms", time.Since(purgeStart).Milliseconds(),
		)
		if purged > 0 {
			s.logRetention(ctx, s.audit.LogRetentionPurge, RetentionAuditEntry{
				Target: "ai_usage_log", Before: usageBefore, RowsAffected: purged,
			})
		}
	}

	slog.Info("retention job completed", "duration_ms", time.Since(start).Milliseconds())
	return res
}

func (s *Service) logRetention(ctx context.Context, log func(context.Context, RetentionAuditEntry) (*AuditEntry, error), entry RetentionAuditEntry) {
	if _, err := log(ctx, entry); err != nil {
		slog.Error("retention audit failed", "target", entry.Target, "error", err)
	}
}
