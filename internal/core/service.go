package core

import (
	"context"
	"fmt"
	"time"
)

// DefaultMaxRecords caps how many rows a list view loads when the config
// leaves it unset.
const DefaultMaxRecords = 5000

// DefaultInviteTTL is the invitation lifetime when the config leaves it unset.
const DefaultInviteTTL = 7 * 24 * time.Hour

// ServiceConfig tunes the console service.
type ServiceConfig struct {
	MaxRecords int           // Rows loaded per list view (default: 5000)
	InviteTTL  time.Duration // Invitation lifetime (default: 7 days)
}

// Service provides the core business logic of the risk console: loading the
// records behind each view and applying admin mutations with audit logging.
type Service struct {
	store Store
	audit *AuditService
	cfg   ServiceConfig
	now   func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
		s.audit.now = now
	}
}

// NewService creates a new Service instance.
func NewService(store Store, cfg ServiceConfig, opts ...ServiceOption) *Service {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = DefaultInviteTTL
	}
	s := &Service{
		store: store,
		audit: NewAuditService(store),
		cfg:   cfg,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Audit returns the service's audit logger.
func (s *Service) Audit() *AuditService {
	return s.audit
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// ListAuditLog loads the most recent audit entries.
func (s *Service) ListAuditLog(ctx context.Context) ([]AuditEntry, error) {
	return s.audit.List(ctx, AuditLogOptions{Limit: s.cfg.MaxRecords})
}

// GetAuditEntry loads one audit entry.
func (s *Service) GetAuditEntry(ctx context.Context, id string) (*AuditEntry, error) {
	return s.audit.GetByID(ctx, id)
}

// ListInvitations loads the most recent invitations.
func (s *Service) ListInvitations(ctx context.Context) ([]Invitation, error) {
	invs, err := s.store.ListInvitations(ctx, s.cfg.MaxRecords)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

// ListOrganizations loads organizations, newest first.
func (s *Service) ListOrganizations(ctx context.Context) ([]Organization, error) {
	orgs, err := s.store.ListOrganizations(ctx, s.cfg.MaxRecords)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// ListUsage loads the most recent AI usage rows.
func (s *Service) ListUsage(ctx context.Context) ([]UsageLog, error) {
	rows, err := s.store.ListUsage(ctx, s.cfg.MaxRecords)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return rows, nil
}
