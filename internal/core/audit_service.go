package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditService handles audit log operations.
// It provides typed helpers for every audited console action plus lookups.
type AuditService struct {
	store Store
	now   func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(store Store) *AuditService {
	return &AuditService{store: store, now: time.Now}
}

// withStore returns a copy bound to s, typically a transaction.
func (a *AuditService) withStore(s Store) *AuditService {
	return &AuditService{store: s, now: a.now}
}

// ----------------------------------------------------------------------------
// Typed Audit Entry Structures
// ----------------------------------------------------------------------------

// BaseAuditEntry contains common fields for all audit entries. Empty actor
// fields are filled from the request context by Log.
type BaseAuditEntry struct {
	OrganizationID string
	UserID         string
	UserEmail      string
	UserName       string
	IPAddress      string
	UserAgent      string
}

// InvitationAuditEntry for invitation create and revoke actions.
type InvitationAuditEntry struct {
	BaseAuditEntry
	InvitationID string
	Email        string
	Role         Role
	ExpiresAt    time.Time
}

// SettingsAuditEntry for organization settings changes.
type SettingsAuditEntry struct {
	BaseAuditEntry
	Old OrganizationSettings
	New OrganizationSettings
}

// ExportAuditEntry for view exports.
type ExportAuditEntry struct {
	BaseAuditEntry
	ViewKey string
	Format  string
	Scope   string
	Rows    int
	Search  string
}

// RetentionAuditEntry for scheduled purges and expirations.
type RetentionAuditEntry struct {
	Target       string
	Before       time.Time
	RowsAffected int64
}

// ----------------------------------------------------------------------------
// Logging Methods
// ----------------------------------------------------------------------------

func (b BaseAuditEntry) params(action AuditAction, resource, resourceID string) AuditLogParams {
	return AuditLogParams{
		Action:         action,
		Resource:       resource,
		ResourceID:     resourceID,
		OrganizationID: b.OrganizationID,
		UserID:         b.UserID,
		UserEmail:      b.UserEmail,
		UserName:       b.UserName,
		IPAddress:      b.IPAddress,
		UserAgent:      b.UserAgent,
	}
}

// LogInvitationCreate logs a new invitation.
func (a *AuditService) LogInvitationCreate(ctx context.Context, entry InvitationAuditEntry) (*AuditEntry, error) {
	p := entry.params(ActionInvitationCreate, ResourceInvitation, entry.InvitationID)
	p.NewValue = string(entry.Role)
	p.RowsAffected = 1
	p.Details = map[string]any{
		"email":     entry.Email,
		"role":      string(entry.Role),
		"expiresAt": entry.ExpiresAt.UTC().Format(time.RFC3339),
	}
	p.Reason = fmt.Sprintf("Invited %s as %s", entry.Email, entry.Role)
	return a.Log(ctx, p)
}

// LogInvitationRevoke logs a revoked invitation.
func (a *AuditService) LogInvitationRevoke(ctx context.Context, entry InvitationAuditEntry) (*AuditEntry, error) {
	p := entry.params(ActionInvitationRevoke, ResourceInvitation, entry.InvitationID)
	p.OldValue = string(InvitePending)
	p.NewValue = string(InviteRevoked)
	p.RowsAffected = 1
	p.Details = map[string]any{"email": entry.Email}
	p.Reason = fmt.Sprintf("Revoked invitation for %s", entry.Email)
	return a.Log(ctx, p)
}

// LogSettingsUpdate logs an organization settings change with the old and
// new settings as JSON.
func (a *AuditService) LogSettingsUpdate(ctx context.Context, entry SettingsAuditEntry) (*AuditEntry, error) {
	p := entry.params(ActionOrgSettingsUpdate, ResourceOrganization, entry.OrganizationID)
	p.OldValue = settingsJSON(entry.Old)
	p.NewValue = settingsJSON(entry.New)
	p.RowsAffected = 1
	return a.Log(ctx, p)
}

// LogExport logs a view export.
func (a *AuditService) LogExport(ctx context.Context, entry ExportAuditEntry) (*AuditEntry, error) {
	p := entry.params(ActionViewExport, ResourceView, entry.ViewKey)
	p.RowsAffected = entry.Rows
	p.Details = map[string]any{
		"format": entry.Format,
		"scope":  entry.Scope,
	}
	if entry.Search != "" {
		p.Details["search"] = entry.Search
	}
	p.Reason = fmt.Sprintf("Exported %d rows of %s as %s", entry.Rows, entry.ViewKey, entry.Format)
	return a.Log(ctx, p)
}

// LogInvitationsExpired logs the scheduled expiry of overdue invitations.
func (a *AuditService) LogInvitationsExpired(ctx context.Context, entry RetentionAuditEntry) (*AuditEntry, error) {
	return a.Log(ctx, AuditLogParams{
		Action:       ActionInvitationExpire,
		Resource:     ResourceInvitation,
		RowsAffected: int(entry.RowsAffected),
		Reason:       fmt.Sprintf("Expired %d overdue invitations", entry.RowsAffected),
	})
}

// LogRetentionPurge logs a scheduled purge of old rows.
func (a *AuditService) LogRetentionPurge(ctx context.Context, entry RetentionAuditEntry) (*AuditEntry, error) {
	return a.Log(ctx, AuditLogParams{
		Action:       ActionRetentionPurge,
		Resource:     ResourceRetention,
		ResourceID:   entry.Target,
		RowsAffected: int(entry.RowsAffected),
		Details:      map[string]any{"before": entry.Before.UTC().Format(time.RFC3339)},
		Reason:       fmt.Sprintf("Purged %d %s rows older than %s", entry.RowsAffected, entry.Target, entry.Before.UTC().Format("2006-01-02")),
	})
}

// Log creates a new audit log entry using the generic params structure.
func (a *AuditService) Log(ctx context.Context, params AuditLogParams) (*AuditEntry, error) {
	if params.UserID == "" && params.UserEmail == "" && params.UserName == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			params.UserID = actor.ID
			params.UserEmail = actor.Email
			params.UserName = actor.Name
		}
	}
	if params.IPAddress == "" {
		params.IPAddress = GetIPAddressFromContext(ctx)
	}
	if params.UserAgent == "" {
		params.UserAgent = GetUserAgentFromContext(ctx)
	}

	entry := AuditEntry{
		ID:             uuid.NewString(),
		Action:         params.Action,
		Severity:       auditSeverity(params.Action),
		Resource:       params.Resource,
		ResourceID:     params.ResourceID,
		OrganizationID: params.OrganizationID,
		UserID:         params.UserID,
		UserEmail:      params.UserEmail,
		UserName:       params.UserName,
		IPAddress:      params.IPAddress,
		UserAgent:      params.UserAgent,
		OldValue:       params.OldValue,
		NewValue:       params.NewValue,
		Details:        params.Details,
		RowsAffected:   params.RowsAffected,
		Reason:         params.Reason,
		CreatedAt:      a.now().UTC(),
	}

	if err := a.store.InsertAuditEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ----------------------------------------------------------------------------
// Query Methods
// ----------------------------------------------------------------------------

// List retrieves audit log entries newest first.
func (a *AuditService) List(ctx context.Context, opts AuditLogOptions) ([]AuditEntry, error) {
	entries, err := a.store.ListAuditLog(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return entries, nil
}

// GetByID retrieves a single audit log entry by ID.
func (a *AuditService) GetByID(ctx context.Context, id string) (*AuditEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("audit entry %s: %w", id, ErrNotFound)
	}
	e, err := a.store.GetAuditEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func settingsJSON(s OrganizationSettings) string {
	b, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(b)
}
