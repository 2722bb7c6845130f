package core

import (
	"context"
	"time"
)

// Store is the persistence boundary of the console. PostgresStore is the
// production implementation; tests substitute in-memory fakes.
//
// Lookups of a single record return ErrNotFound when it does not exist.
type Store interface {
	// InTx runs fn against a Store bound to one transaction, committing when
	// fn returns nil.
	InTx(ctx context.Context, fn func(Store) error) error

	ListOrganizations(ctx context.Context, limit int) ([]Organization, error)
	GetOrganization(ctx context.Context, id string) (Organization, error)
	UpdateOrganizationSettings(ctx context.Context, id string, settings OrganizationSettings) error

	ListInvitations(ctx context.Context, limit int) ([]Invitation, error)
	GetInvitation(ctx context.Context, id string) (Invitation, error)
	// FindPendingInvitation returns an unexpired pending invitation for email
	// in the organization. The email comparison is case-insensitive.
	FindPendingInvitation(ctx context.Context, orgID, email string, now time.Time) (Invitation, bool, error)
	InsertInvitation(ctx context.Context, inv Invitation) error
	SetInvitationStatus(ctx context.Context, id string, status InvitationStatus, at time.Time) error
	// ExpireInvitations marks pending invitations past their expiry as expired.
	ExpireInvitations(ctx context.Context, now time.Time) (int64, error)

	InsertAuditEntry(ctx context.Context, e AuditEntry) error
	ListAuditLog(ctx context.Context, opts AuditLogOptions) ([]AuditEntry, error)
	GetAuditEntry(ctx context.Context, id string) (AuditEntry, error)
	PurgeAuditLog(ctx context.Context, before time.Time) (int64, error)

	ListUsage(ctx context.Context, limit int) ([]UsageLog, error)
	PurgeUsage(ctx context.Context, before time.Time) (int64, error)
}

// AuditLogOptions narrows an audit log query at the database. Zero values
// mean "no restriction". Results are newest first.
type AuditLogOptions struct {
	Resource       string
	Action         AuditAction
	Severity       AuditSeverity
	OrganizationID string
	StartTime      time.Time
	EndTime        time.Time
	Limit          int
}
