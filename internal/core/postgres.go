package core

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the console schema. Every statement is idempotent, so it is
// safe to run on each startup.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore returns a store backed by db, typically a *pgxpool.Pool.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InTx implements Store. Nested calls reuse the outer transaction.
func (p *PostgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	if _, inTx := p.db.(pgx.Tx); inTx {
		return fn(p)
	}
	b, ok := p.db.(txBeginner)
	if !ok {
		return fn(p)
	}

	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// notFound converts pgx.ErrNoRows into ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", what, id, err)
}

// ----------------------------------------------------------------------------
// Organizations
// ----------------------------------------------------------------------------

const orgColumns = `id, name, slug, plan, status, member_count, settings, created_at`

func scanOrganization(row pgx.Row) (Organization, error) {
	var (
		id        pgtype.UUID
		org       Organization
		plan      string
		status    string
		settings  []byte
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &org.Name, &org.Slug, &plan, &status, &org.MemberCount, &settings, &createdAt); err != nil {
		return Organization{}, err
	}
	org.ID = PgUUIDToString(id)
	org.Plan = Plan(plan)
	org.Status = OrgStatus(status)
	org.CreatedAt = createdAt.Time
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &org.Settings); err != nil {
			return Organization{}, fmt.Errorf("decode settings for %s: %w", org.ID, err)
		}
	}
	return org, nil
}

// ListOrganizations implements Store.
func (p *PostgresStore) ListOrganizations(ctx context.Context, limit int) ([]Organization, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// GetOrganization implements Store.
func (p *PostgresStore) GetOrganization(ctx context.Context, id string) (Organization, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return Organization{}, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	org, err := scanOrganization(p.db.QueryRow(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE id = $1`, pgID))
	if err != nil {
		return Organization{}, notFound(err, "organization", id)
	}
	return org, nil
}

// UpdateOrganizationSettings implements Store.
func (p *PostgresStore) UpdateOrganizationSettings(ctx context.Context, id string, settings OrganizationSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tag, err := p.db.Exec(ctx, `UPDATE organizations SET settings = $2 WHERE id = $1`, ToPgUUID(id), data)
	if err != nil {
		return fmt.Errorf("update organization settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Invitations
// ----------------------------------------------------------------------------

const invitationSelect = `SELECT i.id, i.organization_id, o.name, i.email, i.role, i.status,
	i.invited_by, i.token, i.expires_at, i.created_at, i.accepted_at, i.revoked_at
	FROM invitations i JOIN organizations o ON o.id = i.organization_id`

func scanInvitation(row pgx.Row) (Invitation, error) {
	var (
		inv        Invitation
		id, orgID  pgtype.UUID
		role       string
		status     string
		invitedBy  pgtype.Text
		expiresAt  pgtype.Timestamptz
		createdAt  pgtype.Timestamptz
		acceptedAt pgtype.Timestamptz
		revokedAt  pgtype.Timestamptz
	)
	err := row.Scan(&id, &orgID, &inv.OrganizationName, &inv.Email, &role, &status,
		&invitedBy, &inv.Token, &expiresAt, &createdAt, &acceptedAt, &revokedAt)
	if err != nil {
		return Invitation{}, err
	}
	inv.ID = PgUUIDToString(id)
	inv.OrganizationID = PgUUIDToString(orgID)
	inv.Role = Role(role)
	inv.Status = InvitationStatus(status)
	inv.InvitedBy = PgTextToString(invitedBy)
	inv.ExpiresAt = expiresAt.Time
	inv.CreatedAt = createdAt.Time
	inv.AcceptedAt = PgTimestamptzToPtr(acceptedAt)
	inv.RevokedAt = PgTimestamptzToPtr(revokedAt)
	return inv, nil
}

// ListInvitations implements Store.
func (p *PostgresStore) ListInvitations(ctx context.Context, limit int) ([]Invitation, error) {
	rows, err := p.db.Query(ctx, invitationSelect+` ORDER BY i.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	invs := make([]Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// GetInvitation implements Store.
func (p *PostgresStore) GetInvitation(ctx context.Context, id string) (Invitation, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return Invitation{}, fmt.Errorf("invitation %s: %w", id, ErrNotFound)
	}
	inv, err := scanInvitation(p.db.QueryRow(ctx, invitationSelect+` WHERE i.id = $1`, pgID))
	if err != nil {
		return Invitation{}, notFound(err, "invitation", id)
	}
	return inv, nil
}

// FindPendingInvitation implements Store.
func (p *PostgresStore) FindPendingInvitation(ctx context.Context, orgID, email string, now time.Time) (Invitation, bool, error) {
	inv, err := scanInvitation(p.db.QueryRow(ctx, invitationSelect+`
		WHERE i.organization_id = $1 AND lower(i.email) = lower($2)
		  AND i.status = 'pending' AND i.expires_at > $3
		ORDER BY i.created_at DESC LIMIT 1`, ToPgUUID(orgID), email, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invitation{}, false, nil
	}
	if err != nil {
		return Invitation{}, false, fmt.Errorf("find pending invitation: %w", err)
	}
	return inv, true, nil
}

// InsertInvitation implements Store.
func (p *PostgresStore) InsertInvitation(ctx context.Context, inv Invitation) error {
	_, err := p.db.Exec(ctx, `INSERT INTO invitations
		(id, organization_id, email, role, status, invited_by, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ToPgUUID(inv.ID), ToPgUUID(inv.OrganizationID), inv.Email, string(inv.Role), string(inv.Status),
		ToPgText(inv.InvitedBy), inv.Token, inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

// SetInvitationStatus implements Store. The matching timestamp column is
// set for accepted and revoked transitions.
func (p *PostgresStore) SetInvitationStatus(ctx context.Context, id string, status InvitationStatus, at time.Time) error {
	query := `UPDATE invitations SET status = $2 WHERE id = $1`
	args := []any{ToPgUUID(id), string(status)}
	switch status {
	case InviteAccepted:
		query = `UPDATE invitations SET status = $2, accepted_at = $3 WHERE id = $1`
		args = append(args, at)
	case InviteRevoked:
		query = `UPDATE invitations SET status = $2, revoked_at = $3 WHERE id = $1`
		args = append(args, at)
	}

	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set invitation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invitation %s: %w", id, ErrNotFound)
	}
	return nil
}

// ExpireInvitations implements Store.
func (p *PostgresStore) ExpireInvitations(ctx context.Context, now time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx,
		`UPDATE invitations SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire invitations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ----------------------------------------------------------------------------
// Audit log
// ----------------------------------------------------------------------------

const auditColumns = `id, action, severity, resource, resource_id, organization_id,
	user_id, user_email, user_name, ip_address, user_agent, old_value, new_value,
	details, rows_affected, reason, created_at`

// InsertAuditEntry implements Store.
func (p *PostgresStore) InsertAuditEntry(ctx context.Context, e AuditEntry) error {
	var details []byte
	if len(e.Details) > 0 {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			details = nil // Fall back to nil if marshaling fails
		}
	}

	_, err := p.db.Exec(ctx, `INSERT INTO audit_log (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		ToPgUUID(e.ID), string(e.Action), string(e.Severity), e.Resource,
		ToPgText(e.ResourceID), ToPgUUID(e.OrganizationID),
		ToPgText(e.UserID), ToPgText(e.UserEmail), ToPgText(e.UserName),
		ParseIPAddress(e.IPAddress), ToPgText(e.UserAgent),
		ToPgText(e.OldValue), ToPgText(e.NewValue), details,
		ToPgInt4(e.RowsAffected), ToPgText(e.Reason), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAuditLog implements Store.
func (p *PostgresStore) ListAuditLog(ctx context.Context, opts AuditLogOptions) ([]AuditEntry, error) {
	wb := NewWhereBuilder()
	wb.Add("resource", opts.Resource)
	wb.Add("action", string(opts.Action))
	wb.Add("severity", string(opts.Severity))
	if opts.OrganizationID != "" {
		wb.Add("organization_id::text", opts.OrganizationID)
	}
	wb.AddTimestampRange("created_at", opts.StartTime, opts.EndTime)

	whereClause, args := wb.Build()
	query := `SELECT ` + auditColumns + ` FROM audit_log` + whereClause +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, wb.NextArgIndex())
	args = append(args, opts.Limit)

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetAuditEntry implements Store.
func (p *PostgresStore) GetAuditEntry(ctx context.Context, id string) (AuditEntry, error) {
	pgID := ToPgUUID(id)
	if !pgID.Valid {
		return AuditEntry{}, fmt.Errorf("audit entry %s: %w", id, ErrNotFound)
	}
	entry, err := scanAuditRow(p.db.QueryRow(ctx,
		`SELECT `+auditColumns+` FROM audit_log WHERE id = $1`, pgID))
	if err != nil {
		return AuditEntry{}, notFound(err, "audit entry", id)
	}
	return entry, nil
}

// PurgeAuditLog implements Store.
func (p *PostgresStore) PurgeAuditLog(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanAuditRow scans a single audit_log row into an AuditEntry.
func scanAuditRow(row pgx.Row) (AuditEntry, error) {
	var (
		id           pgtype.UUID
		action       string
		severity     string
		resource     string
		resourceID   pgtype.Text
		orgID        pgtype.UUID
		userID       pgtype.Text
		userEmail    pgtype.Text
		userName     pgtype.Text
		ipAddress    *netip.Addr
		userAgent    pgtype.Text
		oldValue     pgtype.Text
		newValue     pgtype.Text
		details      []byte
		rowsAffected pgtype.Int4
		reason       pgtype.Text
		createdAt    pgtype.Timestamptz
	)

	err := row.Scan(
		&id, &action, &severity, &resource, &resourceID, &orgID,
		&userID, &userEmail, &userName, &ipAddress, &userAgent,
		&oldValue, &newValue, &details, &rowsAffected, &reason, &createdAt,
	)
	if err != nil {
		return AuditEntry{}, err
	}

	entry := AuditEntry{
		ID:             PgUUIDToString(id),
		Action:         AuditAction(action),
		Severity:       AuditSeverity(severity),
		Resource:       resource,
		ResourceID:     PgTextToString(resourceID),
		OrganizationID: PgUUIDToString(orgID),
		UserID:         PgTextToString(userID),
		UserEmail:      PgTextToString(userEmail),
		UserName:       PgTextToString(userName),
		UserAgent:      PgTextToString(userAgent),
		OldValue:       PgTextToString(oldValue),
		NewValue:       PgTextToString(newValue),
		Reason:         PgTextToString(reason),
		CreatedAt:      createdAt.Time,
	}
	if ipAddress != nil {
		entry.IPAddress = ipAddress.String()
	}
	if details != nil {
		_ = json.Unmarshal(details, &entry.Details)
	}
	if rowsAffected.Valid {
		entry.RowsAffected = int(rowsAffected.Int32)
	}
	return entry, nil
}

// ----------------------------------------------------------------------------
// AI usage
// ----------------------------------------------------------------------------

// ListUsage implements Store.
func (p *PostgresStore) ListUsage(ctx context.Context, limit int) ([]UsageLog, error) {
	rows, err := p.db.Query(ctx, `SELECT u.id, u.organization_id, o.name, u.user_email, u.model,
		u.feature, u.prompt_tokens, u.completion_tokens, u.cost_usd, u.latency_ms, u.created_at
		FROM ai_usage_log u JOIN organizations o ON o.id = u.organization_id
		ORDER BY u.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	logs := make([]UsageLog, 0)
	for rows.Next() {
		var (
			u         UsageLog
			id, orgID pgtype.UUID
			userEmail pgtype.Text
			cost      pgtype.Numeric
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &orgID, &u.OrganizationName, &userEmail, &u.Model, &u.Feature,
			&u.PromptTokens, &u.CompletionTokens, &cost, &u.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		u.ID = PgUUIDToString(id)
		u.OrganizationID = PgUUIDToString(orgID)
		u.UserEmail = PgTextToString(userEmail)
		u.CostUSD = PgNumericToFloat(cost)
		u.CreatedAt = createdAt.Time
		logs = append(logs, u)
	}
	return logs, rows.Err()
}

// PurgeUsage implements Store.
func (p *PostgresStore) PurgeUsage(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM ai_usage_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge usage: %w", err)
	}
	return tag.RowsAffected(), nil
}
