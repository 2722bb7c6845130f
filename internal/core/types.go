package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Plan is an organization's subscription tier.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanTeam       Plan = "team"
	PlanEnterprise Plan = "enterprise"
)

// Plans lists every plan from lowest to highest tier.
var Plans = []Plan{PlanFree, PlanTeam, PlanEnterprise}

// OrgStatus is an organization's lifecycle state.
type OrgStatus string

const (
	OrgActive    OrgStatus = "active"
	OrgTrial     OrgStatus = "trial"
	OrgSuspended OrgStatus = "suspended"
)

// OrgStatuses lists every organization status.
var OrgStatuses = []OrgStatus{OrgActive, OrgTrial, OrgSuspended}

// OrganizationSettings are the admin-editable settings of an organization.
type OrganizationSettings struct {
	DisplayName         string   `json:"displayName"`
	AIMonthlyTokenLimit int64    `json:"aiMonthlyTokenLimit"` // 0 means unlimited
	AllowedDomains      []string `json:"allowedDomains"`      // empty allows any email domain
	RequireMFA          bool     `json:"requireMfa"`
}

// Organization is a customer tenant of the risk console.
type Organization struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Slug        string               `json:"slug"`
	Plan        Plan                 `json:"plan"`
	Status      OrgStatus            `json:"status"`
	MemberCount int                  `json:"memberCount"`
	Settings    OrganizationSettings `json:"settings"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// Label returns the display name, falling back to the legal name.
func (o Organization) Label() string {
	if o.Settings.DisplayName != "" {
		return o.Settings.DisplayName
	}
	return o.Name
}

// Role is the access level granted by an invitation.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Roles lists every role from most to least privileged.
var Roles = []Role{RoleOwner, RoleAdmin, RoleMember, RoleViewer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// InvitationStatus is the state of an invitation.
type InvitationStatus string

const (
	InvitePending  InvitationStatus = "pending"
	InviteAccepted InvitationStatus = "accepted"
	InviteRevoked  InvitationStatus = "revoked"
	InviteExpired  InvitationStatus = "expired"
)

// InvitationStatuses lists every invitation status.
var InvitationStatuses = []InvitationStatus{InvitePending, InviteAccepted, InviteRevoked, InviteExpired}

// Invitation is a pending or settled invite for an email address to join an
// organization.
type Invitation struct {
	ID               string           `json:"id"`
	OrganizationID   string           `json:"organizationId"`
	OrganizationName string           `json:"organizationName"`
	Email            string           `json:"email"`
	Role             Role             `json:"role"`
	Status           InvitationStatus `json:"status"`
	InvitedBy        string           `json:"invitedBy"`
	Token            string           `json:"-"`
	ExpiresAt        time.Time        `json:"expiresAt"`
	CreatedAt        time.Time        `json:"createdAt"`
	AcceptedAt       *time.Time       `json:"acceptedAt,omitempty"`
	RevokedAt        *time.Time       `json:"revokedAt,omitempty"`
}

// EffectiveStatus returns the status as of now. A stored pending invitation
// whose expiry has passed reports expired even before the retention job
// rewrites it.
func (i Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitePending && !now.Before(i.ExpiresAt) {
		return InviteExpired
	}
	return i.Status
}

// UsageLog is one metered AI request.
type UsageLog struct {
	ID               string    `json:"id"`
	OrganizationID   string    `json:"organizationId"`
	OrganizationName string    `json:"organizationName"`
	UserEmail        string    `json:"userEmail"`
	Model            string    `json:"model"`
	Feature          string    `json:"feature"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	CostUSD          float64   `json:"costUsd"`
	LatencyMS        int       `json:"latencyMs"`
	CreatedAt        time.Time `json:"createdAt"`
}

// TotalTokens returns prompt plus completion tokens.
func (u UsageLog) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}
