package core

import (
	"time"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionInvitationCreate  AuditAction = "invitation_create"
	ActionInvitationRevoke  AuditAction = "invitation_revoke"
	ActionInvitationExpire  AuditAction = "invitation_expire"
	ActionOrgSettingsUpdate AuditAction = "org_settings_update"
	ActionViewExport        AuditAction = "view_export"
	ActionRetentionPurge    AuditAction = "retention_purge"
)

// AuditActions lists every action in display order.
var AuditActions = []AuditAction{
	ActionInvitationCreate,
	ActionInvitationRevoke,
	ActionInvitationExpire,
	ActionOrgSettingsUpdate,
	ActionViewExport,
	ActionRetentionPurge,
}

// Label returns a human-readable action name.
func (a AuditAction) Label() string {
	switch a {
	case ActionInvitationCreate:
		return "Invitation created"
	case ActionInvitationRevoke:
		return "Invitation revoked"
	case ActionInvitationExpire:
		return "Invitations expired"
	case ActionOrgSettingsUpdate:
		return "Settings updated"
	case ActionViewExport:
		return "View exported"
	case ActionRetentionPurge:
		return "Retention purge"
	}
	return string(a)
}

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditSeverities lists every severity from lowest to highest.
var AuditSeverities = []AuditSeverity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank orders severities; unknown values rank below low.
func (s AuditSeverity) Rank() int {
	for i, known := range AuditSeverities {
		if s == known {
			return i + 1
		}
	}
	return 0
}

// Audit resources.
const (
	ResourceInvitation   = "invitation"
	ResourceOrganization = "organization"
	ResourceView         = "view"
	ResourceRetention    = "retention"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID             string         `json:"id"`
	Action         AuditAction    `json:"action"`
	Severity       AuditSeverity  `json:"severity"`
	Resource       string         `json:"resource"`
	ResourceID     string         `json:"resourceId,omitempty"`
	OrganizationID string         `json:"organizationId,omitempty"`
	UserID         string         `json:"userId,omitempty"`
	UserEmail      string         `json:"userEmail,omitempty"`
	UserName       string         `json:"userName,omitempty"`
	IPAddress      string         `json:"ipAddress,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
	OldValue       string         `json:"oldValue,omitempty"`
	NewValue       string         `json:"newValue,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	RowsAffected   int            `json:"rowsAffected,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

var auditFieldNames = []string{
	"id", "action", "severity", "resource", "resourceId", "organizationId",
	"userId", "userEmail", "userName", "ipAddress", "userAgent",
	"oldValue", "newValue", "details", "rowsAffected", "reason", "createdAt",
}

// FieldNames implements table.Fielder.
func (e AuditEntry) FieldNames() []string {
	return auditFieldNames
}

// FieldValue implements table.Fielder. Empty optional fields report nil so
// they sort first and never match a search.
func (e AuditEntry) FieldValue(key string) (any, bool) {
	switch key {
	case "id":
		return e.ID, true
	case "action":
		return string(e.Action), true
	case "severity":
		return string(e.Severity), true
	case "resource":
		return e.Resource, true
	case "resourceId":
		return optional(e.ResourceID), true
	case "organizationId":
		return optional(e.OrganizationID), true
	case "userId":
		return optional(e.UserID), true
	case "userEmail":
		return optional(e.UserEmail), true
	case "userName":
		return optional(e.UserName), true
	case "ipAddress":
		return optional(e.IPAddress), true
	case "userAgent":
		return optional(e.UserAgent), true
	case "oldValue":
		return optional(e.OldValue), true
	case "newValue":
		return optional(e.NewValue), true
	case "details":
		if len(e.Details) == 0 {
			return nil, true
		}
		return e.Details, true
	case "rowsAffected":
		return e.RowsAffected, true
	case "reason":
		return optional(e.Reason), true
	case "createdAt":
		return e.CreatedAt, true
	}
	return nil, false
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Actor returns the best display identity for whoever performed the action.
func (e AuditEntry) Actor() string {
	switch {
	case e.UserEmail != "":
		return e.UserEmail
	case e.UserName != "":
		return e.UserName
	case e.UserID != "":
		return e.UserID
	}
	return "system"
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action         AuditAction
	Resource       string
	ResourceID     string
	OrganizationID string
	UserID         string
	UserEmail      string
	UserName       string
	IPAddress      string
	UserAgent      string
	OldValue       string
	NewValue       string
	Details        map[string]any
	RowsAffected   int
	Reason         string
}

// auditSeverity returns the appropriate severity for an action.
func auditSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionInvitationRevoke, ActionOrgSettingsUpdate:
		return SeverityHigh
	case ActionRetentionPurge:
		return SeverityCritical
	case ActionViewExport, ActionInvitationExpire:
		return SeverityLow
	default:
		return SeverityMedium
	}
}
