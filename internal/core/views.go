package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JonMunkholm/console/internal/table"
	"golang.org/x/text/language"
)

// View keys.
const (
	ViewAuditLog      = "audit-log"
	ViewInvitations   = "invitations"
	ViewOrganizations = "organizations"
	ViewUsage         = "usage"
)

func init() {
	Register(ViewInfo{
		Key:         ViewAuditLog,
		Group:       "Security",
		Label:       "Audit Log",
		Description: "Every administrative change, export and retention run",
	})
	Register(ViewInfo{
		Key:         ViewInvitations,
		Group:       "Accounts",
		Label:       "Invitations",
		Description: "Pending and settled invitations across organizations",
	})
	Register(ViewInfo{
		Key:         ViewOrganizations,
		Group:       "Accounts",
		Label:       "Organizations",
		Description: "Tenants, plans and their settings",
	})
	Register(ViewInfo{
		Key:         ViewUsage,
		Group:       "AI",
		Label:       "AI Usage",
		Description: "Metered model requests with token counts and cost",
	})
}

// ViewOptions carries the per-request settings shared by every view.
type ViewOptions struct {
	PageSize int
	Locale   language.Tag
	Now      func() time.Time // drives recency filters and invitation expiry
}

func (o ViewOptions) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// rank returns the 1-based position of v in list, or 0 when absent.
func rank[E comparable](list []E, v E) int {
	if i := slices.Index(list, v); i >= 0 {
		return i + 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func stringOptions[E ~string](values []E, label func(E) string) []table.Option {
	opts := make([]table.Option, len(values))
	for i, v := range values {
		opts[i] = table.Option{Value: string(v), Label: label(v)}
	}
	return opts
}

func titleLabel[E ~string](v E) string {
	s := string(v)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// recencyFilter keeps records created within the selected window.
func recencyFilter[T any](o ViewOptions, createdAt func(T) time.Time) table.Filter[T] {
	windows := map[string]time.Duration{
		"24h": 24 * time.Hour,
		"7d":  7 * 24 * time.Hour,
		"30d": 30 * 24 * time.Hour,
	}
	now := o.now()
	return table.Filter[T]{
		ID:    "since",
		Label: "Created",
		Options: []table.Option{
			{Value: "24h", Label: "Last 24 hours"},
			{Value: "7d", Label: "Last 7 days"},
			{Value: "30d", Label: "Last 30 days"},
		},
		Predicate: func(rec T, selected string) bool {
			d, ok := windows[selected]
			if !ok {
				return true
			}
			return !createdAt(rec).Before(now.Add(-d))
		},
	}
}

// distinctOptions returns one option per distinct non-empty value, ordered
// by label.
func distinctOptions[T any](records []T, value, label func(T) string) []table.Option {
	seen := make(map[string]bool)
	var opts []table.Option
	for _, r := range records {
		v := value(r)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		opts = append(opts, table.Option{Value: v, Label: label(r)})
	}
	slices.SortFunc(opts, func(a, b table.Option) int {
		if c := cmp.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return opts
}

// ----------------------------------------------------------------------------
// Audit log
// ----------------------------------------------------------------------------

var auditResources = []string{ResourceInvitation, ResourceOrganization, ResourceView, ResourceRetention}

// NewAuditLogView returns the audit log definition, newest first.
func NewAuditLogView(o ViewOptions) table.Definition[AuditEntry] {
	return table.Definition[AuditEntry]{
		Key: ViewAuditLog,
		Columns: table.MustColumns(
			table.Column[AuditEntry]{ID: "createdAt", Label: "Timestamp", Key: "createdAt",
				Render: func(e AuditEntry) string { return formatTime(e.CreatedAt) }},
			table.Column[AuditEntry]{ID: "action", Label: "Action", Key: "action",
				Render: func(e AuditEntry) string { return e.Action.Label() }},
			table.Column[AuditEntry]{ID: "severity", Label: "Severity", Key: "severity",
				Compare: func(a, b AuditEntry) int { return cmp.Compare(a.Severity.Rank(), b.Severity.Rank()) }},
			table.Column[AuditEntry]{ID: "resource", Label: "Resource", Key: "resource"},
			table.Column[AuditEntry]{ID: "resourceId", Label: "Resource ID", Key: "resourceId"},
			table.Column[AuditEntry]{ID: "actor", Label: "Actor", Accessor: func(e AuditEntry) any { return e.Actor() }},
			table.Column[AuditEntry]{ID: "ipAddress", Label: "IP Address", Key: "ipAddress"},
			table.Column[AuditEntry]{ID: "rowsAffected", Label: "Rows", Key: "rowsAffected"},
			table.Column[AuditEntry]{ID: "reason", Label: "Details", Key: "reason", DisableSort: true},
		),
		Filters: table.MustFilters(
			table.Filter[AuditEntry]{
				ID:      "action",
				Label:   "Action",
				Options: stringOptions(AuditActions, AuditAction.Label),
				Predicate: func(e AuditEntry, selected string) bool {
					return string(e.Action) == selected
				},
			},
			table.Filter[AuditEntry]{
				ID:      "severity",
				Label:   "Severity",
				Options: stringOptions(AuditSeverities, titleLabel[AuditSeverity]),
				Predicate: func(e AuditEntry, selected string) bool {
					return string(e.Severity) == selected
				},
			},
			table.Filter[AuditEntry]{
				ID:      "resource",
				Label:   "Resource",
				Options: stringOptions(auditResources, titleLabel[string]),
				Predicate: func(e AuditEntry, selected string) bool {
					return e.Resource == selected
				},
			},
			recencyFilter(o, func(e AuditEntry) time.Time { return e.CreatedAt }),
		),
		DefaultSort:     "createdAt",
		DefaultSortDir:  table.Desc,
		DefaultPageSize: o.PageSize,
		Locale:          o.Locale,
		RowClass: func(e AuditEntry) string {
			return "severity-" + string(e.Severity)
		},
		RowHref: func(e AuditEntry) string {
			return "/api/audit-log/" + e.ID
		},
	}
}

// ----------------------------------------------------------------------------
// Invitations
// ----------------------------------------------------------------------------

// NewInvitationsView returns the invitations definition. Status columns and
// filters use the effective status at the time the definition is built, so
// overdue invitations show as expired before the retention job rewrites them.
// Build one definition per request.
func NewInvitationsView(o ViewOptions) table.Definition[Invitation] {
	now := o.now()
	status := func(i Invitation) InvitationStatus { return i.EffectiveStatus(now) }

	return table.Definition[Invitation]{
		Key: ViewInvitations,
		Columns: table.MustColumns(
			table.Column[Invitation]{ID: "email", Label: "Email", Accessor: func(i Invitation) any { return i.Email }},
			table.Column[Invitation]{ID: "organization", Label: "Organization", Accessor: func(i Invitation) any { return i.OrganizationName }},
			table.Column[Invitation]{ID: "role", Label: "Role", Accessor: func(i Invitation) any { return i.Role },
				Render:  func(i Invitation) string { return titleLabel(i.Role) },
				Compare: func(a, b Invitation) int { return cmp.Compare(rank(Roles, a.Role), rank(Roles, b.Role)) }},
			table.Column[Invitation]{ID: "status", Label: "Status", Accessor: func(i Invitation) any { return status(i) },
				Render: func(i Invitation) string { return titleLabel(status(i)) },
				Compare: func(a, b Invitation) int {
					return cmp.Compare(rank(InvitationStatuses, status(a)), rank(InvitationStatuses, status(b)))
				}},
			table.Column[Invitation]{ID: "invitedBy", Label: "Invited By", Accessor: func(i Invitation) any { return optional(i.InvitedBy) }},
			table.Column[Invitation]{ID: "createdAt", Label: "Created", Accessor: func(i Invitation) any { return i.CreatedAt },
				Render: func(i Invitation) string { return formatTime(i.CreatedAt) }},
			table.Column[Invitation]{ID: "expiresAt", Label: "Expires", Accessor: func(i Invitation) any { return i.ExpiresAt },
				Render: func(i Invitation) string { return formatTime(i.ExpiresAt) }},
			table.Column[Invitation]{ID: "revokedAt", Label: "Revoked", Accessor: func(i Invitation) any { return i.RevokedAt },
				Render: func(i Invitation) string { return formatTimePtr(i.RevokedAt) }},
		),
		Filters: table.MustFilters(
			table.Filter[Invitation]{
				ID:      "status",
				Label:   "Status",
				Options: stringOptions(InvitationStatuses, titleLabel[InvitationStatus]),
				Predicate: func(i Invitation, selected string) bool {
					return string(status(i)) == selected
				},
			},
			table.Filter[Invitation]{
				ID:      "role",
				Label:   "Role",
				Options: stringOptions(Roles, titleLabel[Role]),
				Predicate: func(i Invitation, selected string) bool {
					return string(i.Role) == selected
				},
			},
			recencyFilter(o, func(i Invitation) time.Time { return i.CreatedAt }),
		),
		SearchKeys:      []string{"email", "organization", "role", "status", "invitedBy"},
		DefaultSort:     "createdAt",
		DefaultSortDir:  table.Desc,
		DefaultPageSize: o.PageSize,
		Locale:          o.Locale,
		RowClass: func(i Invitation) string {
			return "status-" + string(status(i))
		},
	}
}

// ----------------------------------------------------------------------------
// Organizations
// ----------------------------------------------------------------------------

// NewOrganizationsView returns the organizations definition, by name.
func NewOrganizationsView(o ViewOptions) table.Definition[Organization] {
	return table.Definition[Organization]{
		Key: ViewOrganizations,
		Columns: table.MustColumns(
			table.Column[Organization]{ID: "name", Label: "Name", Accessor: func(org Organization) any { return org.Label() }},
			table.Column[Organization]{ID: "slug", Label: "Slug", Accessor: func(org Organization) any { return org.Slug }},
			table.Column[Organization]{ID: "plan", Label: "Plan", Accessor: func(org Organization) any { return org.Plan },
				Render:  func(org Organization) string { return titleLabel(org.Plan) },
				Compare: func(a, b Organization) int { return cmp.Compare(rank(Plans, a.Plan), rank(Plans, b.Plan)) }},
			table.Column[Organization]{ID: "status", Label: "Status", Accessor: func(org Organization) any { return org.Status },
				Render: func(org Organization) string { return titleLabel(org.Status) }},
			table.Column[Organization]{ID: "members", Label: "Members", Accessor: func(org Organization) any { return org.MemberCount }},
			table.Column[Organization]{ID: "tokenLimit", Label: "Monthly Token Limit",
				Accessor: func(org Organization) any { return org.Settings.AIMonthlyTokenLimit },
				Render: func(org Organization) string {
					if org.Settings.AIMonthlyTokenLimit == 0 {
						return "Unlimited"
					}
					return fmt.Sprintf("%d", org.Settings.AIMonthlyTokenLimit)
				}},
			table.Column[Organization]{ID: "requireMfa", Label: "MFA", Accessor: func(org Organization) any { return org.Settings.RequireMFA },
				Render: func(org Organization) string {
					if org.Settings.RequireMFA {
						return "Required"
					}
					return "Optional"
				}},
			table.Column[Organization]{ID: "createdAt", Label: "Created", Accessor: func(org Organization) any { return org.CreatedAt },
				Render: func(org Organization) string { return formatTime(org.CreatedAt) }},
		),
		Filters: table.MustFilters(
			table.Filter[Organization]{
				ID:      "plan",
				Label:   "Plan",
				Options: stringOptions(Plans, titleLabel[Plan]),
				Predicate: func(org Organization, selected string) bool {
					return string(org.Plan) == selected
				},
			},
			table.Filter[Organization]{
				ID:      "status",
				Label:   "Status",
				Options: stringOptions(OrgStatuses, titleLabel[OrgStatus]),
				Predicate: func(org Organization, selected string) bool {
					return string(org.Status) == selected
				},
			},
			table.Filter[Organization]{
				ID:      "mfa",
				Label:   "MFA",
				Options: []table.Option{{Value: "required", Label: "Required"}, {Value: "optional", Label: "Optional"}},
				Predicate: func(org Organization, selected string) bool {
					return org.Settings.RequireMFA == (selected == "required")
				},
			},
		),
		SearchKeys:      []string{"name", "slug", "plan", "status"},
		DefaultSort:     "name",
		DefaultSortDir:  table.Asc,
		DefaultPageSize: o.PageSize,
		Locale:          o.Locale,
		RowClass: func(org Organization) string {
			return "status-" + string(org.Status)
		},
	}
}

// ----------------------------------------------------------------------------
// AI usage
// ----------------------------------------------------------------------------

// NewUsageView returns the AI usage definition. Model, feature and
// organization filter options are taken from records.
func NewUsageView(o ViewOptions, records []UsageLog) table.Definition[UsageLog] {
	model := func(u UsageLog) string { return u.Model }
	feature := func(u UsageLog) string { return u.Feature }

	return table.Definition[UsageLog]{
		Key: ViewUsage,
		Columns: table.MustColumns(
			table.Column[UsageLog]{ID: "createdAt", Label: "Timestamp", Accessor: func(u UsageLog) any { return u.CreatedAt },
				Render: func(u UsageLog) string { return formatTime(u.CreatedAt) }},
			table.Column[UsageLog]{ID: "organization", Label: "Organization", Accessor: func(u UsageLog) any { return u.OrganizationName }},
			table.Column[UsageLog]{ID: "user", Label: "User", Accessor: func(u UsageLog) any { return optional(u.UserEmail) }},
			table.Column[UsageLog]{ID: "model", Label: "Model", Accessor: func(u UsageLog) any { return u.Model }},
			table.Column[UsageLog]{ID: "feature", Label: "Feature", Accessor: func(u UsageLog) any { return u.Feature }},
			table.Column[UsageLog]{ID: "promptTokens", Label: "Prompt Tokens", Accessor: func(u UsageLog) any { return u.PromptTokens }},
			table.Column[UsageLog]{ID: "completionTokens", Label: "Completion Tokens", Accessor: func(u UsageLog) any { return u.CompletionTokens }},
			table.Column[UsageLog]{ID: "totalTokens", Label: "Total Tokens", Accessor: func(u UsageLog) any { return u.TotalTokens() }},
			table.Column[UsageLog]{ID: "cost", Label: "Cost (USD)", Accessor: func(u UsageLog) any { return u.CostUSD },
				Render: func(u UsageLog) string { return fmt.Sprintf("$%.4f", u.CostUSD) }},
			table.Column[UsageLog]{ID: "latency", Label: "Latency (ms)", Accessor: func(u UsageLog) any { return u.LatencyMS }},
		),
		Filters: table.MustFilters(
			table.Filter[UsageLog]{
				ID:      "model",
				Label:   "Model",
				Options: distinctOptions(records, model, model),
				Predicate: func(u UsageLog, selected string) bool {
					return u.Model == selected
				},
			},
			table.Filter[UsageLog]{
				ID:      "feature",
				Label:   "Feature",
				Options: distinctOptions(records, feature, feature),
				Predicate: func(u UsageLog, selected string) bool {
					return u.Feature == selected
				},
			},
			table.Filter[UsageLog]{
				ID:    "organization",
				Label: "Organization",
				Options: distinctOptions(records,
					func(u UsageLog) string { return u.OrganizationID },
					func(u UsageLog) string { return u.OrganizationName }),
				Predicate: func(u UsageLog, selected string) bool {
					return u.OrganizationID == selected
				},
			},
			recencyFilter(o, func(u UsageLog) time.Time { return u.CreatedAt }),
		),
		SearchKeys:      []string{"organization", "user", "model", "feature"},
		DefaultSort:     "createdAt",
		DefaultSortDir:  table.Desc,
		DefaultPageSize: o.PageSize,
		Locale:          o.Locale,
	}
}
