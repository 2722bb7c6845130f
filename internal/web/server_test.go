package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/console/internal/config"
	"github.com/JonMunkholm/console/internal/core"
	"github.com/JonMunkholm/console/internal/core/coretest"
	"github.com/JonMunkholm/console/internal/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	acmeID    = "5f0c1d2e-0000-4000-8000-000000000001"
	globexID  = "5f0c1d2e-0000-4000-8000-000000000002"
	initechID = "5f0c1d2e-0000-4000-8000-000000000003"

	pendingID  = "5f0c1d2e-0000-4000-8000-0000000000a1"
	acceptedID = "5f0c1d2e-0000-4000-8000-0000000000a2"
	auditID    = "5f0c1d2e-0000-4000-8000-0000000000b1"

	// httptest.NewRequest connects from 192.0.2.1
	testProxy = "192.0.2.1"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Table: config.TableConfig{
			DefaultPageSize: 2,
			PageSizes:       []int{2, 5},
			MaxRecords:      100,
			Locale:          "und",
		},
		Security: config.SecurityConfig{EnableCSP: true, TrustedProxies: []string{testProxy}},
	}
}

func seed(store *coretest.MemStore) {
	store.AddOrganization(core.Organization{ID: acmeID, Name: "Acme Corp", Slug: "acme",
		Plan: core.PlanTeam, Status: core.OrgActive, MemberCount: 12, CreatedAt: fixedNow.AddDate(-1, 0, 0)})
	store.AddOrganization(core.Organization{ID: globexID, Name: "Globex", Slug: "globex",
		Plan: core.PlanEnterprise, Status: core.OrgActive, MemberCount: 80, CreatedAt: fixedNow.AddDate(0, -2, 0),
		Settings: core.OrganizationSettings{AllowedDomains: []string{"globex.com"}}})
	store.AddOrganization(core.Organization{ID: initechID, Name: "Initech", Slug: "initech",
		Plan: core.PlanFree, Status: core.OrgSuspended, MemberCount: 3, CreatedAt: fixedNow.AddDate(0, -1, 0),
		Settings: core.OrganizationSettings{RequireMFA: true}})

	store.AddInvitation(core.Invitation{ID: pendingID, OrganizationID: acmeID, Email: "pat@acme.io",
		Role: core.RoleMember, Status: core.InvitePending,
		ExpiresAt: fixedNow.Add(24 * time.Hour), CreatedAt: fixedNow.Add(-time.Hour)})
	store.AddInvitation(core.Invitation{ID: acceptedID, OrganizationID: acmeID, Email: "sam@acme.io",
		Role: core.RoleAdmin, Status: core.InviteAccepted,
		ExpiresAt: fixedNow.Add(-24 * time.Hour), CreatedAt: fixedNow.AddDate(0, 0, -5)})

	store.AddAuditEntries(core.AuditEntry{ID: auditID, Action: core.ActionOrgSettingsUpdate,
		Severity: core.SeverityHigh, Resource: core.ResourceOrganization, ResourceID: acmeID,
		UserEmail: "ops@console.test", CreatedAt: fixedNow.Add(-2 * time.Hour)})

	store.AddUsage(
		core.UsageLog{ID: "u1", OrganizationID: acmeID, Model: "gpt-4o", Feature: "triage",
			PromptTokens: 100, CompletionTokens: 50, CostUSD: 0.25, CreatedAt: fixedNow.Add(-time.Hour)},
		core.UsageLog{ID: "u2", OrganizationID: globexID, Model: "claude", Feature: "summary",
			PromptTokens: 10, CompletionTokens: 5, CostUSD: 0.5, CreatedAt: fixedNow.Add(-2 * time.Hour)},
		core.UsageLog{ID: "u3", OrganizationID: acmeID, Model: "gpt-4o", Feature: "summary",
			PromptTokens: 20, CompletionTokens: 10, CostUSD: 0.25, CreatedAt: fixedNow.Add(-3 * time.Hour)},
	)
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) (*Server, *coretest.MemStore) {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	store := coretest.NewMemStore()
	seed(store)
	svc := core.NewService(store, core.ServiceConfig{MaxRecords: cfg.Table.MaxRecords, InviteTTL: 72 * time.Hour},
		core.WithClock(func() time.Time { return fixedNow }))

	s := NewServer(svc, cfg)
	t.Cleanup(func() { s.Shutdown(t.Context()) })
	return s, store
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, s, httptest.NewRequest(http.MethodGet, target, nil))
}

func sendJSON(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return do(t, s, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func rowValues(resp ViewResponse, column string) []any {
	out := make([]any, len(resp.Rows))
	for i, row := range resp.Rows {
		out[i] = row[column]
	}
	return out
}

// ============================================================================
// Pages
// ============================================================================

func TestDashboard(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, label := range []string{"Audit Log", "Invitations", "Organizations", "AI Usage"} {
		assert.Contains(t, body, label)
	}
	assert.Contains(t, body, `href="/views/audit-log"`)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "https://unpkg.com")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestViewPage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/views/organizations")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	assert.Contains(t, body, `id="view-table"`)
	assert.Contains(t, body, "Acme Corp")
	assert.Contains(t, body, "Globex")
	assert.NotContains(t, body, "Initech", "third row is on page 2")
	assert.Contains(t, body, "1–2 of 3")
	assert.Contains(t, body, "/api/views/organizations/export?")

	req := httptest.NewRequest(http.MethodGet, "/views/organizations?page=2", nil)
	req.Header.Set("HX-Request", "true")
	rec = do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.NotContains(t, body, "<!DOCTYPE html>", "HTMX requests get the table fragment")
	assert.True(t, strings.HasPrefix(body, `<div id="view-table">`))
	assert.Contains(t, body, "Initech")
	assert.Contains(t, body, "3–3 of 3")
}

func TestViewPage_EscapesSearch(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/views/organizations?search=%3Cscript%3E")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "No matching records")
}

func TestViewPage_UnknownView(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/views/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "TBL001")

	req := httptest.NewRequest(http.MethodGet, "/views/nope", nil)
	req.Header.Set("HX-Request", "true")
	rec = do(t, s, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="alert alert-error"`)
}

// ============================================================================
// JSON views
// ============================================================================

func TestListViews(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/views")
	require.Equal(t, http.StatusOK, rec.Code)
	infos := decode[[]core.ViewInfo](t, rec)
	require.Len(t, infos, 4)
	assert.Equal(t, core.ViewUsage, infos[0].Key)
}

func TestViewJSON(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/views/organizations?sort=name&dir=desc")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ViewResponse](t, rec)

	assert.Equal(t, core.ViewOrganizations, resp.View)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.PageCount)
	assert.Equal(t, 2, resp.PageSize)
	assert.Equal(t, []any{"Initech", "Globex"}, rowValues(resp, "name"))
	assert.Equal(t, "desc", resp.Query.Dir)
	require.NotEmpty(t, resp.Columns)
	assert.Equal(t, ColumnResponse{ID: "name", Label: "Name", Sortable: true}, resp.Columns[0])
}

func TestViewJSON_QueryNormalization(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantSize  int
		wantNames []any
	}{
		{"page clamped to last", "page=99", 2, 2, []any{"Initech"}},
		{"garbage page is page 1", "page=abc", 1, 2, []any{"Acme Corp", "Globex"}},
		{"size outside the allowed list", "size=7", 1, 2, []any{"Acme Corp", "Globex"}},
		{"allowed size", "size=5", 1, 5, []any{"Acme Corp", "Globex", "Initech"}},
		{"unknown filter ignored", "filter[nope]=x", 1, 2, []any{"Acme Corp", "Globex"}},
		{"empty filter means all", "filter[plan]=", 1, 2, []any{"Acme Corp", "Globex"}},
		{"unknown sort column keeps store order", "sort=bogus&size=5", 1, 5, []any{"Initech", "Globex", "Acme Corp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/views/organizations?"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode[ViewResponse](t, rec)
			assert.Equal(t, tt.wantPage, resp.Page)
			assert.Equal(t, tt.wantSize, resp.PageSize)
			assert.Equal(t, tt.wantNames, rowValues(resp, "name"))
		})
	}
}

func TestViewJSON_FiltersAndSearch(t *testing.T) {
	s, _ := newTestServer(t)

	resp := decode[ViewResponse](t, get(t, s, "/api/views/organizations?filter[mfa]=required"))
	assert.Equal(t, []any{"Initech"}, rowValues(resp, "name"))
	assert.Equal(t, map[string]string{"mfa": "required"}, resp.Query.Filters)

	resp = decode[ViewResponse](t, get(t, s, "/api/views/invitations?filter[status]=pending"))
	assert.Equal(t, []any{"pat@acme.io"}, rowValues(resp, "email"))

	resp = decode[ViewResponse](t, get(t, s, "/api/views/organizations?search=GLOBEX"))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "GLOBEX", resp.Query.Search)
}

func TestViewJSON_StoreError(t *testing.T) {
	s, store := newTestServer(t)
	store.Err = assert.AnError

	rec := get(t, s, "/api/views/usage")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ERR000", decode[ErrorResponse](t, rec).Code)
}

// ============================================================================
// Export
// ============================================================================

func TestExportCSV(t *testing.T) {
	s, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/views/organizations/export?columns=name,plan&search=o", nil)
	req.Header.Set("User-Agent", "exporter/1.0")
	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="organizations_20250601_120000.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "\"Name\",\"Plan\"\n\"Acme Corp\",\"team\"\n\"Globex\",\"enterprise\"\n", rec.Body.String(),
		"all matching rows, not just the first page")

	entries := store.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, core.ActionViewExport, last.Action)
	assert.Equal(t, core.ViewOrganizations, last.ResourceID)
	assert.Equal(t, 2, last.RowsAffected)
	assert.Equal(t, "csv", last.Details["format"])
	assert.Equal(t, "o", last.Details["search"])
	assert.Equal(t, testProxy, last.IPAddress)
	assert.Equal(t, "exporter/1.0", last.UserAgent)
}

func TestExportCSV_PageScope(t *testing.T) {
	s, store := newTestServer(t)

	rec := get(t, s, "/api/views/organizations/export?scope=page&page=2&columns=slug")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "\"Slug\"\n\"initech\"\n", rec.Body.String())

	entries := store.AuditEntries()
	assert.Equal(t, "page", entries[len(entries)-1].Details["scope"])
}

func TestExportCSV_EmptyResultIsHeaderOnly(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/views/organizations/export?search=zzz&columns=name,slug")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "\"Name\",\"Slug\"\n", rec.Body.String())
}

func TestExportXLSX(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/views/organizations/export?format=xlsx&columns=name,members")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Organizations")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Name", "Members"},
		{"Acme Corp", "12"},
		{"Globex", "80"},
		{"Initech", "3"},
	}, rows)
}

func TestExport_UnsupportedFormat(t *testing.T) {
	s, store := newTestServer(t)
	before := len(store.AuditEntries())

	rec := get(t, s, "/api/views/organizations/export?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "TBL002", decode[ErrorResponse](t, rec).Code)
	assert.Len(t, store.AuditEntries(), before, "rejected exports are not audited")
}

func TestExport_AuditFailureBlocksDownload(t *testing.T) {
	s, store := newTestServer(t)
	store.AuditErr = assert.AnError

	rec := get(t, s, "/api/views/organizations/export")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Acme Corp")
}

func TestExport_QueueFull(t *testing.T) {
	s, store := newTestServer(t, func(c *config.Config) {
		c.Table.MaxConcurrentExports = 1
		c.Table.ExportWait = 10 * time.Millisecond
	})
	before := len(store.AuditEntries())

	require.NoError(t, s.exports.Acquire(context.Background()))
	rec := get(t, s, "/api/views/organizations/export")
	s.exports.Release()

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE002", decode[ErrorResponse](t, rec).Code)
	assert.Len(t, store.AuditEntries(), before)

	rec = get(t, s, "/api/views/organizations/export")
	assert.Equal(t, http.StatusOK, rec.Code, "the slot is usable once released")
	assert.Equal(t, 0, s.exports.Status().Active)
}

func TestExportStatus(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) { c.Table.MaxConcurrentExports = 2 })

	got := decode[core.ExportLimiterStatus](t, get(t, s, "/api/exports/status"))
	assert.Equal(t, core.ExportLimiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}, got)

	require.NoError(t, s.exports.Acquire(context.Background()))
	defer s.exports.Release()

	got = decode[core.ExportLimiterStatus](t, get(t, s, "/api/exports/status"))
	assert.Equal(t, core.ExportLimiterStatus{Active: 1, Available: 1, MaxConcurrent: 2}, got)
	assert.Equal(t, got, s.ExportStatus())
}

// ============================================================================
// Mutations
// ============================================================================

func TestCreateInvitation(t *testing.T) {
	s, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/invitations",
		strings.NewReader(`{"organizationId":"`+acmeID+`","email":"New@Acme.io","role":"viewer"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserEmailHeader, "Admin@Console.test")
	rec := do(t, s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	inv := decode[core.Invitation](t, rec)
	assert.Equal(t, "new@acme.io", inv.Email)
	assert.Equal(t, core.InvitePending, inv.Status)
	assert.Equal(t, "admin@console.test", inv.InvitedBy)
	assert.Equal(t, fixedNow.Add(72*time.Hour), inv.ExpiresAt)
	assert.NotContains(t, rec.Body.String(), "token")

	stored, ok := store.Invitation(inv.ID)
	require.True(t, ok)
	assert.NotEmpty(t, stored.Token)

	entries := store.AuditEntries()
	last := entries[len(entries)-1]
	assert.Equal(t, core.ActionInvitationCreate, last.Action)
	assert.Equal(t, "admin@console.test", last.UserEmail)
}

func TestCreateInvitation_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed body", `{"email":`, http.StatusBadRequest, "VAL007"},
		{"unknown field", `{"mail":"x@acme.io"}`, http.StatusBadRequest, "VAL007"},
		{"invalid email", `{"organizationId":"` + acmeID + `","email":"nope","role":"member"}`, http.StatusBadRequest, "VAL001"},
		{"invalid role", `{"organizationId":"` + acmeID + `","email":"a@acme.io","role":"root"}`, http.StatusBadRequest, "VAL002"},
		{"domain not allowed", `{"organizationId":"` + globexID + `","email":"a@acme.io","role":"member"}`, http.StatusBadRequest, "INV003"},
		{"already pending", `{"organizationId":"` + acmeID + `","email":"PAT@acme.io","role":"member"}`, http.StatusConflict, "INV001"},
		{"unknown organization", `{"organizationId":"5f0c1d2e-0000-4000-8000-00000000ffff","email":"a@acme.io","role":"member"}`, http.StatusNotFound, "DB008"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			req := httptest.NewRequest(http.MethodPost, "/api/invitations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := do(t, s, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestRevokeInvitation(t *testing.T) {
	s, store := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/api/invitations/"+pendingID+"/revoke", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.InviteRevoked, decode[core.Invitation](t, rec).Status)

	stored, _ := store.Invitation(pendingID)
	assert.Equal(t, core.InviteRevoked, stored.Status)

	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/invitations/"+pendingID+"/revoke", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INV002", decode[ErrorResponse](t, rec).Code)

	rec = do(t, s, httptest.NewRequest(http.MethodPost, "/api/invitations/not-a-uuid/revoke", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateOrganizationSettings(t *testing.T) {
	s, store := newTestServer(t)

	rec := sendJSON(t, s, http.MethodPut, "/api/organizations/"+acmeID+"/settings", core.OrganizationSettings{
		DisplayName:         "  ACME  ",
		AIMonthlyTokenLimit: 5000,
		AllowedDomains:      []string{"@Acme.io", "acme.io"},
		RequireMFA:          true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	org := decode[core.Organization](t, rec)
	assert.Equal(t, core.OrganizationSettings{
		DisplayName: "ACME", AIMonthlyTokenLimit: 5000, AllowedDomains: []string{"acme.io"}, RequireMFA: true,
	}, org.Settings)

	entries := store.AuditEntries()
	assert.Equal(t, core.ActionOrgSettingsUpdate, entries[len(entries)-1].Action)

	rec = sendJSON(t, s, http.MethodPut, "/api/organizations/"+acmeID+"/settings",
		core.OrganizationSettings{AIMonthlyTokenLimit: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL006", decode[ErrorResponse](t, rec).Code)

	rec = sendJSON(t, s, http.MethodPut, "/api/organizations/5f0c1d2e-0000-4000-8000-00000000ffff/settings",
		core.OrganizationSettings{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Audit and usage
// ============================================================================

func TestAuditLogEntry(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/audit-log/"+auditID)
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[core.AuditEntry](t, rec)
	assert.Equal(t, core.ActionOrgSettingsUpdate, entry.Action)

	rec = get(t, s, "/api/audit-log/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "DB008", decode[ErrorResponse](t, rec).Code)
}

func TestUsageSummary(t *testing.T) {
	s, _ := newTestServer(t)

	type summary struct {
		Total  int                 `json:"total"`
		Models []core.UsageSummary `json:"models"`
	}

	got := decode[summary](t, get(t, s, "/api/usage/summary"))
	assert.Equal(t, 3, got.Total)
	require.Len(t, got.Models, 2)
	assert.Equal(t, "claude", got.Models[0].Model, "ties on cost break by model")
	assert.Equal(t, core.UsageSummary{
		Model: "gpt-4o", Requests: 2, PromptTokens: 120, CompletionTokens: 60, TotalTokens: 180, CostUSD: 0.5,
	}, got.Models[1])

	got = decode[summary](t, get(t, s, "/api/usage/summary?filter[feature]=summary&size=2&page=2"))
	assert.Equal(t, 2, got.Total, "pagination does not narrow the summary")
	require.Len(t, got.Models, 2)
}

// ============================================================================
// Security middleware wiring
// ============================================================================

func TestAPIKeyAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"k-1", "k-2"}
	})

	rec := get(t, s, "/api/views")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH002", decode[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
	req.Header.Set(middleware.APIKeyHeader, "wrong")
	rec = do(t, s, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTH001", decode[ErrorResponse](t, rec).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/views", nil)
	req.Header.Set(middleware.APIKeyHeader, "k-2")
	assert.Equal(t, http.StatusOK, do(t, s, req).Code)

	assert.Equal(t, http.StatusOK, get(t, s, "/").Code, "pages are not behind the API key")
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, ExportLimit: 1}
	})

	assert.Equal(t, http.StatusOK, get(t, s, "/api/views").Code)
	assert.Equal(t, http.StatusOK, get(t, s, "/api/views").Code)

	rec := get(t, s, "/api/views")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	assert.Equal(t, http.StatusOK, do(t, s, req).Code, "limits are per client")
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl := newRateLimiter(1, time.Minute)
	defer rl.stop()
	now := fixedNow
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("a"))

	rl.stop()
	rl.stop()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrUnknownView, http.StatusNotFound},
		{core.ErrInvitationExists, http.StatusConflict},
		{core.ErrInvitationNotPending, http.StatusConflict},
		{core.ErrInvalidInvitation, http.StatusBadRequest},
		{core.ErrInvalidSettings, http.StatusBadRequest},
		{errUnsupportedFormat, http.StatusBadRequest},
		{errInvalidBody, http.StatusBadRequest},
		{core.ErrTooManyExports, http.StatusTooManyRequests},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
