package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/console/internal/core"
	"github.com/JonMunkholm/console/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orgDefinition() table.Definition[core.Organization] {
	return core.NewOrganizationsView(core.ViewOptions{PageSize: 25, Now: func() time.Time { return fixedNow }})
}

func TestParseQuery(t *testing.T) {
	def := orgDefinition()
	sizes := []int{10, 25, 50}

	req := httptest.NewRequest(http.MethodGet,
		"/views/organizations?search=+acme+&filter[plan]=team&filter[status]=&filter[bogus]=x&sort=members&dir=desc&page=3&size=50", nil)
	q := parseQuery(req, def, sizes)

	assert.Equal(t, "acme", q.Search)
	assert.Equal(t, map[string]string{"plan": "team"}, q.Filters)
	assert.Equal(t, "members", q.SortColumn)
	assert.Equal(t, table.Desc, q.SortDir)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 50, q.PageSize)

	q = parseQuery(httptest.NewRequest(http.MethodGet, "/views/organizations", nil), def, sizes)
	assert.Equal(t, def.NewQuery(), q, "no parameters yields the definition's defaults")

	q = parseQuery(httptest.NewRequest(http.MethodGet, "/views/organizations?sort=", nil), def, sizes)
	assert.Empty(t, q.SortColumn, "an explicit empty sort clears the default")
}

func TestEncodeQuery_RoundTrip(t *testing.T) {
	def := orgDefinition()
	sizes := []int{10, 25}

	queries := []table.Query{
		def.NewQuery(),
		def.NewQuery().WithSearch("a b&c").WithFilter("mfa", "required").WithPage(2),
		def.NewQuery().WithSort("", table.Asc).WithPageSize(10),
		def.NewQuery().WithSort("plan", table.Desc),
	}

	for _, q := range queries {
		target := withQuery("/views/organizations", encodeQuery(q, def.DefaultSort))
		got := parseQuery(httptest.NewRequest(http.MethodGet, target, nil), def, sizes)
		assert.Equal(t, q.Search, got.Search, target)
		assert.Equal(t, len(q.Filters), len(got.Filters), target)
		assert.Equal(t, q.SortColumn, got.SortColumn, target)
		assert.Equal(t, q.Page, got.Page, target)
		assert.Equal(t, q.PageSize, got.PageSize, target)
	}
}

func TestBuildTableModel(t *testing.T) {
	def := orgDefinition()
	records := []core.Organization{
		{ID: "1", Name: "Beta", Plan: core.PlanFree, Status: core.OrgActive},
		{ID: "2", Name: "Alpha", Plan: core.PlanTeam, Status: core.OrgTrial},
		{ID: "3", Name: "Gamma", Plan: core.PlanEnterprise, Status: core.OrgActive},
	}
	view := table.ComputeView(records, def, def.NewQuery().WithFilter("status", "active").WithPageSize(1))
	info, ok := core.Get(core.ViewOrganizations)
	require.True(t, ok)

	m := buildTableModel(info, def, view, []int{1, 25})

	assert.Equal(t, "/views/organizations", m.Action)
	assert.Equal(t, 2, m.Total)
	assert.Equal(t, 2, m.PageCount)
	require.Len(t, m.Rows, 1)
	assert.Equal(t, "Beta", m.Rows[0].Cells[0])
	assert.Equal(t, "Free", m.Rows[0].Cells[2], "cells use the renderer")
	assert.Equal(t, "status-active", m.Rows[0].Class)

	name := m.Headers[0]
	assert.True(t, name.Sorted)
	assert.False(t, name.Desc)
	assert.Contains(t, name.Href, "dir=desc", "clicking the sorted column flips it")

	assert.Empty(t, m.PrevHref)
	assert.Contains(t, m.NextHref, "page=2")
	assert.Contains(t, m.NextHref, "filter%5Bstatus%5D=active")
	assert.Contains(t, m.ExportXLSXHref, "format=xlsx")

	var status []bool
	for _, f := range m.Filters {
		if f.ID != "status" {
			continue
		}
		for _, c := range f.Choices {
			status = append(status, c.Selected)
		}
	}
	assert.Equal(t, []bool{false, true, false, false}, status, "All, Active, Trial, Suspended")

	require.Len(t, m.PageSizes, 2)
	assert.True(t, m.PageSizes[0].Current)
}
