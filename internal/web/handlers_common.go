// Package web provides the HTTP server and handlers for the risk console.
// This file contains shared utilities used across handlers.
package web

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/JonMunkholm/console/internal/core"
	"github.com/JonMunkholm/console/internal/table"
	"github.com/JonMunkholm/console/internal/web/templates"
)

// MaxBodySize caps JSON request bodies (1MB).
const MaxBodySize = 1 << 20

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// filterParam extracts the filter id from a "filter[id]" parameter name.
func filterParam(key string) (string, bool) {
	if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	id := key[len("filter[") : len(key)-1]
	return id, id != ""
}

// parsePageSize accepts only the configured page sizes.
func parsePageSize(r *http.Request, allowed []int, defaultVal int) int {
	size := parseIntParam(r, "size", defaultVal)
	if len(allowed) > 0 && !slices.Contains(allowed, size) {
		return defaultVal
	}
	return size
}

// parseQuery builds the view query from the URL, starting from the
// definition's defaults. An empty filter value means "All"; unknown filters
// are dropped. An explicit empty sort parameter clears the default sort.
func parseQuery[T any](r *http.Request, def table.Definition[T], pageSizes []int) table.Query {
	params := r.URL.Query()
	q := def.NewQuery()

	if search := strings.TrimSpace(params.Get("search")); search != "" {
		q = q.WithSearch(search)
	}

	for key, values := range params {
		id, ok := filterParam(key)
		if !ok || len(values) == 0 || values[0] == "" {
			continue
		}
		if _, known := def.Filters.Get(id); !known {
			continue
		}
		q = q.WithFilter(id, values[0])
	}

	if params.Has("sort") {
		q = q.WithSort(strings.TrimSpace(params.Get("sort")), table.ParseDirection(params.Get("dir")))
	}

	q = q.WithPageSize(parsePageSize(r, pageSizes, def.DefaultPageSize))
	return q.WithPage(parseIntParam(r, "page", 1))
}

// encodeQuery is the inverse of parseQuery. defaultSort decides whether an
// unsorted query needs an explicit empty sort parameter.
func encodeQuery(q table.Query, defaultSort string) url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	for id, value := range q.Filters {
		v.Set("filter["+id+"]", value)
	}
	if q.SortColumn != "" || defaultSort != "" {
		v.Set("sort", q.SortColumn)
		v.Set("dir", string(q.SortDir))
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("size", strconv.Itoa(q.PageSize))
	}
	return v
}

func viewPath(key string) string {
	return "/views/" + url.PathEscape(key)
}

func exportPath(key string) string {
	return "/api/views/" + url.PathEscape(key) + "/export"
}

func withQuery(path string, v url.Values) string {
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

// parseColumnIDs reads the comma-separated columns parameter.
func parseColumnIDs(r *http.Request) []string {
	raw := r.URL.Query().Get("columns")
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// buildTableModel flattens a computed view into what templates.DataTable
// renders. Every link carries the full query so the page can be reloaded or
// shared.
func buildTableModel[T any](info core.ViewInfo, def table.Definition[T], view table.View[T], pageSizes []int) templates.TableModel {
	q := view.Query
	path := viewPath(info.Key)
	link := func(q table.Query) string {
		return withQuery(path, encodeQuery(q, def.DefaultSort))
	}

	m := templates.TableModel{
		ViewKey:    info.Key,
		Title:      info.Label,
		Action:     path,
		Search:     q.Search,
		SortCol:    q.SortColumn,
		SortDir:    string(q.SortDir),
		PageSize:   view.PageSize,
		Total:      view.Total,
		Page:       view.Page,
		PageCount:  view.PageCount,
		FirstIndex: view.FirstIndex(),
		LastIndex:  view.LastIndex(),
	}

	for _, col := range def.Columns.All() {
		h := templates.HeaderCell{
			Label:    col.Label,
			Sortable: col.Sortable(),
			Sorted:   q.SortColumn == col.ID,
			Desc:     q.SortColumn == col.ID && q.SortDir == table.Desc,
		}
		if h.Sortable {
			h.Href = link(q.ToggleSort(col.ID))
		}
		m.Headers = append(m.Headers, h)
	}

	for _, rec := range view.PageRows {
		row := templates.Row{Cells: make([]string, 0, def.Columns.Len())}
		for _, col := range def.Columns.All() {
			row.Cells = append(row.Cells, col.Text(rec))
		}
		if def.RowClass != nil {
			row.Class = def.RowClass(rec)
		}
		if def.RowHref != nil {
			row.Href = def.RowHref(rec)
		}
		m.Rows = append(m.Rows, row)
	}

	for _, f := range def.Filters.All() {
		selected, active := q.Selected(f.ID)
		fc := templates.FilterControl{ID: f.ID, Label: f.Label}
		for _, c := range f.Choices() {
			fc.Choices = append(fc.Choices, templates.Choice{
				Value:    c.Value,
				Label:    c.Label,
				Selected: (c.All && !active) || (!c.All && active && c.Value == selected),
			})
		}
		m.Filters = append(m.Filters, fc)
	}

	for _, size := range pageSizes {
		m.PageSizes = append(m.PageSizes, templates.PageLink{
			Label:   strconv.Itoa(size),
			Href:    link(q.WithPageSize(size)),
			Current: size == view.PageSize,
		})
	}

	if view.HasPrev() {
		m.PrevHref = link(q.PrevPage())
	}
	if view.HasNext() {
		m.NextHref = link(q.NextPage())
	}

	export := encodeQuery(q, def.DefaultSort)
	export.Set("format", "csv")
	m.ExportCSVHref = withQuery(exportPath(info.Key), export)
	export.Set("format", "xlsx")
	m.ExportXLSXHref = withQuery(exportPath(info.Key), export)
	return m
}

// buildNav lists every registered view, grouped, marking the active one.
func buildNav(active string) []templates.NavGroup {
	var nav []templates.NavGroup
	for _, group := range core.Groups() {
		g := templates.NavGroup{Name: group}
		for _, info := range core.ByGroup(group) {
			g.Items = append(g.Items, templates.NavItem{
				Label:  info.Label,
				Href:   viewPath(info.Key),
				Active: info.Key == active,
			})
		}
		nav = append(nav, g)
	}
	return nav
}
