package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/console/internal/core"
	"github.com/JonMunkholm/console/internal/table"
	"github.com/JonMunkholm/console/internal/web/templates"
)

// Export formats and scopes.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ScopeAll  = "all"
	ScopePage = "page"
)

// viewHandler serves one registered list view. viewSource implements it for
// each record type so the router can hold views of different types in one map.
type viewHandler interface {
	Info() core.ViewInfo
	servePage(w http.ResponseWriter, r *http.Request)
	serveJSON(w http.ResponseWriter, r *http.Request)
	serveExport(w http.ResponseWriter, r *http.Request)
}

// viewSource binds a record loader to the view definition built over it.
type viewSource[T any] struct {
	s      *Server
	info   core.ViewInfo
	load   func(context.Context) ([]T, error)
	define func(core.ViewOptions, []T) table.Definition[T]
}

func newViewSource[T any](s *Server, key string, load func(context.Context) ([]T, error), define func(core.ViewOptions, []T) table.Definition[T]) *viewSource[T] {
	info, ok := core.Get(key)
	if !ok {
		panic(fmt.Sprintf("web: view %q is not registered", key))
	}
	return &viewSource[T]{s: s, info: info, load: load, define: define}
}

func (v *viewSource[T]) Info() core.ViewInfo { return v.info }

// compute loads the records and runs the request's query over them.
func (v *viewSource[T]) compute(r *http.Request) (table.Definition[T], table.View[T], error) {
	records, err := v.load(r.Context())
	if err != nil {
		return table.Definition[T]{}, table.View[T]{}, err
	}
	def := v.define(v.s.viewOptions(), records)
	q := parseQuery(r, def, v.s.cfg.Table.PageSizes)
	return def, table.ComputeView(records, def, q), nil
}

func (v *viewSource[T]) servePage(w http.ResponseWriter, r *http.Request) {
	def, view, err := v.compute(r)
	if err != nil {
		v.s.respondError(w, r, err, 0)
		return
	}

	model := buildTableModel(v.info, def, view, v.s.cfg.Table.PageSizes)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		templates.DataTable(model).Render(r.Context(), w)
		return
	}
	layout := templates.LayoutParams{Title: v.info.Label, Nav: buildNav(v.info.Key)}
	templates.ViewPage(layout, model).Render(r.Context(), w)
}

// ColumnResponse describes one column of a JSON view page.
type ColumnResponse struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Sortable bool   `json:"sortable"`
}

// QueryResponse echoes the normalized query of a JSON view page.
type QueryResponse struct {
	Search  string            `json:"search,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	Sort    string            `json:"sort,omitempty"`
	Dir     string            `json:"dir"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
}

// ViewResponse is the JSON form of one computed page. Row values are keyed by
// column id.
type ViewResponse struct {
	View      string           `json:"view"`
	Columns   []ColumnResponse `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	Total     int              `json:"total"`
	Page      int              `json:"page"`
	PageCount int              `json:"pageCount"`
	PageSize  int              `json:"pageSize"`
	Query     QueryResponse    `json:"query"`
}

func (v *viewSource[T]) serveJSON(w http.ResponseWriter, r *http.Request) {
	def, view, err := v.compute(r)
	if err != nil {
		v.s.respondError(w, r, err, 0)
		return
	}

	cols := def.Columns.All()
	resp := ViewResponse{
		View:      v.info.Key,
		Columns:   make([]ColumnResponse, len(cols)),
		Rows:      make([]map[string]any, len(view.PageRows)),
		Total:     view.Total,
		Page:      view.Page,
		PageCount: view.PageCount,
		PageSize:  view.PageSize,
		Query: QueryResponse{
			Search:  view.Query.Search,
			Filters: view.Query.Filters,
			Sort:    view.Query.SortColumn,
			Dir:     string(view.Query.SortDir),
			Page:    view.Query.Page,
			Size:    view.Query.PageSize,
		},
	}
	for i, col := range cols {
		resp.Columns[i] = ColumnResponse{ID: col.ID, Label: col.Label, Sortable: col.Sortable()}
	}
	for i, rec := range view.PageRows {
		row := make(map[string]any, len(cols))
		for _, col := range cols {
			row[col.ID] = col.Value(rec)
		}
		resp.Rows[i] = row
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// serveExport writes the processed rows as CSV or XLSX. scope=page limits the
// export to the current page; columns=a,b selects and orders columns.
func (v *viewSource[T]) serveExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		v.s.respondError(w, r, fmt.Errorf("%w: %q", errUnsupportedFormat, format), 0)
		return
	}

	if err := v.s.exports.Acquire(r.Context()); err != nil {
		if errors.Is(err, core.ErrTooManyExports) {
			w.Header().Set("Retry-After", "5")
		}
		v.s.respondError(w, r, err, 0)
		return
	}
	defer v.s.exports.Release()

	def, view, err := v.compute(r)
	if err != nil {
		v.s.respondError(w, r, err, 0)
		return
	}

	rows, scope := view.Rows, ScopeAll
	if r.URL.Query().Get("scope") == ScopePage {
		rows, scope = view.PageRows, ScopePage
	}
	opts := table.ExportOptions{ColumnIDs: parseColumnIDs(r)}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case FormatXLSX:
		data, err = table.ExportXLSX(rows, def.Columns, v.info.Label, opts)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		data, err = table.ExportCSV(rows, def.Columns, opts)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		v.s.respondError(w, r, fmt.Errorf("export %s: %w", v.info.Key, err), http.StatusInternalServerError)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	if _, err := v.s.service.Audit().LogExport(ctx, core.ExportAuditEntry{
		ViewKey: v.info.Key,
		Format:  format,
		Scope:   scope,
		Rows:    len(rows),
		Search:  view.Query.Search,
	}); err != nil {
		v.s.respondError(w, r, fmt.Errorf("audit export: %w", err), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", v.info.Key, v.s.service.Now().UTC().Format("20060102_150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Write(data)
}
