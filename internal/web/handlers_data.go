package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/console/internal/core"
	"github.com/JonMunkholm/console/internal/table"
	"github.com/JonMunkholm/console/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// handleDashboard renders the view cards grouped by section.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var groups []templates.ViewGroup
	for _, group := range core.Groups() {
		g := templates.ViewGroup{Name: group}
		for _, info := range core.ByGroup(group) {
			if _, ok := s.views[info.Key]; !ok {
				continue
			}
			g.Cards = append(g.Cards, templates.ViewCard{
				Label:       info.Label,
				Description: info.Description,
				Href:        viewPath(info.Key),
			})
		}
		if len(g.Cards) > 0 {
			groups = append(groups, g)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	layout := templates.LayoutParams{Title: "Dashboard", Nav: buildNav("")}
	templates.Dashboard(layout, groups).Render(r.Context(), w)
}

// handleListViews returns the registered views as JSON.
func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	infos := make([]core.ViewInfo, 0, len(s.views))
	for _, info := range core.All() {
		if _, ok := s.views[info.Key]; ok {
			infos = append(infos, info)
		}
	}
	writeJSON(w, r, http.StatusOK, infos)
}

// lookupView resolves the {view} URL parameter.
func (s *Server) lookupView(w http.ResponseWriter, r *http.Request) (viewHandler, bool) {
	key := chi.URLParam(r, "view")
	v, ok := s.views[key]
	if !ok {
		s.respondError(w, r, fmt.Errorf("view %q: %w", key, core.ErrUnknownView), 0)
		return nil, false
	}
	return v, true
}

// handleViewPage renders a list view, or only its table for HTMX requests.
func (s *Server) handleViewPage(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.lookupView(w, r); ok {
		v.servePage(w, r)
	}
}

// handleViewJSON returns one page of a list view as JSON.
func (s *Server) handleViewJSON(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.lookupView(w, r); ok {
		v.serveJSON(w, r)
	}
}

// handleViewExport downloads a list view as CSV or XLSX.
func (s *Server) handleViewExport(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.lookupView(w, r); ok {
		v.serveExport(w, r)
	}
}

// handleAuditLogEntry returns a single audit entry.
func (s *Server) handleAuditLogEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := s.service.GetAuditEntry(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}

// handleExportStatus returns the export limiter occupancy.
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.ExportStatus())
}

// handleUsageSummary totals usage per model over the rows the usage view's
// query selects, ignoring pagination.
func (s *Server) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListUsage(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	def := core.NewUsageView(s.viewOptions(), records)
	view := table.ComputeView(records, def, parseQuery(r, def, s.cfg.Table.PageSizes))

	writeJSON(w, r, http.StatusOK, map[string]any{
		"total":  view.Total,
		"models": core.SummarizeUsage(view.Rows),
	})
}
