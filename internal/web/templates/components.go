package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// HTMXScript is the script tag source; the CSP in the web package allows it.
const HTMXScript = "https://unpkg.com/htmx.org@2.0.4"

// TableTarget is the element id DataTable renders into and HTMX swaps.
const TableTarget = "view-table"

// writer accumulates the first write error so components read linearly.
type writer struct {
	w   io.Writer
	err error
}

func (h *writer) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *writer) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

// text writes s HTML-escaped.
func (h *writer) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes name="value" with value escaped.
func (h *writer) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// href writes a sanitized href attribute.
func (h *writer) href(url string) {
	h.attr("href", string(templ.URL(url)))
}

func (h *writer) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// Layout wraps body in the page shell with the sidebar.
func Layout(p LayoutParams, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>")
		h.text(p.Title)
		h.raw(" · Risk Console</title>")
		h.raw(`<script`)
		h.attr("src", HTMXScript)
		h.raw(`></script></head><body hx-boost="true"><div class="console">`)

		h.raw(`<nav class="sidebar"><a class="brand" href="/">Risk Console</a>`)
		for _, g := range p.Nav {
			h.raw(`<div class="nav-group"><h3>`)
			h.text(g.Name)
			h.raw("</h3><ul>")
			for _, item := range g.Items {
				h.raw("<li")
				if item.Active {
					h.attr("class", "active")
				}
				h.raw("><a")
				h.href(item.Href)
				h.raw(">")
				h.text(item.Label)
				h.raw("</a></li>")
			}
			h.raw("</ul></div>")
		}
		h.raw(`</nav><main class="content">`)
		h.render(ctx, body)
		h.raw("</main></div></body></html>")
		return h.err
	})
}

// Dashboard renders the view cards grouped by section.
func Dashboard(p LayoutParams, groups []ViewGroup) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{w: w}
		h.raw("<h1>Dashboard</h1>")
		for _, g := range groups {
			h.raw(`<section class="view-group"><h2>`)
			h.text(g.Name)
			h.raw(`</h2><div class="cards">`)
			for _, c := range g.Cards {
				h.raw(`<a class="card"`)
				h.href(c.Href)
				h.raw("><h3>")
				h.text(c.Label)
				h.raw("</h3><p>")
				h.text(c.Description)
				h.raw("</p></a>")
			}
			h.raw("</div></section>")
		}
		return h.err
	})
	return Layout(p, body)
}

// ViewPage renders a full list view page.
func ViewPage(p LayoutParams, t TableModel) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{w: w}
		h.raw("<h1>")
		h.text(t.Title)
		h.raw(`</h1><div class="toolbar">`)
		h.raw(`<a class="btn"`)
		h.href(t.ExportCSVHref)
		h.raw(` hx-boost="false">Export CSV</a> <a class="btn"`)
		h.href(t.ExportXLSXHref)
		h.raw(` hx-boost="false">Export Excel</a></div>`)
		h.render(ctx, DataTable(t))
		return h.err
	})
	return Layout(p, body)
}

// DataTable renders the filter form, the table and the pager. HTMX requests
// receive only this fragment.
func DataTable(t TableModel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{w: w}
		h.raw("<div")
		h.attr("id", TableTarget)
		h.raw(">")

		h.raw(`<form class="filters"`)
		h.attr("action", t.Action)
		h.attr("hx-get", t.Action)
		h.attr("hx-target", "#"+TableTarget)
		h.attr("hx-swap", "outerHTML")
		h.attr("hx-push-url", "true")
		h.attr("hx-trigger", "change, keyup changed delay:300ms from:input[name=search]")
		h.raw(`><input type="search" name="search" placeholder="Search"`)
		h.attr("value", t.Search)
		h.raw(">")
		for _, f := range t.Filters {
			h.raw("<label>")
			h.text(f.Label)
			h.raw(" <select")
			h.attr("name", "filter["+f.ID+"]")
			h.raw(">")
			for _, c := range f.Choices {
				h.raw("<option")
				h.attr("value", c.Value)
				if c.Selected {
					h.raw(" selected")
				}
				h.raw(">")
				h.text(c.Label)
				h.raw("</option>")
			}
			h.raw("</select></label>")
		}
		// An empty sort value keeps an unsorted view unsorted.
		h.raw(`<input type="hidden" name="sort"`)
		h.attr("value", t.SortCol)
		h.raw(`><input type="hidden" name="dir"`)
		h.attr("value", t.SortDir)
		h.raw(">")
		h.raw(`<input type="hidden" name="size"`)
		h.attr("value", strconv.Itoa(t.PageSize))
		h.raw("></form>")

		h.raw(`<table class="data-table"><thead><tr>`)
		for _, c := range t.Headers {
			h.raw("<th")
			if c.Sorted {
				if c.Desc {
					h.attr("aria-sort", "descending")
				} else {
					h.attr("aria-sort", "ascending")
				}
			}
			h.raw(">")
			if c.Sortable {
				h.raw("<a")
				h.href(c.Href)
				h.attr("hx-get", c.Href)
				h.attr("hx-target", "#"+TableTarget)
				h.attr("hx-swap", "outerHTML")
				h.attr("hx-push-url", "true")
				h.raw(">")
				h.text(c.Label)
				if c.Sorted {
					if c.Desc {
						h.raw(" ▼")
					} else {
						h.raw(" ▲")
					}
				}
				h.raw("</a>")
			} else {
				h.text(c.Label)
			}
			h.raw("</th>")
		}
		h.raw("</tr></thead><tbody>")
		if len(t.Rows) == 0 {
			h.rawf(`<tr class="empty"><td colspan="%d">No matching records</td></tr>`, max(len(t.Headers), 1))
		}
		for _, row := range t.Rows {
			h.raw("<tr")
			if row.Class != "" {
				h.attr("class", row.Class)
			}
			if row.Href != "" {
				h.attr("data-href", row.Href)
			}
			h.raw(">")
			for _, cell := range row.Cells {
				h.raw("<td>")
				h.text(cell)
				h.raw("</td>")
			}
			h.raw("</tr>")
		}
		h.raw("</tbody></table>")

		h.raw(`<div class="pager"><span class="summary">`)
		if t.Total == 0 {
			h.raw("0 records")
		} else {
			h.rawf("%d–%d of %d", t.FirstIndex, t.LastIndex, t.Total)
		}
		h.raw("</span>")
		pagerLink(h, "Previous", t.PrevHref)
		h.rawf(`<span class="page">Page %d of %d</span>`, t.Page, t.PageCount)
		pagerLink(h, "Next", t.NextHref)
		h.raw(`<span class="sizes">`)
		for _, s := range t.PageSizes {
			if s.Current {
				h.raw("<strong>")
				h.text(s.Label)
				h.raw("</strong> ")
				continue
			}
			pagerLink(h, s.Label, s.Href)
		}
		h.raw("</span></div></div>")
		return h.err
	})
}

func pagerLink(h *writer, label, href string) {
	if href == "" {
		h.raw(`<span class="disabled">`)
		h.text(label)
		h.raw("</span> ")
		return
	}
	h.raw("<a")
	h.href(href)
	h.attr("hx-get", href)
	h.attr("hx-target", "#"+TableTarget)
	h.attr("hx-swap", "outerHTML")
	h.attr("hx-push-url", "true")
	h.raw(">")
	h.text(label)
	h.raw("</a> ")
}

// ErrorAlert renders an error message fragment for HTMX swaps.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{w: w}
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(message)
		h.raw("</strong>")
		if action != "" {
			h.raw("<p>")
			h.text(action)
			h.raw("</p>")
		}
		if code != "" {
			h.raw(`<small class="code">Code: `)
			h.text(code)
			h.raw("</small>")
		}
		h.raw("</div>")
		return h.err
	})
}
