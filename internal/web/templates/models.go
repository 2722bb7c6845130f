// Package templates renders the console's HTML with templ components.
package templates

// NavItem is one link in the sidebar.
type NavItem struct {
	Label  string
	Href   string
	Active bool
}

// NavGroup is a titled section of the sidebar.
type NavGroup struct {
	Name  string
	Items []NavItem
}

// LayoutParams configures the page shell.
type LayoutParams struct {
	Title string
	Nav   []NavGroup
}

// ViewCard is a dashboard tile linking to a list view.
type ViewCard struct {
	Label       string
	Description string
	Href        string
}

// ViewGroup is a titled row of dashboard tiles.
type ViewGroup struct {
	Name  string
	Cards []ViewCard
}

// HeaderCell is a column header. Href toggles the sort when Sortable.
type HeaderCell struct {
	Label    string
	Href     string
	Sortable bool
	Sorted   bool
	Desc     bool
}

// Row is one rendered table row.
type Row struct {
	Class string
	Href  string
	Cells []string
}

// Choice is one option of a filter select.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// FilterControl is a select bound to filter[ID].
type FilterControl struct {
	ID      string
	Label   string
	Choices []Choice
}

// PageLink is a link to another page or page size.
type PageLink struct {
	Label   string
	Href    string
	Current bool
}

// TableModel is everything DataTable needs, already flattened to text.
type TableModel struct {
	ViewKey  string
	Title    string
	Action   string // form target, the view's page URL
	Search   string
	SortCol  string
	SortDir  string
	PageSize int

	Headers   []HeaderCell
	Rows      []Row
	Filters   []FilterControl
	PageSizes []PageLink

	Total      int
	Page       int
	PageCount  int
	FirstIndex int
	LastIndex  int
	PrevHref   string
	NextHref   string

	ExportCSVHref  string
	ExportXLSXHref string
}
