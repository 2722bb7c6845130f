// Package table provides the in-memory query engine behind every list view in
// the console: audit logs, invitations, organizations and AI usage.
//
// The engine is a pure pipeline over an already-fetched slice of records:
//
//	records -> Search -> ApplyFilters -> Sort -> Paginate -> View
//
// A [Definition] declares the columns and filters for one record type. A
// [Query] carries the user-driven state (search term, filter selections, sort,
// page). [ComputeView] runs the pipeline and returns a [View]; nothing is cached
// between calls and no stage performs I/O.
//
// # Columns
//
// Columns read values either through a key lookup on records that implement
// [Fielder] (for example [Row]) or through an accessor function:
//
//	cols, err := table.NewColumns(
//	    table.Column[Invitation]{ID: "email", Label: "Email", Accessor: func(i Invitation) any { return i.Email }},
//	    table.Column[Invitation]{ID: "status", Label: "Status", Accessor: statusOf, Compare: byStatusRank},
//	)
//
// A column that sets both or neither is rejected with [ErrInvalidColumn].
//
// # Filters
//
// A filter with no selection in the query is inactive. The "All" choice shown in
// the UI is modelled by [Choice.All] rather than a magic option value, so a real
// option named "all" never collides with it.
//
// # Export
//
// [WriteCSV] quotes every field and doubles embedded quotes (RFC 4180), so
// commas, quotes and newlines inside values survive a round trip through any
// standard CSV reader. [ExportXLSX] writes the same columns to a workbook.
package table
