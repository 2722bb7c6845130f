package table

// PageCount returns the number of pages needed for total rows, never less than 1.
func PageCount(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

// ClampPage returns page limited to [1, pageCount].
func ClampPage(page, pageCount int) int {
	if page < 1 {
		return 1
	}
	if page > pageCount {
		return pageCount
	}
	return page
}

// Paginate returns the slice of rows on page along with the page actually used
// and the page count. Out-of-range pages are clamped rather than rejected, and
// the returned slice shares rows' backing array.
func Paginate[T any](rows []T, page, pageSize int) (pageRows []T, effectivePage, pageCount int) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pageCount = PageCount(len(rows), pageSize)
	effectivePage = ClampPage(page, pageCount)

	start := (effectivePage - 1) * pageSize
	if start > len(rows) {
		start = len(rows)
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end:end], effectivePage, pageCount
}
