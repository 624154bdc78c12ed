// Package pagination computes page offsets and envelope metadata.
package pagination

import "github.com/strata-blog-api/internal/query"

// Page is the pagination metadata of a list response
type Page struct {
	TotalCount  int
	PageSize    int
	CurrentPage int
	TotalPages  int
	Offset      int
}

// Paginate computes envelope metadata. page and pageSize are normalized with the
// same clamps the query builder applies. An empty result has zero pages.
func Paginate(totalCount, page, pageSize int) Page {
	page = query.ClampPage(page)
	pageSize = query.ClampPageSize(pageSize)
	if totalCount < 0 {
		totalCount = 0
	}

	return Page{
		TotalCount:  totalCount,
		PageSize:    pageSize,
		CurrentPage: page,
		TotalPages:  TotalPages(totalCount, pageSize),
		Offset:      (page - 1) * pageSize,
	}
}

// TotalPages is ceil(totalCount / pageSize) in integer arithmetic
func TotalPages(totalCount, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	pages := totalCount / pageSize
	if totalCount%pageSize > 0 {
		pages++
	}
	return pages
}
