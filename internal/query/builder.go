// Package query turns untrusted list parameters into a validated, injection-safe
// filter / sort / pagination specification.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100

	DefaultSortField = "created_at"
)

// sortColumns is the allow-list of sortable fields and the column each one resolves to.
// Only values from this map are ever written into SQL text.
var sortColumns = map[string]string{
	"created_at": "p.created_at",
	"title":      "p.title",
	"author_id":  "p.author_id",
}

// Params are the raw list query parameters as received
type Params struct {
	SortBy   string
	AuthorID string
	Page     string
	PageSize string
}

// Spec is the validated list specification
type Spec struct {
	SortField string
	AuthorID  *int64
	Page      int
	PageSize  int
}

// Build validates raw parameters. It never fails: invalid values fall back to defaults.
func Build(p Params) Spec {
	spec := Spec{
		SortField: resolveSort(p.SortBy),
		Page:      ClampPage(parseInt(p.Page, DefaultPage)),
		PageSize:  ClampPageSize(parseInt(p.PageSize, DefaultPageSize)),
	}

	if raw := strings.TrimSpace(p.AuthorID); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			spec.AuthorID = &id
		}
	}

	return spec
}

// Offset returns the number of rows to skip
func (s Spec) Offset() int {
	return (s.Page - 1) * s.PageSize
}

// SortColumn returns the qualified column for the resolved sort field
func (s Spec) SortColumn() string {
	if col, ok := sortColumns[s.SortField]; ok {
		return col
	}
	return sortColumns[DefaultSortField]
}

// Where renders the WHERE clause and its bound arguments, numbering placeholders from 1
func (s Spec) Where() (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if s.AuthorID != nil {
		args = append(args, *s.AuthorID)
		clauses = append(clauses, fmt.Sprintf("p.author_id = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// OrderBy renders the ORDER BY clause. Sorting is always descending; the id breaks ties.
func (s Spec) OrderBy() string {
	return " ORDER BY " + s.SortColumn() + " DESC, p.id DESC"
}

// Limit renders LIMIT / OFFSET as placeholders continuing after argOffset existing arguments
func (s Spec) Limit(argOffset int) (string, []interface{}) {
	clause := fmt.Sprintf(" LIMIT $%d OFFSET $%d", argOffset+1, argOffset+2)
	return clause, []interface{}{s.PageSize, s.Offset()}
}

// ClampPage treats pages below 1 as the first page and caps absurd page numbers
// so the offset cannot overflow
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > math.MaxInt32 {
		return math.MaxInt32
	}
	return page
}

// ClampPageSize truncates a page size into [1, MaxPageSize]
func ClampPageSize(size int) int {
	if size < 1 {
		return 1
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

func resolveSort(sortBy string) string {
	if _, ok := sortColumns[sortBy]; ok {
		return sortBy
	}
	return DefaultSortField
}

func parseInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
