// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows in a paged admin list.
const PageSize = 50

// MaxPageSize bounds ?limit=.
const MaxPageSize = 500

// Params is a 1-based window over a list.
type Params struct {
	Start int
	Limit int
}

// ParseStart extracts the human-friendly "start" query parameter (1-based index).
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	return positiveParam(r, "start", 1)
}

// ParseLimit extracts ?limit=, falling back to def and capping at MaxPageSize.
func ParseLimit(r *http.Request, def int) int {
	n := positiveParam(r, "limit", def)
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Parse reads ?start= and ?limit= with PageSize as the default limit.
func Parse(r *http.Request) Params {
	return Params{Start: ParseStart(r), Limit: ParseLimit(r, PageSize)}
}

func positiveParam(r *http.Request, name string, def int) int {
	s := query.Get(r, name)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Range holds computed display range values for a paginated list.
type Range struct {
	Start     int `json:"start"`      // 1-based start index (0 if no results)
	End       int `json:"end"`        // 1-based end index (0 if no results)
	Total     int `json:"total"`      // rows before paging
	PrevStart int `json:"prev_start"` // start value for previous page link
	NextStart int `json:"next_start"` // start value for next page link (0 on the last page)
}

// Page is the JSON envelope of a paged list.
type Page[T any] struct {
	Items []T `json:"items"`
	Range
}

// Slice returns the window p over rows. Items is never nil.
func Slice[T any](rows []T, p Params) Page[T] {
	if p.Limit < 1 {
		p.Limit = PageSize
	}
	if p.Start < 1 {
		p.Start = 1
	}
	total := len(rows)
	from := p.Start - 1
	if from > total {
		from = total
	}
	to := from + p.Limit
	if to > total {
		to = total
	}

	items := make([]T, to-from)
	copy(items, rows[from:to])

	return Page[T]{Items: items, Range: ComputeRange(p.Start, len(items), total, p.Limit)}
}

// ComputeRange calculates display range values given the current start
// index, number of items shown, list total and page size.
func ComputeRange(start, shown, total, pageSize int) Range {
	if shown == 0 {
		return Range{Start: 0, End: 0, Total: total, PrevStart: 1, NextStart: 0}
	}

	prevStart := start - pageSize
	if prevStart < 1 {
		prevStart = 1
	}
	next := start + shown
	if next > total {
		next = 0
	}

	return Range{
		Start:     start,
		End:       start + shown - 1,
		Total:     total,
		PrevStart: prevStart,
		NextStart: next,
	}
}
