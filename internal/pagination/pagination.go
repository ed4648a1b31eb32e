// Package pagination parses page/limit query parameters and builds the
// pagination block of list responses.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params are 1-based page and page size.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Meta is the pagination block of a list response.
type Meta struct {
	CurrentPage  int  `json:"current_page"`
	PerPage      int  `json:"per_page"`
	TotalPages   int  `json:"total_pages"`
	TotalRecords int  `json:"total_records"`
	HasNext      bool `json:"has_next"`
	HasPrevious  bool `json:"has_previous"`
}

// ParseParams reads ?page= and ?limit=. Invalid values fall back to the
// defaults and limit is capped at MaxLimit.
func ParseParams(r *http.Request) Params {
	q := r.URL.Query()
	p := Params{
		Page:  positiveInt(q.Get("page"), DefaultPage),
		Limit: positiveInt(q.Get("limit"), DefaultLimit),
	}
	p.Validate()
	return p
}

func positiveInt(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return def
}

// Validate clamps the parameters into range.
func (p *Params) Validate() {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
}

// CalculateOffset returns the SQL OFFSET for the page.
func (p *Params) CalculateOffset() int {
	return (p.Page - 1) * p.Limit
}

// Window returns the [start, end) bounds of the page within total items,
// for slicing in-memory results.
func (p *Params) Window(total int) (int, int) {
	start := p.CalculateOffset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}

// CalculateMeta builds the pagination block for totalRecords items.
func (p *Params) CalculateMeta(totalRecords int) Meta {
	totalPages := (totalRecords + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}

	return Meta{
		CurrentPage:  p.Page,
		PerPage:      p.Limit,
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		HasNext:      p.Page < totalPages,
		HasPrevious:  p.Page > 1,
	}
}
