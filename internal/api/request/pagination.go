package request

import (
	"net/http"
	"strconv"
)

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Cursor string
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParsePagination extracts limit and cursor from query parameters.
func ParsePagination(r *http.Request) Pagination {
	p := Pagination{
		Limit:  DefaultLimit,
		Cursor: r.URL.Query().Get("cursor"),
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			p.Limit = limit
		}
	}

	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	return p
}

// ListParams holds pagination, search, and filter parameters.
type ListParams struct {
	Limit  int
	Cursor string
	Search string
	Status string
}

// ParseListParams extracts list parameters from the query string.
func ParseListParams(r *http.Request) ListParams {
	pg := ParsePagination(r)
	return ListParams{
		Limit:  pg.Limit,
		Cursor: pg.Cursor,
		Search: r.URL.Query().Get("search"),
		Status: r.URL.Query().Get("status"),
	}
}
