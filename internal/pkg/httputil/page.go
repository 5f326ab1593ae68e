package httputil

import (
	"net/http"
	"strconv"
)

// Page is a parsed page request: 1-based page number, page size and the
// matching row offset.
type Page struct {
	Number int
	Limit  int
	Offset int
}

// ParsePage reads ?page= and ?limit=. Missing or invalid values fall back to
// page 1 and defaultLimit; limit is capped at maxLimit.
func ParsePage(r *http.Request, defaultLimit, maxLimit int) Page {
	q := r.URL.Query()
	number, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	return Page{Number: number, Limit: limit, Offset: (number - 1) * limit}
}

// PageMeta describes where a page sits in the full result set.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// PagedResponse is the success envelope for list endpoints.
type PagedResponse struct {
	Success    bool     `json:"success"`
	Data       any      `json:"data"`
	Pagination PageMeta `json:"pagination"`
}

// Meta computes pagination metadata for total rows. At least one page is
// always reported.
func (p Page) Meta(total int64) PageMeta {
	pages := 1
	if p.Limit > 0 && total > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return PageMeta{
		Page:       p.Number,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasMore:    p.Number < pages,
	}
}

// Paged writes a 200 list response with pagination metadata.
func Paged(w http.ResponseWriter, data any, p Page, total int64) {
	JSON(w, http.StatusOK, PagedResponse{Success: true, Data: data, Pagination: p.Meta(total)})
}
