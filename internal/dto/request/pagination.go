package request

import "math"

// DefaultPerPage matches the size of the comment list on a movie page
const DefaultPerPage = 50

type PaginatedRequest struct {
	Page    int `json:"page" validate:"min=1"`
	PerPage int `json:"per_page" validate:"min=1,max=100"`
}

func (p PaginatedRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	limit := p.Limit()
	// Saturate instead of wrapping; an offset past the end is just an empty page
	if p.Page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (p.Page - 1) * limit
}

func (p PaginatedRequest) Limit() int {
	if p.PerPage < 1 {
		return DefaultPerPage
	}
	if p.PerPage > 100 {
		return 100
	}
	return p.PerPage
}
