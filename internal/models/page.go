package models

import "math"

// PageRequest is a zero-based page index and a page size.
type PageRequest struct {
	Page int
	Size int
}

// Offset returns the number of items to skip. It saturates at math.MaxInt
// instead of wrapping, and is never negative.
func (p PageRequest) Offset() int {
	if p.Page <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Page > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Page * p.Size
}

// PagedView bundles one page of items with pagination metadata.
type PagedView[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagedView builds a page. A nil items slice is rendered as an empty list.
func NewPagedView[T any](items []T, req PageRequest, total int64) PagedView[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return PagedView[T]{
		Items:      items,
		Page:       req.Page,
		Size:       req.Size,
		Total:      total,
		TotalPages: totalPages,
	}
}
