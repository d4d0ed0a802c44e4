package pagination

import "math"

// Window is a 1-based page request.
type Window struct {
	Page     int `form:"page,default=1" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// MaxPage is the largest page whose end offset still fits in an int.
func MaxPage(pageSize int) int {
	if pageSize <= 0 {
		return math.MaxInt
	}
	return math.MaxInt / pageSize
}

// Offset returns the zero-based index of the first row of the page. Pages
// beyond MaxPage saturate instead of wrapping negative.
func (w Window) Offset() int {
	if w.Page < 1 || w.PageSize <= 0 {
		return 0
	}
	if w.Page > MaxPage(w.PageSize) {
		return math.MaxInt - w.PageSize
	}
	return (w.Page - 1) * w.PageSize
}

// Bounds returns the [start, end) slice indexes of the page inside a list
// of total items. Pages past the end yield an empty range.
func (w Window) Bounds(total int) (int, int) {
	start := w.Offset()
	if start > total {
		start = total
	}
	end := start + max(w.PageSize, 0)
	if end > total {
		end = total
	}
	return start, end
}

// Slice returns the page of items described by w.
func Slice[T any](items []T, w Window) []T {
	start, end := w.Bounds(len(items))
	return items[start:end]
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// PageInfo is serialized next to every page of results.
type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

func BuildPageInfo(w Window, total int64) PageInfo {
	pages := TotalPages(total, w.PageSize)
	return PageInfo{
		Page:       w.Page,
		PageSize:   w.PageSize,
		TotalCount: total,
		TotalPages: pages,
		HasMore:    w.Page < pages,
	}
}
