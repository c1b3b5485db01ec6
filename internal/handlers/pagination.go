package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// PaginationParams holds pagination query parameters
type PaginationParams struct {
	Page   int `json:"page"` // 1-indexed page number (default: 1)
	Per    int `json:"per"`  // Items per page (default: 10, max: 100)
	Offset int `json:"-"`
}

// PaginationMeta contains pagination metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	Per        int   `json:"per"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// PaginatedResponse wraps any list response with pagination metadata
type PaginatedResponse struct {
	Data       any            `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// ParsePaginationParams extracts and clamps pagination from the query string
func ParsePaginationParams(c fiber.Ctx) PaginationParams {
	page := max(fiber.Query(c, "page", 1), 1)
	per := min(max(fiber.Query(c, "per", 10), 1), 100)
	return PaginationParams{
		Page:   page,
		Per:    per,
		Offset: (page - 1) * per,
	}
}

// BuildPaginationMeta creates pagination metadata from query results
func BuildPaginationMeta(params PaginationParams, total int64) PaginationMeta {
	var totalPages int
	if total > 0 && params.Per > 0 {
		totalPages = int((total + int64(params.Per) - 1) / int64(params.Per))
	}
	return PaginationMeta{
		Page:       params.Page,
		Per:        params.Per,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    params.Page < totalPages,
	}
}

// NewPaginatedResponse wraps data with pagination metadata
func NewPaginatedResponse(data any, params PaginationParams, total int64) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Pagination: BuildPaginationMeta(params, total),
	}
}

// pageOf returns the window of items the params select.
func pageOf[T any](items []T, params PaginationParams) []T {
	if params.Offset >= len(items) {
		return []T{}
	}
	return items[params.Offset:min(params.Offset+params.Per, len(items))]
}
