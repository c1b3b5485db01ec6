package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seuros/studybuddy/internal/analytics"
)

func parseParams(t *testing.T, rawQuery string) PaginationParams {
	t.Helper()
	var params PaginationParams
	app := fiber.New()
	app.Get("/applications", func(c fiber.Ctx) error {
		params = ParsePaginationParams(c)
		return c.SendStatus(fiber.StatusNoContent)
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/applications?"+rawQuery, nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	return params
}

func TestParsePaginationParams(t *testing.T) {
	tests := []struct {
		query string
		want  PaginationParams
	}{
		{"", PaginationParams{Page: 1, Per: 10, Offset: 0}},
		{"page=2&per=25", PaginationParams{Page: 2, Per: 25, Offset: 25}},
		{"page=3", PaginationParams{Page: 3, Per: 10, Offset: 20}},
		{"page=-1", PaginationParams{Page: 1, Per: 10, Offset: 0}},
		{"page=0&per=0", PaginationParams{Page: 1, Per: 1, Offset: 0}},
		{"per=500", PaginationParams{Page: 1, Per: 100, Offset: 0}},
		{"page=abc&per=xyz", PaginationParams{Page: 1, Per: 10, Offset: 0}},
	}
	for _, tt := range tests {
		t.Run("query "+tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, parseParams(t, tt.query))
		})
	}
}

func TestBuildPaginationMeta(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		total      int64
		totalPages int
		hasMore    bool
	}{
		{"first of three", 1, 25, 3, true},
		{"last page", 3, 25, 3, false},
		{"exact boundary", 1, 10, 1, false},
		{"no applications", 1, 0, 0, false},
		{"beyond the end", 5, 25, 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := PaginationParams{Page: tt.page, Per: 10, Offset: (tt.page - 1) * 10}
			meta := BuildPaginationMeta(params, tt.total)
			assert.Equal(t, PaginationMeta{
				Page:       tt.page,
				Per:        10,
				Total:      tt.total,
				TotalPages: tt.totalPages,
				HasMore:    tt.hasMore,
			}, meta)
		})
	}
}

func TestNewPaginatedResponseWrapsRows(t *testing.T) {
	rows := []analytics.ApplicationRow{{ID: "a1", Grade: "11"}, {ID: "a2", Grade: "9"}}
	resp := NewPaginatedResponse(rows, PaginationParams{Page: 1, Per: 2}, 5)

	assert.Equal(t, rows, resp.Data)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasMore)
}

func TestPageOf(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, pageOf(items, PaginationParams{Page: 1, Per: 2, Offset: 0}))
	assert.Equal(t, []int{5}, pageOf(items, PaginationParams{Page: 3, Per: 2, Offset: 4}))
	assert.Empty(t, pageOf(items, PaginationParams{Page: 4, Per: 2, Offset: 6}))
}
