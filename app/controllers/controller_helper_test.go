package controllers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()

	var offset, limit int
	app.Get("/test", func(c *fiber.Ctx) error {
		offset, limit = parsePagination(c)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		url        string
		wantOffset int
		wantLimit  int
	}{
		{url: "/test", wantOffset: 0, wantLimit: 20},
		{url: "/test?page=3&page_size=10", wantOffset: 20, wantLimit: 10},
		{url: "/test?page=0&page_size=500", wantOffset: 0, wantLimit: 20},
		{url: "/test?page=abc&page_size=xyz", wantOffset: 0, wantLimit: 20},
	}

	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.url, nil))
		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, tt.wantOffset, offset, tt.url)
		assert.Equal(t, tt.wantLimit, limit, tt.url)
	}
}
