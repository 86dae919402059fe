package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// parsePagination reads page/page_size query params with sane bounds.
func parsePagination(c *fiber.Ctx) (offset, limit int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.Query("page_size", "20"))
	if err != nil || size < 1 || size > 100 {
		size = 20
	}
	return (page - 1) * size, size
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
