package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/registry"
)

// CategoryHandler lists the skills offered by live professionals, for the
// search filter dropdown.
type CategoryHandler struct {
	Feed FeedService
}

func NewCategoryHandler(fd FeedService) *CategoryHandler {
	return &CategoryHandler{Feed: fd}
}

func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	pros, err := h.Feed.Public(c.UserContext(), registry.Filter{}, false)
	if err != nil {
		return respondError(c, err)
	}

	seen := map[string]bool{}
	categories := []string{}
	for _, p := range pros {
		for _, s := range p.Skills {
			if !seen[s] {
				seen[s] = true
				categories = append(categories, s)
			}
		}
	}
	sort.Strings(categories)

	return c.JSON(fiber.Map{
		"success": true,
		"data":    categories,
	})
}
