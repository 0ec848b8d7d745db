package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
)

type DashboardHandler struct {
	Feed FeedService
}

func NewDashboardHandler(fd FeedService) *DashboardHandler {
	return &DashboardHandler{Feed: fd}
}

// Client is the client (and admin browse) dashboard the UI polls.
func (h *DashboardHandler) Client(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	d, err := h.Feed.Client(c.UserContext(), actor, filterFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"professionals": toProfessionalList(d.Professionals, actor.Is(models.RoleAdmin)),
			"bookings":      toBookingList(d.Bookings),
		},
	})
}

func (h *DashboardHandler) Professional(c *fiber.Ctx) error {
	d, err := h.Feed.Professional(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}

	pending := 0
	for _, b := range d.Bookings {
		if b.Status == models.BookingPending {
			pending++
		}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"profile":  toProfessionalResponse(d.Profile, false),
			"status":   d.Profile.Status(),
			"bookings": toBookingList(d.Bookings),
			"summary": fiber.Map{
				"pending":      pending,
				"total":        len(d.Bookings),
				"rating":       d.Profile.DisplayRating(),
				"review_count": d.Profile.ReviewCount,
			},
		},
	})
}
