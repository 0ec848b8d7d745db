package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
)

type BookingService interface {
	Create(ctx context.Context, actor authz.Actor, professionalID uuid.UUID) (*models.Booking, error)
	Resolve(ctx context.Context, actor authz.Actor, bookingID uuid.UUID, status string) (*models.Booking, error)
	Rate(ctx context.Context, actor authz.Actor, bookingID uuid.UUID, value int) (*models.Booking, error)
	Get(ctx context.Context, actor authz.Actor, bookingID uuid.UUID) (*models.Booking, error)
	ListMine(ctx context.Context, actor authz.Actor) ([]models.Booking, error)
}

type BookingHandler struct {
	Bookings BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{Bookings: svc}
}

// CreateBookingRequest accepts both the current and the legacy field name.
type CreateBookingRequest struct {
	ProfessionalID string `json:"professionalId"`
	ProID          string `json:"proId"`
}

type UpdateStatusRequest struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
}

// RateRequest takes the score as a JSON number. Fractions fail InvalidRating.
type RateRequest struct {
	BookingID   string   `json:"bookingId"`
	Value       *float64 `json:"value"`
	RatingValue *float64 `json:"ratingValue"`
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validation(map[string][]string{field: {field + " must be a valid id"}})
	}
	return id, nil
}

func (h *BookingHandler) Create(c *fiber.Ctx) error {
	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	raw := req.ProfessionalID
	if raw == "" {
		raw = req.ProID
	}
	proID, err := parseID(raw, "professionalId")
	if err != nil {
		return respondError(c, err)
	}

	b, err := h.Bookings.Create(c.UserContext(), middleware.ActorFrom(c), proID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "booking requested",
		"data":    toBookingResponse(b),
	})
}

func (h *BookingHandler) Mine(c *fiber.Ctx) error {
	list, err := h.Bookings.ListMine(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    toBookingList(list),
	})
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.Bookings.Get(c.UserContext(), middleware.ActorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    toBookingResponse(b),
	})
}

// UpdateStatus serves PATCH /bookings/:id/status and the legacy
// PATCH /bookings/update-status with the id in the body.
func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	raw := c.Params("id")
	if raw == "" {
		raw = req.BookingID
	}
	id, err := parseID(raw, "bookingId")
	if err != nil {
		return respondError(c, err)
	}

	b, err := h.Bookings.Resolve(c.UserContext(), middleware.ActorFrom(c), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "booking " + string(b.Status),
		"data":    toBookingResponse(b),
	})
}

// Rate serves POST /bookings/:id/rating and the legacy POST /bookings/rate.
func (h *BookingHandler) Rate(c *fiber.Ctx) error {
	var req RateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	raw := c.Params("id")
	if raw == "" {
		raw = req.BookingID
	}
	id, err := parseID(raw, "bookingId")
	if err != nil {
		return respondError(c, err)
	}

	v := req.Value
	if v == nil {
		v = req.RatingValue
	}
	value, err := ratingValue(v)
	if err != nil {
		return respondError(c, err)
	}

	b, err := h.Bookings.Rate(c.UserContext(), middleware.ActorFrom(c), id, value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "rated " + strconv.Itoa(value),
		"data":    toBookingResponse(b),
	})
}

func ratingValue(v *float64) (int, error) {
	if v == nil {
		return 0, apperr.ErrInvalidRating
	}
	n := int(*v)
	if float64(n) != *v {
		return 0, apperr.ErrInvalidRating
	}
	return n, nil
}
