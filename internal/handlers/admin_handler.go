package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/moderation"
)

type ModerationService interface {
	Dashboard(ctx context.Context, actor authz.Actor) (*moderation.Dashboard, error)
	Verify(ctx context.Context, actor authz.Actor, id uuid.UUID, value *bool) (*models.ProfessionalProfile, error)
	Suspend(ctx context.Context, actor authz.Actor, id uuid.UUID, value *bool) (*models.ProfessionalProfile, error)
	Remove(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	RemoveUser(ctx context.Context, actor authz.Actor, userID uuid.UUID) error
}

type AdminHandler struct {
	Moderation ModerationService
}

func NewAdminHandler(svc ModerationService) *AdminHandler {
	return &AdminHandler{Moderation: svc}
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Moderation.Dashboard(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"professionals": toProfessionalList(d.Professionals, true),
			"stats":         d.Stats,
		},
	})
}

// FlagRequest is optional; an empty body means approve or toggle.
type FlagRequest struct {
	Value *bool `json:"value"`
}

func flagFrom(c *fiber.Ctx) (*bool, error) {
	if len(c.Body()) == 0 {
		return nil, nil
	}
	var req FlagRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, err
	}
	return req.Value, nil
}

func (h *AdminHandler) Verify(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return respondError(c, err)
	}
	value, err := flagFrom(c)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Moderation.Verify(c.UserContext(), middleware.ActorFrom(c), id, value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "professional " + string(p.Status()),
		"data":    toProfessionalResponse(p, true),
	})
}

// Suspend serves PATCH /admin/professionals/:id/suspend and the legacy
// toggle-suspension route, which never sends a body.
func (h *AdminHandler) Suspend(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return respondError(c, err)
	}
	value, err := flagFrom(c)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Moderation.Suspend(c.UserContext(), middleware.ActorFrom(c), id, value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "professional " + string(p.Status()),
		"data":    toProfessionalResponse(p, true),
	})
}

func (h *AdminHandler) Remove(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Moderation.Remove(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "professional removed",
	})
}

// RemoveUser is the legacy DELETE /admin/user/:id, keyed by user id.
func (h *AdminHandler) RemoveUser(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Moderation.RemoveUser(c.UserContext(), middleware.ActorFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "user removed",
	})
}
