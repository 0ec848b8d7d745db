package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/feed"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/registry"
)

type RegistryService interface {
	ListBookable(ctx context.Context, actor authz.Actor, f registry.Filter) ([]models.ProfessionalProfile, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.ProfessionalProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ProfessionalProfile, error)
	UpdateProfile(ctx context.Context, actor authz.Actor, in registry.ProfileUpdate) (*models.ProfessionalProfile, error)
}

type FeedService interface {
	Public(ctx context.Context, f registry.Filter, featured bool) ([]models.ProfessionalProfile, error)
	Client(ctx context.Context, actor authz.Actor, f registry.Filter) (*feed.ClientDashboard, error)
	Professional(ctx context.Context, actor authz.Actor) (*feed.ProfessionalDashboard, error)
}

type ProfessionalHandler struct {
	Registry RegistryService
	Feed     FeedService
}

func NewProfessionalHandler(reg RegistryService, fd FeedService) *ProfessionalHandler {
	return &ProfessionalHandler{Registry: reg, Feed: fd}
}

func filterFrom(c *fiber.Ctx) registry.Filter {
	limit, _ := strconv.Atoi(c.Query("limit"))
	return registry.Filter{
		Skill:    c.Query("skill", c.Query("category")),
		Location: c.Query("location"),
		Query:    c.Query("q"),
		Limit:    limit,
	}
}

// List serves GET /professionals. Anonymous callers and ?public=true get the
// public feed; signed-in callers get every bookable professional.
func (h *ProfessionalHandler) List(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	f := filterFrom(c)

	var (
		list []models.ProfessionalProfile
		err  error
	)
	if c.QueryBool("public") || !actor.Authenticated() {
		list, err = h.Feed.Public(c.UserContext(), f, c.QueryBool("featured"))
	} else {
		list, err = h.Registry.ListBookable(c.UserContext(), actor, f)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    toProfessionalList(list, actor.Is(models.RoleAdmin)),
	})
}

func (h *ProfessionalHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"), "id")
	if err != nil {
		return respondError(c, err)
	}
	actor := middleware.ActorFrom(c)
	p, err := h.Registry.Get(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    toProfessionalResponse(p, actor.Is(models.RoleAdmin)),
	})
}

func (h *ProfessionalHandler) Me(c *fiber.Ctx) error {
	p, err := h.Registry.GetByUserID(c.UserContext(), middleware.ActorFrom(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    toProfessionalResponse(p, false),
	})
}

type UpdateProfileRequest struct {
	BusinessName *string  `json:"business_name"`
	Skills       []string `json:"skills"`
	Phone        *string  `json:"phone"`
	Location     *string  `json:"location"`
}

func (h *ProfessionalHandler) UpdateMe(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Registry.UpdateProfile(c.UserContext(), middleware.ActorFrom(c), registry.ProfileUpdate{
		BusinessName: req.BusinessName,
		Skills:       req.Skills,
		Phone:        req.Phone,
		Location:     req.Location,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "profile updated",
		"data":    toProfessionalResponse(p, false),
	})
}
