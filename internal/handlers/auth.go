package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/identity"
)

type IdentityService interface {
	Register(ctx context.Context, in identity.RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*identity.Session, error)
	IssueToken(u *models.User) (*identity.Session, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type AuthHandler struct {
	Identity     IdentityService
	SecureCookie bool
}

func NewAuthHandler(svc IdentityService, secureCookie bool) *AuthHandler {
	return &AuthHandler{Identity: svc, SecureCookie: secureCookie}
}

type RegisterReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"` // client / professional, admin is refused

	BusinessName string   `json:"business_name"`
	Location     string   `json:"location"`
	Skills       []string `json:"skills"`
	Category     string   `json:"category"` // single-skill form field
}

func setSessionCookie(c *fiber.Ctx, token string, expires time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		Expires:  expires,
	})
}

func sessionBody(sess *identity.Session) fiber.Map {
	return fiber.Map{
		"token":      sess.Token,
		"role":       sess.Role(),
		"expires_at": sess.ExpiresAt,
		"user":       toUserMini(sess.User),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	skills := req.Skills
	if req.Category != "" {
		skills = append(skills, req.Category)
	}
	u, err := h.Identity.Register(c.UserContext(), identity.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		Role:         req.Role,
		BusinessName: req.BusinessName,
		Location:     req.Location,
		Skills:       skills,
	})
	if err != nil {
		return respondError(c, err)
	}

	sess, err := h.Identity.IssueToken(u)
	if err != nil {
		return respondError(c, err)
	}
	setSessionCookie(c, sess.Token, sess.ExpiresAt, h.SecureCookie)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "registered",
		"data":    sessionBody(sess),
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	sess, err := h.Identity.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	setSessionCookie(c, sess.Token, sess.ExpiresAt, h.SecureCookie)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "logged in",
		"data":    sessionBody(sess),
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "logged out",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor := middleware.ActorFrom(c)
	u, err := h.Identity.Me(c.UserContext(), actor.UserID)
	if err != nil {
		return respondError(c, err)
	}

	data := fiber.Map{"user": toUserMini(u)}
	if u.ProfessionalProfile != nil {
		data["professional"] = toProfessionalResponse(u.ProfessionalProfile, false)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}
