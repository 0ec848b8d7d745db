package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/identity"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type ExternalIdentityService interface {
	UpsertExternalUser(ctx context.Context, email, name string) (*models.User, error)
	IssueToken(u *models.User) (*identity.Session, error)
}

// GoogleOAuthHandler signs clients in with Google. Accounts created this way
// are always clients.
type GoogleOAuthHandler struct {
	Identity        ExternalIdentityService
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	SecureCookie    bool

	// UserInfoURL is overridable in tests.
	UserInfoURL string
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) tempCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.SecureCookie,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	next := c.Query("next", "/")
	st := randomState(32)

	h.tempCookie(c, "oauth_state", st, 10*60)
	h.tempCookie(c, "oauth_next", next, 10*60)

	authURL := h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline)
	return c.Redirect(authURL, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *GoogleOAuthHandler) loginError(c *fiber.Ctx, msg string) error {
	target := h.FrontendBaseURL + "/auth/login?err=" + url.QueryEscape(msg)
	return c.Redirect(target, http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return badRequest(c, "missing code or state")
	}

	stCookie := c.Cookies("oauth_state")
	next := c.Cookies("oauth_next")
	if stCookie == "" || stCookie != state {
		return badRequest(c, "invalid state")
	}

	ctx := c.UserContext()
	log := logger.WithCtx(ctx)

	tok, err := h.oauthCfg().Exchange(ctx, code)
	if err != nil {
		log.Warn("google code exchange failed", "error", err)
		return h.loginError(c, "Google sign-in failed")
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	resp, err := h.oauthCfg().Client(ctx, tok).Get(infoURL)
	if err != nil {
		log.Warn("google userinfo failed", "error", err)
		return h.loginError(c, "Google sign-in failed")
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return h.loginError(c, "Google sign-in failed")
	}
	if !gu.VerifiedEmail {
		return h.loginError(c, "Google email is not verified")
	}

	u, err := h.Identity.UpsertExternalUser(ctx, gu.Email, gu.Name)
	if err != nil {
		log.Warn("google upsert failed", "error", err)
		return h.loginError(c, "Account is not available")
	}
	sess, err := h.Identity.IssueToken(u)
	if err != nil {
		return respondError(c, err)
	}
	setSessionCookie(c, sess.Token, sess.ExpiresAt, h.SecureCookie)

	h.tempCookie(c, "oauth_state", "", -1)
	h.tempCookie(c, "oauth_next", "", -1)

	// only same-site relative paths
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}
