package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/config"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db/dbtest"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t   *testing.T
	app *fiber.App
	svc *Services
}

func newHarness(t *testing.T) *harness {
	cfg := config.Config{
		AppEnv:            "development",
		JWTSecret:         "test-secret",
		JWTExpiresMin:     60,
		CORSOrigins:       "http://localhost:5173",
		DailyRequestLimit: 3,
		PublicFeedTopN:    3,
	}
	svc := NewServices(cfg, dbtest.New(t), nil)
	return &harness{t: t, app: NewApp(cfg, svc), svc: svc}
}

func (h *harness) call(method, path, token, body string) (int, envelope) {
	h.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (h *harness) decode(env envelope, out any) {
	h.t.Helper()
	require.NoError(h.t, json.Unmarshal(env.Data, out))
}

func (h *harness) register(body string) string {
	h.t.Helper()
	status, env := h.call(http.MethodPost, "/api/auth/register", "", body)
	require.Equal(h.t, http.StatusCreated, status, env.Message)
	var sess struct {
		Token string `json:"token"`
	}
	h.decode(env, &sess)
	require.NotEmpty(h.t, sess.Token)
	return sess.Token
}

func (h *harness) login(email, password string) string {
	h.t.Helper()
	status, env := h.call(http.MethodPost, "/api/auth/login", "",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(h.t, http.StatusOK, status, env.Message)
	var sess struct {
		Token string `json:"token"`
	}
	h.decode(env, &sess)
	return sess.Token
}

func (h *harness) client(email string) string {
	return h.register(`{"name":"` + email + `","email":"` + email + `","password":"secret123"}`)
}

type idOnly struct {
	ID string `json:"id"`
}

func (h *harness) professional(email, skill string) (token, id string) {
	token = h.register(`{"name":"Pro","email":"` + email + `","password":"secret123","role":"professional","skills":["` + skill + `"],"location":"Jakarta"}`)
	status, env := h.call(http.MethodGet, "/api/professionals/me", token, "")
	require.Equal(h.t, http.StatusOK, status)
	var p idOnly
	h.decode(env, &p)
	return token, p.ID
}

func (h *harness) admin() string {
	_, err := h.svc.Identity.CreateAdmin(context.Background(), "Admin", "admin@example.com", "secret123")
	require.NoError(h.t, err)
	return h.login("admin@example.com", "secret123")
}

func TestBookingLifecycle(t *testing.T) {
	h := newHarness(t)
	adminTok := h.admin()
	proTok, proID := h.professional("pro@example.com", "plumber")
	clientTok := h.client("client@example.com")

	status, env := h.call(http.MethodPost, "/api/bookings", clientTok, `{"professionalId":"`+proID+`"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NotVerified", env.Code)

	status, _ = h.call(http.MethodPatch, "/api/admin/professionals/"+proID+"/verify", adminTok, "")
	require.Equal(t, http.StatusOK, status)

	status, env = h.call(http.MethodPost, "/api/bookings", clientTok, `{"professionalId":"`+proID+`"}`)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var b idOnly
	h.decode(env, &b)

	status, env = h.call(http.MethodPost, "/api/bookings", clientTok, `{"professionalId":"`+proID+`"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DuplicatePendingRequest", env.Code)

	status, env = h.call(http.MethodPost, "/api/bookings/"+b.ID+"/rating", clientTok, `{"value":5}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "NotRateable", env.Code)

	status, _ = h.call(http.MethodPatch, "/api/bookings/"+b.ID+"/status", clientTok, `{"status":"accepted"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = h.call(http.MethodPatch, "/api/bookings/"+b.ID+"/status", proTok, `{"status":"accepted"}`)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = h.call(http.MethodPatch, "/api/bookings/"+b.ID+"/status", proTok, `{"status":"rejected"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "InvalidTransition", env.Code)

	status, env = h.call(http.MethodPost, "/api/bookings/"+b.ID+"/rating", clientTok, `{"value":4}`)
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = h.call(http.MethodPost, "/api/bookings/rate", clientTok, `{"bookingId":"`+b.ID+`","ratingValue":5}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "AlreadyRated", env.Code)

	status, env = h.call(http.MethodGet, "/api/professionals/"+proID, "", "")
	require.Equal(t, http.StatusOK, status)
	var pro struct {
		Rating      float64 `json:"rating"`
		ReviewCount int     `json:"review_count"`
	}
	h.decode(env, &pro)
	assert.Equal(t, 4.0, pro.Rating)
	assert.Equal(t, 1, pro.ReviewCount)

	status, env = h.call(http.MethodGet, "/api/bookings/mine", proTok, "")
	require.Equal(t, http.StatusOK, status)
	var mine []idOnly
	h.decode(env, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)

	status, _ = h.call(http.MethodDelete, "/api/admin/professionals/"+proID, adminTok, "")
	require.Equal(t, http.StatusOK, status)

	status, env = h.call(http.MethodGet, "/api/bookings/"+b.ID, clientTok, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NotFound", env.Code)
}

func TestAuthAndRoleGuards(t *testing.T) {
	h := newHarness(t)
	clientTok := h.client("client@example.com")

	status, env := h.call(http.MethodGet, "/api/bookings/mine", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", env.Code)

	status, env = h.call(http.MethodGet, "/api/admin/dashboard", clientTok, "")
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden", env.Code)

	status, env = h.call(http.MethodPost, "/api/auth/register", "",
		`{"name":"X","email":"client@example.com","password":"secret123"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DuplicateEmail", env.Code)

	status, env = h.call(http.MethodPost, "/api/auth/register", "",
		`{"name":"X","email":"boss@example.com","password":"secret123","role":"admin"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Forbidden", env.Code)

	status, env = h.call(http.MethodPost, "/api/auth/login", "",
		`{"email":"client@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "InvalidCredentials", env.Code)

	status, _ = h.call(http.MethodGet, "/api/auth/me", clientTok, "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.call(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestDailyLimitOverHTTP(t *testing.T) {
	h := newHarness(t)
	adminTok := h.admin()
	proTok, proID := h.professional("pro@example.com", "electrician")

	status, _ := h.call(http.MethodPatch, "/api/admin/verify/"+proID, adminTok, "")
	require.Equal(t, http.StatusOK, status)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		status, env := h.call(http.MethodPost, "/api/bookings/create", h.client(email), `{"proId":"`+proID+`"}`)
		require.Equal(t, http.StatusCreated, status, env.Message)
	}

	status, env := h.call(http.MethodPost, "/api/bookings", h.client("d@example.com"), `{"professionalId":"`+proID+`"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "DailyLimitExceeded", env.Code)

	status, env = h.call(http.MethodGet, "/api/dashboard/professional", proTok, "")
	require.Equal(t, http.StatusOK, status)
	var dash struct {
		Bookings []idOnly `json:"bookings"`
	}
	h.decode(env, &dash)
	assert.Len(t, dash.Bookings, 3)
}

func TestPublicListingAndModeration(t *testing.T) {
	h := newHarness(t)
	adminTok := h.admin()
	_, liveID := h.professional("live@example.com", "plumber")
	_, pendingID := h.professional("pending@example.com", "painter")

	status, _ := h.call(http.MethodPatch, "/api/admin/professionals/"+liveID+"/verify", adminTok, `{"value":true}`)
	require.Equal(t, http.StatusOK, status)

	status, env := h.call(http.MethodGet, "/api/professionals", "", "")
	require.Equal(t, http.StatusOK, status)
	var list []idOnly
	h.decode(env, &list)
	require.Len(t, list, 1)
	assert.Equal(t, liveID, list[0].ID)

	status, _ = h.call(http.MethodGet, "/api/professionals/"+pendingID, "", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, env = h.call(http.MethodGet, "/api/categories", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "plumber")
	assert.NotContains(t, string(env.Data), "painter")

	status, _ = h.call(http.MethodPatch, "/api/admin/toggle-suspension/"+liveID, adminTok, "")
	require.Equal(t, http.StatusOK, status)

	status, env = h.call(http.MethodGet, "/api/professionals?public=true", "", "")
	require.Equal(t, http.StatusOK, status)
	h.decode(env, &list)
	assert.Empty(t, list)

	status, env = h.call(http.MethodGet, "/api/admin/dashboard", adminTok, "")
	require.Equal(t, http.StatusOK, status)
	var dash struct {
		Professionals []idOnly `json:"professionals"`
		Stats         struct {
			Professionals int64 `json:"professionals"`
			Suspended     int64 `json:"suspended"`
			Pending       int64 `json:"pending"`
		} `json:"stats"`
	}
	h.decode(env, &dash)
	assert.Len(t, dash.Professionals, 2)
	assert.EqualValues(t, 2, dash.Stats.Professionals)
	assert.EqualValues(t, 1, dash.Stats.Suspended)
	assert.EqualValues(t, 1, dash.Stats.Pending)
}
