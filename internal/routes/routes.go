package routes

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/config"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/handlers"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
)

// NewApp builds the fiber app with the shared middleware stack and every route.
func NewApp(cfg config.Config, svc *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "homeman",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     normalizeOrigins(cfg.CORSOrigins),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	RegisterRoutes(app, cfg, svc)
	return app
}

func normalizeOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" && p != "*" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "http://localhost:5173"
	}
	return strings.Join(out, ",")
}

func RegisterRoutes(app *fiber.App, cfg config.Config, svc *Services) {
	secureCookie := cfg.Production()

	authH := handlers.NewAuthHandler(svc.Identity, secureCookie)
	proH := handlers.NewProfessionalHandler(svc.Registry, svc.Feed)
	dashH := handlers.NewDashboardHandler(svc.Feed)
	categoryH := handlers.NewCategoryHandler(svc.Feed)
	bookingH := handlers.NewBookingHandler(svc.Bookings)
	adminH := handlers.NewAdminHandler(svc.Moderation)
	liveH := handlers.NewLiveHandler(svc.Hub)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	anyRole := middleware.RequireRoles(models.RoleClient, models.RoleProfessional, models.RoleAdmin)
	clientOnly := middleware.RequireRoles(models.RoleClient)
	proOnly := middleware.RequireRoles(models.RoleProfessional)

	app.Get("/ws/bookings",
		middleware.JWT(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
		liveH.Upgrade,
		websocket.New(liveH.Serve),
	)

	api := app.Group("/api",
		middleware.OptionalJWT(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	// auth
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/me", anyRole, authH.Me)
	if cfg.GoogleEnabled() {
		googleH := &handlers.GoogleOAuthHandler{
			Identity:        svc.Identity,
			GoogleClientID:  cfg.GoogleClientID,
			GoogleSecret:    cfg.GoogleSecret,
			GoogleRedirect:  cfg.GoogleRedirect,
			FrontendBaseURL: cfg.FrontendBaseURL,
			SecureCookie:    secureCookie,
		}
		api.Get("/auth/google/start", googleH.GoogleStart)
		api.Get("/auth/google/callback", googleH.GoogleCallback)
	}

	// listings
	api.Get("/categories", categoryH.GetCategories)
	api.Get("/professionals", proH.List)
	api.Get("/pros/all", proH.List)
	api.Get("/professionals/me", proOnly, proH.Me)
	api.Patch("/professionals/me", proOnly, proH.UpdateMe)
	api.Get("/professionals/:id", proH.Get)

	// dashboards
	api.Get("/dashboard/client", middleware.RequireRoles(models.RoleClient, models.RoleAdmin), dashH.Client)
	api.Get("/dashboard/professional", proOnly, dashH.Professional)

	// bookings; fixed paths before /:id
	bookings := api.Group("/bookings", anyRole)
	bookings.Post("/", clientOnly, bookingH.Create)
	bookings.Post("/create", clientOnly, bookingH.Create)
	bookings.Get("/mine", bookingH.Mine)
	bookings.Get("/my-bookings", bookingH.Mine)
	bookings.Patch("/update-status", proOnly, bookingH.UpdateStatus)
	bookings.Post("/rate", clientOnly, bookingH.Rate)
	bookings.Get("/:id", bookingH.Get)
	bookings.Patch("/:id/status", proOnly, bookingH.UpdateStatus)
	bookings.Post("/:id/rating", clientOnly, bookingH.Rate)

	// admin
	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.Get("/dashboard", adminH.Dashboard)
	admin.Patch("/professionals/:id/verify", adminH.Verify)
	admin.Patch("/professionals/:id/suspend", adminH.Suspend)
	admin.Delete("/professionals/:id", adminH.Remove)
	admin.Patch("/verify/:id", adminH.Verify)
	admin.Patch("/toggle-suspension/:id", adminH.Suspend)
	admin.Delete("/user/:id", adminH.RemoveUser)
}
