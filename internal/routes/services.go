package routes

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/config"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/lock"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/booking"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/feed"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/identity"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/moderation"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/registry"
)

// Services is the engine wired for one process.
type Services struct {
	Identity   *identity.Service
	Registry   *registry.Service
	Bookings   *booking.Service
	Moderation *moderation.Service
	Feed       *feed.Service

	Hub      *realtime.Hub
	Notifier realtime.Notifier
}

// NewServices wires the engine. With Redis, locks and realtime events span
// every API instance; without it they are process local.
func NewServices(cfg config.Config, gdb *gorm.DB, rdb *redis.Client) *Services {
	hub := realtime.NewHub()

	var (
		locks    lock.Locker
		notifier realtime.Notifier = hub
	)
	if rdb != nil {
		locks = lock.NewRedis(rdb)
		notifier = realtime.NewRedisNotifier(rdb, hub)
	} else {
		locks = lock.NewLocal()
	}

	reg := registry.NewService(gdb, locks, notifier, cfg.ExcludedPublicEmails)

	bookings := booking.NewService(gdb, locks, notifier)
	if cfg.DailyRequestLimit > 0 {
		bookings.DailyLimit = cfg.DailyRequestLimit
	}
	if cfg.RequestWindow > 0 {
		bookings.Window = cfg.RequestWindow
	}

	return &Services{
		Identity:   identity.NewService(gdb, cfg.JWTSecret, cfg.JWTExpiresMin),
		Registry:   reg,
		Bookings:   bookings,
		Moderation: moderation.NewService(gdb, reg),
		Feed:       feed.NewService(reg, bookings, cfg.PublicFeedTopN),
		Hub:        hub,
		Notifier:   notifier,
	}
}

// Start runs the hub, the Redis relay when configured and the window sweep
// until ctx is cancelled.
func (s *Services) Start(ctx context.Context, cfg config.Config) {
	go s.Hub.Run(ctx)
	if rn, ok := s.Notifier.(*realtime.RedisNotifier); ok {
		go rn.Run(ctx)
	}
	s.Bookings.StartSweepWorker(ctx, cfg.SweepInterval)
}
