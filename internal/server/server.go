// Package server boots the API process: database, optional Redis, the
// background workers and the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/config"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/routes"
)

const shutdownTimeout = 10 * time.Second

// Open connects and migrates the database, and connects Redis when
// configured. A Redis that does not answer is dropped; the engine then runs
// with process-local locks and events.
func Open(ctx context.Context, cfg config.Config) (*gorm.DB, *redis.Client, error) {
	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if rdb != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.L.Warn("redis not reachable, using local locks and events", "addr", cfg.RedisAddr, "error", err)
			_ = rdb.Close()
			rdb = nil
		} else {
			logger.L.Info("redis connected", "addr", cfg.RedisAddr)
		}
	}
	return gdb, rdb, nil
}

// Run serves the API until SIGINT or SIGTERM, then drains in-flight requests.
func Run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, rdb, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	svc := routes.NewServices(cfg, gdb, rdb)
	svc.Start(ctx, cfg)
	app := routes.NewApp(cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("listening", "port", cfg.AppPort, "env", cfg.AppEnv)
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
