package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/config"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.AppEnv)

	if err := server.Run(cfg); err != nil {
		logger.L.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
