package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/booking"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/rating"
)

// homemanctl sweep
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Rebuild the cached request window of every professional",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, gdb, err := bootDB()
		if err != nil {
			return err
		}
		svc := booking.NewService(gdb, nil, nil)
		if cfg.RequestWindow > 0 {
			svc.Window = cfg.RequestWindow
		}
		n, err := svc.Sweep(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d professional(s) updated\n", n)
		return nil
	},
}

// homemanctl recompute-ratings
var recomputeRatingsCmd = &cobra.Command{
	Use:   "recompute-ratings",
	Short: "Rebuild every professional's rating from rated bookings",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, gdb, err := bootDB()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var ids []uuid.UUID
		if err := gdb.WithContext(ctx).Model(&models.ProfessionalProfile{}).Pluck("id", &ids).Error; err != nil {
			return err
		}

		ratings := rating.NewRatingService(gdb)
		failed := 0
		for _, id := range ids {
			err := db.Run(ctx, gdb, "rating.recompute", func(tx *gorm.DB) error {
				_, err := ratings.Recompute(tx, id)
				return err
			})
			if err != nil {
				failed++
				logger.L.Warn("recompute failed", "professional_id", id, "error", err)
			}
		}
		fmt.Printf("%d professional(s) recomputed, %d failed\n", len(ids)-failed, failed)
		return nil
	},
}
