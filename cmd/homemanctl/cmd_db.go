package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/config"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/identity"
)

// bootDB loads config and opens a migrated connection.
func bootDB() (config.Config, *gorm.DB, error) {
	cfg := loadConfig()
	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return cfg, nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return cfg, nil, err
	}
	return cfg, gdb, nil
}

// homemanctl migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, _, err := bootDB(); err != nil {
			return err
		}
		fmt.Println("Schema is up to date.")
		return nil
	},
}

var adminFlags struct {
	name     string
	email    string
	password string
}

// homemanctl create-admin
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, gdb, err := bootDB()
		if err != nil {
			return err
		}
		svc := identity.NewService(gdb, cfg.JWTSecret, cfg.JWTExpiresMin)
		u, err := svc.CreateAdmin(cmd.Context(), adminFlags.name, adminFlags.email, adminFlags.password)
		if err != nil {
			return err
		}
		fmt.Printf("Admin %s created (%s)\n", u.Email, u.ID)
		return nil
	},
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&adminFlags.name, "name", "Administrator", "display name")
	f.StringVar(&adminFlags.email, "email", "", "login email")
	f.StringVar(&adminFlags.password, "password", "", "login password, at least 6 characters")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}
