// Package dbtest opens throwaway in-memory SQLite databases with the engine
// schema and seeds common fixtures for service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/utils"
)

// New returns a migrated database private to the test.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	gdb, err := db.Connect("sqlite", dsn)
	if err != nil {
		t.Fatalf("dbtest: connect: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("dbtest: migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// Password is the clear-text password of every seeded user.
const Password = "secret123"

var passwordHash string

func hash(t testing.TB) string {
	if passwordHash == "" {
		h, err := utils.HashPassword(Password)
		if err != nil {
			t.Fatalf("dbtest: hash: %v", err)
		}
		passwordHash = h
	}
	return passwordHash
}

// User inserts a user with the given role.
func User(t testing.TB, gdb *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:     email,
		Email:    utils.NormalizeEmail(email),
		Password: hash(t),
		Role:     role,
		IsActive: true,
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("dbtest: create user: %v", err)
	}
	return u
}

type ProOption func(*models.ProfessionalProfile)

func Verified(p *models.ProfessionalProfile)  { p.IsVerified = true }
func Suspended(p *models.ProfessionalProfile) { p.IsSuspended = true }

func Skills(skills ...string) ProOption {
	return func(p *models.ProfessionalProfile) { p.Skills = skills }
}

func Location(loc string) ProOption {
	return func(p *models.ProfessionalProfile) { p.Location = loc }
}

func Rated(rating float64, count int) ProOption {
	return func(p *models.ProfessionalProfile) {
		p.Rating = rating
		p.ReviewCount = count
	}
}

// Professional inserts a professional user and profile. Profiles start
// unverified unless Verified is passed.
func Professional(t testing.TB, gdb *gorm.DB, email string, opts ...ProOption) *models.ProfessionalProfile {
	t.Helper()
	u := User(t, gdb, email, models.RoleProfessional)
	p := &models.ProfessionalProfile{
		UserID:       u.ID,
		BusinessName: email,
		Skills:       []string{"plumber"},
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("dbtest: create profile: %v", err)
	}
	p.User = u
	return p
}
