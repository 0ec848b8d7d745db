package registry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db/dbtest"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
)

func adminActor(t *testing.T, gdb *gorm.DB) authz.Actor {
	u := dbtest.User(t, gdb, "admin@example.com", models.RoleAdmin)
	return authz.Actor{UserID: u.ID, Role: models.RoleAdmin}
}

func ids(ps []models.ProfessionalProfile) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestListPublicOnlyLiveAndNotExcluded(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, []string{" House@Example.com "})
	ctx := context.Background()

	live := dbtest.Professional(t, gdb, "live@example.com", dbtest.Verified, dbtest.Rated(4.5, 2))
	top := dbtest.Professional(t, gdb, "top@example.com", dbtest.Verified, dbtest.Rated(5, 1))
	dbtest.Professional(t, gdb, "pending@example.com")
	dbtest.Professional(t, gdb, "suspended@example.com", dbtest.Verified, dbtest.Suspended)
	house := dbtest.Professional(t, gdb, "house@example.com", dbtest.Verified)

	got, err := s.ListPublic(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{top.ID, live.ID}, ids(got))

	limited, err := s.ListPublic(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{top.ID}, ids(limited))

	c := dbtest.User(t, gdb, "c@example.com", models.RoleClient)
	bookable, err := s.ListBookable(ctx, authz.Actor{UserID: c.ID, Role: models.RoleClient}, Filter{})
	require.NoError(t, err)
	assert.Contains(t, ids(bookable), house.ID)
	assert.Len(t, bookable, 3)

	forAdmin, err := s.ListBookable(ctx, adminActor(t, gdb), Filter{})
	require.NoError(t, err)
	assert.Len(t, forAdmin, 4)
}

func TestListPublicFilters(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, nil)
	ctx := context.Background()

	plumber := dbtest.Professional(t, gdb, "plumb@example.com", dbtest.Verified,
		dbtest.Skills("plumber"), dbtest.Location("Jakarta Selatan"))
	electrician := dbtest.Professional(t, gdb, "volt@example.com", dbtest.Verified,
		dbtest.Skills("electrician", "ac repair"), dbtest.Location("Bandung"))

	got, err := s.ListPublic(ctx, Filter{Skill: "Electric"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{electrician.ID}, ids(got))

	got, err = s.ListPublic(ctx, Filter{Location: "jakarta"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{plumber.ID}, ids(got))

	got, err = s.ListPublic(ctx, Filter{Query: "VOLT"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{electrician.ID}, ids(got))

	got, err = s.ListPublic(ctx, Filter{Skill: "gardener"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListForAdminRequiresAdmin(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, nil)
	ctx := context.Background()
	dbtest.Professional(t, gdb, "pending@example.com")
	dbtest.Professional(t, gdb, "live@example.com", dbtest.Verified)

	all, err := s.ListForAdmin(ctx, adminActor(t, gdb))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	c := dbtest.User(t, gdb, "c@example.com", models.RoleClient)
	_, err = s.ListForAdmin(ctx, authz.Actor{UserID: c.ID, Role: models.RoleClient})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSetVerifiedIsIdempotent(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, nil)
	ctx := context.Background()
	admin := adminActor(t, gdb)
	p := dbtest.Professional(t, gdb, "pro@example.com")

	got, changed, err := s.SetVerified(ctx, admin, p.ID, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, got.IsVerified)
	assert.Equal(t, models.ProfessionalLive, got.Status())

	_, changed, err = s.SetVerified(ctx, admin, p.ID, true)
	require.NoError(t, err)
	assert.False(t, changed)

	_, _, err = s.SetVerified(ctx, admin, uuid.New(), true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = s.SetVerified(ctx, authz.Actor{UserID: p.UserID, Role: models.RoleProfessional}, p.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSuspensionKeepsRating(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, nil)
	ctx := context.Background()
	admin := adminActor(t, gdb)
	p := dbtest.Professional(t, gdb, "pro@example.com", dbtest.Verified, dbtest.Rated(4, 3))

	got, changed, err := s.ToggleSuspended(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, got.IsSuspended)

	public, err := s.ListPublic(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, public)

	_, changed, err = s.SetSuspended(ctx, admin, p.ID, true)
	require.NoError(t, err)
	assert.False(t, changed)

	got, _, err = s.ToggleSuspended(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSuspended)
	assert.Equal(t, 4.0, got.Rating)
	assert.Equal(t, 3, got.ReviewCount)
}

func TestRemoveCascades(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, nil)
	ctx := context.Background()
	admin := adminActor(t, gdb)
	p := dbtest.Professional(t, gdb, "pro@example.com", dbtest.Verified)
	keep := dbtest.Professional(t, gdb, "keep@example.com", dbtest.Verified)
	c := dbtest.User(t, gdb, "c@example.com", models.RoleClient)

	gone := models.Booking{ClientID: c.ID, ProfessionalID: p.ID, Status: models.BookingPending}
	kept := models.Booking{ClientID: c.ID, ProfessionalID: keep.ID, Status: models.BookingPending}
	require.NoError(t, gdb.Create(&gone).Error)
	require.NoError(t, gdb.Create(&kept).Error)

	require.NoError(t, s.Remove(ctx, admin, p.ID))

	var n int64
	require.NoError(t, gdb.Model(&models.Booking{}).Where("id = ?", gone.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, gdb.Model(&models.Booking{}).Where("id = ?", kept.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	require.NoError(t, gdb.Model(&models.User{}).Where("id = ?", p.UserID).Count(&n).Error)
	assert.Zero(t, n)

	_, err := s.Get(ctx, admin, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, s.Remove(ctx, admin, p.ID), apperr.ErrNotFound)
}

func TestRemoveUser(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, nil)
	ctx := context.Background()
	admin := adminActor(t, gdb)
	p := dbtest.Professional(t, gdb, "pro@example.com", dbtest.Verified)
	c := dbtest.User(t, gdb, "c@example.com", models.RoleClient)
	require.NoError(t, gdb.Create(&models.Booking{ClientID: c.ID, ProfessionalID: p.ID, Status: models.BookingPending}).Error)

	require.NoError(t, s.RemoveUser(ctx, admin, c.ID))
	var n int64
	require.NoError(t, gdb.Model(&models.Booking{}).Count(&n).Error)
	assert.Zero(t, n)

	require.NoError(t, s.RemoveUser(ctx, admin, p.UserID))
	_, err := s.GetByUserID(ctx, p.UserID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.ErrorIs(t, s.RemoveUser(ctx, admin, admin.UserID), apperr.ErrForbidden)
	assert.ErrorIs(t, s.RemoveUser(ctx, admin, uuid.New()), apperr.ErrNotFound)
}

func TestGetHidesNonLiveProfiles(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, nil)
	ctx := context.Background()
	p := dbtest.Professional(t, gdb, "pending@example.com")

	_, err := s.Get(ctx, authz.Anonymous, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := s.Get(ctx, authz.Actor{UserID: p.UserID, Role: models.RoleProfessional}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProfessionalPending, got.Status())
}

func TestUpdateProfile(t *testing.T) {
	gdb := dbtest.New(t)
	s := NewService(gdb, nil, nil, nil)
	ctx := context.Background()
	p := dbtest.Professional(t, gdb, "pro@example.com", dbtest.Verified, dbtest.Rated(4, 1))
	actor := authz.Actor{UserID: p.UserID, Role: models.RoleProfessional}

	name, loc := "Fix It Fast", "Depok"
	got, err := s.UpdateProfile(ctx, actor, ProfileUpdate{
		BusinessName: &name,
		Skills:       []string{"Painter", "plumber"},
		Location:     &loc,
	})
	require.NoError(t, err)
	assert.Equal(t, "Fix It Fast", got.BusinessName)
	assert.Equal(t, []string{"painter", "plumber"}, []string(got.Skills))
	assert.Equal(t, "Depok", got.Location)
	assert.True(t, got.IsVerified)
	assert.Equal(t, 4.0, got.Rating)

	_, err = s.UpdateProfile(ctx, actor, ProfileUpdate{Skills: []string{" "}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
