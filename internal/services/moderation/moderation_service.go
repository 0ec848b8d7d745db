package moderation

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/registry"
)

// Service is the admin console: one dashboard projection plus the
// moderation commands, each gated on the admin role.
type Service struct {
	DB       *gorm.DB
	Registry *registry.Service
}

func NewService(gdb *gorm.DB, reg *registry.Service) *Service {
	return &Service{DB: gdb, Registry: reg}
}

type Stats struct {
	Professionals int64 `json:"professionals"`
	Live          int64 `json:"live"`
	Pending       int64 `json:"pending"`
	Suspended     int64 `json:"suspended"`
	Clients       int64 `json:"clients"`

	BookingsPending  int64 `json:"bookings_pending"`
	BookingsAccepted int64 `json:"bookings_accepted"`
	BookingsRejected int64 `json:"bookings_rejected"`
	RatedBookings    int64 `json:"rated_bookings"`
}

type Dashboard struct {
	Professionals []models.ProfessionalProfile
	Stats         Stats
}

func (s *Service) Dashboard(ctx context.Context, actor authz.Actor) (*Dashboard, error) {
	pros, err := s.Registry.ListForAdmin(ctx, actor)
	if err != nil {
		return nil, err
	}

	var st Stats
	st.Professionals = int64(len(pros))
	for i := range pros {
		switch pros[i].Status() {
		case models.ProfessionalLive:
			st.Live++
		case models.ProfessionalPending:
			st.Pending++
		case models.ProfessionalSuspended:
			st.Suspended++
		}
	}

	err = db.Retry(ctx, "moderation.stats", func() error {
		gdb := s.DB.WithContext(ctx)
		if err := gdb.Model(&models.User{}).Where("role = ?", models.RoleClient).Count(&st.Clients).Error; err != nil {
			return err
		}

		var rows []struct {
			Status models.BookingStatus
			Total  int64
		}
		if err := gdb.Model(&models.Booking{}).
			Select("status, COUNT(*) AS total").
			Group("status").
			Scan(&rows).Error; err != nil {
			return err
		}
		st.BookingsPending, st.BookingsAccepted, st.BookingsRejected = 0, 0, 0
		for _, r := range rows {
			switch r.Status {
			case models.BookingPending:
				st.BookingsPending = r.Total
			case models.BookingAccepted:
				st.BookingsAccepted = r.Total
			case models.BookingRejected:
				st.BookingsRejected = r.Total
			}
		}
		return gdb.Model(&models.Booking{}).Where("rating IS NOT NULL").Count(&st.RatedBookings).Error
	})
	if err != nil {
		return nil, err
	}
	return &Dashboard{Professionals: pros, Stats: st}, nil
}

// Verify approves a professional; value=false revokes approval. A nil value
// means approve.
func (s *Service) Verify(ctx context.Context, actor authz.Actor, id uuid.UUID, value *bool) (*models.ProfessionalProfile, error) {
	v := true
	if value != nil {
		v = *value
	}
	p, changed, err := s.Registry.SetVerified(ctx, actor, id, v)
	if err != nil {
		return nil, err
	}
	if changed {
		action := "verify"
		if !v {
			action = "unverify"
		}
		metrics.ModerationActions.WithLabelValues(action).Inc()
	}
	return p, nil
}

// Suspend sets the suspension flag, or toggles it when value is nil.
func (s *Service) Suspend(ctx context.Context, actor authz.Actor, id uuid.UUID, value *bool) (*models.ProfessionalProfile, error) {
	var (
		p       *models.ProfessionalProfile
		changed bool
		err     error
	)
	if value == nil {
		p, changed, err = s.Registry.ToggleSuspended(ctx, actor, id)
	} else {
		p, changed, err = s.Registry.SetSuspended(ctx, actor, id, *value)
	}
	if err != nil {
		return nil, err
	}
	if changed {
		action := "suspend"
		if !p.IsSuspended {
			action = "reinstate"
		}
		metrics.ModerationActions.WithLabelValues(action).Inc()
	}
	return p, nil
}

func (s *Service) Remove(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := s.Registry.Remove(ctx, actor, id); err != nil {
		return err
	}
	metrics.ModerationActions.WithLabelValues("remove").Inc()
	return nil
}

// RemoveUser deletes by user id, cascading through the professional profile
// when there is one.
func (s *Service) RemoveUser(ctx context.Context, actor authz.Actor, userID uuid.UUID) error {
	if err := s.Registry.RemoveUser(ctx, actor, userID); err != nil {
		return err
	}
	metrics.ModerationActions.WithLabelValues("remove").Inc()
	return nil
}
