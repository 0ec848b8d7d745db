package feed

import (
	"context"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/booking"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/registry"
)

// Service builds the read projections the dashboards poll.
type Service struct {
	Registry *registry.Service
	Bookings *booking.Service
	TopN     int
}

func NewService(reg *registry.Service, bookings *booking.Service, topN int) *Service {
	return &Service{Registry: reg, Bookings: bookings, TopN: topN}
}

// Public is the anonymous listing. featured truncates it to the landing
// page's top N unless the filter carries its own limit.
func (s *Service) Public(ctx context.Context, f registry.Filter, featured bool) ([]models.ProfessionalProfile, error) {
	if featured && f.Limit <= 0 {
		f.Limit = s.TopN
	}
	return s.Registry.ListPublic(ctx, f)
}

type ClientDashboard struct {
	Professionals []models.ProfessionalProfile
	Bookings      []models.Booking
}

// Client lists bookable professionals next to the caller's own requests.
// Admins get the same view with suspended professionals included.
func (s *Service) Client(ctx context.Context, actor authz.Actor, f registry.Filter) (*ClientDashboard, error) {
	if err := actor.Require(models.RoleClient, models.RoleAdmin); err != nil {
		return nil, err
	}
	pros, err := s.Registry.ListBookable(ctx, actor, f)
	if err != nil {
		return nil, err
	}
	out := &ClientDashboard{Professionals: pros, Bookings: []models.Booking{}}
	if actor.Is(models.RoleClient) {
		if out.Bookings, err = s.Bookings.ListMine(ctx, actor); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type ProfessionalDashboard struct {
	Profile  *models.ProfessionalProfile
	Bookings []models.Booking
}

func (s *Service) Professional(ctx context.Context, actor authz.Actor) (*ProfessionalDashboard, error) {
	if err := actor.Require(models.RoleProfessional); err != nil {
		return nil, err
	}
	p, err := s.Registry.GetByUserID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Bookings.ListMine(ctx, actor)
	if err != nil {
		return nil, err
	}
	return &ProfessionalDashboard{Profile: p, Bookings: bookings}, nil
}
