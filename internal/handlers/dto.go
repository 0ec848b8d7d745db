package handlers

import (
	"time"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
)

type UserMini struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

func toUserMini(u *models.User) *UserMini {
	if u == nil {
		return nil
	}
	return &UserMini{ID: u.ID.String(), Name: u.Name, Email: u.Email, Phone: u.Phone, Role: string(u.Role)}
}

type ProfessionalResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	BusinessName string    `json:"business_name"`
	Email        string    `json:"email,omitempty"`
	Skills       []string  `json:"skills"`
	Category     string    `json:"category"`
	Phone        string    `json:"phone"`
	Location     string    `json:"location"`
	IsVerified   bool      `json:"is_verified"`
	IsSuspended  bool      `json:"is_suspended"`
	Status       string    `json:"status"`
	Rating       float64   `json:"rating"`
	ReviewCount  int       `json:"review_count"`
	Rated        bool      `json:"rated"`
	CreatedAt    time.Time `json:"created_at"`

	// admin view only
	DailyRequestCount *int `json:"daily_request_count,omitempty"`
}

func toProfessionalResponse(p *models.ProfessionalProfile, admin bool) ProfessionalResponse {
	resp := ProfessionalResponse{
		ID:           p.ID.String(),
		UserID:       p.UserID.String(),
		BusinessName: p.BusinessName,
		Skills:       []string(p.Skills),
		Category:     p.PrimarySkill(),
		Phone:        p.Phone,
		Location:     p.Location,
		IsVerified:   p.IsVerified,
		IsSuspended:  p.IsSuspended,
		Status:       string(p.Status()),
		Rating:       p.DisplayRating(),
		ReviewCount:  p.ReviewCount,
		Rated:        p.Rated(),
		CreatedAt:    p.CreatedAt,
	}
	if resp.Skills == nil {
		resp.Skills = []string{}
	}
	if p.User != nil {
		resp.Name = p.User.Name
		if admin {
			resp.Email = p.User.Email
		}
	}
	if admin {
		n := p.DailyRequestCount
		resp.DailyRequestCount = &n
	}
	return resp
}

func toProfessionalList(ps []models.ProfessionalProfile, admin bool) []ProfessionalResponse {
	out := make([]ProfessionalResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toProfessionalResponse(&ps[i], admin))
	}
	return out
}

type BookingResponse struct {
	ID             string     `json:"id"`
	ClientID       string     `json:"client_id"`
	ProfessionalID string     `json:"professional_id"`
	Status         string     `json:"status"`
	Rating         *int       `json:"rating"`
	Rateable       bool       `json:"rateable"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	RatedAt        *time.Time `json:"rated_at,omitempty"`

	Client       *UserMini             `json:"client,omitempty"`
	Professional *ProfessionalResponse `json:"professional,omitempty"`
}

func toBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:             b.ID.String(),
		ClientID:       b.ClientID.String(),
		ProfessionalID: b.ProfessionalID.String(),
		Status:         string(b.Status),
		Rating:         b.Rating,
		Rateable:       b.Rateable(),
		CreatedAt:      b.CreatedAt,
		ResolvedAt:     b.ResolvedAt,
		RatedAt:        b.RatedAt,
		Client:         toUserMini(b.Client),
	}
	if b.Professional != nil {
		p := toProfessionalResponse(b.Professional, false)
		resp.Professional = &p
	}
	return resp
}

func toBookingList(bs []models.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toBookingResponse(&bs[i]))
	}
	return out
}
