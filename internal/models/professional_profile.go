// internal/models/professional_profile.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProfessionalStatus string

const (
	ProfessionalPending   ProfessionalStatus = "pending"   // waiting for admin approval
	ProfessionalLive      ProfessionalStatus = "live"      // verified and visible
	ProfessionalSuspended ProfessionalStatus = "suspended" // hidden, rating history kept
)

type ProfessionalProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	BusinessName string                      `gorm:"type:varchar(120)" json:"business_name"`
	Skills       datatypes.JSONSlice[string] `json:"skills"`
	Phone        string                      `gorm:"type:varchar(30)" json:"phone"`
	Location     string                      `gorm:"type:varchar(120);index" json:"location"`

	IsVerified  bool `gorm:"not null;default:false;index" json:"is_verified"`
	IsSuspended bool `gorm:"not null;default:false;index" json:"is_suspended"`

	// Cached view of the request window, rebuilt from bookings on every
	// admission and by the sweep worker.
	DailyRequestCount  int        `gorm:"not null;default:0" json:"daily_request_count"`
	RequestWindowStart *time.Time `json:"request_window_start,omitempty"`

	// Derived from rated bookings only.
	Rating      float64 `gorm:"not null;default:0" json:"rating"`
	ReviewCount int     `gorm:"not null;default:0" json:"review_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (p *ProfessionalProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// Bookable reports whether clients may open requests against the profile.
func (p *ProfessionalProfile) Bookable() bool {
	return p.IsVerified && !p.IsSuspended
}

func (p *ProfessionalProfile) Status() ProfessionalStatus {
	switch {
	case p.IsSuspended:
		return ProfessionalSuspended
	case p.IsVerified:
		return ProfessionalLive
	default:
		return ProfessionalPending
	}
}

// Rated is false until the first review lands; Rating means nothing before that.
func (p *ProfessionalProfile) Rated() bool {
	return p.ReviewCount > 0
}

// DisplayRating never reports a score for an unrated professional.
func (p *ProfessionalProfile) DisplayRating() float64 {
	if !p.Rated() {
		return 0
	}
	return p.Rating
}

// PrimarySkill is the first listed skill, used as the card headline.
func (p *ProfessionalProfile) PrimarySkill() string {
	if len(p.Skills) == 0 {
		return ""
	}
	return p.Skills[0]
}
