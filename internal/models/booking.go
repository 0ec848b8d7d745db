// internal/models/booking.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"  // waiting for the professional
	BookingAccepted BookingStatus = "accepted" // terminal, rateable once
	BookingRejected BookingStatus = "rejected" // terminal
)

// ParseBookingStatus accepts the verbs and aliases the front-end sends.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return BookingPending, true
	case "accepted", "accept", "approved", "approve":
		return BookingAccepted, true
	case "rejected", "reject", "declined", "decline":
		return BookingRejected, true
	default:
		return "", false
	}
}

const (
	MinRating = 1
	MaxRating = 5
)

type Booking struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID       uuid.UUID     `gorm:"type:uuid;index;not null" json:"client_id"`
	ProfessionalID uuid.UUID     `gorm:"type:uuid;index;not null" json:"professional_id"`
	Status         BookingStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`

	// Set at most once, only while accepted.
	Rating  *int       `gorm:"check:chk_bookings_rating,rating IS NULL OR (rating >= 1 AND rating <= 5)" json:"rating,omitempty"`
	RatedAt *time.Time `json:"rated_at,omitempty"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relations
	Client       *User                `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Professional *ProfessionalProfile `gorm:"foreignKey:ProfessionalID" json:"professional,omitempty"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// Open bookings block a second request for the same client/professional pair.
func (b *Booking) Open() bool {
	return b.Status == BookingPending || b.Status == BookingAccepted
}

func (b *Booking) Rateable() bool {
	return b.Status == BookingAccepted && b.Rating == nil
}

// OpenStatuses is the status set used by the duplicate-request rule.
var OpenStatuses = []BookingStatus{BookingPending, BookingAccepted}
