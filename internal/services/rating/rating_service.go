package rating

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
)

// Aggregate folds one new rating into a running mean.
func Aggregate(current float64, count int, value int) (float64, int) {
	if count <= 0 {
		return float64(value), 1
	}
	return (current*float64(count) + float64(value)) / float64(count+1), count + 1
}

type RatingService struct {
	DB *gorm.DB
}

func NewRatingService(gdb *gorm.DB) *RatingService {
	return &RatingService{DB: gdb}
}

// Apply adds value to the professional's aggregate.
// This must be called within the DB transaction that stores the booking rating.
func (s *RatingService) Apply(tx *gorm.DB, professionalID uuid.UUID, value int) (*models.ProfessionalProfile, error) {
	if value < models.MinRating || value > models.MaxRating {
		return nil, fmt.Errorf("rating %d out of range", value)
	}

	var p models.ProfessionalProfile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", professionalID).Error; err != nil {
		return nil, db.NotFound(err, "professional")
	}

	rating, count := Aggregate(p.Rating, p.ReviewCount, value)
	if err := tx.Model(&p).Updates(map[string]any{
		"rating":       rating,
		"review_count": count,
	}).Error; err != nil {
		return nil, err
	}
	p.Rating = rating
	p.ReviewCount = count
	return &p, nil
}

// Recompute rebuilds the aggregate from the rated bookings. Used by the
// operator CLI after manual data fixes.
func (s *RatingService) Recompute(tx *gorm.DB, professionalID uuid.UUID) (*models.ProfessionalProfile, error) {
	var row struct {
		Total float64
		Count int
	}
	if err := tx.Model(&models.Booking{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(rating) AS count").
		Where("professional_id = ? AND rating IS NOT NULL", professionalID).
		Scan(&row).Error; err != nil {
		return nil, err
	}

	var p models.ProfessionalProfile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", professionalID).Error; err != nil {
		return nil, db.NotFound(err, "professional")
	}
	p.ReviewCount = row.Count
	p.Rating = 0
	if row.Count > 0 {
		p.Rating = row.Total / float64(row.Count)
	}
	if err := tx.Model(&p).Updates(map[string]any{
		"rating":       p.Rating,
		"review_count": p.ReviewCount,
	}).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
