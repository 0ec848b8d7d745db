package booking

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/lock"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/metrics"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/services/rating"
)

const (
	DefaultDailyLimit = 3
	DefaultWindow     = 24 * time.Hour
)

// Service is the booking ledger. Creation is serialized per professional,
// resolution and rating per booking.
type Service struct {
	DB       *gorm.DB
	Locks    lock.Locker
	Notifier realtime.Notifier
	Ratings  *rating.RatingService

	Now        func() time.Time
	DailyLimit int
	Window     time.Duration
}

func NewService(gdb *gorm.DB, locks lock.Locker, notifier realtime.Notifier) *Service {
	if locks == nil {
		locks = lock.NewLocal()
	}
	if notifier == nil {
		notifier = realtime.Nop{}
	}
	return &Service{
		DB:         gdb,
		Locks:      locks,
		Notifier:   notifier,
		Ratings:    rating.NewRatingService(gdb),
		Now:        func() time.Time { return time.Now().UTC() },
		DailyLimit: DefaultDailyLimit,
		Window:     DefaultWindow,
	}
}

func proKey(id uuid.UUID) string     { return "pro:" + id.String() }
func bookingKey(id uuid.UUID) string { return "booking:" + id.String() }

// Create opens a pending request from the client to the professional.
func (s *Service) Create(ctx context.Context, actor authz.Actor, professionalID uuid.UUID) (*models.Booking, error) {
	b, err := s.create(ctx, actor, professionalID)
	outcome := "created"
	if err != nil {
		outcome = outcomeOf(err)
	}
	metrics.BookingRequests.WithLabelValues(outcome).Inc()
	return b, err
}

func (s *Service) create(ctx context.Context, actor authz.Actor, professionalID uuid.UUID) (*models.Booking, error) {
	if err := actor.Require(models.RoleClient); err != nil {
		return nil, err
	}

	unlock, err := s.Locks.Lock(ctx, proKey(professionalID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServiceUnavailable, "service temporarily unavailable", err)
	}
	defer unlock()

	var (
		booking models.Booking
		pro     models.ProfessionalProfile
	)
	err = db.Run(ctx, s.DB, "booking.create", func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pro, "id = ?", professionalID).Error; err != nil {
			return db.NotFound(err, "professional")
		}
		if !pro.Bookable() {
			return apperr.ErrNotVerified
		}

		var open int64
		if err := tx.Model(&models.Booking{}).
			Where("client_id = ? AND professional_id = ? AND status IN ?", actor.UserID, pro.ID, models.OpenStatuses).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return apperr.ErrDuplicatePendingRequest
		}

		now := s.Now()
		count, oldest, err := s.windowState(tx, pro.ID, now)
		if err != nil {
			return err
		}
		if count >= s.limit() {
			return apperr.ErrDailyLimitExceeded
		}

		booking = models.Booking{
			ClientID:       actor.UserID,
			ProfessionalID: pro.ID,
			Status:         models.BookingPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		if oldest == nil {
			oldest = &now
		}
		return tx.Model(&pro).Updates(map[string]any{
			"daily_request_count":  count + 1,
			"request_window_start": *oldest,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logger.WithCtx(ctx).Info("booking created",
		"booking_id", booking.ID,
		"client_id", booking.ClientID,
		"professional_id", booking.ProfessionalID)
	s.notify(ctx, realtime.EventBookingCreated, &booking, pro.UserID)
	return &booking, nil
}

// windowState reports how many bookings were created for the professional inside
// (now-Window, now] and the oldest creation time among them. Only the most
// recent DailyLimit rows can matter, so the scan is bounded.
func (s *Service) windowState(tx *gorm.DB, professionalID uuid.UUID, now time.Time) (int, *time.Time, error) {
	var recent []models.Booking
	if err := tx.Select("id", "created_at").
		Where("professional_id = ?", professionalID).
		Order("created_at DESC").
		Limit(s.limit()).
		Find(&recent).Error; err != nil {
		return 0, nil, err
	}

	cutoff := now.Add(-s.span())
	count := 0
	var oldest *time.Time
	for i := range recent {
		created := recent[i].CreatedAt
		if !created.After(cutoff) || created.After(now) {
			continue
		}
		count++
		if oldest == nil || created.Before(*oldest) {
			t := created
			oldest = &t
		}
	}
	return count, oldest, nil
}

func (s *Service) limit() int {
	if s.DailyLimit <= 0 {
		return DefaultDailyLimit
	}
	return s.DailyLimit
}

func (s *Service) span() time.Duration {
	if s.Window <= 0 {
		return DefaultWindow
	}
	return s.Window
}

// Resolve moves a pending booking to accepted or rejected. Only the owning
// professional may resolve, and only once verified.
func (s *Service) Resolve(ctx context.Context, actor authz.Actor, bookingID uuid.UUID, status string) (*models.Booking, error) {
	if err := actor.Require(models.RoleProfessional); err != nil {
		return nil, err
	}

	unlock, err := s.Locks.Lock(ctx, bookingKey(bookingID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServiceUnavailable, "service temporarily unavailable", err)
	}
	defer unlock()

	var (
		booking models.Booking
		pro     models.ProfessionalProfile
	)
	err = db.Run(ctx, s.DB, "booking.resolve", func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, "id = ?", bookingID).Error; err != nil {
			return db.NotFound(err, "booking")
		}
		if err := tx.First(&pro, "id = ?", booking.ProfessionalID).Error; err != nil {
			return db.NotFound(err, "professional")
		}
		if pro.UserID != actor.UserID {
			return apperr.New(apperr.KindForbidden, "only the requested professional can resolve this booking")
		}
		if !pro.IsVerified {
			return apperr.ErrNotVerified
		}

		target, ok := models.ParseBookingStatus(status)
		if !ok || target == models.BookingPending {
			return apperr.New(apperr.KindInvalidTransition, "status must be accepted or rejected")
		}
		if booking.Status != models.BookingPending {
			return apperr.New(apperr.KindInvalidTransition, "booking is already "+string(booking.Status))
		}

		now := s.Now()
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", booking.ID, models.BookingPending).
			Updates(map[string]any{"status": target, "resolved_at": now, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrInvalidTransition
		}
		booking.Status = target
		booking.ResolvedAt = &now
		booking.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingTransitions.WithLabelValues(string(booking.Status)).Inc()
	logger.WithCtx(ctx).Info("booking resolved", "booking_id", booking.ID, "status", booking.Status)
	s.notify(ctx, realtime.EventBookingResolved, &booking, pro.UserID)
	return &booking, nil
}

// Rate stores the client's score on an accepted booking and folds it into the
// professional's aggregate in the same transaction.
func (s *Service) Rate(ctx context.Context, actor authz.Actor, bookingID uuid.UUID, value int) (*models.Booking, error) {
	if value < models.MinRating || value > models.MaxRating {
		return nil, apperr.ErrInvalidRating
	}
	if err := actor.Require(models.RoleClient); err != nil {
		return nil, err
	}

	unlock, err := s.Locks.Lock(ctx, bookingKey(bookingID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindServiceUnavailable, "service temporarily unavailable", err)
	}
	defer unlock()

	var (
		booking models.Booking
		pro     *models.ProfessionalProfile
	)
	err = db.Run(ctx, s.DB, "booking.rate", func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&booking, "id = ?", bookingID).Error; err != nil {
			return db.NotFound(err, "booking")
		}
		if booking.ClientID != actor.UserID {
			return apperr.New(apperr.KindForbidden, "only the requesting client can rate this booking")
		}
		if booking.Rating != nil {
			return apperr.ErrAlreadyRated
		}
		if booking.Status != models.BookingAccepted {
			return apperr.ErrNotRateable
		}

		now := s.Now()
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND rating IS NULL", booking.ID).
			Updates(map[string]any{"rating": value, "rated_at": now, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrAlreadyRated
		}

		var err error
		pro, err = s.Ratings.Apply(tx, booking.ProfessionalID, value)
		if err != nil {
			return err
		}
		booking.Rating = &value
		booking.RatedAt = &now
		booking.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Ratings.WithLabelValues(strconv.Itoa(value)).Inc()
	logger.WithCtx(ctx).Info("booking rated",
		"booking_id", booking.ID,
		"value", value,
		"professional_rating", pro.Rating,
		"review_count", pro.ReviewCount)
	s.notify(ctx, realtime.EventBookingRated, &booking, pro.UserID)
	return &booking, nil
}

// Get returns a booking visible to one of its participants or an admin.
func (s *Service) Get(ctx context.Context, actor authz.Actor, bookingID uuid.UUID) (*models.Booking, error) {
	if err := actor.Require(models.RoleClient, models.RoleProfessional, models.RoleAdmin); err != nil {
		return nil, err
	}

	var b models.Booking
	err := db.Retry(ctx, "booking.get", func() error {
		return s.DB.WithContext(ctx).
			Preload("Client").
			Preload("Professional.User").
			First(&b, "id = ?", bookingID).Error
	})
	if err != nil {
		return nil, db.NotFound(err, "booking")
	}

	switch {
	case actor.Is(models.RoleAdmin):
	case actor.Is(models.RoleClient) && b.ClientID == actor.UserID:
	case actor.Is(models.RoleProfessional) && b.Professional != nil && b.Professional.UserID == actor.UserID:
	default:
		return nil, apperr.New(apperr.KindForbidden, "not a participant of this booking")
	}
	return &b, nil
}

// ListMine returns the caller's bookings, newest first: a client's requests,
// a professional's incoming requests, or everything for an admin.
func (s *Service) ListMine(ctx context.Context, actor authz.Actor) ([]models.Booking, error) {
	if err := actor.Require(models.RoleClient, models.RoleProfessional, models.RoleAdmin); err != nil {
		return nil, err
	}

	var out []models.Booking
	err := db.Retry(ctx, "booking.list_mine", func() error {
		q := s.DB.WithContext(ctx).
			Preload("Client").
			Preload("Professional.User").
			Order("created_at DESC")

		switch actor.Role {
		case models.RoleClient:
			q = q.Where("client_id = ?", actor.UserID)
		case models.RoleProfessional:
			q = q.Where("professional_id IN (?)",
				s.DB.Model(&models.ProfessionalProfile{}).Select("id").Where("user_id = ?", actor.UserID))
		}
		return q.Find(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sweep rebuilds the cached request window of every professional whose cache
// is non-empty. It returns the number of profiles changed.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	var ids []uuid.UUID
	err := db.Retry(ctx, "booking.sweep.scan", func() error {
		ids = ids[:0]
		return s.DB.WithContext(ctx).Model(&models.ProfessionalProfile{}).
			Where("daily_request_count > 0 OR request_window_start IS NOT NULL").
			Pluck("id", &ids).Error
	})
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, id := range ids {
		ok, err := s.refreshWindow(ctx, id)
		if err != nil {
			logger.WithCtx(ctx).Warn("window refresh failed", "professional_id", id, "error", err)
			continue
		}
		if ok {
			changed++
		}
	}
	if changed > 0 {
		metrics.WindowSweeps.Add(float64(changed))
	}
	return changed, nil
}

func (s *Service) refreshWindow(ctx context.Context, professionalID uuid.UUID) (bool, error) {
	unlock, err := s.Locks.Lock(ctx, proKey(professionalID))
	if err != nil {
		return false, err
	}
	defer unlock()

	changed := false
	err = db.Run(ctx, s.DB, "booking.sweep.refresh", func(tx *gorm.DB) error {
		var pro models.ProfessionalProfile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pro, "id = ?", professionalID).Error; err != nil {
			return err
		}
		count, oldest, err := s.windowState(tx, pro.ID, s.Now())
		if err != nil {
			return err
		}
		if count == pro.DailyRequestCount && sameTime(oldest, pro.RequestWindowStart) {
			return nil
		}
		changed = true
		return tx.Model(&pro).Updates(map[string]any{
			"daily_request_count":  count,
			"request_window_start": oldest,
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return changed, err
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// StartSweepWorker runs Sweep every interval until ctx is done.
func (s *Service) StartSweepWorker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Sweep(ctx)
				if err != nil {
					logger.L.Error("window sweep failed", "error", err)
					continue
				}
				logger.L.Debug("window sweep done", "changed", n)
			}
		}
	}()
}

// Event is the realtime payload for booking changes.
type Event struct {
	BookingID      uuid.UUID            `json:"booking_id"`
	ClientID       uuid.UUID            `json:"client_id"`
	ProfessionalID uuid.UUID            `json:"professional_id"`
	Status         models.BookingStatus `json:"status"`
	Rating         *int                 `json:"rating,omitempty"`
}

func (s *Service) notify(ctx context.Context, typ string, b *models.Booking, proUserID uuid.UUID) {
	ev, err := realtime.NewEvent(typ, Event{
		BookingID:      b.ID,
		ClientID:       b.ClientID,
		ProfessionalID: b.ProfessionalID,
		Status:         b.Status,
		Rating:         b.Rating,
	}, b.ClientID, proUserID)
	if err != nil {
		logger.WithCtx(ctx).Warn("booking event encode failed", "error", err)
		return
	}
	s.Notifier.Notify(ctx, ev)
}

func outcomeOf(err error) string {
	if k := apperr.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
