package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/authz"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/lock"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/realtime"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/utils"
)

// Service is the professional registry.
type Service struct {
	DB       *gorm.DB
	Locks    lock.Locker
	Notifier realtime.Notifier

	// Excluded holds normalized emails hidden from anonymous listings.
	Excluded []string
}

func NewService(gdb *gorm.DB, locks lock.Locker, notifier realtime.Notifier, excluded []string) *Service {
	if locks == nil {
		locks = lock.NewLocal()
	}
	if notifier == nil {
		notifier = realtime.Nop{}
	}
	norm := make([]string, 0, len(excluded))
	for _, e := range excluded {
		if e = utils.NormalizeEmail(e); e != "" {
			norm = append(norm, e)
		}
	}
	return &Service{DB: gdb, Locks: locks, Notifier: notifier, Excluded: norm}
}

type Filter struct {
	Skill    string
	Location string
	Query    string
	Limit    int
}

type listOptions struct {
	excludeHouse      bool
	includeSuspended  bool
	includeUnverified bool
}

// ListPublic is the anonymous listing: verified, not suspended and not one of
// the excluded house accounts.
func (s *Service) ListPublic(ctx context.Context, f Filter) ([]models.ProfessionalProfile, error) {
	return s.list(ctx, f, listOptions{excludeHouse: true})
}

// ListBookable is what signed-in users browse. Admins may also see suspended
// professionals.
func (s *Service) ListBookable(ctx context.Context, actor authz.Actor, f Filter) ([]models.ProfessionalProfile, error) {
	return s.list(ctx, f, listOptions{includeSuspended: actor.Is(models.RoleAdmin)})
}

// ListForAdmin returns every profile regardless of verification or suspension.
func (s *Service) ListForAdmin(ctx context.Context, actor authz.Actor) ([]models.ProfessionalProfile, error) {
	if err := actor.Require(models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.list(ctx, Filter{}, listOptions{includeSuspended: true, includeUnverified: true})
}

func (s *Service) list(ctx context.Context, f Filter, opts listOptions) ([]models.ProfessionalProfile, error) {
	var rows []models.ProfessionalProfile
	err := db.Retry(ctx, "registry.list", func() error {
		q := s.DB.WithContext(ctx).Preload("User")
		if !opts.includeUnverified {
			q = q.Where("is_verified = ?", true)
		}
		if !opts.includeSuspended {
			q = q.Where("is_suspended = ?", false)
		}
		if opts.excludeHouse && len(s.Excluded) > 0 {
			q = q.Where("user_id NOT IN (?)",
				s.DB.Model(&models.User{}).Select("id").Where("email IN ?", s.Excluded))
		}
		return q.Order("rating DESC").Order("review_count DESC").Order("created_at ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	out := rows[:0]
	for _, p := range rows {
		if matches(p, f) {
			out = append(out, p)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(p models.ProfessionalProfile, f Filter) bool {
	if skill := strings.ToLower(strings.TrimSpace(f.Skill)); skill != "" {
		found := false
		for _, s := range p.Skills {
			if strings.Contains(strings.ToLower(s), skill) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" {
		if !strings.Contains(strings.ToLower(p.Location), loc) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		name := strings.ToLower(p.BusinessName)
		if p.User != nil {
			name += " " + strings.ToLower(p.User.Name)
		}
		if !strings.Contains(name, q) {
			return false
		}
	}
	return true
}

// Get returns one profile. Profiles that are not live are visible only to
// their owner and to admins.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.ProfessionalProfile, error) {
	var p models.ProfessionalProfile
	err := db.Retry(ctx, "registry.get", func() error {
		return s.DB.WithContext(ctx).Preload("User").First(&p, "id = ?", id).Error
	})
	if err != nil {
		return nil, db.NotFound(err, "professional")
	}
	if !p.Bookable() && !actor.Is(models.RoleAdmin) && p.UserID != actor.UserID {
		return nil, apperr.New(apperr.KindNotFound, "professional not found")
	}
	return &p, nil
}

// GetByUserID returns the profile owned by a professional user.
func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.ProfessionalProfile, error) {
	var p models.ProfessionalProfile
	err := db.Retry(ctx, "registry.get_by_user", func() error {
		return s.DB.WithContext(ctx).Preload("User").First(&p, "user_id = ?", userID).Error
	})
	if err != nil {
		return nil, db.NotFound(err, "professional profile")
	}
	return &p, nil
}

type ProfileUpdate struct {
	BusinessName *string
	Skills       []string
	Phone        *string
	Location     *string
}

// UpdateProfile lets a professional edit their own listing. Verification and
// rating fields are never touched here.
func (s *Service) UpdateProfile(ctx context.Context, actor authz.Actor, in ProfileUpdate) (*models.ProfessionalProfile, error) {
	if err := actor.Require(models.RoleProfessional); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	errs := apperr.FieldErrors{}
	if in.BusinessName != nil {
		name := strings.TrimSpace(*in.BusinessName)
		if name == "" {
			errs.Add("business_name", "business name cannot be empty")
		}
		updates["business_name"] = name
	}
	if in.Skills != nil {
		skills := utils.NormalizeSkills(in.Skills)
		if len(skills) == 0 {
			errs.Add("skills", "at least one skill is required")
		}
		updates["skills"] = datatypes.JSONSlice[string](skills)
	}
	if in.Phone != nil {
		updates["phone"] = utils.NormalizePhone(*in.Phone)
	}
	if in.Location != nil {
		updates["location"] = strings.TrimSpace(*in.Location)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var p models.ProfessionalProfile
	err := db.Run(ctx, s.DB, "registry.update_profile", func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "user_id = ?", actor.UserID).Error; err != nil {
			return db.NotFound(err, "professional profile")
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&p).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.GetByUserID(ctx, actor.UserID)
}

// SetVerified is idempotent: setting the current value is a no-op, reported
// through changed=false.
func (s *Service) SetVerified(ctx context.Context, actor authz.Actor, id uuid.UUID, value bool) (*models.ProfessionalProfile, bool, error) {
	return s.setFlag(ctx, actor, id, "is_verified", verifiedField, func(bool) bool { return value })
}

func (s *Service) SetSuspended(ctx context.Context, actor authz.Actor, id uuid.UUID, value bool) (*models.ProfessionalProfile, bool, error) {
	return s.setFlag(ctx, actor, id, "is_suspended", suspendedField, func(bool) bool { return value })
}

// ToggleSuspended flips the suspension flag.
func (s *Service) ToggleSuspended(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.ProfessionalProfile, bool, error) {
	return s.setFlag(ctx, actor, id, "is_suspended", suspendedField, func(cur bool) bool { return !cur })
}

func verifiedField(p *models.ProfessionalProfile) *bool  { return &p.IsVerified }
func suspendedField(p *models.ProfessionalProfile) *bool { return &p.IsSuspended }

func (s *Service) setFlag(
	ctx context.Context,
	actor authz.Actor,
	id uuid.UUID,
	column string,
	field func(*models.ProfessionalProfile) *bool,
	next func(current bool) bool,
) (*models.ProfessionalProfile, bool, error) {
	if err := actor.Require(models.RoleAdmin); err != nil {
		return nil, false, err
	}

	unlock, err := s.Locks.Lock(ctx, "pro:"+id.String())
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindServiceUnavailable, "service temporarily unavailable", err)
	}
	defer unlock()

	var (
		p       models.ProfessionalProfile
		changed bool
	)
	err = db.Run(ctx, s.DB, "registry.set_"+column, func(tx *gorm.DB) error {
		changed = false
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("User").
			First(&p, "id = ?", id).Error; err != nil {
			return db.NotFound(err, "professional")
		}
		flag := field(&p)
		want := next(*flag)
		if *flag == want {
			return nil
		}
		if err := tx.Model(&models.ProfessionalProfile{}).Where("id = ?", p.ID).Update(column, want).Error; err != nil {
			return err
		}
		*flag = want
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		logger.WithCtx(ctx).Info("professional updated",
			"professional_id", p.ID,
			"verified", p.IsVerified,
			"suspended", p.IsSuspended,
			"by", actor.UserID)
		s.notifyProfile(ctx, &p)
	}
	return &p, changed, nil
}

// Remove hard-deletes the profile, its owning user and every booking that
// references it.
func (s *Service) Remove(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := actor.Require(models.RoleAdmin); err != nil {
		return err
	}

	unlock, err := s.Locks.Lock(ctx, "pro:"+id.String())
	if err != nil {
		return apperr.Wrap(apperr.KindServiceUnavailable, "service temporarily unavailable", err)
	}
	defer unlock()

	var removed int64
	err = db.Run(ctx, s.DB, "registry.remove", func(tx *gorm.DB) error {
		var p models.ProfessionalProfile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "id = ?", id).Error; err != nil {
			return db.NotFound(err, "professional")
		}

		res := tx.Where("professional_id = ?", p.ID).Delete(&models.Booking{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		if err := tx.Where("client_id = ?", p.UserID).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&p).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", p.UserID).Delete(&models.User{}).Error
	})
	if err != nil {
		return err
	}

	logger.WithCtx(ctx).Info("professional removed",
		"professional_id", id,
		"bookings_removed", removed,
		"by", actor.UserID)
	return nil
}

// RemoveUser resolves a user id to its professional profile and removes it.
// Non-professional users are deleted together with their bookings.
func (s *Service) RemoveUser(ctx context.Context, actor authz.Actor, userID uuid.UUID) error {
	if err := actor.Require(models.RoleAdmin); err != nil {
		return err
	}
	if p, err := s.GetByUserID(ctx, userID); err == nil {
		return s.Remove(ctx, actor, p.ID)
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}
	if userID == actor.UserID {
		return apperr.New(apperr.KindForbidden, "admins cannot remove themselves")
	}

	return db.Run(ctx, s.DB, "registry.remove_user", func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", userID).Error; err != nil {
			return db.NotFound(err, "user")
		}
		if u.Role == models.RoleAdmin {
			return apperr.New(apperr.KindForbidden, "admin accounts cannot be removed here")
		}
		if err := tx.Where("client_id = ?", u.ID).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		return tx.Delete(&u).Error
	})
}

func (s *Service) notifyProfile(ctx context.Context, p *models.ProfessionalProfile) {
	ev, err := realtime.NewEvent(realtime.EventProfileChanged, map[string]any{
		"professional_id": p.ID,
		"status":          p.Status(),
		"is_verified":     p.IsVerified,
		"is_suspended":    p.IsSuspended,
	}, p.UserID)
	if err != nil {
		return
	}
	s.Notifier.Notify(ctx, ev)
}
