package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeman_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/db"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/logger"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/models"
	"github.com/Windi-Fikriyansyah/homeman_be/internal/utils"
)

// Service is the identity and role store: registration, credential checks
// and token issuing.
type Service struct {
	DB         *gorm.DB
	JWTSecret  string
	ExpiresMin int
}

func NewService(gdb *gorm.DB, jwtSecret string, expiresMin int) *Service {
	return &Service{DB: gdb, JWTSecret: jwtSecret, ExpiresMin: expiresMin}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     string

	// professional only
	BusinessName string
	Location     string
	Skills       []string
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

func (s Session) Role() models.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// parseRole maps public sign-up roles. Admin is never self-assigned.
func parseRole(raw string) (models.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "client", "customer":
		return models.RoleClient, true
	case "professional", "pro":
		return models.RoleProfessional, true
	default:
		return "", false
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := utils.NormalizeEmail(in.Email)
	phone := utils.NormalizePhone(in.Phone)
	password := strings.TrimSpace(in.Password)
	skills := utils.NormalizeSkills(in.Skills)

	errs := apperr.FieldErrors{}
	if name == "" {
		errs.Add("name", "name is required")
	}
	if email == "" {
		errs.Add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		errs.Add("email", "email format is invalid")
	}
	if password == "" {
		errs.Add("password", "password is required")
	} else if len(password) < 6 {
		errs.Add("password", "password must be at least 6 characters")
	}
	if phone != "" && len(phone) < 8 {
		errs.Add("phone", "phone number is invalid")
	}

	role, ok := parseRole(in.Role)
	if strings.EqualFold(strings.TrimSpace(in.Role), string(models.RoleAdmin)) {
		return nil, apperr.New(apperr.KindForbidden, "admin accounts cannot be self-registered")
	}
	if !ok {
		errs.Add("role", "role must be client or professional")
	}
	if role == models.RoleProfessional && len(skills) == 0 {
		errs.Add("skills", "at least one skill is required for professionals")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: hashed,
		Role:     role,
		IsActive: true,
	}

	err = db.Run(ctx, s.DB, "identity.register", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.ErrDuplicateEmail
		}

		u.ID = uuid.Nil
		if err := tx.Create(u).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.ErrDuplicateEmail
			}
			return err
		}

		if role != models.RoleProfessional {
			return nil
		}
		businessName := strings.TrimSpace(in.BusinessName)
		if businessName == "" {
			businessName = name
		}
		profile := &models.ProfessionalProfile{
			UserID:       u.ID,
			BusinessName: businessName,
			Skills:       skills,
			Phone:        phone,
			Location:     strings.TrimSpace(in.Location),
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		u.ProfessionalProfile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithCtx(ctx).Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Authenticate checks credentials and issues a session token. Unknown email,
// wrong password and inactive accounts are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = utils.NormalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, apperr.ErrInvalidCredentials
	}

	var u models.User
	err := db.Retry(ctx, "identity.authenticate", func() error {
		return s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive || !utils.CheckPassword(u.Password, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.IssueToken(&u)
}

func (s *Service) IssueToken(u *models.User) (*Session, error) {
	token, exp, err := utils.SignJWT(s.JWTSecret, u.ID.String(), string(u.Role), s.ExpiresMin)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// ParseToken verifies a bearer token.
func (s *Service) ParseToken(token string) (*utils.Claims, error) {
	return utils.ParseJWT(s.JWTSecret, token)
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	err := db.Retry(ctx, "identity.me", func() error {
		return s.DB.WithContext(ctx).Preload("ProfessionalProfile").First(&u, "id = ?", userID).Error
	})
	if err != nil {
		return nil, db.NotFound(err, "user")
	}
	return &u, nil
}

// UpsertExternalUser signs in a user verified by an external identity
// provider. New accounts are always clients; existing accounts keep their role.
func (s *Service) UpsertExternalUser(ctx context.Context, email, name string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, apperr.Validation(map[string][]string{"email": {"email not provided by identity provider"}})
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	var u models.User
	err := db.Run(ctx, s.DB, "identity.upsert_external", func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&u).Error
		if err == nil {
			if u.Name == "" {
				return tx.Model(&u).Update("name", name).Error
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// never used for password login
		hashed, err := utils.HashPassword(randomSecret(24))
		if err != nil {
			return err
		}
		u = models.User{
			Name:     name,
			Email:    email,
			Password: hashed,
			Role:     models.RoleClient,
			IsActive: true,
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.ErrInvalidCredentials
	}
	return &u, nil
}

// CreateAdmin is used by the operator CLI; there is no HTTP path to it.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || len(strings.TrimSpace(password)) < 6 {
		return nil, apperr.Validation(map[string][]string{"admin": {"email and a password of at least 6 characters are required"}})
	}
	hashed, err := utils.HashPassword(strings.TrimSpace(password))
	if err != nil {
		return nil, err
	}
	u := &models.User{Name: strings.TrimSpace(name), Email: email, Password: hashed, Role: models.RoleAdmin, IsActive: true}
	if u.Name == "" {
		u.Name = "Administrator"
	}
	err = db.Run(ctx, s.DB, "identity.create_admin", func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.ErrDuplicateEmail
		}
		return tx.Create(u).Error
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint")
}

func randomSecret(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
