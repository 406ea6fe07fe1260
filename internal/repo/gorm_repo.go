package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogplatform/auth_service/internal/hash"
	"github.com/blogplatform/auth_service/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) Create(ctx context.Context, user *models.User) error {
	if !user.Role.Valid() {
		return ErrInvalidRole
	}
	user.Email = NormalizeEmail(user.Email)

	var existing models.User
	err := r.DB.WithContext(ctx).Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		return ErrAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *GormRepo) VerifyPassword(ctx context.Context, email, candidate string) (bool, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return hash.CheckPassword(user.PasswordHash, candidate), nil
}

func (r *GormRepo) UpdateLoginStats(ctx context.Context, email string) error {
	now := time.Now()
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Updates(map[string]any{
			"last_login_at": now,
			"login_count":   gorm.Expr("login_count + 1"),
		}).Error
}
