package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogplatform/auth_service/internal/models"
)

// GormStore persists sessions in the service database. DeleteByToken relies
// on a single DELETE statement, so the check-and-delete is atomic at the
// database level and concurrent rotations of the same token cannot both win.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (g *GormStore) Create(ctx context.Context, in CreateInput) (*models.Session, error) {
	now := time.Now()
	s := models.Session{
		ID:        uuid.New(),
		UserID:    in.UserID,
		UserEmail: in.UserEmail,
		TokenHash: in.TokenHash,
		IP:        in.IP,
		UserAgent: in.UserAgent,
		Remember:  in.Remember,
		CreatedAt: now,
		ExpiresAt: now.Add(ttlFor(in.Remember)),
	}

	if err := g.DB.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (g *GormStore) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var s models.Session
	if err := g.DB.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if s.IsExpired(time.Now()) {
		if err := g.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return &s, nil
}

func (g *GormStore) GetByToken(ctx context.Context, tokenHash string) (*models.Session, error) {
	var s models.Session
	if err := g.DB.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if s.IsExpired(time.Now()) {
		if err := g.DB.WithContext(ctx).Where("id = ?", s.ID).Delete(&models.Session{}).Error; err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return &s, nil
}

func (g *GormStore) DeleteByToken(ctx context.Context, tokenHash string) (bool, error) {
	result := g.DB.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&models.Session{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (g *GormStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := g.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (g *GormStore) Cleanup(ctx context.Context) (int64, error) {
	result := g.DB.WithContext(ctx).Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
