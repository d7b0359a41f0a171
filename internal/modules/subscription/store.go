package subscription

import (
	"context"
	"errors"

	"github.com/labnotes/dailyhi/internal/models"
	"github.com/labnotes/dailyhi/internal/pkg/pagination"
	"github.com/labnotes/dailyhi/internal/pkg/response"
	"gorm.io/gorm"
)

// Store persists subscriptions. Updates and deletes return the number of rows
// they touched; zero is not an error.
type Store interface {
	Insert(ctx context.Context, sub *models.Subscription) error
	FindByCode(ctx context.Context, code string) (*models.Subscription, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateVerified(ctx context.Context, code string) (int64, error)
	UpdateTimezone(ctx context.Context, code string, offset int) (int64, error)
	Delete(ctx context.Context, code string) (int64, error)
	ListVerifiedByOffset(ctx context.Context, offset int) ([]models.Subscription, error)
	ListVerified(ctx context.Context, q pagination.Query) ([]models.Subscription, response.Pagination, error)
	VerifiedEmails(ctx context.Context) ([]string, error)
	CountVerified(ctx context.Context) (int64, error)
}

type gormStore struct{ db *gorm.DB }

// NewStore returns a Store backed by gorm.
func NewStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) Insert(ctx context.Context, sub *models.Subscription) error {
	return s.db.WithContext(ctx).Create(sub).Error
}

func (s *gormStore) FindByCode(ctx context.Context, code string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// UpdateVerified only touches unverified rows, so a second verify affects nothing.
func (s *gormStore) UpdateVerified(ctx context.Context, code string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("code = ? AND verified = ?", code, false).
		Update("verified", true)
	return result.RowsAffected, result.Error
}

func (s *gormStore) UpdateTimezone(ctx context.Context, code string, offset int) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("code = ?", code).
		Update("timezone_offset", offset)
	return result.RowsAffected, result.Error
}

func (s *gormStore) Delete(ctx context.Context, code string) (int64, error) {
	result := s.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Subscription{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) ListVerifiedByOffset(ctx context.Context, offset int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Where("verified = ? AND timezone_offset = ?", true, offset).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}

func (s *gormStore) ListVerified(ctx context.Context, q pagination.Query) ([]models.Subscription, response.Pagination, error) {
	var subs []models.Subscription
	query := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("verified = ?", true).
		Order("created_at DESC")
	meta, err := pagination.Paginate(query, q, &subs)
	return subs, meta, err
}

func (s *gormStore) VerifiedEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("verified = ?", true).
		Order("created_at ASC").
		Pluck("email", &emails).Error
	return emails, err
}

func (s *gormStore) CountVerified(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).Where("verified = ?", true).Count(&count).Error
	return count, err
}
