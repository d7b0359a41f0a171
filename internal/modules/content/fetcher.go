package content

import (
	"context"
	"errors"
	"time"

	"github.com/labnotes/dailyhi/internal/config"
	"github.com/labnotes/dailyhi/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fetcher returns the photo and fact for a calendar date.
// Content is composed at most once per date: concurrent callers share one fetch
// and the result is stored in daily_contents; racing processes keep the first row.
type Fetcher struct {
	db       *gorm.DB
	photos   PhotoSource
	facts    FactSource
	fallback config.FallbackConfig
	timeout  time.Duration
	logger   *zap.Logger
	group    singleflight.Group
}

func NewFetcher(db *gorm.DB, photos PhotoSource, facts FactSource, cfg config.ContentConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		db:       db,
		photos:   photos,
		facts:    facts,
		fallback: cfg.Fallback,
		timeout:  cfg.Timeout,
		logger:   logger.Named("ContentFetcher"),
	}
}

// Fetch never fails. Source errors degrade to the fallback content and
// store errors to an uncached result.
func (f *Fetcher) Fetch(ctx context.Context, day time.Time) *models.DailyContent {
	key := day.Format(time.DateOnly)
	v, _, _ := f.group.Do(key, func() (any, error) {
		return f.load(context.WithoutCancel(ctx), day, key), nil
	})
	out := *v.(*models.DailyContent)
	return &out
}

func (f *Fetcher) load(ctx context.Context, day time.Time, key string) *models.DailyContent {
	cached, err := f.find(ctx, key)
	if err != nil {
		f.logger.Warn("failed to read cached content", zap.String("date", key), zap.Error(err))
	} else if cached != nil {
		return cached
	}

	content := f.compose(ctx, day, key)
	err = f.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "date"}}, DoNothing: true}).
		Create(content).Error
	if err != nil {
		f.logger.Warn("failed to store content", zap.String("date", key), zap.Error(err))
		return content
	}

	// another process may have stored the date first
	if stored, err := f.find(ctx, key); err == nil && stored != nil {
		return stored
	}
	return content
}

func (f *Fetcher) find(ctx context.Context, key string) (*models.DailyContent, error) {
	var c models.DailyContent
	if err := f.db.WithContext(ctx).Where("date = ?", key).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (f *Fetcher) compose(ctx context.Context, day time.Time, key string) *models.DailyContent {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	content := &models.DailyContent{Date: key}
	logger := f.logger.With(zap.String("date", key))

	photo, err := f.photos.FindPhoto(ctx, day.Weekday().String(), day)
	switch {
	case err != nil:
		logger.Warn("photo lookup failed, using fallback", zap.Error(err))
	case photo == nil:
		logger.Info("no photo matched, using fallback")
	}
	if photo != nil {
		content.PhotoURL = photo.URL
		content.PhotoPageURL = photo.PageURL
		content.PhotoWidth = photo.Width
		content.PhotoHeight = photo.Height
		content.AttributionURL = photo.AttributionURL
		content.AttributionName = photo.AttributionName
	} else {
		content.Fallback = true
		content.PhotoURL = f.fallback.PhotoURL
		content.PhotoPageURL = f.fallback.PhotoURL
		content.AttributionURL = f.fallback.AttributionURL
		content.AttributionName = f.fallback.AttributionName
	}

	fact, err := f.facts.Fact(ctx, day)
	if err != nil || fact == "" {
		logger.Warn("fact lookup failed, using fallback", zap.Error(err))
		content.Fallback = true
		fact = f.fallback.Fact
	}
	content.Fact = fact
	return content
}
