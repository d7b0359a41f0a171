package content

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labnotes/dailyhi/internal/config"
	"github.com/labnotes/dailyhi/internal/database/dbtest"
	"github.com/labnotes/dailyhi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type countingPhotos struct {
	calls atomic.Int32
	photo *Photo
	err   error
	delay time.Duration
	days  []string
	mu    sync.Mutex
}

func (c *countingPhotos) FindPhoto(_ context.Context, weekday string, _ time.Time) (*Photo, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.days = append(c.days, weekday)
	c.mu.Unlock()
	time.Sleep(c.delay)
	return c.photo, c.err
}

type countingFacts struct {
	calls atomic.Int32
	fact  string
	err   error
}

func (c *countingFacts) Fact(context.Context, time.Time) (string, error) {
	c.calls.Add(1)
	return c.fact, c.err
}

var testContentConfig = config.ContentConfig{
	Timeout: time.Second,
	Fallback: config.FallbackConfig{
		PhotoURL:        "https://example.com/sunrise.jpg",
		AttributionName: "Fallback",
		Fact:            "fallback fact",
	},
}

func newTestFetcher(t *testing.T, photos PhotoSource, facts FactSource) (*Fetcher, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	return NewFetcher(db, photos, facts, testContentConfig, zap.NewNop()), db
}

var tuesday = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func TestFetchComposesAndCaches(t *testing.T) {
	photos := &countingPhotos{photo: &Photo{URL: "https://live.staticflickr.com/1.jpg", PageURL: "https://flickr.com/p/1/sizes/l/", Width: 1024, Height: 768, AttributionName: "me"}}
	facts := &countingFacts{fact: "Octopuses have three hearts."}
	f, db := newTestFetcher(t, photos, facts)

	got := f.Fetch(context.Background(), tuesday)
	assert.Equal(t, "2024-03-05", got.Date)
	assert.Equal(t, "https://live.staticflickr.com/1.jpg", got.PhotoURL)
	assert.Equal(t, "Octopuses have three hearts.", got.Fact)
	assert.False(t, got.Fallback)
	assert.Equal(t, []string{"Tuesday"}, photos.days)

	again := f.Fetch(context.Background(), tuesday)
	assert.Equal(t, got.ID, again.ID)
	assert.EqualValues(t, 1, photos.calls.Load())
	assert.EqualValues(t, 1, facts.calls.Load())

	var count int64
	require.NoError(t, db.Model(&models.DailyContent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFetchSingleFlightsConcurrentCallers(t *testing.T) {
	photos := &countingPhotos{photo: &Photo{URL: "https://live.staticflickr.com/1.jpg"}, delay: 50 * time.Millisecond}
	facts := &countingFacts{fact: "fact"}
	f, _ := newTestFetcher(t, photos, facts)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Fetch(context.Background(), tuesday)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, photos.calls.Load())
}

func TestFetchFallsBack(t *testing.T) {
	photos := &countingPhotos{err: errors.New("flickr down")}
	facts := &countingFacts{err: errors.New("feed down")}
	f, _ := newTestFetcher(t, photos, facts)

	got := f.Fetch(context.Background(), tuesday)
	assert.True(t, got.Fallback)
	assert.Equal(t, "https://example.com/sunrise.jpg", got.PhotoURL)
	assert.Equal(t, "Fallback", got.AttributionName)
	assert.Equal(t, "fallback fact", got.Fact)

	// fallbacks are cached for the date too
	f.Fetch(context.Background(), tuesday)
	assert.EqualValues(t, 1, photos.calls.Load())
}

func TestFetchNoPhotoMatchedKeepsFact(t *testing.T) {
	f, _ := newTestFetcher(t, &countingPhotos{}, &countingFacts{fact: "real fact"})
	got := f.Fetch(context.Background(), tuesday)
	assert.True(t, got.Fallback)
	assert.Equal(t, "real fact", got.Fact)
}

func TestFetchReturnsRowStoredByAnotherProcess(t *testing.T) {
	photos := &countingPhotos{photo: &Photo{URL: "https://mine.jpg"}}
	f, db := newTestFetcher(t, photos, &countingFacts{fact: "mine"})
	require.NoError(t, db.Create(&models.DailyContent{Date: "2024-03-05", PhotoURL: "https://theirs.jpg", Fact: "theirs"}).Error)

	got := f.Fetch(context.Background(), tuesday)
	assert.Equal(t, "https://theirs.jpg", got.PhotoURL)
	assert.Zero(t, photos.calls.Load())
}

func TestFetchSurvivesStoreFailure(t *testing.T) {
	f, db := newTestFetcher(t, &countingPhotos{photo: &Photo{URL: "https://a.jpg"}}, &countingFacts{fact: "fact"})
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	got := f.Fetch(context.Background(), tuesday)
	assert.Equal(t, "https://a.jpg", got.PhotoURL)
	assert.Equal(t, "fact", got.Fact)
}
