package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labnotes/dailyhi/internal/models"
	pkgredis "github.com/labnotes/dailyhi/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLocker struct {
	held     map[string]bool
	err      error
	released []string
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	if f.err != nil {
		return func() {}, false, f.err
	}
	if f.held[key] {
		return func() {}, false, nil
	}
	if f.held == nil {
		f.held = map[string]bool{}
	}
	f.held[key] = true
	return func() {
		delete(f.held, key)
		f.released = append(f.released, key)
	}, true, nil
}

type fakeReporter struct {
	subjects []string
	bodies   []string
}

func (f *fakeReporter) Report(_ context.Context, subject, body string) error {
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

type panickingSubs struct{}

func (panickingSubs) ListVerifiedByOffset(context.Context, int) ([]models.Subscription, error) {
	panic("nil map")
}

var sixUTC = time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)

func newJob(subs SubscriberSource, mailer Mailer, locker Locker, reporter *fakeReporter) *Job {
	j := NewJob(newDispatcher(subs, &fakeContent{}, mailer), locker, reporter, time.Hour, zap.NewNop())
	j.now = func() time.Time { return sixUTC }
	return j
}

func TestJobKeepsHourLockAfterDelivery(t *testing.T) {
	subs := &fakeSubs{byOffset: map[int][]models.Subscription{0: {sub("a@example.com", "ca", 0)}}}
	mailer := &recordingMailer{}
	locker := &fakeLocker{}
	j := newJob(subs, mailer, locker, &fakeReporter{})

	require.NoError(t, j.Run(context.Background()))
	assert.Empty(t, locker.released)
	assert.True(t, locker.held["dailyhi:delivery:2024030506"])
	assert.Len(t, mailer.sent, 1)

	require.NoError(t, j.Run(context.Background()))
	assert.Len(t, mailer.sent, 1)
}

func TestJobReleasesLockWhenNothingWasSent(t *testing.T) {
	locker := &fakeLocker{}
	failing := newJob(&fakeSubs{err: errors.New("db gone")}, &recordingMailer{}, locker, &fakeReporter{})
	assert.Error(t, failing.Run(context.Background()))
	assert.Equal(t, []string{"dailyhi:delivery:2024030506"}, locker.released)

	subs := &fakeSubs{byOffset: map[int][]models.Subscription{0: {sub("a@example.com", "ca", 0)}}}
	mailer := &recordingMailer{}
	retry := newJob(subs, mailer, locker, &fakeReporter{})
	require.NoError(t, retry.Run(context.Background()))
	assert.Len(t, mailer.sent, 1)
}

func TestJobKeepsLockWhenEverySendFailed(t *testing.T) {
	subs := &fakeSubs{byOffset: map[int][]models.Subscription{0: {sub("a@example.com", "ca", 0)}}}
	locker := &fakeLocker{}
	j := newJob(subs, &recordingMailer{fail: map[string]bool{"a@example.com": true}}, locker, &fakeReporter{})

	assert.Error(t, j.Run(context.Background()))
	assert.Empty(t, locker.released)
}

func TestJobOneDeliveryPerHourAcrossProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	locker := pkgredis.New(rdb)

	subs := &fakeSubs{byOffset: map[int][]models.Subscription{0: {sub("a@example.com", "ca", 0)}}}
	mailer := &recordingMailer{}

	first := newJob(subs, mailer, locker, &fakeReporter{})
	second := newJob(subs, mailer, locker, &fakeReporter{})
	second.now = func() time.Time { return sixUTC.Add(2 * time.Second) }

	require.NoError(t, first.Run(context.Background()))
	require.NoError(t, second.Run(context.Background()))
	assert.Len(t, mailer.sent, 1)

	assert.True(t, mr.Exists("dailyhi:delivery:2024030506"))
	assert.Greater(t, mr.TTL("dailyhi:delivery:2024030506"), 59*time.Minute)

	next := newJob(subs, mailer, locker, &fakeReporter{})
	next.now = func() time.Time { return sixUTC.Add(time.Hour) }
	next.dispatcher = newDispatcher(&fakeSubs{byOffset: map[int][]models.Subscription{-1: {sub("b@example.com", "cb", -1)}}}, &fakeContent{}, mailer)
	require.NoError(t, next.Run(context.Background()))
	assert.Len(t, mailer.sent, 2)
}

func TestLockTTLAt(t *testing.T) {
	assert.Equal(t, time.Hour, lockTTLAt(sixUTC, 10*time.Minute))
	assert.Equal(t, 10*time.Minute, lockTTLAt(sixUTC.Add(50*time.Minute), 5*time.Minute))
	assert.Equal(t, 2*time.Hour, lockTTLAt(sixUTC, 2*time.Hour))
}

func TestJobDeliversWhenLockServiceDown(t *testing.T) {
	subs := &fakeSubs{byOffset: map[int][]models.Subscription{0: {sub("a@example.com", "ca", 0)}}}
	mailer := &recordingMailer{}
	j := newJob(subs, mailer, &fakeLocker{err: errors.New("redis down")}, &fakeReporter{})

	require.NoError(t, j.Run(context.Background()))
	assert.Len(t, mailer.sent, 1)
}

func TestJobReportsFailures(t *testing.T) {
	reporter := &fakeReporter{}
	j := newJob(&fakeSubs{err: errors.New("db gone")}, &recordingMailer{}, nil, reporter)

	assert.Error(t, j.Run(context.Background()))
	require.Len(t, reporter.subjects, 1)
	assert.Equal(t, "delivery failed", reporter.subjects[0])
	assert.Contains(t, reporter.bodies[0], "db gone")
}

func TestJobRecoversPanics(t *testing.T) {
	reporter := &fakeReporter{}
	j := newJob(panickingSubs{}, &recordingMailer{}, &fakeLocker{}, reporter)

	var err error
	assert.NotPanics(t, func() { err = j.Run(context.Background()) })
	assert.ErrorContains(t, err, "nil map")
	assert.Len(t, reporter.subjects, 1)
}

func TestJobReportsWhenEverySendFails(t *testing.T) {
	subs := &fakeSubs{byOffset: map[int][]models.Subscription{0: {sub("a@example.com", "ca", 0)}}}
	reporter := &fakeReporter{}
	j := newJob(subs, &recordingMailer{fail: map[string]bool{"a@example.com": true}}, nil, reporter)

	assert.Error(t, j.Run(context.Background()))
	assert.Len(t, reporter.subjects, 1)
}
