package delivery

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/labnotes/dailyhi/internal/pkg/alert"
	"go.uber.org/zap"
)

// Locker takes a named lock across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// Job runs the dispatcher on a schedule. It takes a per-hour lock so only one
// process delivers a given hour, and reports failures and panics to the operator.
// Once anything was sent the lock is left to expire with lockTTL; it is released
// early only when the run failed before its first send, so another process may retry.
type Job struct {
	dispatcher *Dispatcher
	locker     Locker
	reporter   alert.Reporter
	lockTTL    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewJob(dispatcher *Dispatcher, locker Locker, reporter alert.Reporter, lockTTL time.Duration, logger *zap.Logger) *Job {
	return &Job{
		dispatcher: dispatcher,
		locker:     locker,
		reporter:   reporter,
		lockTTL:    lockTTL,
		logger:     logger.Named("DeliveryJob"),
		now:        time.Now,
	}
}

func lockKey(now time.Time) string {
	return "dailyhi:delivery:" + now.UTC().Format("2006010215")
}

// lockTTLAt stretches ttl so the key outlives the hour it names.
func lockTTLAt(now time.Time, ttl time.Duration) time.Duration {
	if rest := now.Truncate(time.Hour).Add(time.Hour).Sub(now); ttl < rest {
		return rest
	}
	return ttl
}

// Run is the cron entry point.
func (j *Job) Run(ctx context.Context) (err error) {
	now := j.now().UTC()
	var (
		report  Report
		release func()
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
			j.logger.Error("delivery panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
		if release != nil && err != nil && report.Sent == 0 && report.Failed == 0 {
			release()
		}
		if err != nil {
			j.alert(ctx, now, err)
		}
	}()

	if j.locker != nil {
		unlock, acquired, lockErr := j.locker.TryLock(ctx, lockKey(now), lockTTLAt(now, j.lockTTL))
		switch {
		case lockErr != nil:
			// A missed hour is not retried, so deliver unlocked.
			j.logger.Warn("run lock unavailable, delivering without it", zap.Error(lockErr))
		case !acquired:
			j.logger.Info("another process holds this hour, skipping", zap.String("key", lockKey(now)))
			return nil
		default:
			release = unlock
		}
	}

	report, err = j.dispatcher.Run(ctx, now)
	if err != nil {
		j.logger.Error("delivery failed", zap.Int("bucket", report.Bucket), zap.Error(err))
		return err
	}
	if report.Failed > 0 && report.Sent == 0 {
		err = fmt.Errorf("all %d sends failed for offset %d", report.Failed, report.Bucket)
		j.logger.Error("delivery failed", zap.Error(err))
		return err
	}
	return nil
}

func (j *Job) alert(ctx context.Context, now time.Time, err error) {
	if j.reporter == nil {
		return
	}
	body := fmt.Sprintf("Delivery run at %s failed:\n\n%v", now.Format(time.RFC3339), err)
	if rerr := j.reporter.Report(context.WithoutCancel(ctx), "delivery failed", body); rerr != nil {
		j.logger.Warn("failed to report delivery failure", zap.Error(rerr))
	}
}
