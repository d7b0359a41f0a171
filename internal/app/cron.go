package app

import (
	"context"
	"time"

	"github.com/labnotes/dailyhi/internal/config"
	"github.com/labnotes/dailyhi/internal/modules/delivery"
	pkgcron "github.com/labnotes/dailyhi/internal/pkg/cron"
	"go.uber.org/zap"
)

const deliveryJobName = "daily_delivery"

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, job *delivery.Job, cfg *config.AppConfig, logger *zap.Logger) error {
	cronLogger := logger.Named("CronService")

	return sched.Register(pkgcron.Job{
		Name:        deliveryJobName,
		Description: "Send the daily email to the timezone where it is now the send hour",
		Spec:        cfg.Delivery.Schedule,
		Fn: func(ctx context.Context) error {
			start := time.Now()
			cronLogger.Info("delivery run starting")
			if err := job.Run(ctx); err != nil {
				cronLogger.Warn("delivery run failed", zap.Duration("took", time.Since(start)), zap.Error(err))
				return err
			}
			cronLogger.Info("delivery run finished", zap.Duration("took", time.Since(start)))
			return nil
		},
	})
}
