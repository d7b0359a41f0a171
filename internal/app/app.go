package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/labnotes/dailyhi/internal/config"
	"github.com/labnotes/dailyhi/internal/database"
	"github.com/labnotes/dailyhi/internal/middleware"
	"github.com/labnotes/dailyhi/internal/modules/content"
	"github.com/labnotes/dailyhi/internal/modules/delivery"
	"github.com/labnotes/dailyhi/internal/modules/subscription"
	"github.com/labnotes/dailyhi/internal/pkg/alert"
	pkgcron "github.com/labnotes/dailyhi/internal/pkg/cron"
	"github.com/labnotes/dailyhi/internal/pkg/mail"
	pkgredis "github.com/labnotes/dailyhi/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	redis  *pkgredis.Client
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: DB → Redis → services → routes, and starts the scheduler.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, running without run lock and rate limit", zap.Error(err))
		rc = nil
	}

	app, err := build(logger, cfg, db, rc)
	if err != nil {
		return nil, err
	}
	go app.sched.Start(app.ctx)
	return app, nil
}

// build wires services and routes. rc may be nil, which disables the run lock and rate limit.
func build(logger *zap.Logger, cfg *config.AppConfig, db *gorm.DB, rc *pkgredis.Client) (*App, error) {
	transport, err := mail.New(cfg.Mail, logger)
	if err != nil {
		return nil, fmt.Errorf("mail: %w", err)
	}
	sender := mail.NewSender(transport, cfg.Mail)

	store := subscription.NewStore(db)
	subSvc := subscription.NewService(store, subscription.NewDNSLookup(cfg.MXTimeout, logger), sender, cfg.BaseURL, logger)

	fetcher := content.NewFetcher(db,
		content.NewFlickrClient(cfg.Content.FlickrAPIKey, cfg.Content.FlickrURL, cfg.Content.LookbackDays, cfg.Content.Timeout),
		content.NewFeedFacts(cfg.Content.FactFeedURL, cfg.Content.Timeout),
		cfg.Content, logger)

	dispatcher := delivery.NewDispatcher(store, fetcher, sender, delivery.Options{
		SendHour:    cfg.Delivery.SendHour,
		BaseURL:     cfg.BaseURL,
		Concurrency: cfg.Delivery.Concurrency,
	}, logger)

	reporter := alert.Logged(alert.Multi{
		alert.NewEmailReporter(sender, cfg.Alert.OperatorEmail),
		alert.NewBarkReporter(cfg.Alert.BarkKey, cfg.Alert.BarkServer),
	}, logger)

	var locker delivery.Locker
	if rc != nil {
		locker = rc
	}
	job := delivery.NewJob(dispatcher, locker, reporter, cfg.Delivery.LockTTL, logger)

	sched := pkgcron.New()
	if err := registerCronJobs(sched, job, cfg, logger); err != nil {
		return nil, fmt.Errorf("cron: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger.Named("HTTP")))
	router.Use(newCORS(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{cfg: cfg, router: router, db: db, redis: rc, logger: logger, ctx: ctx, cancel: cancel, sched: sched}
	app.registerRoutes(handlers{
		subscription: subscription.NewHandler(subSvc),
		content:      content.NewHandler(fetcher),
		mailer:       sender,
	})
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops the scheduler and closes connections.
func (a *App) Shutdown() {
	a.cancel()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
