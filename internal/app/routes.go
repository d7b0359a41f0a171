package app

import (
	"time"

	"github.com/labnotes/dailyhi/internal/middleware"
	"github.com/labnotes/dailyhi/internal/modules/content"
	"github.com/labnotes/dailyhi/internal/modules/health"
	"github.com/labnotes/dailyhi/internal/modules/subscription"
	"github.com/labnotes/dailyhi/internal/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	subscribeRateMax    = 5
	subscribeRateWindow = time.Minute
)

type handlers struct {
	subscription *subscription.Handler
	content      *content.Handler
	mailer       health.AlertSender
}

func (a *App) registerRoutes(h handlers) {
	r := a.router
	authMW := middleware.AdminAuth(a.cfg.AdminToken)

	var rdb *redis.Client
	deps := health.Deps{
		DB:            a.db,
		Scheduler:     a.sched,
		Mailer:        h.mailer,
		OperatorEmail: a.cfg.Alert.OperatorEmail,
	}
	if a.redis != nil {
		rdb = a.redis.Raw()
		deps.Redis = a.redis
	}
	limitMW := middleware.RateLimit(rdb, subscribeRateMax, subscribeRateWindow, a.logger.Named("RateLimit"))

	r.NoRoute(response.NotFound)
	r.NoMethod(response.MethodNotAllowed)

	root := &r.RouterGroup
	h.content.RegisterRoutes(root)
	h.subscription.RegisterRoutes(root, authMW, limitMW)
	health.RegisterRoutes(root, deps, authMW)
}
