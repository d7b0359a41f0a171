package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labnotes/dailyhi/internal/database"
	"github.com/labnotes/dailyhi/internal/pkg/cron"
	"github.com/labnotes/dailyhi/internal/pkg/response"
	"gorm.io/gorm"
)

// Pinger reports whether a dependency answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AlertSender delivers the admin test email.
type AlertSender interface {
	SendAlert(ctx context.Context, to, subject, body string) error
}

type Deps struct {
	DB            *gorm.DB
	Redis         Pinger // optional
	Scheduler     *cron.Scheduler
	Mailer        AlertSender
	OperatorEmail string
}

func RegisterRoutes(rg *gin.RouterGroup, deps Deps, authMW gin.HandlerFunc) {
	rg.GET("/health", func(c *gin.Context) {
		dbOK := database.Ping(deps.DB)
		body := gin.H{"database": dbOK, "jobs": deps.Scheduler.List()}

		redisOK := true
		if deps.Redis != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			redisOK = deps.Redis.Ping(ctx) == nil
			cancel()
			body["redis"] = redisOK
		}

		status, code := "ok", http.StatusOK
		if !dbOK {
			status, code = "degraded", http.StatusServiceUnavailable
		} else if !redisOK {
			// delivery still runs without the lock
			status = "degraded"
		}
		body["status"] = status
		c.JSON(code, body)
	})

	cronGroup := rg.Group("/admin/cron", authMW)
	{
		cronGroup.GET("", func(c *gin.Context) {
			response.OK(c, deps.Scheduler.List())
		})

		cronGroup.GET("/:name", func(c *gin.Context) {
			result, err := deps.Scheduler.GetTask(c.Param("name"))
			if err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, result)
		})

		cronGroup.POST("/:name/run", func(c *gin.Context) {
			if err := deps.Scheduler.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.Accepted(c, gin.H{"message": "job triggered"})
		})
	}

	rg.POST("/admin/email/test", authMW, func(c *gin.Context) {
		if deps.OperatorEmail == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": 0, "code": http.StatusUnprocessableEntity, "message": "alert.operator_email is not set"})
			return
		}
		err := deps.Mailer.SendAlert(c.Request.Context(), deps.OperatorEmail, "Mail test", "If you can read this, outbound mail works.")
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": 0, "code": http.StatusUnprocessableEntity, "message": err.Error()})
			return
		}
		response.Message(c, "test email sent to "+deps.OperatorEmail)
	})
}
