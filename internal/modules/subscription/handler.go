package subscription

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/labnotes/dailyhi/internal/modules/timezone"
	"github.com/labnotes/dailyhi/internal/pkg/pagination"
	"github.com/labnotes/dailyhi/internal/pkg/response"
)

// SubscribeDTO is accepted as a form post or JSON.
type SubscribeDTO struct {
	Email    string      `form:"email"    json:"email"`
	Timezone json.Number `form:"timezone" json:"timezone"`
}

type TimezoneDTO struct {
	Timezone json.Number `form:"timezone" json:"timezone"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public lifecycle routes and the admin listing.
// limitMW guards POST /subscribe.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW, limitMW gin.HandlerFunc) {
	rg.GET("/timezones", h.timezones)
	rg.POST("/subscribe", limitMW, h.subscribe)
	rg.GET("/subscribed", h.subscribed)
	rg.GET("/verify/:code", h.verify)
	rg.GET("/unsubscribe/:code", h.unsubscribe)
	rg.GET("/timezone/:code", h.showTimezone)
	rg.POST("/timezone/:code", h.updateTimezone)
	rg.GET("/timezoned", h.timezoned)

	admin := rg.Group("/admin", authMW)
	admin.GET("/subscriptions", h.list)
}

func parseOffset(raw json.Number) (int, error) {
	offset, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, ErrInvalidTimezone
	}
	return offset, nil
}

func (h *Handler) timezones(c *gin.Context) {
	response.OK(c, timezone.Zones())
}

func (h *Handler) subscribe(c *gin.Context) {
	var dto SubscribeDTO
	if err := c.ShouldBind(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	offset, err := parseOffset(dto.Timezone)
	if err == nil {
		_, err = h.svc.Subscribe(c.Request.Context(), dto.Email, offset)
	}
	if err != nil {
		if IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.SeeOther(c, "/subscribed")
}

func (h *Handler) subscribed(c *gin.Context) {
	response.Message(c, "Almost there. Check your inbox and click the link to verify your email address.")
}

func (h *Handler) verify(c *gin.Context) {
	if _, err := h.svc.Verify(c.Request.Context(), c.Param("code")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Message(c, "Thanks! Your email address is verified, daily bliss starts tomorrow morning.")
}

func (h *Handler) unsubscribe(c *gin.Context) {
	if _, err := h.svc.Unsubscribe(c.Request.Context(), c.Param("code")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Message(c, "You have been unsubscribed. No more emails from us.")
}

func (h *Handler) showTimezone(c *gin.Context) {
	sub, err := h.svc.Find(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if sub == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, gin.H{
		"code":     sub.Code,
		"timezone": sub.TimezoneOffset,
		"zones":    timezone.Zones(),
	})
}

func (h *Handler) updateTimezone(c *gin.Context) {
	var dto TimezoneDTO
	if err := c.ShouldBind(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	offset, err := parseOffset(dto.Timezone)
	if err == nil {
		_, err = h.svc.Retimezone(c.Request.Context(), c.Param("code"), offset)
	}
	if err != nil {
		if IsValidation(err) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.SeeOther(c, "/timezoned")
}

func (h *Handler) timezoned(c *gin.Context) {
	response.Message(c, "Timezone updated, expect your next email in the morning.")
}

func (h *Handler) list(c *gin.Context) {
	subs, meta, err := h.svc.ListVerified(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, subs, meta)
}
