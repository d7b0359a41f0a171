package content

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labnotes/dailyhi/internal/modules/timezone"
	"github.com/labnotes/dailyhi/internal/pkg/response"
)

type Handler struct {
	fetcher *Fetcher
	now     func() time.Time
}

func NewHandler(fetcher *Fetcher) *Handler {
	return &Handler{fetcher: fetcher, now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.today)
}

// today shows the content for the current UTC date alongside the zone picker.
func (h *Handler) today(c *gin.Context) {
	day := timezone.LocalDate(h.now().UTC(), 0)
	response.OK(c, gin.H{
		"today":   h.fetcher.Fetch(c.Request.Context(), day),
		"weekday": day.Weekday().String(),
		"zones":   timezone.Zones(),
	})
}
