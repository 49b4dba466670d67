package httpserver

import (
	"net/http"
	"time"

	"salon_reminder_service/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type statsHandler struct {
	svc    *app.DeliveryService
	logger *logrus.Entry
}

// dateRange parses optional ?from=YYYY-MM-DD&to=YYYY-MM-DD query parameters,
// defaulting to the trailing 7 days. The upper bound is exclusive.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := now.AddDate(0, 0, -7)
	to := now.AddDate(0, 0, 1)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' date, want YYYY-MM-DD"})
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' date, want YYYY-MM-DD"})
			return time.Time{}, time.Time{}, false
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, true
}

func (h *statsHandler) listMessages(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	statuses, err := h.svc.ListStatuses(c.Request.Context(), c.Query("recipient"), from, to)
	if err != nil {
		h.logger.WithError(err).Error("listing message statuses failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	out := make([]gin.H, 0, len(statuses))
	for _, ms := range statuses {
		item := gin.H{
			"provider_message_id": ms.ProviderMessageID,
			"recipient":           ms.RecipientPhone,
			"template":            ms.TemplateName,
			"sent_at":             ms.SentAt,
			"current_status":      ms.CurrentStatus,
		}
		if ms.StatusAt.Valid {
			item["status_at"] = ms.StatusAt.Time
		}
		if ms.ErrorCode.Valid {
			item["error_code"] = ms.ErrorCode.Int32
			item["error_detail"] = ms.ErrorDetail.String
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (h *statsHandler) aggregate(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	counts, err := h.svc.Stats(c.Request.Context(), from, to)
	if err != nil {
		h.logger.WithError(err).Error("aggregating delivery stats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *statsHandler) failures(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	groups, err := h.svc.Failures(c.Request.Context(), from, to)
	if err != nil {
		h.logger.WithError(err).Error("building failure breakdown failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"failures": groups})
}
