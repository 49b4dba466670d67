package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"salon_reminder_service/internal/app"
	"salon_reminder_service/internal/domain/recurrence"
	"salon_reminder_service/internal/infra/database"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ruleHandler struct {
	svc    *app.RuleService
	logger *logrus.Entry
}

func (h *ruleHandler) create(c *gin.Context) {
	var input app.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rule, err := h.svc.CreateRule(c.Request.Context(), input)
	if err != nil {
		h.respondRuleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ruleJSON(rule))
}

func (h *ruleHandler) get(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	rule, err := h.svc.GetRule(c.Request.Context(), id)
	if err != nil {
		h.respondRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ruleJSON(rule))
}

func (h *ruleHandler) update(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	var input app.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	rule, err := h.svc.UpdateRule(c.Request.Context(), id, input)
	if err != nil {
		h.respondRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ruleJSON(rule))
}

// deactivate soft-deletes the rule; appointments already materialized from
// it stay on the calendar.
func (h *ruleHandler) deactivate(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}
	if err := h.svc.DeactivateRule(c.Request.Context(), id); err != nil {
		h.respondRuleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func ruleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return 0, false
	}
	return id, true
}

func (h *ruleHandler) respondRuleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
	case errors.Is(err, database.ErrServiceNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown service"})
	case errors.Is(err, app.ErrMissingReference),
		errors.Is(err, recurrence.ErrInvalidFrequency),
		errors.Is(err, recurrence.ErrMissingDayOfWeek),
		errors.Is(err, recurrence.ErrMissingDayOfMonth),
		errors.Is(err, recurrence.ErrDayOfWeekRange),
		errors.Is(err, recurrence.ErrDayOfMonthRange),
		errors.Is(err, recurrence.ErrAnchorMismatch),
		errors.Is(err, recurrence.ErrInvalidTime):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("rule operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func ruleJSON(rule *recurrence.Rule) gin.H {
	out := gin.H{
		"id":        rule.ID,
		"clientId":  rule.ClientID,
		"serviceId": rule.ServiceID,
		"stylistId": rule.StylistID,
		"frequency": rule.Frequency,
		"isActive":  rule.IsActive,
	}
	if rule.DayOfWeek.Valid {
		out["dayOfWeek"] = rule.DayOfWeek.Int16
	}
	if rule.DayOfMonth.Valid {
		out["dayOfMonth"] = rule.DayOfMonth.Int16
	}
	if rule.PreferredTime.Valid {
		out["preferredTime"] = rule.PreferredTime.String
	}
	if rule.LastFiredDate.Valid {
		out["lastFiredDate"] = rule.LastFiredDate.Time.Format("2006-01-02")
	}
	if rule.NextOccurrenceDate.Valid {
		out["nextOccurrenceDate"] = rule.NextOccurrenceDate.Time.Format("2006-01-02")
	}
	return out
}
