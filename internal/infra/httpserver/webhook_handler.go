package httpserver

import (
	"net/http"

	"salon_reminder_service/internal/app"
	"salon_reminder_service/internal/domain/delivery"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type webhookHandler struct {
	svc         *app.DeliveryService
	verifyToken string
	logger      *logrus.Entry
}

// verify answers the provider's subscription handshake: echo the challenge
// iff mode is "subscribe" and the token matches, else 403.
func (h *webhookHandler) verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	h.logger.WithField("mode", mode).Warn("webhook verification rejected")
	c.Status(http.StatusForbidden)
}

// receive ingests status callbacks. Every request is acknowledged with 200,
// malformed payloads included: an error response would trigger the
// provider's own retry storm.
func (h *webhookHandler) receive(c *gin.Context) {
	var env delivery.WebhookEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.logger.WithError(err).Warn("dropping malformed webhook payload")
		c.Status(http.StatusOK)
		return
	}

	if err := h.svc.IngestWebhook(c.Request.Context(), &env); err != nil {
		h.logger.WithError(err).Error("webhook ingestion failed")
	}
	c.Status(http.StatusOK)
}
