package httpserver

import (
	"salon_reminder_service/internal/app"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter assembles the engine's HTTP surface: the provider webhook, the
// delivery statistics read API and the recurrence rule endpoints.
func NewRouter(
	deliverySvc *app.DeliveryService,
	ruleSvc *app.RuleService,
	verifyToken string,
	environment string,
	logger *logrus.Entry,
) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	webhook := &webhookHandler{svc: deliverySvc, verifyToken: verifyToken, logger: logger}
	router.GET("/webhook", webhook.verify)
	router.POST("/webhook", webhook.receive)

	stats := &statsHandler{svc: deliverySvc, logger: logger}
	api := router.Group("/api")
	{
		api.GET("/delivery/messages", stats.listMessages)
		api.GET("/delivery/stats", stats.aggregate)
		api.GET("/delivery/failures", stats.failures)
	}

	rules := &ruleHandler{svc: ruleSvc, logger: logger}
	api.POST("/recurrence-rules", rules.create)
	api.GET("/recurrence-rules/:id", rules.get)
	api.PATCH("/recurrence-rules/:id", rules.update)
	api.DELETE("/recurrence-rules/:id", rules.deactivate)

	return router
}
