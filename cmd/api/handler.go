package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	draftDelivery "github.com/replyline/replyline/internal/draft/delivery"
	pipelineDelivery "github.com/replyline/replyline/internal/pipeline/delivery"
	settingsDelivery "github.com/replyline/replyline/internal/settings/delivery"
	triggerDelivery "github.com/replyline/replyline/internal/trigger/delivery"
	"github.com/replyline/replyline/pkg/config"
)

type Handler struct {
	draftHandler    *draftDelivery.DraftHandler
	triggerHandler  *triggerDelivery.TriggerHandler
	settingsHandler *settingsDelivery.SettingsHandler
	pipelineHandler *pipelineDelivery.PipelineHandler
	config          *config.Config
	logger          *zap.Logger
}

func NewHandler(
	draftHandler *draftDelivery.DraftHandler,
	triggerHandler *triggerDelivery.TriggerHandler,
	settingsHandler *settingsDelivery.SettingsHandler,
	pipelineHandler *pipelineDelivery.PipelineHandler,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		draftHandler:    draftHandler,
		triggerHandler:  triggerHandler,
		settingsHandler: settingsHandler,
		pipelineHandler: pipelineHandler,
		config:          cfg,
		logger:          logger.Named("http"),
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, X-Cron-Secret, X-Reviewer-Email, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.config, h.draftHandler, h.triggerHandler, h.settingsHandler, h.pipelineHandler)

	h.logger.Info("server listening", zap.String("addr", addr))
	return r.Run(addr)
}
