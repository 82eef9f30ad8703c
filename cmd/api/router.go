package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	draftDelivery "github.com/replyline/replyline/internal/draft/delivery"
	pipelineDelivery "github.com/replyline/replyline/internal/pipeline/delivery"
	settingsDelivery "github.com/replyline/replyline/internal/settings/delivery"
	triggerDelivery "github.com/replyline/replyline/internal/trigger/delivery"
	"github.com/replyline/replyline/pkg/config"
)

func SetupRoutes(
	r *gin.Engine,
	cfg *config.Config,
	draftHandler *draftDelivery.DraftHandler,
	triggerHandler *triggerDelivery.TriggerHandler,
	settingsHandler *settingsDelivery.SettingsHandler,
	pipelineHandler *pipelineDelivery.PipelineHandler,
) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Cron routes, guarded by the shared secret
		cron := api.Group("/cron")
		cron.Use(pipelineDelivery.CronSecretMiddleware(cfg.CronSecret))
		{
			cron.POST("/intake", pipelineHandler.RunIntake)
			cron.POST("/generate", pipelineHandler.RunGenerate)
			cron.POST("/send", pipelineHandler.RunSend)
			cron.GET("/logs", pipelineHandler.GetCronLogs)
		}

		// Draft review routes
		drafts := api.Group("/drafts")
		{
			drafts.GET("", draftHandler.GetDrafts)
			drafts.GET("/:id", draftHandler.GetDraftByID)
			drafts.POST("/:id/approve", draftHandler.ApproveDraft)
			drafts.POST("/:id/reject", draftHandler.RejectDraft)
			drafts.POST("/:id/send-now", draftHandler.SendNow)
		}

		// Trigger management routes
		triggers := api.Group("/triggers")
		{
			triggers.GET("", triggerHandler.GetTriggers)
			triggers.POST("", triggerHandler.CreateTrigger)
			triggers.POST("/test-filter", triggerHandler.TestFilter)
			triggers.GET("/:id", triggerHandler.GetTriggerByID)
			triggers.PUT("/:id", triggerHandler.UpdateTrigger)
			triggers.DELETE("/:id", triggerHandler.DeleteTrigger)
			triggers.GET("/:id/examples", triggerHandler.GetExamples)
			triggers.POST("/:id/examples", triggerHandler.AddExample)
		}

		// Settings routes
		settings := api.Group("/settings")
		{
			settings.GET("", settingsHandler.GetSettings)
			settings.PUT("", settingsHandler.UpdateSettings)
		}
	}
}
