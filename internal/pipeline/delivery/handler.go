package delivery

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/replyline/replyline/internal/pipeline/repository"
	"github.com/replyline/replyline/internal/pipeline/usecase"
)

// PipelineHandler exposes the three pipeline stages as cron endpoints plus
// the run-log audit trail.
type PipelineHandler struct {
	runner   *usecase.Runner
	intake   *usecase.IntakeJob
	generate *usecase.GenerateJob
	send     *usecase.SendJob
	logs     repository.CronRunLogRepository
}

func NewPipelineHandler(
	runner *usecase.Runner,
	intake *usecase.IntakeJob,
	generate *usecase.GenerateJob,
	send *usecase.SendJob,
	logs repository.CronRunLogRepository,
) *PipelineHandler {
	return &PipelineHandler{
		runner:   runner,
		intake:   intake,
		generate: generate,
		send:     send,
		logs:     logs,
	}
}

// CronSecretMiddleware guards the cron endpoints with a shared secret,
// accepted as either a bearer token or an X-Cron-Secret header.
func CronSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cron secret not configured"})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Cron-Secret")
		if provided == "" {
			auth := c.GetHeader("Authorization")
			provided = strings.TrimPrefix(auth, "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RunIntake invokes the intake stage
// POST /api/cron/intake
func (h *PipelineHandler) RunIntake(c *gin.Context) {
	h.run(c, usecase.StageIntake, func(ctx context.Context) (any, error) {
		return h.intake.Run(ctx)
	})
}

// RunGenerate invokes the generate stage
// POST /api/cron/generate
func (h *PipelineHandler) RunGenerate(c *gin.Context) {
	h.run(c, usecase.StageGenerate, func(ctx context.Context) (any, error) {
		return h.generate.Run(ctx)
	})
}

// RunSend invokes the send stage
// POST /api/cron/send
func (h *PipelineHandler) RunSend(c *gin.Context) {
	h.run(c, usecase.StageSend, func(ctx context.Context) (any, error) {
		return h.send.Run(ctx)
	})
}

func (h *PipelineHandler) run(c *gin.Context, name string, stage usecase.Stage) {
	stats, err := h.runner.Run(c.Request.Context(), name, stage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"stats": stats,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

// GetCronLogs returns recent pipeline run records
// GET /api/cron/logs?limit=50
func (h *PipelineHandler) GetCronLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.logs.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": entries})
}
