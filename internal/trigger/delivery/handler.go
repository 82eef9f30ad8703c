package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/replyline/replyline/internal/trigger/domain"
	"github.com/replyline/replyline/internal/trigger/usecase"
)

// TriggerHandler handles trigger-related HTTP requests
type TriggerHandler struct {
	triggerUsecase *usecase.TriggerUsecase
}

func NewTriggerHandler(triggerUsecase *usecase.TriggerUsecase) *TriggerHandler {
	return &TriggerHandler{triggerUsecase: triggerUsecase}
}

// TriggerRequest is the request body for creating or updating a trigger.
type TriggerRequest struct {
	Name                string  `json:"name" binding:"required"`
	Description         string  `json:"description"`
	EmailType           string  `json:"email_type" binding:"required"`
	ReplyInThread       bool    `json:"reply_in_thread"`
	Enabled             *bool   `json:"enabled"`
	MatchMode           string  `json:"match_mode"`
	GmailFilterQuery    string  `json:"gmail_filter_query"`
	ReplyWindowMinHours float64 `json:"reply_window_min_hours"`
	ReplyWindowMaxHours float64 `json:"reply_window_max_hours"`
	SystemPrompt        string  `json:"system_prompt"`
	SortOrder           int     `json:"sort_order"`
}

func (r *TriggerRequest) toDomain() *domain.Trigger {
	matchMode := domain.MatchMode(r.MatchMode)
	if r.MatchMode == "" {
		matchMode = domain.MatchModeLLM
	}
	minHours, maxHours := r.ReplyWindowMinHours, r.ReplyWindowMaxHours
	if minHours == 0 && maxHours == 0 {
		minHours, maxHours = 4, 6
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return &domain.Trigger{
		Name:                r.Name,
		Description:         r.Description,
		EmailType:           domain.EmailType(r.EmailType),
		ReplyInThread:       r.ReplyInThread,
		Enabled:             enabled,
		MatchMode:           matchMode,
		GmailFilterQuery:    r.GmailFilterQuery,
		ReplyWindowMinHours: minHours,
		ReplyWindowMaxHours: maxHours,
		SystemPrompt:        r.SystemPrompt,
		SortOrder:           r.SortOrder,
	}
}

// GetTriggers returns all triggers
// GET /api/triggers
func (h *TriggerHandler) GetTriggers(c *gin.Context) {
	triggers, err := h.triggerUsecase.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"triggers": triggers})
}

// GetTriggerByID returns a specific trigger
// GET /api/triggers/:id
func (h *TriggerHandler) GetTriggerByID(c *gin.Context) {
	trigger, err := h.triggerUsecase.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trigger not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trigger)
}

// CreateTrigger creates a new trigger
// POST /api/triggers
func (h *TriggerHandler) CreateTrigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trigger := req.toDomain()
	if err := h.triggerUsecase.Create(trigger); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, trigger)
}

// UpdateTrigger updates an existing trigger
// PUT /api/triggers/:id
func (h *TriggerHandler) UpdateTrigger(c *gin.Context) {
	var req TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trigger := req.toDomain()
	trigger.ID = c.Param("id")
	if err := h.triggerUsecase.Update(trigger); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trigger not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, trigger)
}

// DeleteTrigger soft-deletes a trigger
// DELETE /api/triggers/:id
func (h *TriggerHandler) DeleteTrigger(c *gin.Context) {
	if err := h.triggerUsecase.Delete(c.Param("id")); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trigger not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ExampleRequest is the request body for seeding a style example.
type ExampleRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

// AddExample seeds a style example for a trigger
// POST /api/triggers/:id/examples
func (h *TriggerHandler) AddExample(c *gin.Context) {
	var req ExampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	example, err := h.triggerUsecase.AddExample(c.Param("id"), req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trigger not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, example)
}

// GetExamples returns the recent style examples of a trigger
// GET /api/triggers/:id/examples?limit=10
func (h *TriggerHandler) GetExamples(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	examples, err := h.triggerUsecase.ListExamples(c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trigger not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"examples": examples})
}

// TestFilterRequest is the request body for a filter dry run.
type TestFilterRequest struct {
	GmailFilterQuery string `json:"gmail_filter_query" binding:"required"`
}

// TestFilter previews which recent messages a filter query would match
// POST /api/triggers/test-filter
func (h *TriggerHandler) TestFilter(c *gin.Context) {
	var req TestFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, total, err := h.triggerUsecase.TestFilter(c.Request.Context(), req.GmailFilterQuery)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"matches": results,
		"total":   total,
	})
}
