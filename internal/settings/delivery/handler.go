package delivery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/replyline/replyline/internal/settings/domain"
	"github.com/replyline/replyline/internal/settings/repository"
)

// SettingsHandler handles the singleton settings resource
type SettingsHandler struct {
	settings repository.SettingsRepository
}

func NewSettingsHandler(settings repository.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings returns the current settings
// GET /api/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if settings == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Settings not configured"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SettingsRequest is the request body for updating settings.
type SettingsRequest struct {
	ConfidenceThreshold int    `json:"confidence_threshold"`
	CEOEmail            string `json:"ceo_email" binding:"required,email"`
	CEOTimezone         string `json:"ceo_timezone"`
	CompanyDomains      string `json:"company_domains"`
	BusinessHoursStart  string `json:"business_hours_start"`
	BusinessHoursEnd    string `json:"business_hours_end"`
	Holidays            string `json:"holidays"`
}

// UpdateSettings upserts the singleton settings row
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ConfidenceThreshold < 0 || req.ConfidenceThreshold > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confidence_threshold must be between 0 and 100"})
		return
	}

	settings := &domain.Settings{
		ConfidenceThreshold: req.ConfidenceThreshold,
		CEOEmail:            req.CEOEmail,
		CEOTimezone:         req.CEOTimezone,
		CompanyDomains:      req.CompanyDomains,
		BusinessHoursStart:  req.BusinessHoursStart,
		BusinessHoursEnd:    req.BusinessHoursEnd,
		Holidays:            req.Holidays,
	}
	if settings.CEOTimezone == "" {
		settings.CEOTimezone = "America/New_York"
	}
	if settings.BusinessHoursStart == "" {
		settings.BusinessHoursStart = "09:00"
	}
	if settings.BusinessHoursEnd == "" {
		settings.BusinessHoursEnd = "17:00"
	}

	if err := h.settings.Save(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}
