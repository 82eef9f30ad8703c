package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/replyline/replyline/internal/draft/domain"
	"github.com/replyline/replyline/internal/draft/usecase"
)

// DraftHandler handles draft-related HTTP requests
type DraftHandler struct {
	draftUsecase *usecase.DraftUsecase
}

func NewDraftHandler(draftUsecase *usecase.DraftUsecase) *DraftHandler {
	return &DraftHandler{draftUsecase: draftUsecase}
}

// GetDrafts returns drafts for the review dashboard
// GET /api/drafts?status=pending_review&limit=50&offset=0
func (h *DraftHandler) GetDrafts(c *gin.Context) {
	status := domain.DraftStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	drafts, total, err := h.draftUsecase.List(status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"drafts": drafts,
		"total":  total,
	})
}

// GetDraftByID returns a specific draft
// GET /api/drafts/:id
func (h *DraftHandler) GetDraftByID(c *gin.Context) {
	draft, err := h.draftUsecase.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, draft)
}

// ApproveRequest is the request body for approving a draft, carrying any
// final edits the reviewer made.
type ApproveRequest struct {
	RecipientEmail string `json:"recipient_email" binding:"required"`
	Subject        string `json:"subject" binding:"required"`
	Body           string `json:"body" binding:"required"`
}

// ApproveDraft approves a draft, optionally with edits
// POST /api/drafts/:id/approve
func (h *DraftHandler) ApproveDraft(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	approver := c.GetHeader("X-Reviewer-Email")
	draft, err := h.draftUsecase.Approve(c.Param("id"), req.RecipientEmail, req.Subject, req.Body, approver)
	if err != nil {
		respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// RejectDraft rejects a draft
// POST /api/drafts/:id/reject
func (h *DraftHandler) RejectDraft(c *gin.Context) {
	draft, err := h.draftUsecase.Reject(c.Param("id"))
	if err != nil {
		respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// SendNow dispatches an approved draft immediately
// POST /api/drafts/:id/send-now
func (h *DraftHandler) SendNow(c *gin.Context) {
	draft, err := h.draftUsecase.SendNow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDraftError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func respondDraftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrMissingSendFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
