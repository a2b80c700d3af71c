package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rashid-gateway/internal/model"
	"rashid-gateway/internal/service"
	"rashid-gateway/internal/storage"
)

type AssistantHandler struct {
	sessions *service.SessionService
}

func NewAssistantHandler(sessions *service.SessionService) *AssistantHandler {
	return &AssistantHandler{
		sessions: sessions,
	}
}

// Init prepares the retrieval context for a match result. Backend failures do
// not fail the request; they arrive as transcript content.
func (h *AssistantHandler) Init(c *gin.Context) {
	var req model.InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.InitFromMatchResult(c.Request.Context(), req.MatchResultID, req.HardReset)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMatchResultID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": service.MsgNoMatchResult})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(sess))
}

func (h *AssistantHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.Send(c.Request.Context(), req.MatchResultID, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(sess))
}

func (h *AssistantHandler) ToggleSummary(c *gin.Context) {
	var req model.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.ToggleSummary(c.Request.Context(), req.MatchResultID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(sess))
}

func (h *AssistantHandler) GetSession(c *gin.Context) {
	mrid := c.Param("match_result_id")

	sess, err := h.sessions.GetSession(mrid)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(sess))
}

// GetMessages serves the bare transcript for clients that poll the
// conversation without the session envelope.
func (h *AssistantHandler) GetMessages(c *gin.Context) {
	msgs, err := h.sessions.GetTranscript(c.Param("match_result_id"))
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.TranscriptResponse{Messages: msgs})
}

func (h *AssistantHandler) Reset(c *gin.Context) {
	var req model.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.Reset(req.MatchResultID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.NewSessionResponse(sess))
}
