package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rashid-gateway/internal/model"
	"rashid-gateway/internal/voice"
)

type VoiceHandler struct {
	agent *voice.Agent
}

func NewVoiceHandler(agent *voice.Agent) *VoiceHandler {
	return &VoiceHandler{agent: agent}
}

// Attach points companion transcripts at a match result session.
func (h *VoiceHandler) Attach(c *gin.Context) {
	var req model.VoiceAttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.agent.Attach(req.MatchResultID)
	c.JSON(http.StatusOK, h.agent.State())
}

func (h *VoiceHandler) Toggle(c *gin.Context) {
	var req model.VoiceToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.agent.SetVoiceEnabled(req.Enabled)
	c.JSON(http.StatusOK, h.agent.State())
}

// Text accepts a recognized utterance from the client-side speech engine.
func (h *VoiceHandler) Text(c *gin.Context) {
	var req model.VoiceTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.agent.HandleRecognized(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, h.agent.State())
}

func (h *VoiceHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.agent.State())
}
