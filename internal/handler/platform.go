package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"rashid-gateway/internal/model"
)

// PlatformAPI is the slice of the projects/prediction backend the handlers
// proxy through.
type PlatformAPI interface {
	GetProject(ctx context.Context, id, bearerToken string) (*model.Project, error)
	GetMatches(ctx context.Context, id string, limit int, bearerToken string) ([]model.Match, error)
	Predict(ctx context.Context, req model.PredictRequest) (*model.PredictResponse, error)
}

type PlatformHandler struct {
	api PlatformAPI
}

func NewPlatformHandler(api PlatformAPI) *PlatformHandler {
	return &PlatformHandler{api: api}
}

func (h *PlatformHandler) GetProject(c *gin.Context) {
	project, err := h.api.GetProject(c.Request.Context(), c.Param("id"), bearerToken(c))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.ProjectResponse{Project: *project})
}

func (h *PlatformHandler) GetMatches(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	matches, err := h.api.GetMatches(c.Request.Context(), c.Param("id"), limit, bearerToken(c))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if matches == nil {
		matches = []model.Match{}
	}

	c.JSON(http.StatusOK, model.MatchesResponse{Matches: matches})
}

func (h *PlatformHandler) Predict(c *gin.Context) {
	var req model.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.api.Predict(c.Request.Context(), req)
	if err != nil {
		// A run superseded by a newer one is not a failure worth surfacing.
		if errors.Is(err, context.Canceled) {
			c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer prediction"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, out)
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
