package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type fenceService interface {
	ConfigureFence(ctx context.Context, sessionID string, cfg domain.FenceConfig) (*domain.FenceSession, error)
	RemoveFence(sessionID string) bool
	Sessions() []domain.FenceSession
	Session(sessionID string) (domain.FenceSession, bool)
	BikesForSession(sessionID string) ([]domain.SessionBike, bool)
	Stats() domain.Stats
}

type FenceHandler struct {
	svc fenceService
}

func NewFenceHandler(svc fenceService) *FenceHandler {
	return &FenceHandler{svc: svc}
}

func (h *FenceHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/geofence")
	g.GET("/stats", h.GetStats)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:session_id", h.GetSession)
	g.PUT("/sessions/:session_id", h.ConfigureSession)
	g.DELETE("/sessions/:session_id", h.RemoveSession)
	g.GET("/sessions/:session_id/bikes", h.GetSessionBikes)
}

func (h *FenceHandler) ConfigureSession(c *gin.Context) {
	var cfg domain.FenceConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	fence, err := h.svc.ConfigureFence(c.Request.Context(), c.Param("session_id"), cfg)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to configure geofence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Geo-fence configuration updated",
		"config":  fence,
	})
}

func (h *FenceHandler) RemoveSession(c *gin.Context) {
	if !h.svc.RemoveFence(c.Param("session_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FenceHandler) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Sessions())
}

func (h *FenceHandler) GetSession(c *gin.Context) {
	s, ok := h.svc.Session(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *FenceHandler) GetSessionBikes(c *gin.Context) {
	bikes, ok := h.svc.BikesForSession(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, bikes)
}

func (h *FenceHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}
