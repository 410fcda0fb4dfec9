package http

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type ingestService interface {
	Submit(ctx context.Context, t domain.Telemetry) (*domain.IngestResult, error)
	Bikes() []domain.BikeState
	Bike(bikeID string) (domain.BikeState, bool)
	RemoveBike(bikeID string) bool
}

type historyService interface {
	Record(ctx context.Context, t domain.Telemetry, at time.Time) error
	GetLatest(ctx context.Context, bikeID string) (*domain.TelemetryRecord, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TelemetryRecord, error)
}

// telemetryRequest is the shape the bike firmware posts.
type telemetryRequest struct {
	BikeID string `json:"bikeId"`
	Data   struct {
		Location *domain.Location `json:"location"`
		AvgSpeed *float64         `json:"avgSpeed"`
		Battery  *float64         `json:"battery"`
	} `json:"data"`
}

type BikeHandler struct {
	geofenceSvc ingestService
	historySvc  historyService
	logger      *zap.Logger
}

// NewBikeHandler builds the handler. historySvc may be nil when no history store is configured.
func NewBikeHandler(geofenceSvc ingestService, historySvc historyService, logger *zap.Logger) *BikeHandler {
	return &BikeHandler{geofenceSvc: geofenceSvc, historySvc: historySvc, logger: logger}
}

func (h *BikeHandler) Register(r *gin.RouterGroup) {
	r.POST("/bikes/data", h.ReceiveTelemetry)
	r.GET("/bikes", h.GetAllBikes)
	r.GET("/bikes/:bike_id", h.GetBike)
	r.DELETE("/bikes/:bike_id", h.RemoveBike)
	r.GET("/bikes/:bike_id/latest", h.GetLatest)
	r.GET("/bikes/:bike_id/history", h.GetHistory)
}

func (h *BikeHandler) ReceiveTelemetry(c *gin.Context) {
	var req telemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.Data.Location == nil || req.Data.AvgSpeed == nil || req.Data.Battery == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required data fields: avgSpeed, location, battery"})
		return
	}

	t := domain.Telemetry{
		BikeID:   req.BikeID,
		Location: *req.Data.Location,
		Speed:    *req.Data.AvgSpeed,
		Battery:  *req.Data.Battery,
	}

	result, err := h.geofenceSvc.Submit(c.Request.Context(), t)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process telemetry"})
		return
	}

	if h.historySvc != nil {
		if err := h.historySvc.Record(c.Request.Context(), t, result.Timestamp); err != nil {
			h.logger.Warn("record telemetry history", zap.String("bike_id", t.BikeID), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, result)
}

func (h *BikeHandler) GetAllBikes(c *gin.Context) {
	c.JSON(http.StatusOK, h.geofenceSvc.Bikes())
}

func (h *BikeHandler) GetBike(c *gin.Context) {
	bike, ok := h.geofenceSvc.Bike(c.Param("bike_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "bike not found"})
		return
	}
	c.JSON(http.StatusOK, bike)
}

func (h *BikeHandler) RemoveBike(c *gin.Context) {
	if !h.geofenceSvc.RemoveBike(c.Param("bike_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bike not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BikeHandler) GetLatest(c *gin.Context) {
	if h.historySvc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store not configured"})
		return
	}

	rec, err := h.historySvc.GetLatest(c.Request.Context(), c.Param("bike_id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no telemetry for bike"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch latest telemetry"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *BikeHandler) GetHistory(c *gin.Context) {
	if h.historySvc == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store not configured"})
		return
	}

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}

	query := &domain.HistoryQuery{
		BikeID: c.Param("bike_id"),
		Start:  time.Unix(start, 0),
		End:    time.Unix(end, 0),
	}

	records, err := h.historySvc.GetHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, records)
}
