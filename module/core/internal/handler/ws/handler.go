package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 5 * time.Second
	maxMsgSize = 8 * 1024
)

// client commands
const (
	cmdUpdateGeoFence        = "updateGeoFence"
	cmdCancelGeoFence        = "cancelGeoFence"
	cmdGetBikesForSession    = "getBikesForSession"
	cmdRequestGeofenceStatus = "requestGeofenceStatus"
)

// server events
const (
	evtSessionStarted        = "sessionStarted"
	evtInitialBikeData       = "initialBikeData"
	evtGeoFenceConfigUpdated = "geoFenceConfigUpdated"
	evtSessionBikes          = "sessionBikes"
	evtGeofenceStats         = "geofenceStats"
	evtError                 = "error"
)

type sessionService interface {
	ConfigureFence(ctx context.Context, sessionID string, cfg domain.FenceConfig) (*domain.FenceSession, error)
	RemoveFence(sessionID string) bool
	Bikes() []domain.BikeState
	BikesForSession(sessionID string) ([]domain.SessionBike, bool)
	Stats() domain.Stats
}

type command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type reply struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Handler struct {
	hub      *Hub
	svc      sessionService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHandler(hub *Hub, svc sessionService, logger *zap.Logger) *Handler {
	return &Handler{
		hub: hub,
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Handler) Register(r *gin.RouterGroup) {
	r.GET("/ws", h.Serve)
}

func (h *Handler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sessionID := uuid.NewString()
	cl := h.hub.register(sessionID)
	h.logger.Info("subscriber connected", zap.String("session_id", sessionID))

	h.hub.NotifySession(sessionID, reply{Type: evtSessionStarted, SessionID: sessionID})
	h.hub.NotifySession(sessionID, reply{Type: evtInitialBikeData, SessionID: sessionID, Data: h.svc.Bikes()})

	go h.writePump(conn, cl)
	h.readPump(conn, cl)
}

func (h *Handler) readPump(conn *websocket.Conn, cl *client) {
	defer func() {
		h.hub.unregister(cl)
		h.svc.RemoveFence(cl.sessionID)
		_ = conn.Close()
		h.logger.Info("subscriber disconnected", zap.String("session_id", cl.sessionID))
	}()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", zap.String("session_id", cl.sessionID), zap.Error(err))
			}
			return
		}
		h.handle(cl.sessionID, cmd)
	}
}

func (h *Handler) writePump(conn *websocket.Conn, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) handle(sessionID string, cmd command) {
	switch cmd.Type {
	case cmdUpdateGeoFence:
		var cfg domain.FenceConfig
		if err := json.Unmarshal(cmd.Data, &cfg); err != nil {
			h.replyError(sessionID, "invalid geofence payload")
			return
		}
		fence, err := h.svc.ConfigureFence(context.Background(), sessionID, cfg)
		if err != nil {
			h.replyError(sessionID, err.Error())
			return
		}
		h.hub.NotifySession(sessionID, reply{Type: evtGeoFenceConfigUpdated, SessionID: sessionID, Data: fence})

	case cmdCancelGeoFence:
		removed := h.svc.RemoveFence(sessionID)
		h.hub.NotifySession(sessionID, reply{Type: evtGeoFenceConfigUpdated, SessionID: sessionID, Data: gin.H{"removed": removed}})

	case cmdGetBikesForSession:
		bikes, ok := h.svc.BikesForSession(sessionID)
		if !ok {
			h.replyError(sessionID, "no geofence configured for this session")
			return
		}
		h.hub.NotifySession(sessionID, reply{Type: evtSessionBikes, SessionID: sessionID, Data: bikes})

	case cmdRequestGeofenceStatus:
		h.hub.NotifySession(sessionID, reply{Type: evtGeofenceStats, SessionID: sessionID, Data: h.svc.Stats()})

	default:
		h.replyError(sessionID, "unknown command: "+cmd.Type)
	}
}

func (h *Handler) replyError(sessionID, msg string) {
	h.hub.NotifySession(sessionID, reply{Type: evtError, SessionID: sessionID, Error: msg})
}
