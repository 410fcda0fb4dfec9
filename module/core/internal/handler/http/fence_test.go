package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type mockFenceService struct {
	configureFn       func(ctx context.Context, sessionID string, cfg domain.FenceConfig) (*domain.FenceSession, error)
	removeFn          func(sessionID string) bool
	sessionsFn        func() []domain.FenceSession
	sessionFn         func(sessionID string) (domain.FenceSession, bool)
	bikesForSessionFn func(sessionID string) ([]domain.SessionBike, bool)
	statsFn           func() domain.Stats
}

func (m *mockFenceService) ConfigureFence(ctx context.Context, sessionID string, cfg domain.FenceConfig) (*domain.FenceSession, error) {
	return m.configureFn(ctx, sessionID, cfg)
}

func (m *mockFenceService) RemoveFence(sessionID string) bool { return m.removeFn(sessionID) }

func (m *mockFenceService) Sessions() []domain.FenceSession { return m.sessionsFn() }

func (m *mockFenceService) Session(sessionID string) (domain.FenceSession, bool) {
	return m.sessionFn(sessionID)
}

func (m *mockFenceService) BikesForSession(sessionID string) ([]domain.SessionBike, bool) {
	return m.bikesForSessionFn(sessionID)
}

func (m *mockFenceService) Stats() domain.Stats { return m.statsFn() }

func setupFenceRouter(svc fenceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewFenceHandler(svc).Register(r.Group(""))
	return r
}

func TestConfigureSession_Success(t *testing.T) {
	var gotID string
	var gotCfg domain.FenceConfig
	svc := &mockFenceService{
		configureFn: func(_ context.Context, sessionID string, cfg domain.FenceConfig) (*domain.FenceSession, error) {
			gotID, gotCfg = sessionID, cfg
			return &domain.FenceSession{SessionID: sessionID, BaseLocation: cfg.BaseLocation, RadiusKm: cfg.RadiusKm}, nil
		},
	}

	r := setupFenceRouter(svc)
	w := httptest.NewRecorder()
	body := `{"baseLocation":{"lat":19.076,"lng":72.8777},"radius":0.5,"esp32Endpoint":"http://10.0.0.7/alert"}`
	req, _ := http.NewRequest("PUT", "/geofence/sessions/S1", strings.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if gotID != "S1" {
		t.Errorf("expected S1, got %s", gotID)
	}
	if gotCfg.RadiusKm != 0.5 || gotCfg.DeviceEndpoint != "http://10.0.0.7/alert" {
		t.Errorf("unexpected config: %+v", gotCfg)
	}
}

func TestConfigureSession_InvalidConfig(t *testing.T) {
	svc := &mockFenceService{
		configureFn: func(_ context.Context, _ string, _ domain.FenceConfig) (*domain.FenceSession, error) {
			return nil, fmt.Errorf("%w: radius: must be > 0", domain.ErrInvalidConfig)
		},
	}

	r := setupFenceRouter(svc)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/geofence/sessions/S2", strings.NewReader(`{"baseLocation":{"lat":0,"lng":0},"radius":-1}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRemoveSession(t *testing.T) {
	svc := &mockFenceService{removeFn: func(id string) bool { return id == "S1" }}
	r := setupFenceRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/geofence/sessions/S1", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/geofence/sessions/S9", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetSessionAndList(t *testing.T) {
	svc := &mockFenceService{
		sessionsFn: func() []domain.FenceSession {
			return []domain.FenceSession{{SessionID: "S1"}, {SessionID: "S2"}}
		},
		sessionFn: func(id string) (domain.FenceSession, bool) {
			return domain.FenceSession{SessionID: id}, id == "S1"
		},
	}
	r := setupFenceRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geofence/sessions", nil)
	r.ServeHTTP(w, req)
	var list []domain.FenceSession
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/geofence/sessions/S1", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/geofence/sessions/S9", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetSessionBikes(t *testing.T) {
	svc := &mockFenceService{
		bikesForSessionFn: func(id string) ([]domain.SessionBike, bool) {
			if id != "S1" {
				return nil, false
			}
			return []domain.SessionBike{{BikeState: domain.BikeState{BikeID: "BIKE001"}, SessionID: "S1", Inside: true}}, true
		},
	}
	r := setupFenceRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geofence/sessions/S1/bikes", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var bikes []domain.SessionBike
	if err := json.Unmarshal(w.Body.Bytes(), &bikes); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(bikes) != 1 || bikes[0].BikeID != "BIKE001" || !bikes[0].Inside {
		t.Errorf("unexpected bikes: %+v", bikes)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/geofence/sessions/S9/bikes", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetStats(t *testing.T) {
	svc := &mockFenceService{
		statsFn: func() domain.Stats {
			return domain.Stats{TotalBikes: 3, BikesInsideFence: 2, BikesOutsideFence: 1, ActiveSessions: 1}
		},
	}
	r := setupFenceRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/geofence/stats", nil)
	r.ServeHTTP(w, req)

	var st domain.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.TotalBikes != 3 || st.BikesOutsideFence != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}
