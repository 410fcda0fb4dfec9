package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

const userAgent = "SmartCycle-GeoFence/1.0"

const (
	StatusOK  = "ok"
	StatusNOK = "nok"
)

type alertPayload struct {
	BikeID    string    `json:"bikeId"`
	Alert     alertBody `json:"alert"`
	Timestamp string    `json:"timestamp"`
}

type alertBody struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Distance  string `json:"distance"`
	Timestamp string `json:"timestamp"`
}

// HTTPNotifier posts fence alerts to the actuator on the bike (buzzer/LED).
// The deadline comes from the caller's context.
type HTTPNotifier struct {
	client *http.Client
}

func NewHTTPNotifier(client *http.Client) *HTTPNotifier {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPNotifier{client: client}
}

// NotifyDevice returns the response status code, and an error for transport
// failures and non-2xx answers.
func (n *HTTPNotifier) NotifyDevice(ctx context.Context, endpoint string, alert domain.AlertEvent) (int, error) {
	body, err := json.Marshal(newPayload(alert, time.Now()))
	if err != nil {
		return 0, fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send alert: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func newPayload(alert domain.AlertEvent, sentAt time.Time) alertPayload {
	status, message := StatusOK, "inside geofence"
	if alert.Outside() {
		status, message = StatusNOK, "outside geofence"
	}
	return alertPayload{
		BikeID: alert.BikeID,
		Alert: alertBody{
			Status:    status,
			Message:   message,
			Distance:  strconv.FormatFloat(alert.DistanceKm, 'f', 2, 64),
			Timestamp: alert.Timestamp.UTC().Format(time.RFC3339),
		},
		Timestamp: sentAt.UTC().Format(time.RFC3339),
	}
}
