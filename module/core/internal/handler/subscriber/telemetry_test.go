package subscriber

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type mockIngestSvc struct {
	submitFn func(ctx context.Context, t domain.Telemetry) (*domain.IngestResult, error)
}

func (m *mockIngestSvc) Submit(ctx context.Context, t domain.Telemetry) (*domain.IngestResult, error) {
	return m.submitFn(ctx, t)
}

type mockHistorySvc struct {
	recordFn func(ctx context.Context, t domain.Telemetry, at time.Time) error
}

func (m *mockHistorySvc) Record(ctx context.Context, t domain.Telemetry, at time.Time) error {
	return m.recordFn(ctx, t, at)
}

type fakeMQTTMessage struct {
	topic   string
	payload []byte
}

func (f *fakeMQTTMessage) Duplicate() bool   { return false }
func (f *fakeMQTTMessage) Qos() byte         { return 1 }
func (f *fakeMQTTMessage) Retained() bool    { return false }
func (f *fakeMQTTMessage) Topic() string     { return f.topic }
func (f *fakeMQTTMessage) MessageID() uint16 { return 0 }
func (f *fakeMQTTMessage) Payload() []byte   { return f.payload }
func (f *fakeMQTTMessage) Ack()              {}

const testTopic = "/smartcycle/bike/BIKE001/telemetry"

func newTestSubscriber(ingest ingestService, history historyService) *TelemetrySubscriber {
	return NewTelemetrySubscriber(nil, "", ingest, history, zap.NewNop())
}

func TestHandleMessage_Success(t *testing.T) {
	committed := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	var submitted *domain.Telemetry
	var recordedAt time.Time

	ingest := &mockIngestSvc{
		submitFn: func(_ context.Context, tel domain.Telemetry) (*domain.IngestResult, error) {
			submitted = &tel
			return &domain.IngestResult{BikeID: tel.BikeID, Timestamp: committed}, nil
		},
	}
	history := &mockHistorySvc{
		recordFn: func(_ context.Context, _ domain.Telemetry, at time.Time) error {
			recordedAt = at
			return nil
		},
	}

	sub := newTestSubscriber(ingest, history)
	payload := `{"bikeId":"BIKE001","location":{"lat":19.076,"lng":72.8777},"avgSpeed":14.2,"battery":77}`
	sub.handleMessage(nil, &fakeMQTTMessage{topic: testTopic, payload: []byte(payload)})

	if submitted == nil {
		t.Fatal("expected Submit to be called")
	}
	if submitted.BikeID != "BIKE001" {
		t.Errorf("expected BIKE001, got %s", submitted.BikeID)
	}
	if submitted.Location.Lat != 19.076 || submitted.Location.Lng != 72.8777 {
		t.Errorf("unexpected location %+v", submitted.Location)
	}
	if submitted.Speed != 14.2 || submitted.Battery != 77 {
		t.Errorf("unexpected speed/battery %v/%v", submitted.Speed, submitted.Battery)
	}
	if !recordedAt.Equal(committed) {
		t.Errorf("expected history stamped %v, got %v", committed, recordedAt)
	}
}

func TestHandleMessage_BikeIDFromTopic(t *testing.T) {
	var got string
	ingest := &mockIngestSvc{
		submitFn: func(_ context.Context, tel domain.Telemetry) (*domain.IngestResult, error) {
			got = tel.BikeID
			return &domain.IngestResult{}, nil
		},
	}

	sub := newTestSubscriber(ingest, nil)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: "/smartcycle/bike/BIKE042/telemetry", payload: []byte(`{"location":{"lat":1,"lng":2},"avgSpeed":0,"battery":50}`)})

	if got != "BIKE042" {
		t.Errorf("expected BIKE042, got %q", got)
	}
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	ingest := &mockIngestSvc{
		submitFn: func(context.Context, domain.Telemetry) (*domain.IngestResult, error) {
			t.Fatal("Submit should not be called")
			return nil, nil
		},
	}

	sub := newTestSubscriber(ingest, nil)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: testTopic, payload: []byte("invalid")})
}

func TestHandleMessage_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"no location", `{"bikeId":"BIKE001","avgSpeed":12,"battery":50}`},
		{"no avgSpeed", `{"bikeId":"BIKE001","location":{"lat":19.07,"lng":72.87},"battery":50}`},
		{"no battery", `{"bikeId":"BIKE001","location":{"lat":19.07,"lng":72.87},"avgSpeed":12}`},
		{"location only", `{"location":{"lat":19.07,"lng":72.87}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingest := &mockIngestSvc{
				submitFn: func(_ context.Context, tel domain.Telemetry) (*domain.IngestResult, error) {
					t.Fatalf("Submit should not be called, got speed=%v battery=%v", tel.Speed, tel.Battery)
					return nil, nil
				},
			}

			sub := newTestSubscriber(ingest, nil)
			sub.handleMessage(nil, &fakeMQTTMessage{topic: testTopic, payload: []byte(tt.payload)})
		})
	}
}

func TestToTelemetry_MissingFieldsIsValidationError(t *testing.T) {
	loc := domain.Location{Lat: 19.07, Lng: 72.87}
	_, err := toTelemetry(&telemetryMessage{BikeID: "BIKE001", Location: &loc}, testTopic)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestHandleMessage_RejectedSkipsHistory(t *testing.T) {
	ingest := &mockIngestSvc{
		submitFn: func(context.Context, domain.Telemetry) (*domain.IngestResult, error) {
			return nil, domain.ErrValidation
		},
	}
	history := &mockHistorySvc{
		recordFn: func(context.Context, domain.Telemetry, time.Time) error {
			t.Fatal("Record should not be called when Submit fails")
			return nil
		},
	}

	sub := newTestSubscriber(ingest, history)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: testTopic, payload: []byte(`{"bikeId":"BIKE001","location":{"lat":91,"lng":0},"avgSpeed":5,"battery":50}`)})
}

func TestHandleMessage_HistoryErrorIsLogged(t *testing.T) {
	calls := 0
	ingest := &mockIngestSvc{
		submitFn: func(context.Context, domain.Telemetry) (*domain.IngestResult, error) {
			calls++
			return &domain.IngestResult{}, nil
		},
	}
	history := &mockHistorySvc{
		recordFn: func(context.Context, domain.Telemetry, time.Time) error {
			return errors.New("db error")
		},
	}

	sub := newTestSubscriber(ingest, history)
	sub.handleMessage(nil, &fakeMQTTMessage{topic: testTopic, payload: []byte(`{"bikeId":"BIKE001","location":{"lat":1,"lng":2},"avgSpeed":5,"battery":50}`)})

	if calls != 1 {
		t.Errorf("expected 1 Submit call, got %d", calls)
	}
}

func TestBikeIDFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"/smartcycle/bike/BIKE001/telemetry", "BIKE001"},
		{"smartcycle/bike/BIKE001/telemetry", "BIKE001"},
		{"fleet/B7/loc", "B7"},
		{"telemetry", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			if got := bikeIDFromTopic(tt.topic); got != tt.want {
				t.Errorf("bikeIDFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}
