package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

// DefaultTopic matches every bike; the middle level is the bike id.
const DefaultTopic = "/smartcycle/bike/+/telemetry"

type ingestService interface {
	Submit(ctx context.Context, t domain.Telemetry) (*domain.IngestResult, error)
}

type historyService interface {
	Record(ctx context.Context, t domain.Telemetry, at time.Time) error
}

type telemetryMessage struct {
	BikeID   string           `json:"bikeId"`
	Location *domain.Location `json:"location"`
	AvgSpeed *float64         `json:"avgSpeed"`
	Battery  *float64         `json:"battery"`
}

type TelemetrySubscriber struct {
	client      mqtt.Client
	topic       string
	geofenceSvc ingestService
	historySvc  historyService
	logger      *zap.Logger
}

// NewTelemetrySubscriber builds the subscriber. historySvc may be nil.
func NewTelemetrySubscriber(client mqtt.Client, topic string, geofenceSvc ingestService, historySvc historyService, logger *zap.Logger) *TelemetrySubscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	return &TelemetrySubscriber{
		client:      client,
		topic:       topic,
		geofenceSvc: geofenceSvc,
		historySvc:  historySvc,
		logger:      logger,
	}
}

func (s *TelemetrySubscriber) Start() error {
	token := s.client.Subscribe(s.topic, 1, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	s.logger.Info("subscribed to telemetry", zap.String("topic", s.topic))
	return nil
}

func (s *TelemetrySubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw telemetryMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		s.logger.Warn("invalid telemetry message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	t, err := toTelemetry(&raw, msg.Topic())
	if err != nil {
		s.logger.Warn("invalid telemetry message", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	ctx := context.Background()

	result, err := s.geofenceSvc.Submit(ctx, t)
	if err != nil {
		s.logger.Warn("telemetry rejected", zap.String("bike_id", t.BikeID), zap.Error(err))
		return
	}

	if s.historySvc == nil {
		return
	}
	if err := s.historySvc.Record(ctx, t, result.Timestamp); err != nil {
		s.logger.Warn("record telemetry history", zap.String("bike_id", t.BikeID), zap.Error(err))
	}
}

func toTelemetry(raw *telemetryMessage, topic string) (domain.Telemetry, error) {
	bikeID := raw.BikeID
	if bikeID == "" {
		bikeID = bikeIDFromTopic(topic)
	}
	if raw.Location == nil || raw.AvgSpeed == nil || raw.Battery == nil {
		return domain.Telemetry{}, fmt.Errorf("%w: missing required fields: avgSpeed, location, battery", domain.ErrValidation)
	}
	return domain.Telemetry{
		BikeID:   bikeID,
		Location: *raw.Location,
		Speed:    *raw.AvgSpeed,
		Battery:  *raw.Battery,
	}, nil
}

// bikeIDFromTopic takes the level before the last one, e.g.
// /smartcycle/bike/BIKE001/telemetry -> BIKE001.
func bikeIDFromTopic(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
