package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/bike-geofence/module/core/domain"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/publisher"
)

var _ publisher.AlertPublisher = (*AlertPublisher)(nil)

const (
	ExchangeName = "geofence.events"
	QueueName    = "geofence_alerts"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AlertPublisher struct {
	ch amqpChannel
}

func NewAlertPublisher(conn *amqp.Connection) (*AlertPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := DeclareTopology(ch); err != nil {
		return nil, err
	}

	return &AlertPublisher{ch: ch}, nil
}

// DeclareTopology declares the fanout exchange and the durable alert queue
// bound to it. Publisher and listener both call it.
func DeclareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// AlertMessage is the journal wire format.
type AlertMessage struct {
	ID         string  `json:"id"`
	BikeID     string  `json:"bike_id"`
	SessionID  string  `json:"session_id"`
	Direction  string  `json:"direction"`
	DistanceKm float64 `json:"distance_km"`
	Timestamp  int64   `json:"timestamp"`
}

func (p *AlertPublisher) PublishAlert(ctx context.Context, alert *domain.AlertEvent) error {
	msg := AlertMessage{
		ID:         alert.ID,
		BikeID:     alert.BikeID,
		SessionID:  alert.SessionID,
		Direction:  string(alert.Direction),
		DistanceKm: alert.DistanceKm,
		Timestamp:  alert.Timestamp.Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    alert.ID,
		Body:         body,
	})
}
