package config

import (
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	amqp "github.com/rabbitmq/amqp091-go"
)

type subscriberCounter interface {
	SubscriberCount() int
}

// HealthChecker reports on the configured dependencies. A nil dependency is
// reported as disabled and does not make the service unhealthy.
type HealthChecker struct {
	db          *sqlx.DB
	amqpConn    *amqp.Connection
	mqtt        mqtt.Client
	subscribers subscriberCounter
}

func NewHealthChecker(db *sqlx.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, subscribers subscriberCounter) *HealthChecker {
	return &HealthChecker{db: db, amqpConn: amqpConn, mqtt: mqttClient, subscribers: subscribers}
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}

	if h.db == nil {
		deps["postgres"] = gin.H{"status": "disabled"}
	} else if err := h.db.PingContext(c.Request.Context()); err != nil {
		deps["postgres"] = gin.H{"status": "down", "error": err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		deps["postgres"] = gin.H{"status": "up"}
	}

	switch {
	case h.amqpConn == nil:
		deps["rabbitmq"] = gin.H{"status": "disabled"}
	case h.amqpConn.IsClosed():
		deps["rabbitmq"] = gin.H{"status": "down", "error": "connection closed"}
		status = http.StatusServiceUnavailable
	default:
		deps["rabbitmq"] = gin.H{"status": "up"}
	}

	switch {
	case h.mqtt == nil:
		deps["mqtt"] = gin.H{"status": "disabled"}
	case !h.mqtt.IsConnected():
		deps["mqtt"] = gin.H{"status": "down", "error": "not connected"}
		status = http.StatusServiceUnavailable
	default:
		deps["mqtt"] = gin.H{"status": "up"}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	body := gin.H{
		"status":       overall,
		"dependencies": deps,
	}
	if h.subscribers != nil {
		body["subscribers"] = h.subscribers.SubscriberCount()
	}
	c.JSON(status, body)
}
