package core

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nandanugg/bike-geofence/module/core/domain"
	handler "github.com/nandanugg/bike-geofence/module/core/internal/handler/http"
	"github.com/nandanugg/bike-geofence/module/core/internal/handler/subscriber"
	"github.com/nandanugg/bike-geofence/module/core/internal/handler/ws"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/device"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/publisher"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/bike-geofence/module/core/service"
)

// AlertQueue is the durable queue the alert journal is delivered to.
const AlertQueue = rabbitmq.QueueName

type AlertJournalMessage = rabbitmq.AlertMessage

// DeclareAlertTopology declares the journal exchange and queue on ch.
func DeclareAlertTopology(ch *amqp.Channel) error {
	return rabbitmq.DeclareTopology(ch)
}

type historyStore interface {
	Record(ctx context.Context, t domain.Telemetry, at time.Time) error
	GetLatest(ctx context.Context, bikeID string) (*domain.TelemetryRecord, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.TelemetryRecord, error)
}

// Deps holds the optional infrastructure. A nil field disables the
// collaborator that needs it; the engine itself only needs Logger.
type Deps struct {
	DB     *sqlx.DB
	AMQP   *amqp.Connection
	MQTT   mqtt.Client
	Logger *zap.Logger
}

type Settings struct {
	MQTTTopic      string
	DeviceEndpoint string
	DeviceTimeout  time.Duration
	ReapInterval   time.Duration
	BikeMaxAge     time.Duration
}

type Module struct {
	GeofenceSvc *service.GeofenceService
	HistorySvc  *service.HistoryService
	Reaper      *service.Reaper

	hub          *ws.Hub
	dispatcher   *service.AlertDispatcher
	bikeHandler  *handler.BikeHandler
	fenceHandler *handler.FenceHandler
	wsHandler    *ws.Handler
	subscriber   *subscriber.TelemetrySubscriber
}

func Build(ctx context.Context, deps Deps, settings Settings) (*Module, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var journal publisher.AlertPublisher
	if deps.AMQP != nil {
		pub, err := rabbitmq.NewAlertPublisher(deps.AMQP)
		if err != nil {
			return nil, fmt.Errorf("alert publisher: %w", err)
		}
		journal = pub
	}

	hub := ws.NewHub(logger.Named("ws"))
	dispatcher := service.NewAlertDispatcher(hub, device.NewHTTPNotifier(nil), journal, service.DispatcherConfig{
		DefaultEndpoint: settings.DeviceEndpoint,
		Timeout:         settings.DeviceTimeout,
	}, logger.Named("dispatcher"))
	geofenceSvc := service.NewGeofenceService(dispatcher, hub, logger.Named("geofence"))

	m := &Module{
		GeofenceSvc:  geofenceSvc,
		Reaper:       service.NewReaper(geofenceSvc, settings.ReapInterval, settings.BikeMaxAge, logger.Named("reaper")),
		hub:          hub,
		dispatcher:   dispatcher,
		fenceHandler: handler.NewFenceHandler(geofenceSvc),
		wsHandler:    ws.NewHandler(hub, geofenceSvc, logger.Named("ws")),
	}

	// stays a nil interface without a database
	var history historyStore
	if deps.DB != nil {
		repo := postgres.NewTelemetryRepo(deps.DB)
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate telemetry: %w", err)
		}
		m.HistorySvc = service.NewHistoryService(repo)
		history = m.HistorySvc
	}

	m.bikeHandler = handler.NewBikeHandler(geofenceSvc, history, logger.Named("http"))
	if deps.MQTT != nil {
		m.subscriber = subscriber.NewTelemetrySubscriber(deps.MQTT, settings.MQTTTopic, geofenceSvc, history, logger.Named("mqtt"))
	}

	return m, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.bikeHandler.Register(r)
	m.fenceHandler.Register(r)
	m.wsHandler.Register(r)
}

// StartSubscribers is a no-op when no MQTT client was given.
func (m *Module) StartSubscribers() error {
	if m.subscriber == nil {
		return nil
	}
	return m.subscriber.Start()
}

func (m *Module) SubscriberCount() int {
	return m.hub.ClientCount()
}

// Drain waits for in-flight device and journal deliveries.
func (m *Module) Drain() {
	m.dispatcher.Wait()
}
