package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/nandanugg/bike-geofence/config"
	"github.com/nandanugg/bike-geofence/module/core"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sqlx.DB
	if cfg.PostgresDSN != "" {
		if db, err = config.NewPostgres(cfg); err != nil {
			logger.Fatal("postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
	} else {
		logger.Info("postgres disabled, telemetry history off")
	}

	var amqpConn *amqp.Connection
	if cfg.RabbitMQURL != "" {
		if amqpConn, err = config.NewRabbitMQ(cfg.RabbitMQURL); err != nil {
			logger.Fatal("rabbitmq", zap.Error(err))
		}
		defer func() { _ = amqpConn.Close() }()
	} else {
		logger.Info("rabbitmq disabled, alert journal off")
	}

	var mqttClient mqtt.Client
	if cfg.MQTTBroker != "" {
		if mqttClient, err = config.NewMQTT(cfg, logger.Named("mqtt")); err != nil {
			logger.Fatal("mqtt", zap.Error(err))
		}
		defer mqttClient.Disconnect(250)
	} else {
		logger.Info("mqtt disabled, telemetry over HTTP only")
	}

	coreModule, err := core.Build(ctx, core.Deps{
		DB:     db,
		AMQP:   amqpConn,
		MQTT:   mqttClient,
		Logger: logger,
	}, core.Settings{
		MQTTTopic:      cfg.MQTTTopic,
		DeviceEndpoint: cfg.DeviceEndpoint,
		DeviceTimeout:  cfg.DeviceTimeout,
		ReapInterval:   cfg.ReapInterval,
		BikeMaxAge:     cfg.BikeMaxAge,
	})
	if err != nil {
		logger.Fatal("core module", zap.Error(err))
	}

	if err := coreModule.StartSubscribers(); err != nil {
		logger.Fatal("start subscribers", zap.Error(err))
	}

	go coreModule.Reaper.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), config.RequestLogger(logger.Named("http")))

	health := config.NewHealthChecker(db, amqpConn, mqttClient, coreModule)
	health.Register(r)

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r}
	go func() {
		logger.Info("listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	coreModule.Drain()
}
