package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

var (
	interval  time.Duration
	bikeID    string
	broker    string
	alertPort int
	baseLat   float64
	baseLng   float64
	spread    float64

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Simulates a bike publishing telemetry and receiving fence alerts",
	Long: `Walks one bike randomly around a base point and publishes its telemetry
over MQTT. It also serves POST /alert, acting on "ok" and "nok" the way the
bike firmware drives its buzzer and LED.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: run,
}

func init() {
	rootCmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "telemetry publish interval")
	rootCmd.Flags().StringVar(&bikeID, "bike-id", "BIKE001", "bike id to report as")
	rootCmd.Flags().StringVar(&broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	rootCmd.Flags().IntVar(&alertPort, "alert-port", 8081, "port of the alert receiver")
	rootCmd.Flags().Float64Var(&baseLat, "base-lat", 19.0760, "base latitude")
	rootCmd.Flags().Float64Var(&baseLng, "base-lng", 72.8777, "base longitude")
	rootCmd.Flags().Float64Var(&spread, "spread", 0.01, "maximum distance from base, in degrees")
}

type telemetryMessage struct {
	BikeID   string          `json:"bikeId"`
	Location domain.Location `json:"location"`
	AvgSpeed float64         `json:"avgSpeed"`
	Battery  float64         `json:"battery"`
}

type alertRequest struct {
	BikeID string `json:"bikeId"`
	Alert  struct {
		Status    string `json:"status"`
		Message   string `json:"message"`
		Distance  string `json:"distance"`
		Timestamp string `json:"timestamp"`
	} `json:"alert"`
}

func run(cmd *cobra.Command, args []string) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("bike-simulator-" + bikeID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", alertPort), Handler: alertRouter()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("alert receiver", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("simulator started",
		zap.String("bike_id", bikeID),
		zap.String("broker", broker),
		zap.Duration("interval", interval),
		zap.String("alert_endpoint", fmt.Sprintf("http://localhost:%d/alert", alertPort)))

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	walk := newWalker(baseLat, baseLng, spread, rnd)
	bat := &battery{level: 70}
	topic := fmt.Sprintf("/smartcycle/bike/%s/telemetry", bikeID)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		lat, lng := walk.step()
		msg := telemetryMessage{
			BikeID:   bikeID,
			Location: domain.Location{Lat: lat, Lng: lng},
			AvgSpeed: round2(12 + rnd.Float64()*16),
			Battery:  float64(bat.tick()),
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal telemetry: %w", err)
		}

		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Warn("publish failed", zap.Error(err))
		} else {
			logger.Info("published", zap.Float64("lat", lat), zap.Float64("lng", lng), zap.Float64("battery", msg.Battery))
		}

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

func alertRouter() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	var received atomic.Int64
	r.POST("/alert", func(c *gin.Context) {
		var req alertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid alert"})
			return
		}
		n := received.Add(1)

		action := "buzzer off, led green"
		if req.Alert.Status == "nok" {
			action = "buzzer on, led red"
		}
		logger.Warn("alert received",
			zap.String("bike_id", req.BikeID),
			zap.String("status", req.Alert.Status),
			zap.String("message", req.Alert.Message),
			zap.String("distance_km", req.Alert.Distance),
			zap.Int64("count", n),
			zap.String("action", action))

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"bikeId":      req.BikeID,
			"alertStatus": req.Alert.Status,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "bikeId": bikeID, "alertsReceived": received.Load()})
	})
	return r
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
