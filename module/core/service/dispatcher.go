package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nandanugg/bike-geofence/module/core/domain"
	"github.com/nandanugg/bike-geofence/module/core/internal/repository/publisher"
)

const (
	DefaultDeviceEndpoint = "http://192.168.1.100:8080/alert"
	DefaultDeviceTimeout  = 5 * time.Second
)

type subscriberNotifier interface {
	NotifySession(sessionID string, event any) bool
}

type deviceNotifier interface {
	NotifyDevice(ctx context.Context, endpoint string, alert domain.AlertEvent) (int, error)
}

type DispatcherConfig struct {
	DefaultEndpoint string
	Timeout         time.Duration
}

// AlertDispatcher delivers a fired transition to the owning subscriber, the
// session's device and, when configured, the alert journal. Each leg records
// its own error in the DispatchResult; none of them can fail another.
type AlertDispatcher struct {
	subscribers     subscriberNotifier
	device          deviceNotifier
	journal         publisher.AlertPublisher
	defaultEndpoint string
	timeout         time.Duration
	logger          *zap.Logger

	inflight sync.WaitGroup
}

// NewAlertDispatcher builds a dispatcher. journal may be nil.
func NewAlertDispatcher(subs subscriberNotifier, device deviceNotifier, journal publisher.AlertPublisher, cfg DispatcherConfig, logger *zap.Logger) *AlertDispatcher {
	if cfg.DefaultEndpoint == "" {
		cfg.DefaultEndpoint = DefaultDeviceEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDeviceTimeout
	}
	return &AlertDispatcher{
		subscribers:     subs,
		device:          device,
		journal:         journal,
		defaultEndpoint: cfg.DefaultEndpoint,
		timeout:         cfg.Timeout,
		logger:          logger,
	}
}

// Dispatch notifies the subscriber before returning and runs the device and
// journal legs in the background. The returned channel receives exactly one
// result once those legs finish.
func (d *AlertDispatcher) Dispatch(ctx context.Context, alert domain.AlertEvent, fence domain.FenceSession) <-chan domain.DispatchResult {
	res := domain.DispatchResult{
		Alert:          alert,
		DeviceEndpoint: d.endpointFor(fence),
	}
	res.SubscriberDelivered = d.subscribers.NotifySession(alert.SessionID, subscriberMessage(alert))

	out := make(chan domain.DispatchResult, 1)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()

		// the caller's request may end before the device answers
		legCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		var g errgroup.Group
		g.Go(func() error {
			status, err := d.device.NotifyDevice(legCtx, res.DeviceEndpoint, alert)
			res.DeviceStatus = status
			if err != nil {
				res.DeviceErr = fmt.Errorf("%w: device %s: %v", domain.ErrDispatch, res.DeviceEndpoint, err)
			}
			return nil
		})
		if d.journal != nil {
			g.Go(func() error {
				if err := d.journal.PublishAlert(legCtx, &alert); err != nil {
					res.JournalErr = fmt.Errorf("%w: journal: %v", domain.ErrDispatch, err)
				}
				return nil
			})
		}
		_ = g.Wait()

		d.log(res)
		out <- res
	}()
	return out
}

// Wait blocks until every background leg started so far has finished.
func (d *AlertDispatcher) Wait() {
	d.inflight.Wait()
}

func (d *AlertDispatcher) endpointFor(fence domain.FenceSession) string {
	if fence.DeviceEndpoint != "" {
		return fence.DeviceEndpoint
	}
	return d.defaultEndpoint
}

func (d *AlertDispatcher) log(res domain.DispatchResult) {
	fields := []zap.Field{
		zap.String("alert_id", res.Alert.ID),
		zap.String("bike_id", res.Alert.BikeID),
		zap.String("session_id", res.Alert.SessionID),
		zap.String("direction", string(res.Alert.Direction)),
		zap.Bool("subscriber_delivered", res.SubscriberDelivered),
		zap.String("endpoint", res.DeviceEndpoint),
	}
	if res.DeviceErr != nil {
		d.logger.Error("device alert failed", append(fields, zap.Error(res.DeviceErr))...)
	} else {
		d.logger.Info("device alert sent", append(fields, zap.Int("status", res.DeviceStatus))...)
	}
	if res.JournalErr != nil {
		d.logger.Warn("alert journal publish failed", append(fields, zap.Error(res.JournalErr))...)
	}
}

func subscriberMessage(alert domain.AlertEvent) domain.GeofenceAlertMessage {
	return domain.GeofenceAlertMessage{
		Type:       domain.EventGeofenceAlert,
		SessionID:  alert.SessionID,
		BikeID:     alert.BikeID,
		DistanceKm: alert.DistanceKm,
		Direction:  alert.Direction,
		Message:    AlertText(alert),
		Timestamp:  alert.Timestamp,
	}
}

// AlertText is the human readable line shown to subscribers.
func AlertText(alert domain.AlertEvent) string {
	if alert.Outside() {
		return fmt.Sprintf("Bike %s has left the geo-fence area", alert.BikeID)
	}
	return fmt.Sprintf("Bike %s has entered the geo-fence area", alert.BikeID)
}
