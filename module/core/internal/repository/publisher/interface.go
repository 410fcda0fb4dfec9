package publisher

import (
	"context"

	"github.com/nandanugg/bike-geofence/module/core/domain"
)

type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.AlertEvent) error
}
