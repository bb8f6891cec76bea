package ports

import (
	"context"

	"homematch/internal/domain/marketplace"
)

// Notifier delivers marketplace events to whatever realtime channel is
// configured. Delivery is best-effort.
type Notifier interface {
	Publish(ctx context.Context, event marketplace.Event) error
}
