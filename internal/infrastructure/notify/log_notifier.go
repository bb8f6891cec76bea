package notify

import (
	"context"
	"log/slog"

	"homematch/internal/bootstrap/logging"
	"homematch/internal/domain/marketplace"
	"homematch/internal/ports"
)

// LogNotifier only logs events; the default for local runs.
type LogNotifier struct{}

var _ ports.Notifier = LogNotifier{}

func NewLogNotifier() LogNotifier {
	return LogNotifier{}
}

func (LogNotifier) Publish(ctx context.Context, event marketplace.Event) error {
	logCtx := logging.WithComponent(ctx, "notify.log")
	logging.Info(
		logCtx,
		"event published",
		slog.String("event", event.Name),
		slog.String("job_id", event.JobID),
		slog.Any("payload", event.Payload),
	)
	return nil
}
