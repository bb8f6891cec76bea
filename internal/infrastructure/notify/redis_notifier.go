package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// RedisNotifier publishes events on Redis pub/sub channels.
type RedisNotifier struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.Notifier = (*RedisNotifier)(nil)

func NewRedisNotifier(client redis.UniversalClient, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

func (n *RedisNotifier) Publish(ctx context.Context, event marketplace.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "marshal event")
	}
	if err := n.client.Publish(ctx, Subject(n.prefix, event.Name), payload).Err(); err != nil {
		return errs.Wrapf(err, "publish %s", event.Name)
	}
	return nil
}
