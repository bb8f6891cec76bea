package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"

	"homematch/internal/domain/marketplace"
	"homematch/internal/errs"
	"homematch/internal/ports"
)

// NATSNotifier publishes each event to "<prefix>.<event name>".
type NATSNotifier struct {
	conn   *nats.Conn
	prefix string
}

var _ ports.Notifier = (*NATSNotifier)(nil)

func DialNATS(url string, prefix string) (*NATSNotifier, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("notify.nats_url is required")
	}
	conn, err := nats.Connect(url, nats.Name("homematch"))
	if err != nil {
		return nil, errs.Wrap(err, "connect nats")
	}
	return &NATSNotifier{conn: conn, prefix: prefix}, nil
}

func (n *NATSNotifier) Publish(ctx context.Context, event marketplace.Event) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(err, "marshal event")
	}
	if err := n.conn.Publish(Subject(n.prefix, event.Name), payload); err != nil {
		return errs.Wrapf(err, "publish %s", event.Name)
	}
	return nil
}

func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

// Subject joins a prefix and an event name with a dot.
func Subject(prefix string, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
