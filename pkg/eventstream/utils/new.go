// Package eventstreamutils builds the configured eventstream.Publisher.
package eventstreamutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/raggadon/pkg/eventstream"
	"github.com/papercomputeco/raggadon/pkg/eventstream/kafka"
	"github.com/papercomputeco/raggadon/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      []string
	Topic        string
	Logger       *slog.Logger
}

// NewPublisher returns a publisher for the provider wrapped in an
// asynchronous pool. The "none" provider yields a nop publisher.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	var inner eventstream.Publisher

	switch o.ProviderType {
	case "none", "":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{Brokers: o.Brokers, Topic: o.Topic})
		if err != nil {
			return nil, err
		}
		inner = p
	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", o.ProviderType)
	}

	return eventstream.NewPool(&eventstream.PoolConfig{
		Publisher: inner,
		Logger:    o.Logger,
	})
}
