package server

import (
	"context"

	"github.com/inkpost/apiserver/internal/mq"
	"github.com/inkpost/apiserver/internal/observability"
)

// eventPublisher forwards post events to the broker and counts the outcome.
type eventPublisher struct {
	backend mq.Backend
	metrics *observability.Metrics
}

func (p eventPublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	id, err := p.backend.Publish(ctx, channel, data, attrs)
	p.metrics.ObservePostEvent(attrs["type"], err)
	return id, err
}
