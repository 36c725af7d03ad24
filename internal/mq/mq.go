package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkpost/apiserver/config"
)

// Supported broker backends.
const (
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Open connects to the broker selected by cfg.MQBackend. It returns a nil
// Backend and no error when no broker is configured.
func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.MQBackend)) {
	case "":
		return nil, nil
	case BackendRabbitMQ:
		return NewRabbitMQClient(cfg.RabbitMQ)
	case BackendPubSub:
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unsupported mq backend %q", cfg.MQBackend)
	}
}
