// Package audit captures the terminal outcome of every identifier a batch
// touches. Outcome messages are written to be rendered directly in an audit
// trail, so events carry them verbatim.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"grobi/internal/platform/kafka/producer"
)

// Event is one per-identifier terminal outcome within a batch run.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	BatchID   uuid.UUID `json:"batchId"`
	Facet     string    `json:"facet"`
	DOI       string    `json:"doi"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
}

// Publisher emits audit events for batch outcomes.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Noop discards events; used when no brokers are configured.
type Noop struct{}

func (Noop) Emit(context.Context, Event) error { return nil }

// Kafka publishes events to a Kafka topic keyed by identifier, so all
// outcomes for one identifier land in the same partition in order.
type Kafka struct {
	producer *producer.Producer
	topic    string
}

// NewKafka wraps a producer for the given topic.
func NewKafka(p *producer.Producer, topic string) (*Kafka, error) {
	if p == nil {
		return nil, fmt.Errorf("producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &Kafka{producer: p, topic: topic}, nil
}

func (k *Kafka) Emit(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return k.producer.Produce(ctx, k.topic, []byte(event.DOI), value)
}
