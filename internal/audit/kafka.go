package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes audit events to a Kafka topic. Delivery is synchronous
// with a short timeout so a slow broker cannot stall the worker indefinitely.
type KafkaSink struct {
	client *kgo.Client
}

// NewKafkaSink connects to the given brokers and produces to topic. Returns
// (nil, nil) when brokers or topic are unset so callers can wire it
// opportunistically.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{client: client}, nil
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	if s == nil || s.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	produceCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	record := &kgo.Record{
		Key:   []byte(event.FlowID.String()),
		Value: payload,
	}
	return s.client.ProduceSync(produceCtx, record).FirstErr()
}

// Close flushes and releases the client. Safe on a nil sink.
func (s *KafkaSink) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Close()
}
