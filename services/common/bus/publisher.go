package bus

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"checkout-backend/services/contracts"
)

// EventPublisher is what saga participants program against; tests substitute
// a capturing fake.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, e contracts.Event) error
}

// Publisher writes saga events to Kafka. Messages are keyed by transaction id
// with a hash balancer, so one saga instance always lands on one partition.
type Publisher struct {
	brokers []string
	logger  *zap.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewPublisher(brokers []string, logger *zap.Logger) *Publisher {
	return &Publisher{
		brokers: brokers,
		logger:  logger,
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *Publisher) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	p.writers[topic] = w
	return w
}

// Publish emits one event keyed by its transaction id.
func (p *Publisher) Publish(ctx context.Context, topic string, e contracts.Event) error {
	data, err := contracts.Marshal(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(contracts.Key(e)),
		Value: data,
		Time:  time.Now().UTC(),
	}
	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", string(e.Type())),
			zap.String("transaction_id", contracts.Key(e)),
			zap.Error(err))
		return err
	}

	p.logger.Info("event published",
		zap.String("topic", topic),
		zap.String("type", string(e.Type())),
		zap.String("transaction_id", contracts.Key(e)),
		zap.String("event_id", e.Base().EventID))
	return nil
}

// Close closes every topic writer, keeping the first error.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
