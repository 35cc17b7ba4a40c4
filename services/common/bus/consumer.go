package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"checkout-backend/services/contracts"
)

// Handler processes one decoded saga event. Returning an error leaves the
// message uncommitted so the transport delivers it again; handlers must be
// idempotent on transaction id.
type Handler func(ctx context.Context, e contracts.Event) error

const (
	handlerAttempts = 5
	retryBackoff    = 2 * time.Second
)

// Consumer runs a manual-commit read loop over one topic. Offsets are
// committed only after the handler's side effects are durable; a crash in
// between causes redelivery rather than loss.
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
	topic  string
	group  string
}

func NewConsumer(brokers []string, topic, groupID string, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, logger: logger, topic: topic, group: groupID}
}

// Run consumes until ctx is cancelled. Undecodable payloads are committed and
// skipped (they can never succeed); handler errors are retried with backoff
// and, if they persist, Run returns so the process restarts and the message
// is redelivered.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	c.logger.Info("consumer started",
		zap.String("topic", c.topic), zap.String("group", c.group))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}

		e, err := contracts.Decode(m.Value)
		if err != nil {
			c.logger.Warn("skipping undecodable message",
				zap.String("topic", c.topic),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				return fmt.Errorf("commit poison message on %s: %w", c.topic, err)
			}
			continue
		}

		if err := c.handleWithRetry(ctx, handle, e); err != nil {
			c.logger.Error("handler exhausted retries, leaving message uncommitted",
				zap.String("topic", c.topic),
				zap.String("type", string(e.Type())),
				zap.String("transaction_id", contracts.Key(e)),
				zap.Error(err))
			return err
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("commit on %s: %w", c.topic, err)
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, handle Handler, e contracts.Event) error {
	var err error
	for attempt := 1; attempt <= handlerAttempts; attempt++ {
		if err = handle(ctx, e); err == nil {
			return nil
		}
		c.logger.Warn("handler failed",
			zap.String("topic", c.topic),
			zap.String("type", string(e.Type())),
			zap.String("transaction_id", contracts.Key(e)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	return err
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
