package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/AccountService/internal/infrastructure/redis"
	"github.com/honeynil/AccountService/internal/models"
	"github.com/segmentio/kafka-go"
)

// Consumer reads user lifecycle events and warms the profile cache, so the
// first authenticated profile read after signup does not hit Postgres.
type Consumer struct {
	reader   *kafka.Reader
	cache    redis.RedisClient
	cacheTTL time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, cache redis.RedisClient, cacheTTL time.Duration) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Consume blocks until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("Kafka consumer stopped", "topic", c.reader.Config().Topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset)
		if err := c.HandleMessage(ctx, msg); err != nil {
			slog.Error("failed to handle Kafka message", "topic", msg.Topic, "key", string(msg.Key), "error", err)
		}
	}
}

// HandleMessage processes a single message. Unknown event types are skipped.
func (c *Consumer) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.UserRegisteredEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal user event: %w", err)
	}

	switch event.EventType {
	case models.EventUserRegistered:
		if event.UserID == 0 {
			return fmt.Errorf("invalid %s event: missing user_id", event.EventType)
		}
		payload, err := json.Marshal(event.User())
		if err != nil {
			return fmt.Errorf("failed to marshal profile: %w", err)
		}
		if err := c.cache.Set(ctx, models.ProfileCacheKey(event.UserID), string(payload), c.cacheTTL); err != nil {
			return fmt.Errorf("failed to cache profile: %w", err)
		}
		slog.Info("profile cache warmed", "user_id", event.UserID)
		return nil
	default:
		slog.Warn("unknown user event type", "type", event.EventType)
		return nil
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
