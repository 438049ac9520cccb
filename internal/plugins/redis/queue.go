package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisMessageQueue buffers accepted messages in a Redis Stream so the
// persist worker can drain them through a consumer group.
type RedisMessageQueue struct {
	rdb *redis.Client
}

func NewRedisMessageQueue(rdb *redis.Client) *RedisMessageQueue {
	return &RedisMessageQueue{rdb: rdb}
}

func (q *RedisMessageQueue) streamKey(topic string) string {
	return "stream:" + topic
}

func (q *RedisMessageQueue) PublishToStream(ctx context.Context, topic string, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamKey(topic),
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

// SubscribeToStream blocks until ctx is cancelled, reading entries through
// conGroup and handing each to handler. Handler errors are logged; the entry
// stays in the pending list for redelivery.
func (q *RedisMessageQueue) SubscribeToStream(
	ctx context.Context,
	topic string,
	conGroup string,
	handler func(ctx context.Context, messageID string, data []byte) error,
) error {
	key := q.streamKey(topic)
	err := q.rdb.XGroupCreateMkStream(ctx, key, conGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	consumerName := uuid.NewString()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    conGroup,
			Consumer: consumerName,
			Streams:  []string{key, ">"},
			Count:    16,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err != redis.Nil && ctx.Err() == nil {
				slog.Error("redis queue - subscribe - stream read failed", "stream", key, "err", err)
			}
			continue
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				raw, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
					slog.Error("redis queue - subscribe - handler failed", "message_id", msg.ID, "err", err)
				}
			}
		}
	}
}

func (q *RedisMessageQueue) AcknowledgeMessage(ctx context.Context, topic, conGroup, mesgID string) error {
	return q.rdb.XAck(ctx, q.streamKey(topic), conGroup, mesgID).Err()
}

func (q *RedisMessageQueue) DeleteMessage(ctx context.Context, topic, mesgID string) error {
	return q.rdb.XDel(ctx, q.streamKey(topic), mesgID).Err()
}
