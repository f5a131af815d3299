package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const listKey = "feedcloud:default"

// RedisBroker implements Broker over a single Redis list, using RPUSH to
// enqueue and BLPOP to dequeue. This gives exactly one logical FIFO queue
// with no built-in redelivery, which is what "queue-level retries disabled"
// requires without any extra bookkeeping.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to brokerURL. BROKER_URL's legacy default value
// is an amqp:// string kept for config compatibility; if it doesn't parse
// as redis://, the broker falls back to localhost:6379 rather than failing
// startup.
func NewRedisBroker(ctx context.Context, brokerURL string) (*RedisBroker, error) {
	opts, err := redis.ParseURL(brokerURL)
	if err != nil {
		opts = &redis.Options{Addr: "localhost:6379"}
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RedisBroker{client: client}, nil
}

func (b *RedisBroker) Enqueue(ctx context.Context, kind MessageKind, feedID int) error {
	msg := Message{ID: uuid.NewString(), Kind: kind, FeedID: feedID}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := b.client.RPush(ctx, listKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func (b *RedisBroker) Dequeue(ctx context.Context) (Message, error) {
	result, err := b.client.BLPop(ctx, 0, listKey).Result()
	if err != nil {
		return Message{}, fmt.Errorf("dequeue: %w", err)
	}
	// BLPop returns [key, value]; value is at index 1.
	var msg Message
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal message: %w", err)
	}
	return msg, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
