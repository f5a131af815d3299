package queue

import (
	"context"

	"github.com/google/uuid"
)

// MemoryBroker is the IS_TESTING broker swap: an in-process channel
// buffered to 1024 messages (Enqueue blocks once it is full, until a
// message is dequeued or ctx is done), with the same at-most-once,
// no-redelivery contract as
// RedisBroker. Used by cmd/* under IS_TESTING and by internal/worker,
// internal/scheduler tests.
type MemoryBroker struct {
	messages chan Message
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{messages: make(chan Message, 1024)}
}

func (b *MemoryBroker) Enqueue(ctx context.Context, kind MessageKind, feedID int) error {
	msg := Message{ID: uuid.NewString(), Kind: kind, FeedID: feedID}
	select {
	case b.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBroker) Dequeue(ctx context.Context) (Message, error) {
	select {
	case msg := <-b.messages:
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (b *MemoryBroker) Close() error {
	close(b.messages)
	return nil
}

// Len reports the number of messages currently buffered. It is used by
// tests; internal/metrics does not read it.
func (b *MemoryBroker) Len() int {
	return len(b.messages)
}
