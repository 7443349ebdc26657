package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/quickvotes/backend/internal/quickvotes"
)

// Event is the payload published to activity subscribers.
type Event struct {
	Type    string                    `json:"type"`
	User    string                    `json:"user,omitempty"`
	Option  string                    `json:"option,omitempty"`
	Winners []quickvotes.RaffleWinner `json:"winners,omitempty"`
	Winner  *quickvotes.WheelWinner   `json:"winner,omitempty"`
	Spin    *quickvotes.SpinOutcome   `json:"spin,omitempty"`
}

const eventChannelPrefix = "activity:"

// Broker fans out SSE events to local subscribers, keyed by activity ID.
// When a Redis client is configured, events travel through Redis pub/sub
// so every server instance sees them; without one the broker degrades to
// in-process delivery.
type Broker struct {
	rdb    *redis.Client
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker(rdb *redis.Client, logger *slog.Logger) *Broker {
	return &Broker{
		rdb:    rdb,
		logger: logger,
		subs:   make(map[string]map[chan []byte]struct{}),
	}
}

// Run consumes the Redis event channels and fans messages out to local
// subscribers. It blocks until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) error {
	if b.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := b.rdb.PSubscribe(ctx, eventChannelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			activityID := strings.TrimPrefix(msg.Channel, eventChannelPrefix)
			b.fanout(activityID, []byte(msg.Payload))
		}
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the
// given activity.
func (b *Broker) Subscribe(activityID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[activityID] == nil {
		b.subs[activityID] = make(map[chan []byte]struct{})
	}
	b.subs[activityID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the activity's subscribers.
func (b *Broker) Unsubscribe(activityID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[activityID], ch)
	if len(b.subs[activityID]) == 0 {
		delete(b.subs, activityID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given activity.
// Delivery goes through Redis when available; local subscribers then
// receive it from Run. Publish never fails the caller's request.
func (b *Broker) Publish(ctx context.Context, activityID string, event Event) {
	data, _ := json.Marshal(event)

	if b.rdb != nil {
		if err := b.rdb.Publish(ctx, eventChannelPrefix+activityID, data).Err(); err == nil {
			return
		} else if b.logger != nil {
			b.logger.Error("publishing event to redis", "activity_id", activityID, "error", err)
		}
	}
	b.fanout(activityID, data)
}

func (b *Broker) fanout(activityID string, data []byte) {
	b.mu.RLock()
	for ch := range b.subs[activityID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
