// Package reload carries "collection changed" signals between list screens.
// Signals are delivered to local subscribers right away and relayed over a
// Redis channel so that every console instance refreshes together.
package reload

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "storefront.reload"

type message struct {
	Origin string `json:"origin"`
	Topic  string `json:"topic"`
}

// Bus fans reload signals out to topic subscribers.
type Bus struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[uint64]func()
	next uint64

	ready     chan struct{}
	readyOnce sync.Once
}

// NewBus builds a bus. A nil client keeps signals in process.
func NewBus(client *redis.Client, channel string, logger *slog.Logger) *Bus {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger,
		subs:    make(map[string]map[uint64]func()),
		ready:   make(chan struct{}),
	}
}

// Subscribe registers fn for topic and returns its unsubscribe function.
func (b *Bus) Subscribe(topic string, fn func()) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]func())
	}
	b.subs[topic][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}
}

// Subscribers returns the number of local subscribers of topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Publish signals topic to local subscribers and relays it to other
// instances. Subscribers run on the caller's goroutine before Publish
// returns, so they must hand slow work off.
func (b *Bus) Publish(ctx context.Context, topic string) error {
	b.deliver(topic)
	if b.client == nil {
		return nil
	}
	payload, err := json.Marshal(message{Origin: b.origin, Topic: topic})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Ready is closed once Run holds its Redis subscription.
func (b *Bus) Ready() <-chan struct{} {
	return b.ready
}

// Run relays signals published by other instances until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	if b.client == nil {
		b.readyOnce.Do(func() { close(b.ready) })
		<-ctx.Done()
		return nil
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer func() { _ = pubsub.Close() }()
	if _, err := pubsub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	b.readyOnce.Do(func() { close(b.ready) })

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var m message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				b.logger.Warn("reload: bad payload", slog.String("payload", msg.Payload), slog.Any("error", err))
				continue
			}
			if m.Origin == b.origin || m.Topic == "" {
				continue
			}
			b.deliver(m.Topic)
		}
	}
}

func (b *Bus) deliver(topic string) {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.subs[topic]))
	for _, fn := range b.subs[topic] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}
