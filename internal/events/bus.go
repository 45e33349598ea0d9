package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mevx/internal/metrics"
)

// Topic names a class of events
type Topic string

const (
	TopicAutoSnipeConfigChanged Topic = "autosnipe-config-changed"
	TopicAutoSnipeTokenChanged  Topic = "autosnipe-token-changed"
	TopicUsersChanged           Topic = "users-changed"
	TopicPriceUpdated           Topic = "price-updated"
)

// Event is a single notification on the bus
type Event struct {
	Topic   Topic     `json:"topic"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Handler receives published events
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously to the handlers registered at publish time
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[Topic][]subscription
	all    []subscription
	logger zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		topics: make(map[Topic][]subscription),
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers handler for topic and returns its unsubscribe function
func (b *Bus) Subscribe(topic Topic, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.topics[topic] = without(b.topics[topic], id)
		})
	}
}

// SubscribeAll registers handler for every topic
func (b *Bus) SubscribeAll(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.all = without(b.all, id)
		})
	}
}

// Publish delivers an event in registration order. Handlers may publish or
// unsubscribe from within a delivery.
func (b *Bus) Publish(topic Topic, payload any) {
	event := Event{Topic: topic, Payload: payload, At: time.Now().UTC()}

	b.mu.RLock()
	handlers := make([]subscription, 0, len(b.topics[topic])+len(b.all))
	handlers = append(handlers, b.topics[topic]...)
	handlers = append(handlers, b.all...)
	b.mu.RUnlock()

	metrics.RecordEvent(string(topic))

	for _, sub := range handlers {
		b.deliver(sub.handler, event)
	}
}

func (b *Bus) deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("topic", string(event.Topic)).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()
	handler(event)
}

func without(subs []subscription, id uint64) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
