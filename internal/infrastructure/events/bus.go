// Package events is the in-process notification bus. Delivery is
// synchronous: Publish returns only after every listener registered for the
// topic at the time of the call has run, in registration order, on the
// publisher's goroutine.
//
// Listeners may publish or mutate from inside a handler. The bus does not
// guard against re-entrant publish storms.
package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
)

// Topic names a channel and fixes its payload type.
type Topic[T any] struct {
	name string
}

func (t Topic[T]) Name() string { return t.name }

func newTopic[T any](name string) Topic[T] {
	topicNames = append(topicNames, name)
	return Topic[T]{name: name}
}

var topicNames []string

// TopicNames returns every topic the bus knows about.
func TopicNames() []string {
	out := make([]string, len(topicNames))
	copy(out, topicNames)
	return out
}

// Subscription identifies one registered listener.
type Subscription struct {
	topic string
	id    uuid.UUID
}

func (s Subscription) Topic() string { return s.topic }

// Envelope carries a payload of any topic, for transports that forward
// every topic (e.g. the HTTP event stream).
type Envelope struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

type listener struct {
	id uuid.UUID
	fn func(any)
}

// PublishHook observes each publish with the number of listeners invoked.
type PublishHook func(topic string, listeners int)

// Bus fans payloads out to listeners by topic
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]listener
	hook      PublishHook
	logger    *logger.Logger
}

// Option configures a Bus
type Option func(*Bus)

func WithPublishHook(hook PublishHook) Option {
	return func(b *Bus) { b.hook = hook }
}

func WithLogger(l *logger.Logger) Option {
	return func(b *Bus) { b.logger = l.WithComponent("event-bus") }
}

// New creates an empty bus
func New(opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[string][]listener),
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for topic. The returned Subscription is the
// only handle that can remove it again.
func Subscribe[T any](b *Bus, topic Topic[T], handler func(T)) Subscription {
	return b.subscribe(topic.name, func(payload any) {
		handler(payload.(T))
	})
}

// SubscribeAll registers handler on every topic.
func (b *Bus) SubscribeAll(handler func(Envelope)) []Subscription {
	subs := make([]Subscription, 0, len(topicNames))
	for _, name := range topicNames {
		name := name
		subs = append(subs, b.subscribe(name, func(payload any) {
			handler(Envelope{Topic: name, Payload: payload})
		}))
	}
	return subs
}

// Publish delivers payload to every listener currently registered for
// topic and returns how many were invoked.
func Publish[T any](b *Bus, topic Topic[T], payload T) int {
	return b.publish(topic.name, payload)
}

// Unsubscribe removes a listener. It reports false if the subscription was
// already removed.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.listeners[sub.topic]
	for i, l := range current {
		if l.id == sub.id {
			next := make([]listener, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			b.listeners[sub.topic] = next
			return true
		}
	}
	return false
}

// UnsubscribeAll removes every given subscription
func (b *Bus) UnsubscribeAll(subs []Subscription) {
	for _, sub := range subs {
		b.Unsubscribe(sub)
	}
}

// ListenerCount reports how many listeners are registered for a topic name
func (b *Bus) ListenerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[topic])
}

func (b *Bus) subscribe(topic string, fn func(any)) Subscription {
	sub := Subscription{topic: topic, id: uuid.New()}

	b.mu.Lock()
	defer b.mu.Unlock()

	// copy-on-write so an in-flight publish keeps its own snapshot
	current := b.listeners[topic]
	next := make([]listener, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, listener{id: sub.id, fn: fn})
	b.listeners[topic] = next

	return sub
}

func (b *Bus) publish(topic string, payload any) int {
	b.mu.RLock()
	snapshot := b.listeners[topic]
	b.mu.RUnlock()

	for _, l := range snapshot {
		b.deliver(topic, l, payload)
	}

	if b.hook != nil {
		b.hook(topic, len(snapshot))
	}
	return len(snapshot)
}

// deliver isolates listeners from each other: a panicking listener is
// logged and the remaining listeners still run.
func (b *Bus) deliver(topic string, l listener, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorw("Listener panicked", "topic", topic, "subscription", l.id.String(), "panic", r)
		}
	}()
	l.fn(payload)
}
