// Package events is an in-process publish/subscribe channel. Notifications are
// fire-and-forget: publishing with no subscribers, or on a nil *Bus, is a no-op.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Topic names a notification stream.
type Topic string

const (
	// DriftDue fires when a consent review is due. Payload: DriftPayload.
	DriftDue Topic = "drift-due"

	// AuditAppended fires after every audit write. Payload: the new audit entry.
	AuditAppended Topic = "audit-appended"

	// AuditCleared fires after the audit log was cleared. Payload: nil.
	AuditCleared Topic = "audit-cleared"

	// FlagsUpdated fires when consent flags changed. Payload: the scope.
	FlagsUpdated Topic = "flags-updated"
)

// DriftPayload accompanies DriftDue.
type DriftPayload struct {
	Topic  string `json:"topic,omitempty"`
	Manual bool   `json:"manual,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Event is delivered to subscribers.
type Event struct {
	Topic   Topic
	Payload any
}

// Handler receives events synchronously on the publisher's goroutine.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	nextID uint64
	log    *zap.Logger
}

// NewBus creates an empty bus. A nil logger disables panic logging.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs: make(map[Topic][]subscription),
		log:  log,
	}
}

// Subscribe registers h for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every subscriber of topic. A panicking handler
// is logged and does not stop delivery to the others.
func (b *Bus) Publish(topic Topic, payload any) {
	if b == nil {
		return
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, s := range subs {
		b.deliver(s.handler, ev)
	}
}

func (b *Bus) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("events: subscriber panicked", zap.String("topic", string(ev.Topic)), zap.Any("panic", r))
		}
	}()
	h(ev)
}
