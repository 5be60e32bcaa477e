// Package broker implements the Subscription Broker (C8): best-effort
// fan-out of pipeline messages to registered subscribers, each with an
// optional device_id filter.
package broker

import "sync"

type MessageKind string

const (
	KindSensorData   MessageKind = "sensor_data"
	KindSafetyStatus MessageKind = "safety_status"
	KindAIAnalysis   MessageKind = "ai_analysis"
	KindSystemStatus MessageKind = "system_status"
)

// Message is the value fanned out to subscribers. DeviceID is empty
// for system_status messages, which are not device-scoped.
type Message struct {
	Kind     MessageKind
	DeviceID string
	Payload  any
}

const mailboxCapacity = 32

type subscriber struct {
	deviceFilter string // "" matches every device
	mailbox      chan Message
}

// Broker fans out messages in subscriber registration order. A
// subscriber whose mailbox is full is detached silently; delivery to
// the remaining subscribers continues.
type Broker struct {
	mu   sync.Mutex
	subs []*subscriber
}

func NewBroker() *Broker {
	return &Broker{}
}

// Subscribe registers a subscriber. deviceFilter == "" receives every
// message of every kind; otherwise only device-scoped messages for
// that device (system_status is never filtered out, since it is not
// device-scoped).
func (b *Broker) Subscribe(deviceFilter string) (<-chan Message, func()) {
	s := &subscriber{deviceFilter: deviceFilter, mailbox: make(chan Message, mailboxCapacity)}

	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.detach(s)
	}

	return s.mailbox, unsubscribe
}

// detach must be called with b.mu held.
func (b *Broker) detach(s *subscriber) {
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.mailbox)
			return
		}
	}
}

// Publish delivers msg to every matching subscriber in registration
// order. A subscriber whose mailbox would block is detached and
// dropped from delivery for this and all future messages.
func (b *Broker) Publish(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var stale []*subscriber
	for _, s := range b.subs {
		if s.deviceFilter != "" && msg.DeviceID != "" && s.deviceFilter != msg.DeviceID {
			continue
		}

		select {
		case s.mailbox <- msg:
		default:
			stale = append(stale, s)
		}
	}

	for _, s := range stale {
		b.detach(s)
	}
}
