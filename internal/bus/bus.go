// Package bus defines the egress/ingress transport boundary the core
// talks to. The real deployment sits behind an MQTT broker (see
// python-control-layer/mqtt_handler.py's publish/subscribe topic
// surface in the original system); that transport is out of scope
// here, so Bus is a named interface with a trivial in-process
// channel-backed adapter for tests and the demo binary.
package bus

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	TopicSensorData       = "sensor_data"
	TopicSafetyStatus     = "safety_status"
	TopicAIAnalysis       = "ai_analysis"
	TopicControlCommands  = "control_commands"
)

// Bus is the named out-of-scope transport collaborator. Publish is
// fire-and-forget; Subscribe returns a receive channel and an
// unsubscribe function.
type Bus interface {
	Publish(topic string, payload []byte)
	Subscribe(topic string) (<-chan []byte, func())
}

// InProcessBus fans out published payloads to every subscriber of a
// topic over a small buffered channel each. A slow subscriber drops
// messages rather than blocking the publisher, mirroring the bus's
// best-effort delivery guarantee.
type InProcessBus struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

func NewInProcessBus() *InProcessBus {
	return &InProcessBus{subs: make(map[string][]chan []byte)}
}

func (b *InProcessBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	receivers := append([]chan []byte(nil), b.subs[topic]...)
	b.mu.Unlock()

	for _, ch := range receivers {
		select {
		case ch <- payload:
		default:
			log.Warn().Str("topic", topic).Msg("bus subscriber channel full, dropping message")
		}
	}
}

func (b *InProcessBus) Subscribe(topic string) (<-chan []byte, func()) {
	ch := make(chan []byte, 64)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[topic]
		for i, c := range subs {
			if c == ch {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}

	return ch, unsubscribe
}
