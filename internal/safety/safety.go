// Package safety implements the Safety Registry (C3) and the Command
// Gate (C10): the single source of truth for whether it is safe to
// actuate anything.
package safety

import (
	"errors"
	"sync"
	"time"

	"github.com/fieldmesh/telemetry-core/internal/model"
)

// ErrSafetyBlocked is returned by the Command Gate when the system is
// not safe.
var ErrSafetyBlocked = errors.New("system_not_safe")

// Registry tracks the latest safety status per device behind a single
// lock, generalized from the single override flag in
// failsafecontroller.go into a per-device map.
type Registry struct {
	mu     sync.Mutex
	latest map[string]model.SafetyStatus
}

func NewRegistry() *Registry {
	return &Registry{latest: make(map[string]model.SafetyStatus)}
}

func (r *Registry) Update(s model.SafetyStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[s.DeviceID] = s
}

func (r *Registry) Latest(deviceID string) (model.SafetyStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.latest[deviceID]
	return s, ok
}

// SystemSafe returns false if no device has ever reported in (unknown
// is treated as unsafe), otherwise the conjunction of IsSafe over
// every known device.
func (r *Registry) SystemSafe() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.latest) == 0 {
		return false
	}
	for _, s := range r.latest {
		if !s.IsSafe() {
			return false
		}
	}
	return true
}

// Command is an opaque actuator command attempt.
type Command struct {
	Type       string
	Parameters map[string]any
}

// PublishedCommand is the egress shape for an accepted command.
type PublishedCommand struct {
	TimestampMs int64          `json:"timestamp"`
	CommandType string         `json:"command_type"`
	Parameters  map[string]any `json:"parameters"`
}

// Publisher is the named, out-of-scope egress bus collaborator that
// accepted commands are forwarded to.
type Publisher interface {
	PublishCommand(PublishedCommand)
}

// Gate is the Command Gate (C10): it consults the Safety Registry
// before forwarding any actuator command.
type Gate struct {
	registry  *Registry
	publisher Publisher
	now       func() time.Time
}

func NewGate(registry *Registry, publisher Publisher) *Gate {
	return &Gate{registry: registry, publisher: publisher, now: time.Now}
}

// TryCommand accepts and forwards cmd iff the system is safe,
// otherwise it rejects with ErrSafetyBlocked. Commands are opaque to
// the gate.
func (g *Gate) TryCommand(cmd Command) error {
	if !g.registry.SystemSafe() {
		return ErrSafetyBlocked
	}

	g.publisher.PublishCommand(PublishedCommand{
		TimestampMs: g.now().UnixMilli(),
		CommandType: cmd.Type,
		Parameters:  cmd.Parameters,
	})
	return nil
}
