// Package ring implements the Ring Buffer Store (C1): bounded,
// time-ordered per-device storage of sensor readings.
package ring

import (
	"sync"

	"github.com/fieldmesh/telemetry-core/internal/model"
)

// deviceRing is a single device's bounded, time-ordered reading
// history. A coarse per-device lock is sufficient since a single
// ingest stream per device is the norm.
type deviceRing struct {
	mu       sync.RWMutex
	readings []model.SensorReading
	capacity int
}

func newDeviceRing(capacity int) *deviceRing {
	return &deviceRing{
		readings: make([]model.SensorReading, 0, capacity),
		capacity: capacity,
	}
}

func (d *deviceRing) append(r model.SensorReading) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.readings) >= d.capacity {
		d.readings = d.readings[1:]
	}
	d.readings = append(d.readings, r)
}

// sweep drops readings older than cutoffMs, in place.
func (d *deviceRing) sweep(cutoffMs int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := 0
	for i < len(d.readings) && d.readings[i].TimestampMs < cutoffMs {
		i++
	}
	if i > 0 {
		d.readings = d.readings[i:]
	}
}

// snapshot returns a defensive copy of the current readings, newest
// last, so a reader never observes a torn sequence.
func (d *deviceRing) snapshot() []model.SensorReading {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]model.SensorReading, len(d.readings))
	copy(out, d.readings)
	return out
}

// last returns the most recent n readings (or all of them if fewer
// than n are present).
func (d *deviceRing) last(n int) []model.SensorReading {
	all := d.snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Store is a mapping from device_id to a bounded, time-ordered ring of
// readings.
type Store struct {
	maxPoints    int
	windowSeconds int

	mu      sync.RWMutex
	devices map[string]*deviceRing
	order   []string
}

func NewStore(maxPoints, windowSeconds int) *Store {
	return &Store{
		maxPoints:     maxPoints,
		windowSeconds: windowSeconds,
		devices:       make(map[string]*deviceRing),
	}
}

func (s *Store) ringFor(deviceID string) *deviceRing {
	s.mu.RLock()
	d, ok := s.devices[deviceID]
	s.mu.RUnlock()
	if ok {
		return d
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.devices[deviceID]; ok {
		return d
	}
	d = newDeviceRing(s.maxPoints)
	s.devices[deviceID] = d
	s.order = append(s.order, deviceID)
	return d
}

// Append admits a reading unconditionally, evicting the oldest entry
// if the device's ring is already full, then runs the housekeeping
// sweep dropping anything older than 10x the window size.
func (s *Store) Append(r model.SensorReading) {
	d := s.ringFor(r.DeviceID)
	d.append(r)

	cutoff := r.TimestampMs - int64(10*s.windowSeconds)*1000
	d.sweep(cutoff)
}

// Snapshot returns a defensive copy of a device's full buffer.
func (s *Store) Snapshot(deviceID string) ([]model.SensorReading, bool) {
	s.mu.RLock()
	d, ok := s.devices[deviceID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return d.snapshot(), true
}

// Last returns the most recent n readings for a device.
func (s *Store) Last(deviceID string, n int) ([]model.SensorReading, bool) {
	s.mu.RLock()
	d, ok := s.devices[deviceID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return d.last(n), true
}

// DeviceIDs returns every device the store has ever seen a reading
// for, in first-seen order.
func (s *Store) DeviceIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}
