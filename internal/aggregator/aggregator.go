// Package aggregator implements the Data Aggregator (C2): admits
// readings into the Ring Buffer Store, delegates safety updates to
// the Safety Registry, and produces vectorized statistical summaries
// over a sliding time window.
package aggregator

import (
	"errors"
	"math"
	"time"

	"github.com/fieldmesh/telemetry-core/internal/model"
	"github.com/fieldmesh/telemetry-core/internal/ring"
	"github.com/fieldmesh/telemetry-core/internal/safety"
)

// ErrInvalidReading is returned when a reading's channel lengths
// disagree with the rest of the window — the core assumes
// schema-stable devices and fails fast rather than silently padding.
var ErrInvalidReading = errors.New("invalid reading: channel shape mismatch")

type Aggregator struct {
	rings  *ring.Store
	safety *safety.Registry

	defaultWindowSeconds int
	now                  func() time.Time
}

func New(rings *ring.Store, reg *safety.Registry, defaultWindowSeconds int) *Aggregator {
	return &Aggregator{
		rings:                rings,
		safety:               reg,
		defaultWindowSeconds: defaultWindowSeconds,
		now:                  time.Now,
	}
}

// WithClock overrides the aggregator's notion of "now", for tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// AddReading admits a reading unconditionally into the device's ring.
func (a *Aggregator) AddReading(r model.SensorReading) {
	a.rings.Append(r)
}

// UpdateSafety delegates to the Safety Registry.
func (a *Aggregator) UpdateSafety(s model.SafetyStatus) {
	a.safety.Update(s)
}

// Aggregate produces a windowed statistical summary for a device. A
// nil, nil result means the window had no readings (absent, not an
// error). windowSeconds of 0 uses the configured default.
func (a *Aggregator) Aggregate(deviceID string, windowSeconds int) (*model.AggregatedSummary, error) {
	if windowSeconds <= 0 {
		windowSeconds = a.defaultWindowSeconds
	}

	all, ok := a.rings.Snapshot(deviceID)
	if !ok {
		return nil, nil
	}

	nowSec := a.now().Unix()
	cutoffSec := nowSec - int64(windowSeconds)

	var windowed []model.SensorReading
	for _, r := range all {
		if r.TimestampMs/1000 >= cutoffSec {
			windowed = append(windowed, r)
		}
	}
	if len(windowed) == 0 {
		return nil, nil
	}

	kCurr := len(windowed[0].MotorCurrents)
	kTemp := len(windowed[0].Temperatures)
	for _, r := range windowed {
		if len(r.MotorCurrents) != kCurr || len(r.Temperatures) != kTemp {
			return nil, ErrInvalidReading
		}
	}

	currMean, currStd, currMax := summarizeColumns(windowed, kCurr, func(r model.SensorReading, i int) float32 {
		return r.MotorCurrents[i]
	})
	tempMean, tempStd, tempMax := summarizeColumns(windowed, kTemp, func(r model.SensorReading, i int) float32 {
		return r.Temperatures[i]
	})

	vib := map[string]model.ChannelStats{
		"x":         summarizeScalar(windowed, func(r model.SensorReading) float32 { return r.Vibration.X }),
		"y":         summarizeScalar(windowed, func(r model.SensorReading) float32 { return r.Vibration.Y }),
		"z":         summarizeScalar(windowed, func(r model.SensorReading) float32 { return r.Vibration.Z }),
		"magnitude": summarizeScalar(windowed, func(r model.SensorReading) float32 { return r.Vibration.Magnitude }),
	}

	return &model.AggregatedSummary{
		DeviceID:        deviceID,
		WindowStartSec:  windowed[0].TimestampMs / 1000,
		WindowEndSec:    windowed[len(windowed)-1].TimestampMs / 1000,
		SampleCount:     len(windowed),
		CurrentMean:     currMean,
		CurrentStd:      currStd,
		CurrentMax:      currMax,
		Vibration:       vib,
		TemperatureMean: tempMean,
		TemperatureStd:  tempStd,
		TemperatureMax:  tempMax,
	}, nil
}

func summarizeColumns(readings []model.SensorReading, k int, col func(model.SensorReading, int) float32) (mean, std, max []float32) {
	mean = make([]float32, k)
	std = make([]float32, k)
	max = make([]float32, k)

	n := float32(len(readings))
	for i := 0; i < k; i++ {
		var sum float32
		m := col(readings[0], i)
		for _, r := range readings {
			v := col(r, i)
			sum += v
			if v > m {
				m = v
			}
		}
		mu := sum / n
		mean[i] = mu

		var variance float32
		for _, r := range readings {
			d := col(r, i) - mu
			variance += d * d
		}
		std[i] = sqrt32(variance / n)
		max[i] = m
	}
	return mean, std, max
}

func summarizeScalar(readings []model.SensorReading, col func(model.SensorReading) float32) model.ChannelStats {
	n := float32(len(readings))
	var sum float32
	m := col(readings[0])
	for _, r := range readings {
		v := col(r)
		sum += v
		if v > m {
			m = v
		}
	}
	mu := sum / n

	var variance float32
	for _, r := range readings {
		d := col(r) - mu
		variance += d * d
	}

	return model.ChannelStats{Mean: mu, Std: sqrt32(variance / n), Max: m}
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
