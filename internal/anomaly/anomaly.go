// Package anomaly implements the Anomaly Detector (C4): three
// independent per-channel-family analyzers (current, vibration,
// temperature) backed by a per-device adaptive baseline.
package anomaly

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/fieldmesh/telemetry-core/internal/model"
)

const (
	emaAlpha = 0.1

	seedStdCurrent    = 0.5
	seedStdVibration  = 0.5
	seedStdTemperature = 2.0

	confidenceCurrent     = 0.85
	confidenceVibration   = 0.80
	confidenceTemperature = 0.90
)

type deviceBaseline struct {
	mu   sync.Mutex
	data *model.DeviceBaseline
}

// Detector runs the three channel-family analyzers and owns the
// per-device adaptive baselines they read from and feed back into.
// The orchestrator acquires a device's baseline lock only inside its
// own per-device step.
type Detector struct {
	zThreshold float64

	mu        sync.Mutex
	baselines map[string]*deviceBaseline
}

func NewDetector(zThreshold float64) *Detector {
	return &Detector{
		zThreshold: zThreshold,
		baselines:  make(map[string]*deviceBaseline),
	}
}

func (d *Detector) baselineFor(deviceID string) *deviceBaseline {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.baselines[deviceID]
	if !ok {
		b = &deviceBaseline{data: model.NewDeviceBaseline()}
		d.baselines[deviceID] = b
	}
	return b
}

type trigger struct {
	score float64
	desc  string
}

func combine(triggers []trigger, confidence float64) model.AnomalyVerdict {
	if len(triggers) == 0 {
		return model.AnomalyVerdict{Confidence: confidence}
	}

	maxScore := 0.0
	descs := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t.score > maxScore {
			maxScore = t.score
		}
		descs = append(descs, t.desc)
	}

	return model.AnomalyVerdict{
		IsAnomaly:   true,
		Score:       maxScore,
		Description: strings.Join(descs, "; "),
		Confidence:  confidence,
	}
}

func zScore(value, mean, std float64) float64 {
	return math.Abs(value-mean) / std
}

// DetectCurrent runs the per-motor current sub-rules using the
// pre-update baseline; detection always sees the baseline as it was
// before this tick's UpdateBaseline call.
func (d *Detector) DetectCurrent(deviceID string, summary *model.AggregatedSummary) model.AnomalyVerdict {
	b := d.baselineFor(deviceID)
	b.mu.Lock()
	defer b.mu.Unlock()

	var triggers []trigger
	for i, mean := range summary.CurrentMean {
		key := fmt.Sprintf("current_%d", i)
		if base, ok := b.data.Channels[key]; ok && base.Seeded {
			z := zScore(float64(mean), base.Mean, base.Std)
			if z > d.zThreshold {
				triggers = append(triggers, trigger{
					score: minF(1, z/(2*d.zThreshold)),
					desc:  fmt.Sprintf("current_%d z-score anomaly", i),
				})
			}
		}

		if summary.CurrentMax[i] > 12.0 {
			triggers = append(triggers, trigger{score: 0.9, desc: "current spike"})
		}

		if i > 0 && math.Abs(float64(mean-summary.CurrentMean[0])) > 2.0 {
			triggers = append(triggers, trigger{score: 0.6, desc: "current imbalance"})
		}
	}

	return combine(triggers, confidenceCurrent)
}

// DetectVibration runs the vibration sub-rules against the window's
// vibration channel stats.
func (d *Detector) DetectVibration(deviceID string, summary *model.AggregatedSummary) model.AnomalyVerdict {
	b := d.baselineFor(deviceID)
	b.mu.Lock()
	defer b.mu.Unlock()

	mag := summary.Vibration["magnitude"]
	x := summary.Vibration["x"]
	y := summary.Vibration["y"]
	z := summary.Vibration["z"]

	var triggers []trigger

	if float64(mag.Mean) > 5.0 {
		triggers = append(triggers, trigger{score: 0.6, desc: "elevated vibration"})
	}
	if float64(mag.Max) > 10.0 {
		triggers = append(triggers, trigger{score: 0.9, desc: "vibration spike"})
	}

	axes := map[string]float32{"X": absf32(x.Mean), "Y": absf32(y.Mean), "Z": absf32(z.Mean)}
	maxAxis, maxVal := dominantAxis(axes)
	minVal := minOfThree(axes["X"], axes["Y"], axes["Z"])
	if minVal > 0 && float64(maxVal) > 2*float64(minVal) {
		triggers = append(triggers, trigger{score: 0.5, desc: fmt.Sprintf("%s axis dominant vibration imbalance", maxAxis)})
	}

	if base, ok := b.data.Channels["vibration_magnitude"]; ok && base.Seeded {
		zs := zScore(float64(mag.Mean), base.Mean, base.Std)
		if zs > d.zThreshold {
			triggers = append(triggers, trigger{score: minF(1, zs/(2*d.zThreshold)), desc: "vibration z-score anomaly"})
		}
	}

	return combine(triggers, confidenceVibration)
}

// DetectTemperature runs the per-sensor temperature sub-rules.
func (d *Detector) DetectTemperature(deviceID string, summary *model.AggregatedSummary) model.AnomalyVerdict {
	b := d.baselineFor(deviceID)
	b.mu.Lock()
	defer b.mu.Unlock()

	var triggers []trigger
	for i, mean := range summary.TemperatureMean {
		max := summary.TemperatureMax[i]
		switch {
		case max > 70:
			triggers = append(triggers, trigger{score: 0.8, desc: fmt.Sprintf("temp_%d high", i)})
		case max > 60:
			triggers = append(triggers, trigger{score: 0.5, desc: fmt.Sprintf("temp_%d elevated", i)})
		}

		key := fmt.Sprintf("temp_%d", i)
		if base, ok := b.data.Channels[key]; ok {
			if float64(mean)-base.Mean > 10 {
				triggers = append(triggers, trigger{score: 0.7, desc: fmt.Sprintf("temp_%d rapid increase", i)})
			}
		}
	}

	return combine(triggers, confidenceTemperature)
}

// UpdateBaseline applies the exponential moving average update for
// every channel present in summary. Must be called after detection
// for the same tick — detection reads the pre-update baseline.
func (d *Detector) UpdateBaseline(deviceID string, summary *model.AggregatedSummary) {
	b := d.baselineFor(deviceID)
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, mean := range summary.CurrentMean {
		updateChannel(b.data, fmt.Sprintf("current_%d", i), float64(mean), seedStdCurrent)
	}
	for i, mean := range summary.TemperatureMean {
		updateChannel(b.data, fmt.Sprintf("temp_%d", i), float64(mean), seedStdTemperature)
	}
	updateChannel(b.data, "vibration_magnitude", float64(summary.Vibration["magnitude"].Mean), seedStdVibration)
}

func updateChannel(baseline *model.DeviceBaseline, key string, x float64, seedStd float64) {
	ch, ok := baseline.Channels[key]
	if !ok {
		baseline.Channels[key] = &model.ChannelBaseline{Mean: x, Std: seedStd, Seeded: true}
		return
	}

	newMean := 0.9*ch.Mean + emaAlpha*x
	ch.Std = 0.9*ch.Std + emaAlpha*math.Abs(x-newMean)
	ch.Mean = newMean
	ch.Seeded = true
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absf32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func minOfThree(a, b, c float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func dominantAxis(axes map[string]float32) (string, float32) {
	var name string
	var max float32 = -1
	// Deterministic order so ties resolve the same way every call.
	for _, k := range []string{"X", "Y", "Z"} {
		if v := axes[k]; v > max {
			max = v
			name = k
		}
	}
	return name, max
}
