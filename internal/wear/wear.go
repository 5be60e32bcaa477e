// Package wear implements the Wear Predictor (C5): a cumulative
// stress-factor model that accumulates equivalent operating hours per
// device and estimates remaining useful life against a nominal
// lifetime.
package wear

import (
	"fmt"
	"math"
	"sync"

	"github.com/fieldmesh/telemetry-core/internal/model"
)

type deviceWear struct {
	mu   sync.Mutex
	data *model.WearState
}

// Predictor owns the per-device accumulated-hours state. A device's
// wear only ever increases between Reset calls — there is no time
// decay.
type Predictor struct {
	nominalLifetimeHours float64

	mu     sync.Mutex
	states map[string]*deviceWear
}

func NewPredictor(nominalLifetimeHours float64) *Predictor {
	return &Predictor{
		nominalLifetimeHours: nominalLifetimeHours,
		states:               make(map[string]*deviceWear),
	}
}

func (p *Predictor) stateFor(deviceID string) *deviceWear {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.states[deviceID]
	if !ok {
		s = &deviceWear{data: &model.WearState{}}
		p.states[deviceID] = s
	}
	return s
}

// Predict accumulates this window's equivalent wear hours onto the
// device's running total and returns the resulting prediction. The
// window's duration (WindowEndSec - WindowStartSec) is the real time
// this call accounts for; wearFactor scales it for load/vibration/
// temperature stress.
func (p *Predictor) Predict(deviceID string, summary *model.AggregatedSummary) model.WearPrediction {
	wearFactor := 1.0
	var factors []string

	if len(summary.CurrentMean) > 0 {
		avgCurrent := meanOf(summary.CurrentMean)
		maxCurrent := maxOf(summary.CurrentMax)

		if avgCurrent > 5.0 {
			loadFactor := math.Pow(avgCurrent/5.0, 1.5)
			wearFactor *= loadFactor
			factors = append(factors, fmt.Sprintf("High load operation (%.1fA)", avgCurrent))
		}
		if maxCurrent > 8.0 {
			spikeFactor := 1.1 + (maxCurrent-8.0)*0.05
			wearFactor *= spikeFactor
			factors = append(factors, fmt.Sprintf("Current spikes (%.1fA)", maxCurrent))
		}
	}

	vibMag := summary.Vibration["magnitude"]
	if float64(vibMag.Mean) > 3.0 {
		vibFactor := 1.0 + (float64(vibMag.Mean)-3.0)*0.15
		wearFactor *= vibFactor
		factors = append(factors, fmt.Sprintf("Elevated vibration (%.2f m/s^2)", vibMag.Mean))
	}
	if float64(vibMag.Std) > 1.0 {
		wearFactor *= 1.15
		factors = append(factors, "Vibration variability (possible misalignment)")
	}

	if len(summary.TemperatureMax) > 0 {
		maxTemp := maxOf(summary.TemperatureMax)

		if maxTemp > 50.0 {
			tempFactor := 1.0 + (maxTemp-50.0)*0.02
			wearFactor *= tempFactor
			factors = append(factors, fmt.Sprintf("Elevated temperature (%.1fC)", maxTemp))
		}

		if len(summary.TemperatureMean) > 0 {
			avgTemp := meanOf(summary.TemperatureMean)
			if maxTemp-avgTemp > 15.0 {
				wearFactor *= 1.1
				factors = append(factors, "Temperature cycling")
			}
		}
	}

	s := p.stateFor(deviceID)
	s.mu.Lock()
	defer s.mu.Unlock()

	windowHours := float64(summary.WindowEndSec-summary.WindowStartSec) / 3600.0
	s.data.AccumulatedHours += windowHours * wearFactor

	wearLevel := math.Min(1.0, s.data.AccumulatedHours/p.nominalLifetimeHours)
	remainingNominal := math.Max(0, p.nominalLifetimeHours-s.data.AccumulatedHours)
	estimatedRemainingHours := int64(remainingNominal / wearFactor)

	switch {
	case wearLevel > 0.7:
		factors = append(factors, fmt.Sprintf("High accumulated wear (%.0f%%)", wearLevel*100))
	case wearLevel > 0.5:
		factors = append(factors, fmt.Sprintf("Moderate accumulated wear (%.0f%%)", wearLevel*100))
	}

	if len(factors) == 0 {
		factors = append(factors, "Normal operating conditions")
	}

	return model.WearPrediction{
		WearLevel:               wearLevel,
		EstimatedRemainingHours: estimatedRemainingHours,
		ContributingFactors:     factors,
		Confidence:              0.75 - wearLevel*0.2,
	}
}

// Reset zeroes a device's accumulated wear, e.g. after maintenance.
func (p *Predictor) Reset(deviceID string) {
	s := p.stateFor(deviceID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AccumulatedHours = 0
}

func meanOf(xs []float32) float64 {
	var sum float32
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs))
}

func maxOf(xs []float32) float64 {
	m := xs[0]
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return float64(m)
}
