// Package recommend implements the Recommender (C6): a pure,
// stateless rule function with no hidden state.
package recommend

import "github.com/fieldmesh/telemetry-core/internal/model"

// Recommend maps a summary plus the tick's anomaly score and wear
// level to an ordered, deduplicated list of advisory strings. Same
// inputs always produce identical output.
func Recommend(summary *model.AggregatedSummary, anomalyScore, wearLevel float64) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	if len(summary.CurrentMean) > 0 {
		avgCurrent := meanOf(summary.CurrentMean)
		maxCurrent := maxOf(summary.CurrentMax)

		if avgCurrent > 6.0 {
			add("Consider reducing load or operating speed to decrease current consumption")
		}

		if len(summary.CurrentMean) > 1 {
			if spreadOf(summary.CurrentMean) > 1.5 {
				add("Current imbalance detected - check for mechanical binding or motor issues")
			}
		}

		if avgCurrent > 3.0 && avgCurrent < 5.0 {
			add("System operating in optimal current range - maintain current settings")
		}

		if maxCurrent > avgCurrent*1.5 {
			add("Frequent current spikes detected - consider smoother acceleration profiles")
		}
	}

	vibMagnitude := float64(summary.Vibration["magnitude"].Mean)
	switch {
	case vibMagnitude > 5.0:
		add("High vibration levels - schedule maintenance check for bearings and alignment")
	case vibMagnitude > 3.0:
		add("Elevated vibration - consider re-balancing rotating components")
	}

	x := absF(float64(summary.Vibration["x"].Mean))
	y := absF(float64(summary.Vibration["y"].Mean))
	z := absF(float64(summary.Vibration["z"].Mean))
	maxAxis, maxVal := dominantAxis(x, y, z)
	minVal := minOf3(x, y, z)
	if minVal > 0 && maxVal > 2*minVal {
		add("Dominant " + maxAxis + "-axis vibration suggests alignment issue in that direction")
	}

	if len(summary.TemperatureMax) > 0 {
		maxTemp := maxOf(summary.TemperatureMax)
		switch {
		case maxTemp > 60.0:
			add("High operating temperature - improve cooling or reduce duty cycle")
		case maxTemp > 50.0:
			add("Monitor temperature trends - ensure adequate ventilation")
		}

		if len(summary.TemperatureMean) > 0 {
			avgTemp := meanOf(summary.TemperatureMean)
			if maxTemp-avgTemp > 15.0 {
				add("Large temperature variations - consider thermal management improvements")
			}
		}
	}

	switch {
	case wearLevel > 0.8:
		add("URGENT: High wear level detected - schedule preventive maintenance immediately")
	case wearLevel > 0.6:
		add("Moderate wear level - plan maintenance within next service window")
	case wearLevel > 0.4:
		add("Wear accumulation progressing normally - continue monitoring")
	}

	switch {
	case anomalyScore > 0.7:
		add("Significant anomaly detected - investigate system conditions promptly")
	case anomalyScore > 0.5:
		add("Minor anomaly detected - review recent operational changes")
	}

	if summary.SampleCount > 0 && anomalyScore < 0.3 && wearLevel < 0.4 && vibMagnitude < 3.0 {
		add("System operating within normal parameters - no immediate action required")
	}

	if len(summary.CurrentMean) > 0 && len(summary.TemperatureMean) > 0 {
		avgCurrent := meanOf(summary.CurrentMean)
		avgTemp := meanOf(summary.TemperatureMean)
		if avgCurrent > 5.0 && avgTemp > 45.0 {
			add("Consider optimizing operating parameters for better energy efficiency")
		}
	}

	if len(out) == 0 {
		add("Insufficient data for specific recommendations - continue normal operation")
	}

	return out
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

func spreadOf(xs []float32) float64 {
	min, max := xs[0], xs[0]
	for _, x := range xs {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return float64(max - min)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minOf3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func dominantAxis(x, y, z float64) (string, float64) {
	name, max := "X", x
	if y > max {
		name, max = "Y", y
	}
	if z > max {
		name, max = "Z", z
	}
	return name, max
}
