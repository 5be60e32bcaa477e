package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldmesh/telemetry-core/internal/model"
)

func nominal() *model.AggregatedSummary {
	return &model.AggregatedSummary{
		SampleCount:     10,
		CurrentMean:     []float32{5, 5.1, 4.9},
		CurrentMax:      []float32{5.2, 5.1, 5.3},
		TemperatureMean: []float32{45, 46},
		TemperatureMax:  []float32{46, 47},
		Vibration: map[string]model.ChannelStats{
			"x":         {Mean: 1},
			"y":         {Mean: 1},
			"z":         {Mean: 1},
			"magnitude": {Mean: 1.8},
		},
	}
}

func TestRecommendNominalIncludesNormalParametersString(t *testing.T) {
	out := Recommend(nominal(), 0.1, 0.05)
	assert.Contains(t, out, "System operating within normal parameters - no immediate action required")
}

func TestRecommendHighCurrentTriggersReduceLoad(t *testing.T) {
	s := nominal()
	s.CurrentMean = []float32{7, 7, 7}
	out := Recommend(s, 0.1, 0.05)
	assert.Contains(t, out, "Consider reducing load or operating speed to decrease current consumption")
}

func TestRecommendIsDeterministicAndOrderPreserving(t *testing.T) {
	s := nominal()
	first := Recommend(s, 0.1, 0.05)
	second := Recommend(s, 0.1, 0.05)
	assert.Equal(t, first, second)
}

func TestRecommendHighWearIsUrgent(t *testing.T) {
	out := Recommend(nominal(), 0.1, 0.9)
	assert.Contains(t, out, "URGENT: High wear level detected - schedule preventive maintenance immediately")
}

func TestRecommendSignificantAnomaly(t *testing.T) {
	out := Recommend(nominal(), 0.8, 0.05)
	assert.Contains(t, out, "Significant anomaly detected - investigate system conditions promptly")
}

func TestRecommendNoRuleFiresFallback(t *testing.T) {
	s := &model.AggregatedSummary{SampleCount: 0}
	out := Recommend(s, 0, 0)
	assert.Equal(t, []string{"Insufficient data for specific recommendations - continue normal operation"}, out)
}

func TestRecommendNoDuplicateStrings(t *testing.T) {
	out := Recommend(nominal(), 0.1, 0.05)
	seen := make(map[string]bool)
	for _, r := range out {
		assert.False(t, seen[r], "duplicate recommendation: %s", r)
		seen[r] = true
	}
}
