package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldmesh/telemetry-core/internal/model"
)

func baseSummary() *model.AggregatedSummary {
	return &model.AggregatedSummary{
		DeviceID:        "cnc-1",
		CurrentMean:     []float32{5, 5, 5},
		CurrentMax:      []float32{5.2, 5.1, 5.3},
		TemperatureMean: []float32{40, 41},
		TemperatureMax:  []float32{42, 43},
		Vibration: map[string]model.ChannelStats{
			"x":         {Mean: 1, Max: 1.2},
			"y":         {Mean: 1, Max: 1.3},
			"z":         {Mean: 1, Max: 1.1},
			"magnitude": {Mean: 1.8, Max: 2.0},
		},
	}
}

func TestDetectCurrentNoAnomalyOnNominalSummary(t *testing.T) {
	d := NewDetector(3.0)
	v := d.DetectCurrent("cnc-1", baseSummary())
	assert.False(t, v.IsAnomaly)
	assert.Equal(t, 0.0, v.Score)
}

func TestDetectCurrentSpikeTriggersOnHighMax(t *testing.T) {
	d := NewDetector(3.0)
	s := baseSummary()
	s.CurrentMax = []float32{13, 5.1, 5.3}

	v := d.DetectCurrent("cnc-1", s)
	assert.True(t, v.IsAnomaly)
	assert.GreaterOrEqual(t, v.Score, 0.9)
	assert.Contains(t, v.Description, "current spike")
	assert.Equal(t, confidenceCurrent, v.Confidence)
}

func TestDetectCurrentImbalanceAcrossMotors(t *testing.T) {
	d := NewDetector(3.0)
	s := baseSummary()
	s.CurrentMean = []float32{5, 8, 5}
	s.CurrentMax = []float32{5.2, 8.1, 5.3}

	v := d.DetectCurrent("cnc-1", s)
	assert.True(t, v.IsAnomaly)
	assert.Contains(t, v.Description, "current imbalance")
}

func TestDetectVibrationElevatedAndAxisImbalance(t *testing.T) {
	d := NewDetector(3.0)
	s := baseSummary()
	s.Vibration = map[string]model.ChannelStats{
		"x":         {Mean: 1, Max: 1.2},
		"y":         {Mean: 5, Max: 5.2},
		"z":         {Mean: 1, Max: 1.1},
		"magnitude": {Mean: 5.2, Max: 5.2},
	}

	v := d.DetectVibration("cnc-1", s)
	assert.True(t, v.IsAnomaly)
	assert.GreaterOrEqual(t, v.Score, 0.5)
	assert.Contains(t, v.Description, "Y axis")
}

func TestDetectVibrationSpikeOnHighMax(t *testing.T) {
	d := NewDetector(3.0)
	s := baseSummary()
	s.Vibration["magnitude"] = model.ChannelStats{Mean: 3, Max: 11}

	v := d.DetectVibration("cnc-1", s)
	assert.True(t, v.IsAnomaly)
	assert.Contains(t, v.Description, "vibration spike")
}

func TestDetectTemperatureHighAndElevatedTiers(t *testing.T) {
	d := NewDetector(3.0)
	s := baseSummary()
	s.TemperatureMax = []float32{75, 65}

	v := d.DetectTemperature("cnc-1", s)
	assert.True(t, v.IsAnomaly)
	assert.Contains(t, v.Description, "temp_0 high")
	assert.Contains(t, v.Description, "temp_1 elevated")
	assert.Equal(t, 0.8, v.Score)
}

func TestUpdateBaselineSeedsOnFirstObservation(t *testing.T) {
	d := NewDetector(3.0)
	s := baseSummary()
	d.UpdateBaseline("cnc-1", s)

	b := d.baselineFor("cnc-1")
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.data.Channels["current_0"]
	assert.True(t, ok)
	assert.True(t, ch.Seeded)
	assert.Equal(t, float64(5), ch.Mean)
	assert.Equal(t, seedStdCurrent, ch.Std)
}

func TestUpdateBaselineAppliesEMAOnSubsequentObservations(t *testing.T) {
	d := NewDetector(3.0)
	s := baseSummary()
	d.UpdateBaseline("cnc-1", s) // seed: mean=5, std=0.5

	s2 := baseSummary()
	s2.CurrentMean = []float32{15, 5, 5}
	d.UpdateBaseline("cnc-1", s2)

	b := d.baselineFor("cnc-1")
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := b.data.Channels["current_0"]
	wantMean := 0.9*5 + 0.1*15
	assert.InDelta(t, wantMean, ch.Mean, 1e-9)
	wantStd := 0.9*0.5 + 0.1*absFloat(15-wantMean)
	assert.InDelta(t, wantStd, ch.Std, 1e-9)
}

func TestDetectCurrentZScoreAnomalyAfterBaselineEstablished(t *testing.T) {
	d := NewDetector(3.0)
	s := baseSummary()
	d.UpdateBaseline("cnc-1", s) // seeds current_0 at mean=5, std=0.5

	spiked := baseSummary()
	spiked.CurrentMean = []float32{20, 5, 5}
	spiked.CurrentMax = []float32{20, 5.1, 5.3}

	v := d.DetectCurrent("cnc-1", spiked)
	assert.True(t, v.IsAnomaly)
	assert.Contains(t, v.Description, "current_0 z-score anomaly")
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
