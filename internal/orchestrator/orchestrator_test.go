package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmesh/telemetry-core/internal/aggregator"
	"github.com/fieldmesh/telemetry-core/internal/anomaly"
	"github.com/fieldmesh/telemetry-core/internal/broker"
	"github.com/fieldmesh/telemetry-core/internal/bus"
	"github.com/fieldmesh/telemetry-core/internal/cache"
	"github.com/fieldmesh/telemetry-core/internal/codec"
	"github.com/fieldmesh/telemetry-core/internal/model"
	"github.com/fieldmesh/telemetry-core/internal/ring"
	"github.com/fieldmesh/telemetry-core/internal/safety"
	"github.com/fieldmesh/telemetry-core/internal/wear"
)

func newTestOrchestrator(fixedNow time.Time) (*Orchestrator, *ring.Store, *aggregator.Aggregator, *bus.InProcessBus, *cache.Cache) {
	rings := ring.NewStore(1000, 10)
	reg := safety.NewRegistry()
	agg := aggregator.New(rings, reg, 10).WithClock(func() time.Time { return fixedNow })
	detector := anomaly.NewDetector(3.0)
	predictor := wear.NewPredictor(10000)
	c := cache.New(cache.TTLConfig{DeviceListSeconds: 5, DeviceDataSeconds: 1, AIAnalysisSeconds: 10, SystemStatusSeconds: 2})
	b := broker.NewBroker()
	bs := bus.NewInProcessBus()
	cd := codec.New(nil)

	o := New(Deps{
		Rings: rings, Aggregator: agg, Detector: detector, Predictor: predictor,
		Cache: c, Broker: b, Bus: bs, Codec: cd, Safety: reg,
		WindowSeconds: 10, IntervalSeconds: 60,
	}).WithClock(func() time.Time { return fixedNow })

	return o, rings, agg, bs, c
}

func TestTickProducesResultAndCachesIt(t *testing.T) {
	now := time.Unix(1000, 0)
	o, _, agg, _, c := newTestOrchestrator(now)

	agg.AddReading(model.SensorReading{
		DeviceID:      "cnc-1",
		TimestampMs:   999_500,
		MotorCurrents: []float32{5, 5.1, 4.9},
		Vibration:     model.Vibration{X: 1, Y: 1, Z: 1, Magnitude: 1.8},
		Temperatures:  []float32{45, 46, 44.5},
	})

	o.Tick()

	value, ok := c.Get(cache.KindAIAnalysis, "cnc-1")
	require.True(t, ok)
	result := value.(model.AnalysisResult)
	assert.Equal(t, "cnc-1", result.DeviceID)
	assert.False(t, result.AnomalyDetected)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.GreaterOrEqual(t, len(result.Recommendations), 1)
}

func TestTickPublishesOnBusAndBroker(t *testing.T) {
	now := time.Unix(1000, 0)
	o, _, agg, bs, _ := newTestOrchestrator(now)

	ch, unsub := bs.Subscribe(bus.TopicAIAnalysis)
	defer unsub()
	brokerCh, unsubBroker := o.broker.Subscribe("")
	defer unsubBroker()

	agg.AddReading(model.SensorReading{
		DeviceID:      "cnc-1",
		TimestampMs:   999_500,
		MotorCurrents: []float32{5},
		Temperatures:  []float32{45},
	})

	o.Tick()

	select {
	case payload := <-ch:
		assert.Contains(t, string(payload), `"device_id":"cnc-1"`)
	case <-time.After(time.Second):
		t.Fatal("expected a published analysis result")
	}

	select {
	case msg := <-brokerCh:
		assert.Equal(t, broker.KindAIAnalysis, msg.Kind)
		assert.Equal(t, "cnc-1", msg.DeviceID)
	case <-time.After(time.Second):
		t.Fatal("expected an ai_analysis broker message")
	}
}

func TestTickSkipsDeviceWithNoReadingsInWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	o, rings, _, _, c := newTestOrchestrator(now)

	rings.Append(model.SensorReading{DeviceID: "cnc-1", TimestampMs: 1, MotorCurrents: []float32{1}, Temperatures: []float32{1}})

	o.Tick()

	_, ok := c.Get(cache.KindAIAnalysis, "cnc-1")
	assert.False(t, ok)
}

func TestTickPublishesSystemStatus(t *testing.T) {
	now := time.Unix(1000, 0)
	o, _, agg, _, c := newTestOrchestrator(now)

	ch, unsub := o.broker.Subscribe("")
	defer unsub()

	agg.AddReading(model.SensorReading{
		DeviceID:      "cnc-1",
		TimestampMs:   999_500,
		MotorCurrents: []float32{5},
		Temperatures:  []float32{45},
	})

	o.Tick()

	value, ok := c.Get(cache.KindSystemStatus, "default")
	require.True(t, ok)
	status := value.(model.SystemStatus)
	assert.Equal(t, []string{"cnc-1"}, status.DevicesOnline)
	assert.False(t, status.IsSafe)

	found := false
	for i := 0; i < 2; i++ {
		select {
		case msg := <-ch:
			if msg.Kind == broker.KindSystemStatus {
				found = true
			}
		case <-time.After(time.Second):
		}
	}
	assert.True(t, found, "expected a system_status broker message")
}

type fakeSink struct {
	readings []model.SensorReading
	results  []model.AnalysisResult
}

func (f *fakeSink) AppendReading(r model.SensorReading) error {
	f.readings = append(f.readings, r)
	return nil
}

func (f *fakeSink) AppendAnalysisResult(r model.AnalysisResult) error {
	f.results = append(f.results, r)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func TestTickPersistsAnalysisResultWhenSinkPresent(t *testing.T) {
	now := time.Unix(1000, 0)
	rings := ring.NewStore(1000, 10)
	reg := safety.NewRegistry()
	agg := aggregator.New(rings, reg, 10).WithClock(func() time.Time { return now })
	detector := anomaly.NewDetector(3.0)
	predictor := wear.NewPredictor(10000)
	c := cache.New(cache.TTLConfig{DeviceListSeconds: 5, DeviceDataSeconds: 1, AIAnalysisSeconds: 10, SystemStatusSeconds: 2})
	b := broker.NewBroker()
	bs := bus.NewInProcessBus()
	cd := codec.New(nil)
	sink := &fakeSink{}

	o := New(Deps{
		Rings: rings, Aggregator: agg, Detector: detector, Predictor: predictor,
		Cache: c, Broker: b, Bus: bs, Codec: cd, Safety: reg, Sink: sink,
		WindowSeconds: 10, IntervalSeconds: 60,
	}).WithClock(func() time.Time { return now })

	agg.AddReading(model.SensorReading{
		DeviceID:      "cnc-1",
		TimestampMs:   999_500,
		MotorCurrents: []float32{5},
		Temperatures:  []float32{45},
	})

	o.Tick()

	require.Len(t, sink.results, 1)
	assert.Equal(t, "cnc-1", sink.results[0].DeviceID)
}

func TestCurrentSpikeProducesHighAnomalyScore(t *testing.T) {
	now := time.Unix(1000, 0)
	o, _, agg, _, c := newTestOrchestrator(now)

	agg.AddReading(model.SensorReading{
		DeviceID:      "cnc-1",
		TimestampMs:   999_500,
		MotorCurrents: []float32{13, 13, 13},
		Temperatures:  []float32{45, 46, 44},
	})

	o.Tick()

	value, ok := c.Get(cache.KindAIAnalysis, "cnc-1")
	require.True(t, ok)
	result := value.(model.AnalysisResult)
	assert.True(t, result.AnomalyDetected)
	assert.GreaterOrEqual(t, result.AnomalyScore, 0.9)
	assert.Contains(t, result.AnomalyDescription, "spike")
}
