// Package orchestrator implements the Analysis Orchestrator (C7): a
// single ticker-driven worker that fans out per-device analysis,
// publishes results, and feeds the baseline back for the next tick.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fieldmesh/telemetry-core/internal/aggregator"
	"github.com/fieldmesh/telemetry-core/internal/anomaly"
	"github.com/fieldmesh/telemetry-core/internal/broker"
	"github.com/fieldmesh/telemetry-core/internal/bus"
	"github.com/fieldmesh/telemetry-core/internal/cache"
	"github.com/fieldmesh/telemetry-core/internal/codec"
	"github.com/fieldmesh/telemetry-core/internal/metrics"
	"github.com/fieldmesh/telemetry-core/internal/model"
	"github.com/fieldmesh/telemetry-core/internal/recommend"
	"github.com/fieldmesh/telemetry-core/internal/ring"
	"github.com/fieldmesh/telemetry-core/internal/safety"
	"github.com/fieldmesh/telemetry-core/internal/telemetrystore"
	"github.com/fieldmesh/telemetry-core/internal/wear"
)

// Orchestrator owns the single timer source that drives per-device
// analysis. Per-device work may run concurrently; baseline and wear
// state are serialized per device by anomaly.Detector and
// wear.Predictor themselves.
type Orchestrator struct {
	rings     *ring.Store
	agg       *aggregator.Aggregator
	detector  *anomaly.Detector
	predictor *wear.Predictor
	cache     *cache.Cache
	broker    *broker.Broker
	bus       bus.Bus
	codec     *codec.Codec
	metrics   *metrics.Client
	safety    *safety.Registry
	sink      telemetrystore.Sink

	windowSeconds   int
	intervalSeconds int
	now             func() time.Time
}

type Deps struct {
	Rings           *ring.Store
	Aggregator      *aggregator.Aggregator
	Detector        *anomaly.Detector
	Predictor       *wear.Predictor
	Cache           *cache.Cache
	Broker          *broker.Broker
	Bus             bus.Bus
	Codec           *codec.Codec
	Metrics         *metrics.Client
	Safety          *safety.Registry
	Sink            telemetrystore.Sink
	WindowSeconds   int
	IntervalSeconds int
}

func New(d Deps) *Orchestrator {
	return &Orchestrator{
		rings:           d.Rings,
		agg:             d.Aggregator,
		detector:        d.Detector,
		predictor:       d.Predictor,
		cache:           d.Cache,
		broker:          d.Broker,
		bus:             d.Bus,
		codec:           d.Codec,
		metrics:         d.Metrics,
		safety:          d.Safety,
		sink:            d.Sink,
		windowSeconds:   d.WindowSeconds,
		intervalSeconds: d.IntervalSeconds,
		now:             time.Now,
	}
}

func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Run blocks until ctx is cancelled. A cancellation aborts the next
// tick only; a tick already in progress always runs to completion.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(o.intervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down analysis orchestrator")
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				log.Info().Msg("shutting down analysis orchestrator")
				return
			}
			o.Tick()
		}
	}
}

// Tick runs one fan-out pass over every device known to the ring
// store. Exported so tests (and a manual trigger endpoint, if one is
// ever added) can drive a single pass deterministically.
func (o *Orchestrator) Tick() {
	deviceIDs := o.rings.DeviceIDs()

	var wg sync.WaitGroup
	for _, deviceID := range deviceIDs {
		deviceID := deviceID
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.analyzeDevice(deviceID)
		}()
	}
	wg.Wait()

	o.publishSystemStatus(deviceIDs)
}

// publishSystemStatus broadcasts one system-wide delta per tick,
// independent of and in addition to the per-device ai_analysis
// messages fanned out above.
func (o *Orchestrator) publishSystemStatus(deviceIDs []string) {
	status := model.SystemStatus{
		IsSafe:        o.safety != nil && o.safety.SystemSafe(),
		DevicesOnline: deviceIDs,
		AIEnabled:     true,
		LastUpdateMs:  o.now().UnixMilli(),
	}

	o.cache.Set(cache.KindSystemStatus, "default", status)
	o.broker.Publish(broker.Message{Kind: broker.KindSystemStatus, Payload: status})
}

func (o *Orchestrator) analyzeDevice(deviceID string) {
	summary, err := o.agg.Aggregate(deviceID, o.windowSeconds)
	if err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("skipping device for this tick")
		return
	}
	if summary == nil {
		return
	}

	currentV := o.detector.DetectCurrent(deviceID, summary)
	vibrationV := o.detector.DetectVibration(deviceID, summary)
	temperatureV := o.detector.DetectTemperature(deviceID, summary)

	anomalyDetected := currentV.IsAnomaly || vibrationV.IsAnomaly || temperatureV.IsAnomaly
	maxScore := maxOf(currentV.Score, vibrationV.Score, temperatureV.Score)
	minConfidence := minOf(currentV.Confidence, vibrationV.Confidence, temperatureV.Confidence)
	description := combineDescriptions(currentV, vibrationV, temperatureV)

	wearPrediction := o.predictor.Predict(deviceID, summary)
	overallConfidence := (minConfidence + wearPrediction.Confidence) / 2
	recommendations := recommend.Recommend(summary, maxScore, wearPrediction.WearLevel)

	result := model.AnalysisResult{
		TimestampMs:             o.now().UnixMilli(),
		DeviceID:                deviceID,
		AnomalyDetected:         anomalyDetected,
		AnomalyScore:            maxScore,
		AnomalyDescription:      description,
		PredictedWearLevel:      wearPrediction.WearLevel,
		EstimatedRemainingHours: wearPrediction.EstimatedRemainingHours,
		Recommendations:         recommendations,
		Confidence:              overallConfidence,
		AnalysisDetails: model.AnalysisDetails{
			CurrentScore:     currentV.Score,
			VibrationScore:   vibrationV.Score,
			TemperatureScore: temperatureV.Score,
			WearFactors:      wearPrediction.ContributingFactors,
			SampleCount:      summary.SampleCount,
			WindowSeconds:    o.windowSeconds,
		},
	}

	o.cache.Set(cache.KindAIAnalysis, deviceID, result)
	o.broker.Publish(broker.Message{Kind: broker.KindAIAnalysis, DeviceID: deviceID, Payload: result})

	if o.sink != nil {
		if err := o.sink.AppendAnalysisResult(result); err != nil {
			log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to persist analysis result")
		}
	}

	if payload, err := o.codec.EncodeAnalysisResult(result); err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to encode analysis result")
	} else {
		o.bus.Publish(bus.TopicAIAnalysis, payload)
	}

	if o.metrics != nil {
		o.metrics.Gauge("orchestrator.anomaly_score", maxScore, "device:"+deviceID)
		o.metrics.Gauge("orchestrator.wear_level", wearPrediction.WearLevel, "device:"+deviceID)
	}

	// Baseline update runs last: detection for this tick must see the
	// pre-update baseline.
	o.detector.UpdateBaseline(deviceID, summary)
}

func combineDescriptions(verdicts ...model.AnomalyVerdict) string {
	var parts []string
	for _, v := range verdicts {
		if v.IsAnomaly && v.Description != "" {
			parts = append(parts, v.Description)
		}
	}
	if len(parts) == 0 {
		return "No anomalies detected"
	}
	return strings.Join(parts, "; ")
}

func maxOf(xs ...float64) float64 {
	m := xs[0]
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs ...float64) float64 {
	m := xs[0]
	for _, x := range xs {
		if x < m {
			m = x
		}
	}
	return m
}
