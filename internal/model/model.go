// Package model defines the data types that flow through the
// telemetry-to-analytics pipeline: ingress events, derived summaries,
// and the per-device analytic state the pipeline maintains.
package model

// SensorReading is an immutable event ingested from a field device.
// Motor current and temperature sequences are ordered and, once a
// device's first reading is accepted, their lengths are stable for
// the life of the process.
type SensorReading struct {
	DeviceID      string    `json:"device_id"`
	TimestampMs   int64     `json:"timestamp"`
	MotorCurrents []float32 `json:"motor_currents"`
	Vibration     Vibration `json:"vibration"`
	Temperatures  []float32 `json:"temperatures"`
}

type Vibration struct {
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	Z         float32 `json:"z"`
	Magnitude float32 `json:"magnitude"`
}

// SafetyStatus is an immutable event describing a device's safety
// interlocks at a point in time.
type SafetyStatus struct {
	DeviceID          string `json:"device_id"`
	TimestampMs       int64  `json:"timestamp"`
	EmergencyStop     bool   `json:"emergency_stop"`
	DoorClosed        bool   `json:"door_closed"`
	OverloadDetected  bool   `json:"overload_detected"`
	TemperatureOK     bool   `json:"temperature_ok"`
}

// IsSafe is the per-device safety predicate.
func (s SafetyStatus) IsSafe() bool {
	return !s.EmergencyStop && s.DoorClosed && !s.OverloadDetected && s.TemperatureOK
}

// ChannelStats is a mean/population-standard-deviation/max triple for
// one scalar channel over a window of readings.
type ChannelStats struct {
	Mean float32
	Std  float32
	Max  float32
}

// AggregatedSummary is the pure, vectorized statistical summary of a
// device's readings over a sliding window.
type AggregatedSummary struct {
	DeviceID         string
	WindowStartSec   int64
	WindowEndSec     int64
	SampleCount      int
	CurrentMean      []float32
	CurrentStd       []float32
	CurrentMax       []float32
	Vibration        map[string]ChannelStats // keys: x, y, z, magnitude
	TemperatureMean  []float32
	TemperatureStd   []float32
	TemperatureMax   []float32
}

// ChannelBaseline is the adaptive mean/std pair tracked per named
// channel (current_i, temp_i, vibration_magnitude).
type ChannelBaseline struct {
	Mean   float64
	Std    float64
	Seeded bool // set when the channel is seeded by its first baseline update
}

// DeviceBaseline is the per-device set of adaptive channel baselines
// maintained by the Anomaly Detector. Cleared only by process restart.
type DeviceBaseline struct {
	Channels map[string]*ChannelBaseline
}

func NewDeviceBaseline() *DeviceBaseline {
	return &DeviceBaseline{Channels: make(map[string]*ChannelBaseline)}
}

// AnomalyVerdict is the pure per-channel-family result of one
// anomaly sub-analyzer.
type AnomalyVerdict struct {
	IsAnomaly   bool
	Score       float64 // in [0,1]
	Description string
	Confidence  float64 // in [0,1], fixed per channel family
}

// WearState is the per-device cumulative wear accumulator. Only
// increases between Reset calls.
type WearState struct {
	AccumulatedHours float64
}

const NominalLifetimeHours = 10000.0

func (w WearState) WearLevel() float64 {
	level := w.AccumulatedHours / NominalLifetimeHours
	if level > 1 {
		return 1
	}
	return level
}

// WearPrediction is the value returned by one Wear Predictor call.
type WearPrediction struct {
	WearLevel               float64
	EstimatedRemainingHours int64
	ContributingFactors     []string
	Confidence              float64
}

// AnalysisDetails is the per-channel breakdown carried alongside an
// AnalysisResult for diagnostic consumers.
type AnalysisDetails struct {
	CurrentScore     float64 `json:"current_score"`
	VibrationScore   float64 `json:"vibration_score"`
	TemperatureScore float64 `json:"temperature_score"`
	WearFactors      []string `json:"wear_factors"`
	SampleCount      int      `json:"sample_count"`
	WindowSeconds    int      `json:"window_seconds"`
}

// SystemStatus is the broker/cache value describing the pipeline's
// overall health at a point in time, broadcast once per orchestrator
// tick rather than per device.
type SystemStatus struct {
	IsSafe        bool     `json:"is_safe"`
	DevicesOnline []string `json:"devices_online"`
	AIEnabled     bool     `json:"ai_enabled"`
	LastUpdateMs  int64    `json:"last_update"`
}

// AnalysisResult is the value published per device per orchestrator
// tick.
type AnalysisResult struct {
	TimestampMs             int64           `json:"timestamp"`
	DeviceID                string          `json:"device_id"`
	AnomalyDetected          bool            `json:"anomaly_detected"`
	AnomalyScore             float64         `json:"anomaly_score"`
	AnomalyDescription       string          `json:"anomaly_description"`
	PredictedWearLevel       float64         `json:"predicted_wear_level"`
	EstimatedRemainingHours  int64           `json:"estimated_remaining_hours"`
	Recommendations          []string        `json:"recommendations"`
	Confidence               float64         `json:"confidence"`
	AnalysisDetails          AnalysisDetails `json:"analysis_details"`
}
