// Package codec implements the Boundary Codec (C11): the only
// authoritative encoder/decoder for the wire shapes crossing the bus
// boundary. Malformed ingress is dropped and counted, never allowed
// to crash the ingest loop.
package codec

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/fieldmesh/telemetry-core/internal/metrics"
	"github.com/fieldmesh/telemetry-core/internal/model"
	"github.com/fieldmesh/telemetry-core/internal/safety"
)

type sensorReadingWire struct {
	TimestampMs   int64           `json:"timestamp"`
	DeviceID      string          `json:"device_id"`
	MotorCurrents []float32       `json:"motor_currents"`
	Vibration     model.Vibration `json:"vibration"`
	Temperatures  []float32       `json:"temperatures"`
}

type safetyStatusWire struct {
	TimestampMs      int64  `json:"timestamp"`
	DeviceID         string `json:"device_id"`
	EmergencyStop    bool   `json:"emergency_stop"`
	DoorClosed       bool   `json:"door_closed"`
	OverloadDetected bool   `json:"overload_detected"`
	TemperatureOK    bool   `json:"temperature_ok"`
}

// Codec is the Boundary Codec. It is safe for concurrent use.
type Codec struct {
	metrics      *metrics.Client
	decodeErrors atomic.Int64
}

func New(m *metrics.Client) *Codec {
	return &Codec{metrics: m}
}

func (c *Codec) DecodeSensorReading(payload []byte) (model.SensorReading, error) {
	var w sensorReadingWire
	if err := json.Unmarshal(payload, &w); err != nil {
		c.countDecodeError("sensor_data")
		return model.SensorReading{}, fmt.Errorf("decode sensor reading: %w", err)
	}

	if len(w.MotorCurrents) == 0 || len(w.Temperatures) == 0 {
		c.countDecodeError("sensor_data")
		return model.SensorReading{}, fmt.Errorf("decode sensor reading: empty channel sequence")
	}

	return model.SensorReading{
		DeviceID:      w.DeviceID,
		TimestampMs:   w.TimestampMs,
		MotorCurrents: w.MotorCurrents,
		Vibration:     w.Vibration,
		Temperatures:  w.Temperatures,
	}, nil
}

func (c *Codec) DecodeSafetyStatus(payload []byte) (model.SafetyStatus, error) {
	var w safetyStatusWire
	if err := json.Unmarshal(payload, &w); err != nil {
		c.countDecodeError("safety_status")
		return model.SafetyStatus{}, fmt.Errorf("decode safety status: %w", err)
	}

	return model.SafetyStatus{
		DeviceID:         w.DeviceID,
		TimestampMs:      w.TimestampMs,
		EmergencyStop:    w.EmergencyStop,
		DoorClosed:       w.DoorClosed,
		OverloadDetected: w.OverloadDetected,
		TemperatureOK:    w.TemperatureOK,
	}, nil
}

func (c *Codec) EncodeAnalysisResult(r model.AnalysisResult) ([]byte, error) {
	return json.Marshal(r)
}

func (c *Codec) EncodeCommand(cmd safety.PublishedCommand) ([]byte, error) {
	return json.Marshal(cmd)
}

// DecodeErrors returns the running count of malformed ingress
// payloads dropped since startup.
func (c *Codec) DecodeErrors() int64 {
	return c.decodeErrors.Load()
}

func (c *Codec) countDecodeError(kind string) {
	c.decodeErrors.Add(1)
	if c.metrics != nil {
		c.metrics.Count("codec.decode_errors", 1, "kind:"+kind)
	}
}
