// Package ingest wires the two ingress bus topics (sensor data, safety
// status) into the aggregator and the telemetry sink. It is the glue
// between the named, out-of-scope field bus and the in-process
// pipeline state.
package ingest

import (
	"github.com/rs/zerolog/log"

	"github.com/fieldmesh/telemetry-core/internal/aggregator"
	"github.com/fieldmesh/telemetry-core/internal/broker"
	"github.com/fieldmesh/telemetry-core/internal/bus"
	"github.com/fieldmesh/telemetry-core/internal/codec"
	"github.com/fieldmesh/telemetry-core/internal/telemetrystore"
)

type Ingestor struct {
	bus    bus.Bus
	codec  *codec.Codec
	agg    *aggregator.Aggregator
	sink   telemetrystore.Sink
	broker *broker.Broker
}

func New(b bus.Bus, c *codec.Codec, agg *aggregator.Aggregator, sink telemetrystore.Sink, msgBroker *broker.Broker) *Ingestor {
	return &Ingestor{bus: b, codec: c, agg: agg, sink: sink, broker: msgBroker}
}

// Start subscribes to both ingress topics and runs their consume loops
// in new goroutines, returning immediately.
func (i *Ingestor) Start() {
	sensorCh, _ := i.bus.Subscribe(bus.TopicSensorData)
	safetyCh, _ := i.bus.Subscribe(bus.TopicSafetyStatus)
	go i.consumeSensorData(sensorCh)
	go i.consumeSafetyStatus(safetyCh)
}

func (i *Ingestor) consumeSensorData(ch <-chan []byte) {
	for payload := range ch {
		reading, err := i.codec.DecodeSensorReading(payload)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed sensor reading")
			continue
		}

		i.agg.AddReading(reading)
		if err := i.sink.AppendReading(reading); err != nil {
			log.Warn().Err(err).Str("device_id", reading.DeviceID).Msg("failed to persist reading")
		}
		i.broker.Publish(broker.Message{Kind: broker.KindSensorData, DeviceID: reading.DeviceID, Payload: reading})
	}
}

func (i *Ingestor) consumeSafetyStatus(ch <-chan []byte) {
	for payload := range ch {
		status, err := i.codec.DecodeSafetyStatus(payload)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed safety status")
			continue
		}

		i.agg.UpdateSafety(status)
		i.broker.Publish(broker.Message{Kind: broker.KindSafetyStatus, DeviceID: status.DeviceID, Payload: status})
	}
}
