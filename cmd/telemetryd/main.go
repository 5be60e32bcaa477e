package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/fieldmesh/telemetry-core/internal/aggregator"
	"github.com/fieldmesh/telemetry-core/internal/anomaly"
	"github.com/fieldmesh/telemetry-core/internal/api"
	"github.com/fieldmesh/telemetry-core/internal/broker"
	"github.com/fieldmesh/telemetry-core/internal/bus"
	"github.com/fieldmesh/telemetry-core/internal/cache"
	"github.com/fieldmesh/telemetry-core/internal/codec"
	"github.com/fieldmesh/telemetry-core/internal/config"
	"github.com/fieldmesh/telemetry-core/internal/ingest"
	"github.com/fieldmesh/telemetry-core/internal/logging"
	"github.com/fieldmesh/telemetry-core/internal/metrics"
	"github.com/fieldmesh/telemetry-core/internal/orchestrator"
	"github.com/fieldmesh/telemetry-core/internal/ring"
	"github.com/fieldmesh/telemetry-core/internal/safety"
	"github.com/fieldmesh/telemetry-core/internal/telemetrystore"
	"github.com/fieldmesh/telemetry-core/internal/wear"
	"github.com/fieldmesh/telemetry-core/system/shutdown"
)

// busCommandPublisher adapts the in-process bus to safety.Publisher,
// encoding accepted commands through the boundary codec before they
// leave the process.
type busCommandPublisher struct {
	bus   bus.Bus
	codec *codec.Codec
}

func (p *busCommandPublisher) PublishCommand(cmd safety.PublishedCommand) {
	payload, err := p.codec.EncodeCommand(cmd)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode outgoing command")
		return
	}
	p.bus.Publish(bus.TopicControlCommands, payload)
}

func main() {
	cfg := config.Load(os.Args[1:])
	logging.Init(cfg.LogLevel, nil)

	log.Info().
		Int("window_size_seconds", cfg.WindowSizeSeconds).
		Int("analysis_interval_seconds", cfg.AnalysisIntervalSeconds).
		Msg("starting telemetry core")

	sink, err := telemetrystore.OpenSQLiteSink(cfg.TelemetryDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open telemetry store")
	}
	defer sink.Close()

	metricsClient := metrics.New(cfg.DDAgentAddr, cfg.DDNamespace, cfg.DDTags)

	rings := ring.NewStore(cfg.MaxPoints, cfg.WindowSizeSeconds)
	registry := safety.NewRegistry()
	agg := aggregator.New(rings, registry, cfg.WindowSizeSeconds)
	detector := anomaly.NewDetector(cfg.ZThreshold)
	predictor := wear.NewPredictor(cfg.NominalLifetimeHours)
	dataCache := cache.New(cache.TTLConfig(cfg.CacheTTL))
	msgBroker := broker.NewBroker()
	fieldBus := bus.NewInProcessBus()
	wireCodec := codec.New(metricsClient)

	publisher := &busCommandPublisher{bus: fieldBus, codec: wireCodec}
	gate := safety.NewGate(registry, publisher)

	in := ingest.New(fieldBus, wireCodec, agg, sink, msgBroker)
	in.Start()

	orch := orchestrator.New(orchestrator.Deps{
		Rings:           rings,
		Aggregator:      agg,
		Detector:        detector,
		Predictor:       predictor,
		Cache:           dataCache,
		Broker:          msgBroker,
		Bus:             fieldBus,
		Codec:           wireCodec,
		Metrics:         metricsClient,
		Safety:          registry,
		Sink:            sink,
		WindowSeconds:   cfg.WindowSizeSeconds,
		IntervalSeconds: cfg.AnalysisIntervalSeconds,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchDone := make(chan struct{})
	go func() {
		orch.Run(ctx)
		close(orchDone)
	}()

	server := api.NewServer(rings, dataCache, gate, predictor)
	go func() {
		if err := server.Start(cfg.APIPort); err != nil {
			shutdown.ShutdownWithError(cancel, err, "REST API server stopped unexpectedly")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	// Let a tick already in progress finish before the process exits.
	cancel()
	<-orchDone
	shutdown.Shutdown(cancel)
}
