// Package metrics is a thin statsd-backed emitter used by the
// orchestrator and the codec to report operational counters and
// gauges.
package metrics

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

type Client struct {
	dogstatsd *statsd.Client
}

// New creates a client. A failure to dial the agent is logged and
// degrades to a no-op client rather than failing startup — metrics
// are an observability concern, not a correctness dependency.
func New(addr, namespace string, tags []string) *Client {
	c, err := statsd.New(addr)
	if err != nil {
		log.Warn().Err(err).Msg("failed to create DogStatsD client, metrics disabled")
		return &Client{}
	}

	c.Namespace = namespace
	c.Tags = tags

	log.Info().Str("addr", addr).Str("namespace", namespace).Strs("tags", tags).Msg("metrics client initialized")
	return &Client{dogstatsd: c}
}

func (c *Client) Gauge(name string, value float64, tags ...string) {
	if c.dogstatsd == nil {
		return
	}
	if err := c.dogstatsd.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit gauge metric")
	}
}

func (c *Client) Count(name string, value int64, tags ...string) {
	if c.dogstatsd == nil {
		return
	}
	if err := c.dogstatsd.Count(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("failed to emit count metric")
	}
}
