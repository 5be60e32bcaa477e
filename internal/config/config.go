// Package config loads and validates the pipeline's runtime
// configuration: flags for process-level knobs, a JSON file for
// domain knobs.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/fieldmesh/telemetry-core/internal/logging"
)

type CacheTTLConfig struct {
	DeviceListSeconds int `json:"device_list_seconds"`
	DeviceDataSeconds int `json:"device_data_seconds"`
	AIAnalysisSeconds int `json:"ai_analysis_seconds"`
	SystemStatusSeconds int `json:"system_status_seconds"`
}

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level

	WindowSizeSeconds        int            `json:"window_size_seconds"`
	MaxPoints                int            `json:"max_points"`
	AnalysisIntervalSeconds  int            `json:"analysis_interval_seconds"`
	ZThreshold               float64        `json:"z_threshold"`
	NominalLifetimeHours     float64        `json:"nominal_lifetime_hours"`
	CacheTTL                 CacheTTLConfig `json:"cache_ttl"`

	DDAgentAddr string   `json:"dd_agent_addr"`
	DDNamespace string   `json:"dd_namespace"`
	DDTags      []string `json:"dd_tags"`

	TelemetryDBPath string `json:"telemetry_db_path"`

	APIPort int `json:"api_port"`
}

// Default returns the baseline configuration used when no config file
// is supplied (e.g. in tests).
func Default() Config {
	return Config{
		LogLevel:                zerolog.InfoLevel,
		WindowSizeSeconds:       10,
		MaxPoints:               1000,
		AnalysisIntervalSeconds: 60,
		ZThreshold:              3.0,
		NominalLifetimeHours:    10000,
		CacheTTL: CacheTTLConfig{
			DeviceListSeconds:   5,
			DeviceDataSeconds:   1,
			AIAnalysisSeconds:   10,
			SystemStatusSeconds: 2,
		},
		DDNamespace: "telemetry_core.",
		APIPort:     8080,
	}
}

// Load parses process flags, then overlays a JSON config file (if one
// was supplied) onto the defaults. Invalid configuration is fatal at
// startup.
func Load(args []string) Config {
	fs := flag.NewFlagSet("telemetry-core", flag.ExitOnError)
	var configFile, logLevel string
	fs.StringVar(&configFile, "config-file", "", "path to JSON config file (optional)")
	fs.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(args)

	cfg := Default()
	cfg.ConfigFile = configFile
	cfg.LogLevel = logging.ParseLevel(logLevel)

	if configFile != "" {
		file, err := os.Open(configFile)
		if err != nil {
			panic(fmt.Errorf("failed to open config file: %w", err))
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			panic(fmt.Errorf("failed to parse config file: %w", err))
		}
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}

	return cfg
}

func (cfg *Config) validate() error {
	var problems []string

	if cfg.WindowSizeSeconds <= 0 {
		problems = append(problems, "window_size_seconds must be > 0")
	}
	if cfg.MaxPoints <= 0 {
		problems = append(problems, "max_points must be > 0")
	}
	if cfg.AnalysisIntervalSeconds <= 0 {
		problems = append(problems, "analysis_interval_seconds must be > 0")
	}
	if cfg.ZThreshold <= 0 {
		problems = append(problems, "z_threshold must be > 0")
	}
	if cfg.NominalLifetimeHours <= 0 {
		problems = append(problems, "nominal_lifetime_hours must be > 0")
	}
	if cfg.CacheTTL.DeviceListSeconds <= 0 || cfg.CacheTTL.DeviceDataSeconds <= 0 ||
		cfg.CacheTTL.AIAnalysisSeconds <= 0 || cfg.CacheTTL.SystemStatusSeconds <= 0 {
		problems = append(problems, "all cache_ttl values must be > 0")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%v", problems)
	}
	return nil
}
