// Package config loads the service configuration from a YAML or JSON file
// with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aapatcall/roadassist/core/dispatch"
	"github.com/aapatcall/roadassist/core/model"
	"github.com/aapatcall/roadassist/infra/mqtt"
)

type Config struct {
	HTTP     HTTPConfig      `json:"http"`
	MQTT     MQTTConfig      `json:"mqtt"`
	Dispatch dispatch.Config `json:"dispatch"`
	Audit    AuditConfig     `json:"audit"`
	Metrics  MetricsConfig   `json:"metrics"`
	Fare     FareConfig      `json:"fare"`
}

// HTTPConfig defines the API listener settings.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// AuditToken guards the audit endpoint when non-empty.
	AuditToken string `json:"audit_token"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// MQTTConfig wraps the broker bridge settings; the bridge is only started
// when Enabled is set.
type MQTTConfig struct {
	Enabled     bool `json:"enabled"`
	mqtt.Config `json:",squash"`
}

// AuditConfig selects the dispatch audit backend.
type AuditConfig struct {
	// Backend selects the audit store type: "memory" or "sqlite".
	Backend string `json:"backend"`
	// Path is the SQLite file location.
	Path string `json:"path"`
}

func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Backend == "sqlite" && c.Path == "" {
		c.Path = "dispatch_audit.db"
	}
}

func (c AuditConfig) Validate() error {
	if c.Backend != "memory" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown audit backend %s", c.Backend)
	}
	return nil
}

// MetricsConfig defines the observability backends.
type MetricsConfig struct {
	PrometheusPort int          `json:"prometheus_port"`
	Influx         InfluxConfig `json:"influx"`
}

// InfluxConfig holds the InfluxDB sink settings; the sink is only created
// when URL is non-empty.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// FareConfig overrides the default pricing schedule. Zero fields keep the
// defaults.
type FareConfig struct {
	BaseFare  float64 `json:"base_fare"`
	PerKm     float64 `json:"per_km"`
	PerMinute float64 `json:"per_minute"`
}

// Schedule converts the config to a model.FareSchedule, filling unset fields
// from the default schedule.
func (c FareConfig) Schedule() model.FareSchedule {
	s := model.DefaultFareSchedule()
	if c.BaseFare > 0 {
		s.BaseFare = c.BaseFare
	}
	if c.PerKm > 0 {
		s.PerKm = c.PerKm
	}
	if c.PerMinute > 0 {
		s.PerMinute = c.PerMinute
	}
	return s
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("R_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "r_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.Audit.SetDefaults()
	if err := cfg.Audit.Validate(); err != nil {
		return nil, err
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return nil, fmt.Errorf("mqtt enabled without a broker")
	}
	return &cfg, nil
}
