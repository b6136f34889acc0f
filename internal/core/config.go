package core

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type LookupConfig struct {
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
	Retries       int           `json:"retries" yaml:"retries"`
	RatePerSecond float64       `json:"rate_per_second" yaml:"rate_per_second"`
}

type ProbeConfig struct {
	Mode          string        `json:"mode" yaml:"mode"` // tcp or http
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
	SingleTimeout time.Duration `json:"single_timeout" yaml:"single_timeout"`
	Concurrency   int           `json:"concurrency" yaml:"concurrency"`
}

type CacheConfig struct {
	Path string        `json:"path" yaml:"path"` // empty disables the cache
	TTL  time.Duration `json:"ttl" yaml:"ttl"`
}

type Config struct {
	HostInfoURL  string       `json:"host_info_url" yaml:"host_info_url"`
	CVEDetailURL string       `json:"cve_detail_url" yaml:"cve_detail_url"`
	CORSRelayURL string       `json:"cors_relay_url" yaml:"cors_relay_url"`
	UserAgent    string       `json:"user_agent" yaml:"user_agent"`
	LogLevel     string       `json:"log_level" yaml:"log_level"`
	Lookup       LookupConfig `json:"lookup" yaml:"lookup"`
	Probe        ProbeConfig  `json:"probe" yaml:"probe"`
	Cache        CacheConfig  `json:"cache" yaml:"cache"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() *Config {
	return &Config{
		HostInfoURL:  "https://internetdb.shodan.io",
		CVEDetailURL: "https://cvedb.shodan.io/cve",
		CORSRelayURL: "https://api.allorigins.win/get",
		UserAgent:    "iplens/0.1",
		LogLevel:     "info",
		Lookup: LookupConfig{
			Timeout:       10 * time.Second,
			Retries:       2,
			RatePerSecond: 1,
		},
		Probe: ProbeConfig{
			Mode:          "tcp",
			Timeout:       2 * time.Second,
			SingleTimeout: 5 * time.Second,
			Concurrency:   16,
		},
		Cache: CacheConfig{
			TTL: 24 * time.Hour,
		},
	}
}

// LoadConfig reads a YAML or JSON file on top of DefaultConfig. Fields absent
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg := DefaultConfig()
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		err = yaml.NewDecoder(f).Decode(cfg)
	} else {
		err = json.NewDecoder(f).Decode(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Probe.Mode {
	case "tcp", "http":
	default:
		return fmt.Errorf("probe.mode must be tcp or http, got %q", c.Probe.Mode)
	}
	if c.Probe.Timeout <= 0 || c.Probe.SingleTimeout <= 0 {
		return fmt.Errorf("probe timeouts must be positive")
	}
	if c.Probe.Concurrency < 1 {
		return fmt.Errorf("probe.concurrency must be at least 1")
	}
	if c.Lookup.Retries < 0 {
		return fmt.Errorf("lookup.retries must not be negative")
	}
	if c.HostInfoURL == "" || c.CVEDetailURL == "" {
		return fmt.Errorf("host_info_url and cve_detail_url are required")
	}
	return nil
}
