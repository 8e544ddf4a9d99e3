// Package proxyconfig loads the core's tunables from YAML: the inclusion
// timeout, confirmation poll interval, submission queue capacity, gas
// price refresh cadence, and the RPC endpoint the backend dials.
//
// Grounded on the config-loader shape in the DanDo385 config-loader-env-yaml
// exercise solution: read the file, unmarshal with yaml.v3, apply defaults
// for anything left at its zero value, then validate.
package proxyconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// duration wraps time.Duration so yaml.v3 accepts the same "30s"/"1m"
// syntax time.ParseDuration does, rather than requiring a raw nanosecond
// integer (yaml.v3 has no built-in time.Duration support).
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("proxyconfig: %q is not a valid duration: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

// Config is the on-disk shape of the proxy's configuration file.
type Config struct {
	RPCURL string `yaml:"rpc_url"`

	BlockWaitLimit          uint64   `yaml:"block_wait_limit"`
	ConfirmPollInterval     duration `yaml:"confirm_poll_interval"`
	SubmissionQueueCapacity int      `yaml:"submission_queue_capacity"`
	GasPriceRefreshInterval duration `yaml:"gas_price_refresh_interval"`
	PollInterval            duration `yaml:"poll_interval"`
}

// Defaults applied to any field left at zero, so a near-empty YAML file
// ("just rpc_url") is a valid configuration. The confirm-poll, queue-capacity
// and gas-price-refresh defaults equal the fallbacks in confirm, submission
// and gasestimate; BlockWaitLimit and PollInterval have no fallback in those
// packages.
const (
	DefaultBlockWaitLimit          = 40
	DefaultConfirmPollInterval     = 10 * time.Second
	DefaultSubmissionQueueCapacity = 10_000
	DefaultGasPriceRefreshInterval = 4 * time.Second
	DefaultPollInterval            = 2 * time.Second
)

// Load reads and parses a YAML configuration file at path, applies
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("proxyconfig: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("proxyconfig: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BlockWaitLimit == 0 {
		c.BlockWaitLimit = DefaultBlockWaitLimit
	}
	if c.ConfirmPollInterval == 0 {
		c.ConfirmPollInterval = duration(DefaultConfirmPollInterval)
	}
	if c.SubmissionQueueCapacity == 0 {
		c.SubmissionQueueCapacity = DefaultSubmissionQueueCapacity
	}
	if c.GasPriceRefreshInterval == 0 {
		c.GasPriceRefreshInterval = duration(DefaultGasPriceRefreshInterval)
	}
	if c.PollInterval == 0 {
		c.PollInterval = duration(DefaultPollInterval)
	}
}

func (c *Config) validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("proxyconfig: rpc_url is required")
	}
	return nil
}

// ConfirmPollIntervalDuration, GasPriceRefreshIntervalDuration, and
// PollIntervalDuration expose the wrapped durations as time.Duration for
// callers wiring proxy.Config, which speaks plain time.Duration.
func (c *Config) ConfirmPollIntervalDuration() time.Duration {
	return time.Duration(c.ConfirmPollInterval)
}

func (c *Config) GasPriceRefreshIntervalDuration() time.Duration {
	return time.Duration(c.GasPriceRefreshInterval)
}

func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval)
}
