// Package config loads and validates agent configuration. A malformed or
// duplicate provider entry is the only error class that prevents startup.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfig marks fatal configuration errors.
var ErrConfig = errors.New("invalid configuration")

// Provider describes one capability provider endpoint. Immutable after load.
type Provider struct {
	Name       string        `mapstructure:"name"`
	Endpoint   string        `mapstructure:"endpoint"`
	Enabled    bool          `mapstructure:"enabled"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// Agent holds engine-level limits.
type Agent struct {
	MaxConcurrentTasks int           `mapstructure:"max_concurrent_tasks"`
	MaxConcurrentCalls int           `mapstructure:"max_concurrent_calls"`
	TaskTimeout        time.Duration `mapstructure:"task_timeout"`
	MemorySize         int           `mapstructure:"memory_size"`
	LearningEnabled    bool          `mapstructure:"learning_enabled"`
}

// Retry holds the backoff policy applied to transient provider failures.
type Retry struct {
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	Multiplier float64       `mapstructure:"multiplier"`
}

// Server holds HTTP surface settings.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Log holds logging settings.
type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Config is the full agent configuration.
type Config struct {
	Providers []Provider `mapstructure:"providers"`
	Agent     Agent      `mapstructure:"agent"`
	Retry     Retry      `mapstructure:"retry"`
	Server    Server     `mapstructure:"server"`
	Log       Log        `mapstructure:"log"`
}

// Load reads configuration from path (or ./agent.yaml when path is empty),
// applies AGENT_* environment overrides, and validates the result. A missing
// file falls back to defaults unless a path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration, mirroring the standard local
// provider layout.
func Default() *Config {
	cfg := &Config{Providers: defaultProviders()}
	cfg.applyFallbacks()
	return cfg
}

func defaultProviders() []Provider {
	endpoints := []struct {
		name string
		url  string
	}{
		{"filesystem", "http://localhost:8001"},
		{"git", "http://localhost:8002"},
		{"web_search", "http://localhost:8003"},
		{"graph", "http://localhost:8004"},
		{"github", "http://localhost:8005"},
	}
	providers := make([]Provider, 0, len(endpoints))
	for _, e := range endpoints {
		providers = append(providers, Provider{
			Name:       e.name,
			Endpoint:   e.url,
			Enabled:    true,
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		})
	}
	return providers
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("agent.max_concurrent_tasks", 5)
	v.SetDefault("agent.max_concurrent_calls", 8)
	v.SetDefault("agent.task_timeout", "5m")
	v.SetDefault("agent.memory_size", 1000)
	v.SetDefault("agent.learning_enabled", true)
	v.SetDefault("retry.base_delay", "250ms")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// applyFallbacks clamps limit values to usable minimums. Limits are policy,
// not correctness, so they are repaired rather than treated as fatal.
func (c *Config) applyFallbacks() {
	if len(c.Providers) == 0 {
		c.Providers = defaultProviders()
	}
	if c.Agent.MaxConcurrentTasks < 1 {
		c.Agent.MaxConcurrentTasks = 5
	}
	if c.Agent.MaxConcurrentCalls < 1 {
		c.Agent.MaxConcurrentCalls = 8
	}
	if c.Agent.TaskTimeout <= 0 {
		c.Agent.TaskTimeout = 5 * time.Minute
	}
	if c.Agent.MemorySize < 1 {
		c.Agent.MemorySize = 1000
	}
	if c.Retry.BaseDelay <= 0 {
		c.Retry.BaseDelay = 250 * time.Millisecond
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = 2.0
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	for i := range c.Providers {
		if c.Providers[i].Timeout <= 0 {
			c.Providers[i].Timeout = 10 * time.Second
		}
		if c.Providers[i].MaxRetries < 0 {
			c.Providers[i].MaxRetries = 0
		}
	}
}

// Validate checks the provider table. Duplicate names and malformed endpoint
// URLs are fatal.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("%w: provider with empty name", ErrConfig)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate provider %q", ErrConfig, p.Name)
		}
		seen[p.Name] = true

		u, err := url.Parse(p.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: provider %q has malformed endpoint %q", ErrConfig, p.Name, p.Endpoint)
		}
	}
	return nil
}
