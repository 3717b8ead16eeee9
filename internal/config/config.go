package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the cognitive request orchestrator.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	HealthRing HealthRingConfig `yaml:"healthring,omitempty"`
	Cognition  CognitionConfig  `yaml:"cognition,omitempty"`
}

// CognitionConfig configures the cognitive request orchestrator: its
// two named backend endpoints, memory/knowledge service locations,
// metacognition thresholds, and the offline Pareto evolution engine.
type CognitionConfig struct {
	DeepEndpoint  BackendEndpointConfig `yaml:"deep_endpoint"`
	FastEndpoint  BackendEndpointConfig `yaml:"fast_endpoint"`
	ModelAliases  map[string]string     `yaml:"model_aliases,omitempty"`

	MemoryServiceURL    string `yaml:"memory_service_url"`
	MemoryTimeout       string `yaml:"memory_timeout,omitempty"`
	KnowledgeServiceURL string `yaml:"knowledge_service_url"`
	StatusMetricsURL    string `yaml:"status_metrics_url"`

	// RedisURL locates the trajectory stream mirror and interaction
	// pub/sub channel (internal/evolution/stream.go). Left empty, both
	// are disabled and the orchestrator runs on its in-memory ring
	// buffer alone.
	RedisURL string `yaml:"redis_url,omitempty"`

	Metacognition MetacognitionConfig `yaml:"metacognition,omitempty"`
	Evolution     EvolutionConfig     `yaml:"evolution,omitempty"`
}

// BackendEndpointConfig configures one named model backend.
type BackendEndpointConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout,omitempty"`
}

// GetTimeout returns the endpoint's timeout, defaulting to fallback
// when unset or unparseable.
func (b *BackendEndpointConfig) GetTimeout(fallback time.Duration) time.Duration {
	if b.Timeout == "" {
		return fallback
	}
	d, err := time.ParseDuration(b.Timeout)
	if err != nil {
		return fallback
	}
	return d
}

// MetacognitionConfig holds the metacognition section's threshold keys.
// No code reads them: the 4-gate verifier uses the metacognition
// package's MinLength and MaxRetries constants.
type MetacognitionConfig struct {
	MinLength  int `yaml:"min_length,omitempty"`
	MaxRetries int `yaml:"max_retries,omitempty"`
}

// EvolutionConfig locates the offline Pareto evolution engine's own
// config/state, kept distinct from the engine's internal
// evolution.Config since this is the wiring the orchestrator reads at
// startup (where to find it), not the engine's own tunables (how it
// behaves), which live in the file at ConfigPath.
type EvolutionConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ConfigPath     string `yaml:"config_path,omitempty"`
	OracleEndpoint string `yaml:"oracle_endpoint,omitempty"`
	EvalEndpoint   string `yaml:"eval_endpoint,omitempty"`
	Schedule       string `yaml:"schedule,omitempty"` // cron expression
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HealthRingConfig configures the rolling health-history poller over
// the two backend endpoints (internal/healthring).
type HealthRingConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

// Load loads configuration from a YAML file, first expanding any
// ${VAR} / ${VAR:-default} references against the process environment
// (so secrets and per-deployment endpoints never need to be literal in
// the file), then applying the narrower named overrides below for the
// handful of settings that predate that convention.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	expanded := expandEnvVars(raw)
	expandedBytes, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to re-marshal expanded config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expandedBytes, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode expanded config: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnvVars recursively walks a generic YAML-decoded value,
// substituting ${VAR} and ${VAR:-default} occurrences in every string
// against os.Getenv, ported from gepa/evolution.py's _expand_env_vars.
func expandEnvVars(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = expandEnvVars(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandEnvVars(item)
		}
		return out
	case string:
		return envVarPattern.ReplaceAllStringFunc(val, func(match string) string {
			groups := envVarPattern.FindStringSubmatch(match)
			name, def := groups[1], groups[2]
			if v, ok := os.LookupEnv(name); ok {
				return v
			}
			return def
		})
	default:
		return v
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("GATEWAY_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}
	if url := os.Getenv("COGNITION_MEMORY_SERVICE_URL"); url != "" {
		c.Cognition.MemoryServiceURL = url
	}
	if url := os.Getenv("COGNITION_KNOWLEDGE_SERVICE_URL"); url != "" {
		c.Cognition.KnowledgeServiceURL = url
	}
	if url := os.Getenv("COGNITION_REDIS_URL"); url != "" {
		c.Cognition.RedisURL = url
	}
}

// Validate validates the configuration: a usable server port and both
// named backend endpoints, since cognition.Registry requires both
// "deep" and "fast" to be registered at startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cognition.DeepEndpoint.BaseURL == "" {
		return fmt.Errorf("cognition.deep_endpoint.base_url is required")
	}
	if c.Cognition.FastEndpoint.BaseURL == "" {
		return fmt.Errorf("cognition.fast_endpoint.base_url is required")
	}
	return nil
}
