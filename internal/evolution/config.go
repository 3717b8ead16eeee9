package evolution

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config holds the evolution engine's own tunables, loaded separately
// from the orchestrator's main config since it is edited independently
// by whoever operates the offline evolution cycle.
type Config struct {
	TrajectorySampleSize int      `yaml:"trajectory_sample_size"`
	ParetoFrontierSize   int      `yaml:"pareto_frontier_size"`
	GoldenDataset        string   `yaml:"golden_dataset"`
	Targets              []string `yaml:"targets"`
	StatePath            string   `yaml:"state_path"`
	OracleModel          string   `yaml:"oracle_model"`
	Minimize             []string `yaml:"minimize,omitempty"`
}

// DefaultConfig mirrors GEPAEvolutionEngine's hardcoded fallback when
// no config file is present.
func DefaultConfig() Config {
	return Config{
		TrajectorySampleSize: 100,
		ParetoFrontierSize:   10,
		GoldenDataset:        "/nvme/eval/golden/",
		StatePath:            "/nvme/gepa/state",
		OracleModel:          "deepseek-v3.2",
	}
}

// LoadConfig reads a YAML config file, expanding ${VAR} / ${VAR:-default}
// references against the process environment before decoding into
// Config, ported from _expand_env_vars. Returns DefaultConfig when path
// does not exist.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read evolution config: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse evolution config: %w", err)
	}
	expanded := ExpandEnvVars(raw)

	expandedBytes, err := yaml.Marshal(expanded)
	if err != nil {
		return Config{}, fmt.Errorf("re-marshal expanded evolution config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(expandedBytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode expanded evolution config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// ExpandEnvVars recursively walks a generic YAML-decoded value
// (map[string]any / []any / scalar), substituting ${VAR} and
// ${VAR:-default} occurrences in every string against os.Getenv, in
// place of Python's os.environ.get(var, default).
func ExpandEnvVars(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = ExpandEnvVars(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ExpandEnvVars(item)
		}
		return out
	case string:
		return expandEnvString(val)
	default:
		return v
	}
}

func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name := groups[1]
		def := groups[2]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}
