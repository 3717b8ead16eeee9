package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	yaml := []byte(`
server:
  port: 18800
  host: localhost
cognition:
  deep_endpoint:
    base_url: http://localhost:8001
    model: deepseek-v3.2
  fast_endpoint:
    base_url: http://localhost:8002
    model: qwen2.5-coder-7b
`)
	f, _ := os.CreateTemp("", "config-*.yaml")
	f.Write(yaml)
	f.Close()
	defer os.Remove(f.Name())

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 18800 {
		t.Errorf("Expected port 18800, got %d", cfg.Server.Port)
	}
	if cfg.Cognition.DeepEndpoint.Model != "deepseek-v3.2" {
		t.Errorf("Expected deep endpoint model deepseek-v3.2, got %s", cfg.Cognition.DeepEndpoint.Model)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 18800, Host: "localhost"},
		Cognition: CognitionConfig{
			DeepEndpoint: BackendEndpointConfig{BaseURL: "http://localhost:8001"},
			FastEndpoint: BackendEndpointConfig{BaseURL: "http://localhost:8002"},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidateInvalidPort(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: -1}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for invalid port")
	}
}

func TestValidateMissingBackendEndpoint(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Port: 18800},
		Cognition: CognitionConfig{DeepEndpoint: BackendEndpointConfig{BaseURL: "http://localhost:8001"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error when fast_endpoint is missing")
	}
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	os.Setenv("TEST_MEMORY_URL", "http://memory.internal:9100")
	defer os.Unsetenv("TEST_MEMORY_URL")

	yamlDoc := []byte(`
server:
  port: 18800
  host: localhost
cognition:
  deep_endpoint:
    base_url: http://localhost:8001
    model: deepseek-v3.2
  fast_endpoint:
    base_url: http://localhost:8002
    model: qwen2.5-coder-7b
  memory_service_url: "${TEST_MEMORY_URL}"
  knowledge_service_url: "${TEST_KNOWLEDGE_URL:-http://knowledge.internal:7687}"
`)
	f, _ := os.CreateTemp("", "config-*.yaml")
	f.Write(yamlDoc)
	f.Close()
	defer os.Remove(f.Name())

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cognition.MemoryServiceURL != "http://memory.internal:9100" {
		t.Errorf("expected expanded memory URL, got %q", cfg.Cognition.MemoryServiceURL)
	}
	if cfg.Cognition.KnowledgeServiceURL != "http://knowledge.internal:7687" {
		t.Errorf("expected default-expanded knowledge URL, got %q", cfg.Cognition.KnowledgeServiceURL)
	}
	if cfg.Cognition.DeepEndpoint.Model != "deepseek-v3.2" {
		t.Errorf("expected deep endpoint model to survive expansion untouched, got %q", cfg.Cognition.DeepEndpoint.Model)
	}
}

func TestBackendEndpointConfig_GetTimeout(t *testing.T) {
	b := &BackendEndpointConfig{Timeout: "45s"}
	if got := b.GetTimeout(10 * time.Second); got != 45*time.Second {
		t.Errorf("expected 45s, got %v", got)
	}
	empty := &BackendEndpointConfig{}
	if got := empty.GetTimeout(10 * time.Second); got != 10*time.Second {
		t.Errorf("expected fallback 10s, got %v", got)
	}
}
