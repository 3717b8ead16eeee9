package onboarding

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Bjorgzz/Protocol-Omni/internal/config"
)

// Onboarding walks an operator through producing a config.yaml for the
// cognitive request orchestrator, either via the CLI() wizard or the
// step-by-step HTTP handlers below (for a future setup UI to drive).
type Onboarding struct {
	logger      *slog.Logger
	configPath  string
	complete    bool
	state       map[string]interface{}
	currentStep int
}

func New(logger *slog.Logger, configPath string) *Onboarding {
	complete := fileExists(configPath)
	o := &Onboarding{
		logger:      logger,
		configPath:  configPath,
		complete:    complete,
		state:       make(map[string]interface{}),
		currentStep: 0,
	}
	if !complete {
		o.currentStep = 1
	}
	return o
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (o *Onboarding) IsNeeded() bool {
	return !o.complete
}

func (o *Onboarding) CLI() error {
	if o.complete {
		o.logger.Info("config already exists, skipping onboarding")
		return nil
	}
	scanner := bufio.NewScanner(os.Stdin)
	o.logger.Info("cognitive orchestrator setup")
	o.promptServer(scanner)
	o.promptBackends(scanner)
	o.promptContextServices(scanner)
	o.promptEvolution(scanner)
	return o.writeConfig()
}

func (o *Onboarding) promptServer(scanner *bufio.Scanner) {
	fmt.Print("Step 1: Server\nHost (default 0.0.0.0): ")
	scanner.Scan()
	host := strings.TrimSpace(scanner.Text())
	if host == "" {
		host = "0.0.0.0"
	}
	fmt.Print("Port (default 8080): ")
	scanner.Scan()
	port, _ := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if port == 0 {
		port = 8080
	}
	o.state["step1"] = map[string]interface{}{"host": host, "port": port}
}

func (o *Onboarding) promptBackends(scanner *bufio.Scanner) {
	fmt.Print("Step 2: Backend endpoints\nDeep (reasoning) endpoint base URL (default http://localhost:8001): ")
	scanner.Scan()
	deepURL := strings.TrimSpace(scanner.Text())
	if deepURL == "" {
		deepURL = "http://localhost:8001"
	}
	fmt.Print("Deep endpoint model name (default deepseek-v3.2): ")
	scanner.Scan()
	deepModel := strings.TrimSpace(scanner.Text())
	if deepModel == "" {
		deepModel = "deepseek-v3.2"
	}
	fmt.Print("Fast (executor) endpoint base URL (default http://localhost:8002): ")
	scanner.Scan()
	fastURL := strings.TrimSpace(scanner.Text())
	if fastURL == "" {
		fastURL = "http://localhost:8002"
	}
	fmt.Print("Fast endpoint model name (default qwen2.5-coder-7b): ")
	scanner.Scan()
	fastModel := strings.TrimSpace(scanner.Text())
	if fastModel == "" {
		fastModel = "qwen2.5-coder-7b"
	}
	o.state["step2"] = map[string]interface{}{
		"deep_url":   deepURL,
		"deep_model": deepModel,
		"fast_url":   fastURL,
		"fast_model": fastModel,
	}
}

func (o *Onboarding) promptContextServices(scanner *bufio.Scanner) {
	fmt.Print("Step 3: Context services\nMemory service URL (default http://localhost:9100): ")
	scanner.Scan()
	memURL := strings.TrimSpace(scanner.Text())
	if memURL == "" {
		memURL = "http://localhost:9100"
	}
	fmt.Print("Knowledge graph (Neo4j bolt) URL, blank to disable: ")
	scanner.Scan()
	knowledgeURL := strings.TrimSpace(scanner.Text())
	fmt.Print("Status/metrics service URL (default http://localhost:9200): ")
	scanner.Scan()
	statusURL := strings.TrimSpace(scanner.Text())
	if statusURL == "" {
		statusURL = "http://localhost:9200"
	}
	o.state["step3"] = map[string]interface{}{
		"memory_url":    memURL,
		"knowledge_url": knowledgeURL,
		"status_url":    statusURL,
	}
}

func (o *Onboarding) promptEvolution(scanner *bufio.Scanner) {
	fmt.Print("Step 4: Prompt evolution\nEnable the offline Pareto evolution engine? (y/n): ")
	scanner.Scan()
	enabled := strings.ToLower(strings.TrimSpace(scanner.Text())) == "y"
	schedule := "0 4 * * *"
	if enabled {
		fmt.Print("Cron schedule (default \"0 4 * * *\", nightly at 4am): ")
		scanner.Scan()
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			schedule = s
		}
	}
	o.state["step4"] = map[string]interface{}{"enabled": enabled, "schedule": schedule}
}

func (o *Onboarding) writeConfig() error {
	cfg := &config.Config{
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
	}

	if server, ok := o.state["step1"].(map[string]interface{}); ok {
		cfg.Server.Host, _ = server["host"].(string)
		cfg.Server.Port, _ = server["port"].(int)
	}

	if backends, ok := o.state["step2"].(map[string]interface{}); ok {
		deepURL, _ := backends["deep_url"].(string)
		deepModel, _ := backends["deep_model"].(string)
		fastURL, _ := backends["fast_url"].(string)
		fastModel, _ := backends["fast_model"].(string)
		cfg.Cognition.DeepEndpoint = config.BackendEndpointConfig{BaseURL: deepURL, Model: deepModel}
		cfg.Cognition.FastEndpoint = config.BackendEndpointConfig{BaseURL: fastURL, Model: fastModel}
	}

	if ctxSvc, ok := o.state["step3"].(map[string]interface{}); ok {
		cfg.Cognition.MemoryServiceURL, _ = ctxSvc["memory_url"].(string)
		cfg.Cognition.KnowledgeServiceURL, _ = ctxSvc["knowledge_url"].(string)
		cfg.Cognition.StatusMetricsURL, _ = ctxSvc["status_url"].(string)
	}

	if evo, ok := o.state["step4"].(map[string]interface{}); ok {
		cfg.Cognition.Evolution.Enabled, _ = evo["enabled"].(bool)
		cfg.Cognition.Evolution.Schedule, _ = evo["schedule"].(string)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(o.configPath, data, 0644)
}

// API handlers, for a setup UI that would rather POST each step's
// answers than drive the CLI wizard directly.

func (o *Onboarding) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"needed": o.IsNeeded()})
	}
}

func (o *Onboarding) StartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !o.IsNeeded() {
			json.NewEncoder(w).Encode(map[string]interface{}{"complete": true})
			return
		}
		o.currentStep = 1
		o.state = make(map[string]interface{})
		json.NewEncoder(w).Encode(map[string]interface{}{
			"step":        1,
			"description": "Server configuration",
			"fields":      []string{"host", "port"},
		})
	}
}

func (o *Onboarding) StepHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		stepStr := strings.TrimPrefix(r.URL.Path, "/api/v1/onboarding/step/")
		step, err := strconv.Atoi(stepStr)
		if err != nil {
			http.Error(w, "invalid step", http.StatusBadRequest)
			return
		}
		var data map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		o.state[fmt.Sprintf("step%d", step)] = data
		nextStep := step + 1
		if nextStep > 4 {
			nextStep = 4
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"next_step": nextStep})
	}
}

func (o *Onboarding) CompleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := o.writeConfig(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		o.complete = true
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}
}
