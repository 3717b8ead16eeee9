package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"

	"github.com/Bjorgzz/Protocol-Omni/internal/cogserver"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/classifier"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/graph"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/knowledge"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/memory"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/model"
	"github.com/Bjorgzz/Protocol-Omni/internal/cognition/status"
	"github.com/Bjorgzz/Protocol-Omni/internal/config"
	"github.com/Bjorgzz/Protocol-Omni/internal/evolution"
	"github.com/Bjorgzz/Protocol-Omni/internal/healthring"
	"github.com/Bjorgzz/Protocol-Omni/internal/logging"
	localmemory "github.com/Bjorgzz/Protocol-Omni/internal/memory"
	"github.com/Bjorgzz/Protocol-Omni/internal/onboarding"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	onboardFlag := flag.Bool("onboard", false, "launch interactive onboarding wizard")
	flag.Parse()

	logger := logging.WithComponent("orchestrator")
	logger.Info("starting cognitive request orchestrator", "version", version)

	if *onboardFlag {
		o := onboarding.New(logger, *configPath)
		if err := o.CLI(); err != nil {
			logger.Error("onboarding failed", "error", err)
			os.Exit(1)
		}
		fmt.Println("\nConfig written to", *configPath, ". Starting orchestrator...")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err, "path", *configPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Error("failed to build endpoint registry", "error", err)
		os.Exit(1)
	}

	memClient := memory.New(cfg.Cognition.MemoryServiceURL, memoryTimeout(cfg), logger)
	statusTool := status.New(cfg.Cognition.StatusMetricsURL, 10*time.Second, logger)

	var knowledgeClient graph.KnowledgeClient
	if cfg.Cognition.KnowledgeServiceURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Cognition.KnowledgeServiceURL, neo4j.NoAuth())
		if err != nil {
			logger.Warn("failed to build knowledge graph driver, knowledge retrieval disabled", "error", err)
		} else {
			knowledgeClient = knowledge.New(driver, logger)
		}
	}

	apiKey := os.Getenv("BACKEND_API_KEY")
	modelClients := map[string]*model.Client{}
	for _, name := range []string{cognition.EndpointDeep, cognition.EndpointFast} {
		ep, _ := registry.Get(name)
		modelClients[name] = model.New(ep, apiKey, logger)
	}
	modelOf := func(endpointName string) graph.ModelCaller {
		if c, ok := modelClients[endpointName]; ok {
			return c
		}
		return modelClients[cognition.EndpointFast]
	}

	cls := classifier.New(registry, logger)
	cogGraph := graph.New(graph.Config{
		Registry:     registry,
		Classifier:   cls,
		MemoryClient: memClient,
		Knowledge:    knowledgeClient,
		StatusTool:   statusTool,
		ModelOf:      modelOf,
		AgentID:      "cognitive-orchestrator",
		Log:          logger,
	})

	var engine *evolution.Engine
	var sched *evolution.Scheduler
	if cfg.Cognition.Evolution.Enabled {
		engine, sched, err = buildEvolution(cfg, registry, apiKey, logger)
		if err != nil {
			logger.Error("failed to build evolution engine, continuing without it", "error", err)
		} else {
			sched.Start()
			logger.Info("evolution scheduler started", "schedule", cfg.Cognition.Evolution.Schedule)
		}
	}

	mirror := buildStreamMirror(cfg, engine, logger)
	memoryStore := localmemory.NewStore("~/.cortex")
	onboard := onboarding.New(logger, *configPath)

	var ring *healthring.HealthRing
	if cfg.HealthRing.Enabled {
		endpoints := []cognition.BackendEndpoint{}
		if ep, ok := registry.Get(cognition.EndpointDeep); ok {
			endpoints = append(endpoints, ep)
		}
		if ep, ok := registry.Get(cognition.EndpointFast); ok {
			endpoints = append(endpoints, ep)
		}
		interval := cfg.HealthRing.CheckInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		ring = healthring.NewHealthRing(endpoints, interval, logger)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := cogserver.New(cogserver.Config{
		Addr:        addr,
		Graph:       cogGraph,
		Registry:    registry,
		Scheduler:   sched,
		Engine:      engine,
		Mirror:      mirror,
		MemoryStore: memoryStore,
		Onboarding:  onboard,
		HealthRing:  ring,
		Log:         logger,
	})

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down orchestrator")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		logger.Info("stopping evolution scheduler")
		sched.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func buildRegistry(cfg *config.Config) (*cognition.Registry, error) {
	endpoints := cognition.DefaultEndpoints()
	aliases := cognition.DefaultAliases()

	if cfg.Cognition.DeepEndpoint.BaseURL != "" {
		endpoints[0] = cognition.BackendEndpoint{
			Name:    cognition.EndpointDeep,
			BaseURL: cfg.Cognition.DeepEndpoint.BaseURL,
			Model:   cfg.Cognition.DeepEndpoint.Model,
			Timeout: cfg.Cognition.DeepEndpoint.GetTimeout(300 * time.Second),
		}
	}
	if cfg.Cognition.FastEndpoint.BaseURL != "" {
		endpoints[1] = cognition.BackendEndpoint{
			Name:    cognition.EndpointFast,
			BaseURL: cfg.Cognition.FastEndpoint.BaseURL,
			Model:   cfg.Cognition.FastEndpoint.Model,
			Timeout: cfg.Cognition.FastEndpoint.GetTimeout(60 * time.Second),
		}
	}
	for alias, target := range cfg.Cognition.ModelAliases {
		aliases[alias] = target
	}
	return cognition.NewRegistry(endpoints, aliases)
}

func memoryTimeout(cfg *config.Config) time.Duration {
	if cfg.Cognition.MemoryTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(cfg.Cognition.MemoryTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func buildEvolution(cfg *config.Config, registry *cognition.Registry, apiKey string, logger *slog.Logger) (*evolution.Engine, *evolution.Scheduler, error) {
	evoCfg := evolution.DefaultConfig()
	if cfg.Cognition.Evolution.ConfigPath != "" {
		loaded, err := evolution.LoadConfig(cfg.Cognition.Evolution.ConfigPath)
		if err == nil {
			evoCfg = loaded
		} else {
			logger.Warn("failed to load evolution config, using defaults", "error", err)
		}
	}

	oracleEndpointName := cfg.Cognition.Evolution.OracleEndpoint
	if oracleEndpointName == "" {
		oracleEndpointName = cognition.EndpointDeep
	}
	oracleEndpoint, ok := registry.Get(oracleEndpointName)
	if !ok {
		return nil, nil, fmt.Errorf("evolution oracle endpoint %q not registered", oracleEndpointName)
	}
	oracle := model.New(oracleEndpoint, apiKey, logger)

	evalBaseURL := cfg.Cognition.Evolution.EvalEndpoint
	if evalBaseURL == "" {
		evalBaseURL = oracleEndpoint.BaseURL
	}
	bench := evolution.NewHTTPBenchmarkClient(evalBaseURL, 30*time.Second)

	engine, err := evolution.NewEngine(evoCfg, oracle, bench, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build evolution engine: %w", err)
	}

	schedule := cfg.Cognition.Evolution.Schedule
	if schedule == "" {
		schedule = "0 4 * * *"
	}
	seed := map[string]string{
		cognition.EndpointDeep: defaultSystemPrompt(cognition.EndpointDeep),
		cognition.EndpointFast: defaultSystemPrompt(cognition.EndpointFast),
	}
	sched, err := evolution.NewScheduler(engine, schedule, seed, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build evolution scheduler: %w", err)
	}
	return engine, sched, nil
}

// buildStreamMirror wires the Redis trajectory stream/pub-sub mirror
// when a redis_url is configured, and starts a background subscriber
// feeding the evolution engine from interactions announced by other
// processes, matching internal/messaging/redis_client.go's
// ping-before-return connection check.
func buildStreamMirror(cfg *config.Config, engine *evolution.Engine, logger *slog.Logger) *evolution.StreamMirror {
	if cfg.Cognition.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.Cognition.RedisURL)
	if err != nil {
		logger.Warn("invalid redis_url, trajectory mirror disabled", "error", err)
		return nil
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed, trajectory mirror disabled", "error", err)
		return nil
	}

	mirror := evolution.NewStreamMirror(rdb, logger)
	if engine != nil {
		go mirror.Subscribe(context.Background(), engine)
	}
	return mirror
}

func defaultSystemPrompt(endpointName string) string {
	if endpointName == cognition.EndpointDeep {
		return "You are a careful, thorough reasoning assistant."
	}
	return "You are a fast, concise coding assistant."
}
