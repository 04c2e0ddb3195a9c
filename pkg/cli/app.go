package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/agent"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/config"
	"github.com/milkyway-analytics/milkyway/pkg/dbt"
	"github.com/milkyway-analytics/milkyway/pkg/llm"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

// app is the wired runtime shared by the commands that touch a warehouse.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	factory   warehouse.AdapterFactory
	warehouse warehouse.Warehouse
	schema    services.SchemaService
	memory    *memory.Store
	bridge    dbt.Bridge
}

func (o *rootOptions) loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(o.configPath, o.version)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openApp loads config and opens the configured warehouse. Adapters connect
// lazily, so an unreachable warehouse surfaces on first use, not here.
func (o *rootOptions) openApp(ctx context.Context) (*app, error) {
	cfg, logger, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	options := cfg.Warehouse.Options()
	if host, ok := options["host"].(string); ok {
		options["host"] = config.ResolveHostForDocker(host)
	}

	factory := warehouse.NewAdapterFactory(logger)
	w, err := factory.NewWarehouse(ctx, cfg.Warehouse.Type, options)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open %s warehouse: %w", cfg.Warehouse.Type, err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		factory:   factory,
		warehouse: w,
		schema: services.NewSchemaService(w, services.SchemaServiceOptions{
			CacheTTL: cfg.Warehouse.SchemaCacheTTL,
		}, logger),
		memory: memory.Open(cfg.Memory.Path, logger),
		bridge: dbt.NewBridge(dbt.Config{
			Binary:      cfg.DBT.Binary,
			ProjectDir:  cfg.DBT.ProjectDir,
			ProfilesDir: cfg.DBT.ProfilesDir,
		}, nil, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.warehouse.Close(); err != nil {
		a.logger.Warn("Failed to close warehouse", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// chatClient returns the configured model, or nil for basic mode.
func (a *app) chatClient() llm.ChatClient {
	key, err := config.ResolveLLMKey(a.cfg.LLM)
	if err != nil {
		a.logger.Warn("Failed to read LLM key", zap.String("error", logging.SanitizeError(err)))
	}

	client, err := llm.NewChatClient(llm.Config{
		Provider:  a.cfg.LLM.Provider,
		Model:     a.cfg.LLM.Model,
		APIKey:    key,
		BaseURL:   a.cfg.LLM.BaseURL,
		MaxTokens: a.cfg.LLM.MaxTokens,
	}, a.logger)
	if err != nil {
		if errors.Is(err, apperrors.ErrLLMNotConfigured) {
			a.logger.Info("No LLM configured, assistant runs in basic mode",
				zap.String("provider", a.cfg.LLM.Provider))
		} else {
			a.logger.Warn("Failed to create LLM client, assistant runs in basic mode", zap.Error(err))
		}
		return nil
	}
	return client
}

func (a *app) orchestratorFactory(client llm.ChatClient) func() *agent.Orchestrator {
	return func() *agent.Orchestrator {
		return agent.NewOrchestrator(agent.Config{
			Client:    client,
			Schema:    a.schema,
			Memory:    a.memory,
			MaxTokens: a.cfg.LLM.MaxTokens,
			Logger:    a.logger,
		})
	}
}
