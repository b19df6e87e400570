// Package servecmder provides the serve command that runs the raggadon API
// and MCP server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/raggadon/api"
	"github.com/papercomputeco/raggadon/api/mcp"
	"github.com/papercomputeco/raggadon/pkg/config"
	embeddingutils "github.com/papercomputeco/raggadon/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/raggadon/pkg/eventstream/utils"
	"github.com/papercomputeco/raggadon/pkg/logger"
	memoryutils "github.com/papercomputeco/raggadon/pkg/memory/utils"
	"github.com/papercomputeco/raggadon/pkg/pricing"
	"github.com/papercomputeco/raggadon/pkg/service"
	"github.com/papercomputeco/raggadon/pkg/usage"
	usageutils "github.com/papercomputeco/raggadon/pkg/usage/utils"
)

type serveCommander struct {
	listen         string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	memoryProv     string
	memoryTgt      string
	threshold      float64
	usageProv      string
	usageTgt       string
	eventsProv     string
	envFile        string

	debug  bool
	viper  *viper.Viper
	logger *slog.Logger
}

const serveLongDesc string = `Run the raggadon server.

Serves the HTTP API (save, search, project stats and usage) and mounts an MCP
endpoint at /mcp exposing the memory_save, memory_search and project_stats
tools.

Settings come from flags, RAGGADON_* environment variables, a .env file and
config.toml, in that order of precedence. OPENAI_API_KEY and DATABASE_URL
are honored as well.

Examples:
  raggadon serve
  raggadon serve --listen :9000 --memory-provider sqlite --memory-target memory.sqlite
  raggadon serve --embedding-provider ollama --embedding-model nomic-embed-text --embedding-dimensions 768`

const serveShortDesc string = "Run the raggadon server"

var serveFlags = []string{
	config.FlagListen,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagMemoryProv,
	config.FlagMemoryTgt,
	config.FlagThreshold,
	config.FlagUsageProv,
	config.FlagUsageTgt,
	config.FlagEventstreamProv,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(cmder.envFile); err != nil {
				return err
			}

			v, err := config.InitCommandViper(cmd, serveFlags...)
			if err != nil {
				return err
			}

			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, config.Registry, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, config.Registry, config.FlagMemoryProv, &cmder.memoryProv)
	config.AddStringFlag(cmd, config.Registry, config.FlagMemoryTgt, &cmder.memoryTgt)
	config.AddFloatFlag(cmd, config.Registry, config.FlagThreshold, &cmder.threshold)
	config.AddStringFlag(cmd, config.Registry, config.FlagUsageProv, &cmder.usageProv)
	config.AddStringFlag(cmd, config.Registry, config.FlagUsageTgt, &cmder.usageTgt)
	config.AddStringFlag(cmd, config.Registry, config.FlagEventstreamProv, &cmder.eventsProv)
	cmd.Flags().StringVar(&cmder.envFile, "env-file", ".env", "Path to a .env file loaded before reading settings")

	return cmd
}

// loadEnvFile loads path into the process environment. A missing file is
// not an error. Variables already set are not overridden.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.FromViper(c.viper)

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(cfg.Log.JSON),
		logger.WithPretty(cfg.Log.Pretty),
	)

	if cfg.Log.File != "" {
		fileLogger, closeLog, err := logger.NewFile(cfg.Log.File,
			logger.WithDebug(c.debug),
			logger.WithAttrs("service", "raggadon"),
		)
		if err != nil {
			return err
		}
		defer closeLog()
		c.logger = logger.Multi(c.logger, fileLogger)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, cleanup, err := c.buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Service: svc,
		Logger:  c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	server := api.NewServer(api.Config{
		ListenAddr: cfg.Server.Listen,
		MCPHandler: mcpServer.Handler(),
	}, svc, c.logger)

	c.logger.Info("starting raggadon server",
		"listen", cfg.Server.Listen,
		"embedding_provider", cfg.Embedding.Provider,
		"model", svc.Model(),
		"memory_provider", cfg.Memory.Provider,
		"usage_provider", cfg.Usage.Provider,
		"threshold", svc.Threshold(),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// buildService wires the configured providers into a service.Service. The
// returned cleanup closes everything that was opened.
func (c *serveCommander) buildService(ctx context.Context, cfg *config.Config) (*service.Service, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				c.logger.Warn("error during shutdown", "error", err)
			}
		}
	}
	fail := func(err error) (*service.Service, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	table, err := pricing.Load(cfg.Usage.PricingFile)
	if err != nil {
		return nil, func() {}, err
	}

	embedder, err := embeddingutils.NewProvider(&embeddingutils.NewProviderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		APIKey:       cfg.Embedding.APIKey,
	})
	if err != nil {
		return fail(fmt.Errorf("creating embedding provider: %w", err))
	}
	closers = append(closers, embedder.Close)

	store, err := memoryutils.NewStore(ctx, &memoryutils.NewStoreOpts{
		ProviderType: cfg.Memory.Provider,
		Target:       cfg.Memory.Target,
		APIKey:       cfg.Memory.APIKey,
		Collection:   cfg.Memory.Collection,
		Dimensions:   embedder.Dimensions(),
		Logger:       c.logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating memory store: %w", err))
	}
	closers = append(closers, store.Close)

	ledger, err := usageutils.NewLedger(ctx, &usageutils.NewLedgerOpts{
		ProviderType: cfg.Usage.Provider,
		Target:       cfg.UsageTarget(),
		UnitPrice:    table.UnitPrice(embedder.Model()),
		Breaker:      cfg.Usage.Breaker,
		Logger:       c.logger,
	})
	switch {
	case errors.Is(err, usage.ErrLedgerUnavailable):
		c.logger.Warn("usage ledger unavailable, continuing without it", "provider", cfg.Usage.Provider, "error", err)
		ledger = nil
	case err != nil:
		return fail(fmt.Errorf("creating usage ledger: %w", err))
	}
	if ledger != nil {
		closers = append(closers, ledger.Close)
	} else {
		c.logger.Warn("usage ledger disabled, usage figures are per request only")
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Eventstream.Provider,
		Brokers:      cfg.Eventstream.Brokers,
		Topic:        cfg.Eventstream.Topic,
		Logger:       c.logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating usage event publisher: %w", err))
	}
	closers = append(closers, publisher.Close)

	svc, err := service.New(service.Config{
		Embedder:  embedder,
		Store:     store,
		Ledger:    ledger,
		Publisher: publisher,
		Pricing:   table,
		Threshold: cfg.Memory.Threshold,
		Logger:    c.logger,
	})
	if err != nil {
		return fail(fmt.Errorf("creating memory service: %w", err))
	}

	return svc, cleanup, nil
}
