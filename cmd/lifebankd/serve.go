package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/philippgille/chromem-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/collaborator"
	"github.com/fyrsmithlabs/lifebank/internal/config"
	"github.com/fyrsmithlabs/lifebank/internal/knowledge"
	"github.com/fyrsmithlabs/lifebank/internal/logging"
	"github.com/fyrsmithlabs/lifebank/internal/merge"
	"github.com/fyrsmithlabs/lifebank/internal/orchestrator"
	"github.com/fyrsmithlabs/lifebank/internal/records"
	"github.com/fyrsmithlabs/lifebank/internal/sanitize"
	"github.com/fyrsmithlabs/lifebank/internal/taxonomy"
	"github.com/fyrsmithlabs/lifebank/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Start the lifebankd HTTP server. Serves the knowledge base API and,
when a collaborator API key is configured, the extraction endpoints.

Examples:
  # Run with the default config file
  lifebankd serve

  # Run with an explicit config file
  lifebankd serve --config /etc/lifebank/config.yaml`,
	RunE: runServe,
}

// daemon is everything serve and extract share.
type daemon struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *knowledge.Store
	runner *orchestrator.Orchestrator
	reg    *taxonomy.Registry
}

func buildDaemon() (*daemon, error) {
	if err := config.EnsureConfigDir(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, err
	}

	reg := taxonomy.NewRegistry()

	storeOpts := []knowledge.StoreOption{}
	if cfg.Store.SnapshotPath != "" {
		storeOpts = append(storeOpts, knowledge.WithSnapshotPath(cfg.Store.SnapshotPath))
	}
	if cfg.Store.Index.Enabled && cfg.Collaborator.Provider == "openai" && cfg.Collaborator.APIKey.IsSet() {
		embed := chromem.NewEmbeddingFuncOpenAI(cfg.Collaborator.APIKey.Value(), chromem.EmbeddingModelOpenAI3Small)
		idx, err := knowledge.NewIndex(cfg.Store.Index.Path, cfg.Store.Index.Compress, embed, logger)
		if err != nil {
			return nil, fmt.Errorf("creating semantic index: %w", err)
		}
		storeOpts = append(storeOpts, knowledge.WithIndex(idx))
	} else {
		logger.Info("semantic index disabled")
	}

	store, err := knowledge.NewStore(reg, logger, storeOpts...)
	if err != nil {
		return nil, err
	}

	d := &daemon{cfg: cfg, logger: logger, store: store, reg: reg}

	// Extraction needs raw records and a collaborator credential; without
	// either the daemon still serves the knowledge base.
	if cfg.Store.RecordsPath == "" {
		logger.Info("extraction disabled: no records path configured")
		return d, nil
	}
	if !cfg.Collaborator.APIKey.IsSet() {
		logger.Info("extraction disabled: no collaborator API key configured")
		return d, nil
	}

	source, err := records.LoadFile(cfg.Store.RecordsPath)
	if err != nil {
		return nil, err
	}

	scrubber, err := sanitize.NewScrubber()
	if err != nil {
		return nil, err
	}
	sanitizer, err := sanitize.New(source, source, logger, sanitize.WithScrubber(scrubber))
	if err != nil {
		return nil, err
	}

	client, err := collaborator.NewClient(collaborator.Config{
		Provider:   cfg.Collaborator.Provider,
		Model:      cfg.Collaborator.Model,
		APIKey:     cfg.Collaborator.APIKey.Value(),
		BaseURL:    cfg.Collaborator.BaseURL,
		RateLimit:  cfg.Collaborator.RateLimit,
		MaxRetries: cfg.Collaborator.MaxRetries,
	}, logger)
	if err != nil {
		return nil, err
	}

	merger, err := merge.NewEngine(store, reg, logger,
		merge.WithReviewConfidence(cfg.Extraction.ReviewConfidence))
	if err != nil {
		return nil, err
	}

	runner, err := orchestrator.New(sanitizer, client, merger, store, logger)
	if err != nil {
		return nil, err
	}
	d.runner = runner
	return d, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := buildDaemon()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(d.logger) }()

	srv, err := server.New(d.cfg.Server, d.store, d.runner, d.reg, d.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d.logger.Info("starting lifebankd",
		zap.String("version", version),
		zap.String("host", d.cfg.Server.Host),
		zap.Int("port", d.cfg.Server.Port))

	if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}
	d.logger.Info("lifebankd stopped")
	return nil
}
