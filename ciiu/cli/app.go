package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/ciiu-search/ciiu/catalog"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/config"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/embedding"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/manager"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/metrics"
	"github.com/ZanzyTHEbar/ciiu-search/ciiu/retrieval"
)

// app is the wired engine behind every command.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	source   catalog.Source
	encoder  *embedding.Encoder
	manager  *manager.Manager
	searcher *retrieval.Searcher
	defaults retrieval.Defaults
}

func loadApp(cmd *cobra.Command, f *rootFlags) (*app, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.pretty {
		cfg.Log.Pretty = true
	}
	logger := cfg.Logger(cmd.ErrOrStderr())
	src := catalog.NewFileSource(cfg.DatasetFiles(), cfg.AuxiliaryPath(), logger)
	return newApp(cfg, logger, src)
}

func newApp(cfg *config.Config, logger zerolog.Logger, src catalog.Source) (*app, error) {
	provider, err := embedding.NewProvider(cfg.EmbeddingOptions())
	if err != nil {
		return nil, err
	}
	enc := embedding.NewEncoder(provider,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithWorkers(cfg.Embedding.Workers),
		embedding.WithLogger(logger),
	)
	mgr, err := manager.New(src, enc,
		manager.WithWorkers(cfg.Build.Workers),
		manager.WithAuxiliary(cfg.Auxiliary.Enabled),
		manager.WithLogger(logger),
		manager.WithMetrics(&metrics.RebuildMetrics{}),
	)
	if err != nil {
		return nil, err
	}
	defaults, err := cfg.SearchDefaults()
	if err != nil {
		return nil, err
	}
	opts := append(cfg.SearcherOptions(), retrieval.WithLogger(logger))
	return &app{
		cfg:      cfg,
		logger:   logger,
		source:   src,
		encoder:  enc,
		manager:  mgr,
		searcher: retrieval.NewSearcher(mgr, enc, opts...),
		defaults: defaults,
	}, nil
}
