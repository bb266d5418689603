// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hollydata/filmcrawl/internal/config"
	"github.com/hollydata/filmcrawl/internal/crawl"
	"github.com/hollydata/filmcrawl/internal/dataset"
	collyfetcher "github.com/hollydata/filmcrawl/internal/fetcher/colly"
	"github.com/hollydata/filmcrawl/internal/logging"
	"github.com/hollydata/filmcrawl/internal/progress"
	"github.com/hollydata/filmcrawl/internal/progress/sinks"
	"github.com/hollydata/filmcrawl/internal/sources"
	"github.com/hollydata/filmcrawl/internal/store"
)

// App holds the shared services every command depends on: configuration,
// logger, the profile store, the document fetcher and the progress sinks.
// It is built once per invocation and fails fast when a critical service
// cannot be initialized.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *store.Store
	fetcher  *collyfetcher.Fetcher
	sink     progress.Sink
	registry *prometheus.Registry
}

// Options tweak construction.
type Options struct {
	// ConfigPath overrides the default per-user config file.
	ConfigPath string
	// Silent drops the per-title progress lines on stdout.
	Silent bool
}

// New loads configuration and wires the service graph.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.Timeout(),
	})

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("init metrics sink: %w", err)
	}
	sink := progress.Multi{promSink, sinks.NewLogSink(logger)}
	if !opts.Silent {
		sink = append(sink, sinks.NewWriterSink(os.Stdout))
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		fetcher:  fetcher,
		sink:     sink,
		registry: registry,
	}, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store returns the profile store.
func (a *App) Store() *store.Store { return a.store }

// Sink returns the progress sink fan-out.
func (a *App) Sink() progress.Sink { return a.sink }

// Registry exposes the metrics registry, mainly for inspection in tests.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Extractor builds the profile extractor for a source name.
func (a *App) Extractor(source string) (sources.Extractor, error) {
	switch source {
	case "imdb":
		return sources.NewIMDB(sources.IMDBConfig{}, a.fetcher, a.logger), nil
	case "metacritic":
		return sources.NewMetacritic(sources.MetacriticConfig{}, a.fetcher, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want imdb or metacritic)", source)
	}
}

// TitleLister builds the year-indexed title source.
func (a *App) TitleLister() *sources.Wiki {
	return sources.NewWiki(sources.WikiConfig{}, a.fetcher, a.logger)
}

// Crawler wires a crawl orchestrator for the given source.
func (a *App) Crawler(source string) (*crawl.Crawler, error) {
	extractor, err := a.Extractor(source)
	if err != nil {
		return nil, err
	}
	cfg := crawl.Config{Concurrency: a.cfg.Crawler.Concurrency}
	return crawl.New(a.store, extractor, a.TitleLister(), a.sink, a.logger, cfg), nil
}

// Assembler wires the dataset assembler.
func (a *App) Assembler() *dataset.Assembler {
	return dataset.New(a.store, a.logger)
}

// Close flushes buffered log entries. Safe to call more than once.
func (a *App) Close() {
	_ = a.logger.Sync()
}
