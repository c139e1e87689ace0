package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fetcharr/fetcharr/internal/config"
	"github.com/fetcharr/fetcharr/internal/database"
	"github.com/fetcharr/fetcharr/internal/downloader"
	"github.com/fetcharr/fetcharr/internal/indexer"
	"github.com/fetcharr/fetcharr/internal/logger"
	"github.com/fetcharr/fetcharr/internal/matcher"
	"github.com/fetcharr/fetcharr/internal/media"
	"github.com/fetcharr/fetcharr/internal/notification"
	"github.com/fetcharr/fetcharr/internal/quality"
	"github.com/fetcharr/fetcharr/internal/release"
	"github.com/fetcharr/fetcharr/internal/scheduler"
	"github.com/fetcharr/fetcharr/internal/scheduler/tasks"
	"github.com/fetcharr/fetcharr/internal/scoring"
	"github.com/fetcharr/fetcharr/internal/search"
)

func main() {
	// Local overrides for development; missing file is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   cfg.Logging.Path,
	})
	defer log.Close()

	log.Info().
		Str("db", cfg.Database.Path).
		Int("indexers", len(cfg.Indexers)).
		Msg("Starting fetcharr")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Stores and services
	releaseStore := release.NewStore(db.Conn(), log.Logger)
	lifecycle := release.NewLifecycle(releaseStore, log.Logger)
	profiles := quality.NewService(db.Conn(), log.Logger)
	catalog := media.NewStore(db.Conn(), profiles, releaseStore, log.Logger)

	if err := profiles.EnsureDefault(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure default profile")
	}

	// Download client
	gateway, err := downloader.New(downloader.Config{
		WatchDir: cfg.Downloader.WatchDir,
		DoneDir:  cfg.Downloader.DoneDir,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up downloader")
	}
	monitor := release.NewMonitor(lifecycle, gateway, cfg.Searcher.NextOnFailed, log.Logger)

	// Indexers
	indexerCfgs := make([]indexer.Config, 0, len(cfg.Indexers))
	for _, ic := range cfg.Indexers {
		indexerCfgs = append(indexerCfgs, indexer.Config{
			Name:       ic.Name,
			URL:        ic.URL,
			APIKey:     ic.APIKey,
			Protocol:   ic.Protocol,
			Categories: ic.Categories,
		})
	}
	providers := indexer.NewAll(indexerCfgs, log.Logger)

	// Search pipeline
	engine := matcher.NewEngine(matcher.Config{
		RetentionDays: cfg.Searcher.RetentionDays,
		RequiredWords: cfg.Searcher.RequiredWords,
		IgnoredWords:  cfg.Searcher.IgnoredWords,
	}, quality.NewMatcher(log.Logger), log.Logger)

	scorerCfg := scoring.DefaultConfig()
	scorerCfg.PreferredProtocol = cfg.Searcher.PreferredProtocol
	scorer := scoring.NewScorer(scorerCfg, log.Logger)

	walker := search.NewProfileWalker(cfg.Searcher.AlwaysSearch, log.Logger)

	orchestrator := search.NewOrchestrator(
		search.Config{
			Concurrency:    cfg.Searcher.Concurrency,
			Retries:        cfg.Searcher.Retries,
			PreferredWords: cfg.Searcher.PreferredWords,
			IgnoredWords:   cfg.Searcher.IgnoredWords,
		},
		providers, engine, scorer, walker, lifecycle, gateway,
		catalog, profiles, notification.NewLogNotifier(log.Logger), log.Logger,
	)
	lifecycle.SetRequeuer(orchestrator)

	// Background jobs
	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := tasks.RegisterSearchTask(sched, orchestrator, &cfg.Schedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to register search task")
	}
	if err := tasks.RegisterCheckSnatchedTask(sched, monitor, &cfg.Schedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to register check-snatched task")
	}
	if err := tasks.RegisterCleanStaleTask(sched, lifecycle, &cfg.Schedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to register clean-stale task")
	}
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	if err := sched.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop scheduler")
	}
}
