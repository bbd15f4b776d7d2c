package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"genai-gallery/internal/database"
	"genai-gallery/internal/filesystem"
	"genai-gallery/internal/handlers"
	"genai-gallery/internal/indexer"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/media"
	"genai-gallery/internal/metrics"
	"genai-gallery/internal/middleware"
	"genai-gallery/internal/startup"
)

const (
	metricsCollectInterval = time.Minute
	shutdownTimeout        = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
		return err
	}
	defer logging.Close()

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()
	info := startup.GetBuildInfo()
	metrics.SetAppInfo(info.Version, info.Commit, info.GoVersion)

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DBPath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
		return err
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	h, err := config.Hasher()
	if err != nil {
		return err
	}

	rec, err := indexer.NewReconciler(db, indexer.Config{
		Root:     config.ImagesDir,
		Registry: config.Registry(),
		Hasher:   h,
		Walker:   indexer.WalkerConfig{Workers: config.HashWorkers, SkipHidden: true},
	})
	if err != nil {
		return err
	}

	coord := indexer.NewCoordinator(rec, config.SyncCooldown)
	idx := indexer.New(coord, db, config.SyncInterval)

	startup.LogIndexerInit(config.SyncCooldown, config.SyncInterval, config.HashWorkers)
	idx.Start()
	startup.LogIndexerStarted()

	thumbGen := media.NewThumbnailGenerator(config.ThumbnailDir, config.ThumbnailSize, config.ThumbnailsEnabled)
	startup.LogThumbnailInit(thumbGen.IsEnabled(), thumbGen.Size())

	collector := metrics.NewCollector(db, config.DBPath, metricsCollectInterval)
	collector.Start()

	hnd := handlers.New(db, coord, idx, thumbGen, config)
	router := hnd.Router(config.MetricsEnabled)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	if config.MetricsEnabled {
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           middleware.Logger(loggingConfig)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		handleShutdown(srv, coord, idx, collector)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
		return err
	}

	<-done
	return nil
}

func handleShutdown(srv *http.Server, coord *indexer.Coordinator, idx *indexer.Indexer, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	signal.Stop(sigChan)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	sd := startup.BeginShutdown(sig.String())
	sd.Step("http server", func() error { return srv.Shutdown(ctx) })
	sd.Step("indexer", func() error {
		coord.Close()
		idx.Stop()
		return nil
	})
	sd.Step("metrics collector", func() error {
		collector.Stop()
		return nil
	})
	sd.Done()
}
