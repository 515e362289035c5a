package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/handlers"
	"media-catalog/internal/indexer"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/startup"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog API and keep the catalog current",
	Long: `Serve starts the HTTP API, runs an initial scan in the background and
rescans every INDEX_INTERVAL. Upload and reindex endpoints require
"Authorization: Bearer $API_TOKEN".`,
	Example: `  media-catalog serve
  PORT=9000 INDEX_INTERVAL=10m media-catalog serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	startTime := time.Now()
	startup.PrintBanner()

	if cfg.MetricsEnabled {
		metrics.InitializeMetrics()
		filesystem.SetObserver(metrics.NewFilesystemObserver())
	}

	a, err := newApp(context.Background(), cfg, afero.NewOsFs(), cfg.IndexInterval)
	if err != nil {
		return err
	}
	defer a.Close()

	startup.LogIndexerInit(cfg.IndexInterval, cfg.IndexWorkers)
	if a.store.Exists() {
		logging.Info("  Existing catalog found, serving it until the first scan completes")
		a.indexer.MarkReady()
	}
	a.indexer.SetOnIndexComplete(func(r *indexer.Result) {
		logging.Debug("Catalog refreshed: %d files", r.Snapshot.TotalFiles)
	})
	a.indexer.Start()
	startup.LogIndexerStarted()

	var history handlers.HistoryReader
	if a.db != nil {
		history = a.db
	}
	h := handlers.New(a.store, a.indexer, a.uploadService(), history)

	router := setupRouter(h, cfg)
	startup.LogHTTPRoutes(router, cfg.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           wrapRouter(router, cfg),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            cfg.Port,
		MetricsEnabled:  cfg.MetricsEnabled,
		AuthEnabled:     cfg.APIToken != "",
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		startup.LogShutdownInitiated(sig.String())
	case err := <-serverErr:
		a.indexer.Stop()
		return err
	}

	shutdown(srv, a.indexer)
	return nil
}

// setupRouter registers every API route. Metrics run inside the router
// so they see the matched route template.
func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if config.MetricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/media", h.GetMediaFiles).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/scans", h.ListScans).Methods("GET")

	// Mutating routes
	auth := middleware.RequireToken(config.APIToken)
	api.Handle("/upload", auth(http.HandlerFunc(h.Upload))).Methods("POST")
	api.Handle("/reindex", auth(http.HandlerFunc(h.TriggerReindex))).Methods("POST")

	return r
}

// wrapRouter applies the middleware that must also see unmatched
// requests, such as CORS preflights.
func wrapRouter(router http.Handler, config *startup.Config) http.Handler {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = config.CORSOrigins
	handler := middleware.CORS(corsConfig)(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	return middleware.Logger(loggingConfig)(handler)
}

func shutdown(srv *http.Server, idx *indexer.Indexer) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping indexer")
	idx.Stop()
	startup.LogShutdownStepComplete("Indexer stopped")

	startup.LogShutdownComplete()
}
