package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"backdrop-gallery/internal/analytics"
	"backdrop-gallery/internal/catalog"
	"backdrop-gallery/internal/database"
	"backdrop-gallery/internal/handlers"
	"backdrop-gallery/internal/logging"
	"backdrop-gallery/internal/memory"
	"backdrop-gallery/internal/metadata"
	"backdrop-gallery/internal/metrics"
	"backdrop-gallery/internal/middleware"
	"backdrop-gallery/internal/startup"
	"backdrop-gallery/internal/transcode"
	"backdrop-gallery/internal/workers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	collectInterval = time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// After .env is loaded, before anything decodes an image
	memory.ConfigureFromEnv()

	buildInfo := startup.GetBuildInfo()
	metrics.InitializeMetrics()
	metrics.SetAppInfo(buildInfo.Version, buildInfo.Commit, buildInfo.GoVersion)

	cats := catalog.DefaultCategories()
	if config.CategoriesFile != "" {
		if cats, err = catalog.LoadCategories(config.CategoriesFile); err != nil {
			startup.LogFatal("Failed to load categories: %v", err)
		}
	}

	// Optional event store
	var db *database.Database
	if config.DatabaseEnabled {
		dbStart := time.Now()
		db, err = database.New(context.Background(), config.DatabasePath)
		if err != nil {
			logging.Warn("Event store unavailable, continuing without it: %v", err)
			db = nil
		} else {
			startup.LogDatabaseInit(time.Since(dbStart))
		}
	}

	sinks := analytics.Multi{analytics.MetricsSink{}, analytics.LogSink{}}
	var events handlers.EventStore
	if db != nil {
		sinks = append(sinks, db)
		events = db
	}

	trans, err := transcode.New(config.Transcoder)
	if err != nil {
		startup.LogFatal("Failed to initialize transcoder: %v", err)
	}
	startup.LogTranscoderInit(config.Transcoder, config.DownloadFormat, workers.ForCPU(0))

	enricher := catalog.NewEnricher(cats, catalog.SiteInfo{
		BaseURL:    config.SiteURL,
		Name:       config.SiteName,
		ImagesRoot: "images",
	})
	store := metadata.NewStore(metadata.NewSource(config.MetadataPaths...), enricher)

	meta, err := store.Current(context.Background())
	images := 0
	if meta != nil {
		images = meta.Len()
	}
	startup.LogMetadataInit(images, err)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	go func() {
		if err := store.Watch(watchCtx); err != nil {
			logging.Warn("Metadata watcher stopped: %v", err)
		}
	}()

	collector := metrics.NewCollector(store, collectInterval)
	collector.Start()

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	h := handlers.New(store, cats, trans, events, sinks, config)
	h.SetMemoryMonitor(memMonitor)

	router := setupRouter(h, config.ImagesDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	accessLog := middleware.NewW3CLogger(loggingConfig, nil)
	accessLog.LogHeader()
	var handler http.Handler = accessLog.Middleware(router)
	handler = middleware.RequestID(handler)
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsPort)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go handleShutdown(srv, metricsSrv, done, func() {
		stopWatch()
		collector.Stop()
		memMonitor.Stop()
		if config.Transcoder == transcode.EngineVips {
			transcode.ShutdownVips()
		}
		if db != nil {
			if err := db.Close(); err != nil {
				logging.Warn("Failed to close event store: %v", err)
			}
		}
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func setupRouter(h *handlers.Handlers, imagesDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/metadata", h.GetMetadata).Methods("GET")
	api.HandleFunc("/categories", h.ListCategories).Methods("GET")
	api.HandleFunc("/categories/{slug}", h.GetCategory).Methods("GET")
	api.HandleFunc("/download/{key}", h.Download).Methods("GET")
	api.HandleFunc("/events", h.RecordEvent).Methods("POST")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	r.PathPrefix("/images/").Handler(http.StripPrefix("/images/", imageServer(imagesDir)))

	return r
}

// imageServer serves the asset tree without directory listings.
func imageServer(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}

func newMetricsServer(port string) *http.Server {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              ":" + port,
		Handler:           m,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

func handleShutdown(srv, metricsSrv *http.Server, done chan<- struct{}, cleanup func()) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Releasing resources")
	cleanup()
	startup.LogShutdownStepComplete("Resources released")

	startup.LogShutdownComplete()
}
