package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/routemesh/sms-routing/internal/platform/config"
	"github.com/routemesh/sms-routing/internal/platform/database"
	"github.com/routemesh/sms-routing/internal/platform/logger"
	"github.com/routemesh/sms-routing/internal/platform/messagebroker"
	"github.com/routemesh/sms-routing/internal/routing_service/adapters/jasmin"
	"github.com/routemesh/sms-routing/internal/routing_service/app"
	"github.com/routemesh/sms-routing/internal/routing_service/domain"
	"github.com/routemesh/sms-routing/internal/routing_service/repository/postgres"
	transporthttp "github.com/routemesh/sms-routing/internal/routing_service/transport/http"
)

const (
	serviceName     = "routing-service"
	shutdownTimeout = 15 * time.Second
)

// httpLogger logs completed HTTP requests using slog.
func httpLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			requestID := chiMiddleware.GetReqID(r.Context())

			next.ServeHTTP(ww, r)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "HTTP request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", ww.Status()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("request_id", requestID),
			)
		}
		return http.HandlerFunc(fn)
	}
}

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	appLogger := logger.New(cfg.LogLevel)
	appLogger = appLogger.With("service", serviceName)

	appLogger.Info("Routing service starting...",
		"http_port", cfg.RoutingServicePort,
		"metrics_port", cfg.RoutingServiceMetricsPort,
		"log_level", cfg.LogLevel,
	)

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Successfully connected to PostgreSQL")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, serviceName, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Successfully connected to NATS", "url", cfg.NATSUrl)

	jasminClient := jasmin.NewClient(jasmin.Config{
		BaseURL:        cfg.JasminBaseURL,
		Username:       cfg.JasminUsername,
		Password:       cfg.JasminPassword,
		Timeout:        time.Duration(cfg.JasminTimeoutSeconds) * time.Second,
		PacingInterval: time.Duration(cfg.JasminPacingIntervalMS) * time.Millisecond,
	}, appLogger)

	prefixRepo := postgres.NewPgPrefixCatalogRepository(dbPool, appLogger)
	rateRepo := postgres.NewPgRateTableRepository(dbPool, appLogger)
	routingRepo := postgres.NewPgRoutingConfigRepository(dbPool, appLogger)
	connectorRepo := postgres.NewPgConnectorRepository(dbPool, appLogger)

	catalogService := app.NewCatalogService(prefixRepo, appLogger)
	exporter := app.NewCatalogExporter(prefixRepo, appLogger)
	resolver := app.NewRateResolver(prefixRepo, rateRepo, domain.DefaultMCCDirectory(), appLogger)
	importer := app.NewRateImporter(rateRepo, appLogger)
	provisioner := app.NewRouteProvisioner(prefixRepo, routingRepo, jasminClient, appLogger)
	connectorService := app.NewConnectorService(connectorRepo, jasminClient, appLogger)
	messageService := app.NewMessageService(jasminClient, cfg.DLRCallbackURL, appLogger)
	dlrConsumer := app.NewDLRConsumer(natsClient, 10*time.Second, appLogger)

	validate := validator.New()

	router := transporthttp.NewRouter(transporthttp.Handlers{
		Catalog:   transporthttp.NewCatalogHandler(catalogService, exporter, appLogger, validate),
		Rates:     transporthttp.NewRateHandler(rateRepo, resolver, importer, appLogger, validate),
		Routing:   transporthttp.NewRoutingHandler(provisioner, routingRepo, appLogger, validate),
		Connector: transporthttp.NewConnectorHandler(connectorService, appLogger, validate),
		Message:   transporthttp.NewMessageHandler(messageService, appLogger, validate),
		DLR:       transporthttp.NewDLRHandler(natsClient, appLogger),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.RoutingServicePort),
		Handler:      httpLogger(appLogger)(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute, // provisioning runs pace themselves against the gateway
		IdleTimeout:  120 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.RoutingServiceMetricsPort),
		Handler: metricsMux,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		appLogger.Info("HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server ListenAndServe error", "error", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Metrics server starting", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics server ListenAndServe error", "error", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		return dlrConsumer.Run(groupCtx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			appLogger.Info("Received shutdown signal", "signal", sig.String())
			mainCancel()
		case <-groupCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Service exited with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Routing service shut down gracefully.")
}
