package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/NERVsystems/ipredict/pkg/cache"
	"github.com/NERVsystems/ipredict/pkg/config"
	"github.com/NERVsystems/ipredict/pkg/fetch"
	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/geolocate"
	"github.com/NERVsystems/ipredict/pkg/metrics"
	"github.com/NERVsystems/ipredict/pkg/server"
	"github.com/NERVsystems/ipredict/pkg/session"
	"github.com/NERVsystems/ipredict/pkg/version"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the valuation tools over MCP on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.debug)
	slog.SetDefault(logger)
	logger.Info("starting valuation MCP server", version.Info()...)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Addr != "" {
		prom := metrics.NewPrometheus()
		recorder = prom
		metricsSrv := startMetricsServer(cfg.Metrics.Addr, prom, logger)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	transport := newTransport(cfg, recorder, logger)
	initial := resolveStart(ctx, cfg, opts.devicePosition(), transport, logger)

	sess := session.New(cfg.Session(), initial,
		session.WithLogger(logger),
		session.WithRecorder(recorder),
		session.WithTransport(transport),
	)
	sess.Start(ctx)
	defer sess.Close()

	srv, err := server.NewServer(sess, logger)
	if err != nil {
		return err
	}

	logger.Info("server initialized, waiting for requests")
	return srv.Run()
}

// newTransport builds the shared HTTP transport from the api settings.
func newTransport(cfg *config.Config, recorder metrics.Recorder, logger *slog.Logger) *fetch.Transport {
	opts := []fetch.TransportOption{
		fetch.WithClient(fetch.NewHTTPClient(cfg.API.Timeout)),
		fetch.WithUserAgent(cfg.API.UserAgent),
		fetch.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		fetch.WithRecorder(recorder),
		fetch.WithTransportLogger(logger),
	}
	if cfg.API.CacheSize > 0 {
		opts = append(opts, fetch.WithCache(cache.NewResponses(cfg.API.CacheSize, cfg.API.CacheTTL)))
	}
	return fetch.NewTransport(opts...)
}

// resolveStart finds the starting pin: the command-line position, then IP
// geolocation, then the default.
func resolveStart(ctx context.Context, cfg *config.Config, device *geo.Location, transport *fetch.Transport, logger *slog.Logger) geo.Location {
	ctx, cancel := context.WithTimeout(ctx, cfg.Geolocation.Timeout)
	defer cancel()

	var fallback geolocate.Provider
	if !cfg.Geolocation.Disabled {
		fallback = &geolocate.IPLookup{URL: cfg.Geolocation.IPLookupURL, Transport: transport}
	}
	return geolocate.Resolve(ctx, &geolocate.Device{Location: device}, fallback, logger)
}

func startMetricsServer(addr string, prom *metrics.Prometheus, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
