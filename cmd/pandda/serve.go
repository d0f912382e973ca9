package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/api"
	audithook "github.com/xraph/pandda/audit_hook"
	"github.com/xraph/pandda/observability"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the back-office HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
		},
	}
}

func (c *cli) serve(ctx context.Context, reg prometheus.Registerer, gatherer prometheus.Gatherer) error {
	log := c.logger

	opts := []pandda.Option{
		pandda.WithPlugin(audithook.New(audithook.LogRecorder(log))),
	}
	var httpMetrics *observability.HTTPMetrics
	if c.cfg.Metrics.Enabled {
		opts = append(opts, pandda.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))))
		httpMetrics = observability.NewHTTPMetrics(reg)
	}

	e, err := c.openEngine(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Stop(); err != nil {
			log.Error("engine stop failed", "error", err)
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if err := e.Store().Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	if c.cfg.Metrics.Enabled {
		router.Handle(c.cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	if !c.cfg.Pandda.DisableRoutes {
		tokens := api.NewTokens(c.cfg.Pandda.JWTSecret, c.cfg.Pandda.TokenTTL, e.Now)
		apiOpts := []api.Option{api.WithLogger(log), api.WithBasePath(c.cfg.Pandda.BasePath)}
		if httpMetrics != nil {
			apiOpts = append(apiOpts, api.WithMetrics(httpMetrics))
		}
		api.New(e, tokens, apiOpts...).Register(router)
	}

	srv := &http.Server{
		Addr:         c.cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  c.cfg.HTTP.ReadTimeout,
		WriteTimeout: c.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("http server started", "addr", c.cfg.HTTP.Addr, "base_path", c.cfg.Pandda.BasePath)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("graceful shutdown complete")
	return nil
}
