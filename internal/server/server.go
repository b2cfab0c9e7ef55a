// Package server exposes the compiler over HTTP: schemas are posted as the
// request body and bindings, validation results or the decoded model come
// back.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/wlgen/internal/config"
	"github.com/danmuck/wlgen/internal/observability"
)

type Server struct {
	Addr     string
	Version  string
	Appeared time.Time

	maxSchemaBytes int64
	wireImport     string
	metrics        *observability.Metrics
	router         *gin.Engine
}

// New builds the router for cfg. A nil metrics gets a fresh registry with
// process collectors.
func New(cfg config.Config, version string, metrics *observability.Metrics) *Server {
	if metrics == nil {
		metrics = observability.NewMetrics().WithProcessCollectors()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(metrics))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.Serve.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Addr:           cfg.Serve.Addr,
		Version:        version,
		Appeared:       time.Now(),
		maxSchemaBytes: cfg.Serve.MaxSchemaBytes,
		wireImport:     cfg.WireImport,
		metrics:        metrics,
		router:         r,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})
}

// Serve listens on Addr until ctx is done, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Msg("wlgen serve listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Str("addr", s.Addr).Msg("wlgen serve stopped")
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
