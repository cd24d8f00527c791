package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hammamikhairi/ottofry/internal/domain"
	"github.com/hammamikhairi/ottofry/internal/logger"
)

type snapshotter interface {
	Snapshot() domain.Snapshot
}

type healthResponse struct {
	Status    string `json:"status"`
	Session   string `json:"session,omitempty"`
	Food      string `json:"food,omitempty"`
	State     string `json:"state"`
	Remaining int    `json:"remaining_seconds"`
}

// newRouter serves Prometheus metrics and a health probe. There is no
// command surface over HTTP.
func newRouter(eng snapshotter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		snap := eng.Snapshot()
		resp := healthResponse{
			Status:    "ok",
			Session:   snap.ID,
			State:     snap.Status.String(),
			Remaining: snap.RemainingSeconds,
		}
		if snap.Recipe != nil {
			resp.Food = snap.Recipe.ID
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

// serveMetrics runs the HTTP server until ctx ends.
func serveMetrics(ctx context.Context, addr string, h http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}
