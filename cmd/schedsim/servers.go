package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coredump/schedsim/internal/live"
)

// newAmbientServers builds the optional HTTP surface: /metrics when
// cfg.MetricsAddr is set, /ws when cfg.LiveAddr is set (sharing one
// listener when the two addresses match, two servers otherwise).
func newAmbientServers(hub *live.Hub) []*http.Server {
	var servers []*http.Server

	if cfg.MetricsAddr != "" && cfg.MetricsAddr == cfg.LiveAddr {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if hub != nil {
			mux.HandleFunc("/ws", hub.ServeWS)
		}
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: mux})
		return servers
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: mux})
	}
	if cfg.LiveAddr != "" && hub != nil {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.ServeWS)
		servers = append(servers, &http.Server{Addr: cfg.LiveAddr, Handler: mux})
	}
	return servers
}

// serveUntilCancel runs srv until ctx is cancelled, then shuts it down
// gracefully. A bind failure is logged, not fatal: ambient instrumentation
// never takes the simulation down with it.
func serveUntilCancel(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warnf("run: ambient server %s failed", srv.Addr)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}
