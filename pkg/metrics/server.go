package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/health"
)

// NewMux routes /metrics and, for a non-nil checker, /healthz and /readyz.
func NewMux(m *Metrics, checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	if checker != nil {
		mux.HandleFunc("GET /healthz", checker.LiveHandler())
		mux.HandleFunc("GET /readyz", checker.ReadyHandler())
	}
	return mux
}

// StartServer serves NewMux on port in the background and returns the
// server's graceful shutdown.
func StartServer(m *Metrics, port int, checker *health.Checker) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           NewMux(m, checker),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func() {
		slog.Info("ops server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server stopped", "error", err)
		}
	}()
	return server.Shutdown
}
