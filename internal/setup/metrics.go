package setup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// metricsServer serves the Prometheus registry over HTTP.
type metricsServer struct {
	srv    *http.Server
	addr   string
	logger *zap.Logger
}

// startMetricsServer binds addr and serves /metrics in the background.
func startMetricsServer(addr string, registry *prometheus.Registry, logger *zap.Logger) (*metricsServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &metricsServer{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		addr:   listener.Addr().String(),
		logger: logger.Named("metrics"),
	}

	go func() {
		if err := server.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	server.logger.Info("Metrics server listening", zap.String("addr", server.addr))

	return server, nil
}

func (m *metricsServer) shutdown(ctx context.Context) {
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Error("Failed to shutdown metrics server", zap.Error(err))
	}
}
