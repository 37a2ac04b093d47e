package setup

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMetricsServerServesRegistry(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	counter := promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "automod_test_total",
		Help: "Test counter.",
	})
	counter.Add(3)

	server, err := startMetricsServer("127.0.0.1:0", registry, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { server.shutdown(context.Background()) })

	addr := server.addr

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+addr+"/metrics", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "automod_test_total 3")
}
