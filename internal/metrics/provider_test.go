package metrics

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stimkit/stimkit/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_HandlerExposesRegisteredMetrics(t *testing.T) {
	p := NewPrometheusRegistryProvider()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "stimkit_test_total", Help: "test"})
	require.NoError(t, p.Registry().Register(c))
	c.Add(3)

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "stimkit_test_total 3")
}

func TestProcessProvider_IncludesRuntimeCollectors(t *testing.T) {
	p := NewProcessRegistryProvider()
	families, err := p.Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}

func TestProviders_AreIsolated(t *testing.T) {
	a, b := NewPrometheusRegistryProvider(), NewPrometheusRegistryProvider()
	opts := prometheus.CounterOpts{Name: "stimkit_dup_total", Help: "dup"}
	require.NoError(t, a.Registry().Register(prometheus.NewCounter(opts)))
	assert.NoError(t, b.Registry().Register(prometheus.NewCounter(opts)))
}

func TestRegisterOrReuse(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger("debug", "text", &buf)
	reg := prometheus.NewRegistry()
	opts := prometheus.CounterOpts{Name: "stimkit_shared_total", Help: "shared"}

	first := RegisterOrReuse(reg, log, prometheus.NewCounter(opts))
	second := RegisterOrReuse(reg, log, prometheus.NewCounter(opts))
	assert.Same(t, first, second)
	assert.Contains(t, buf.String(), "reusing it")

	second.Inc()
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, 1.0, families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestRegisterOrReuse_ConflictKeepsNewCollector(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger("warn", "text", &buf)
	reg := prometheus.NewRegistry()
	RegisterOrReuse(reg, log, prometheus.NewCounter(prometheus.CounterOpts{Name: "stimkit_conflict_total", Help: "one"}))

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "stimkit_conflict_total", Help: "two"}, []string{"sequence"})
	got := RegisterOrReuse(reg, log, vec)
	assert.Same(t, vec, got)
	assert.Contains(t, buf.String(), "Failed to register metric collector")
}
