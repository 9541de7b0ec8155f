package monitor_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stimkit/stimkit/internal/logger"
	intMetrics "github.com/stimkit/stimkit/internal/metrics"
	"github.com/stimkit/stimkit/internal/monitor"
	"github.com/stimkit/stimkit/internal/suspend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) monitor.Status {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)
	var st monitor.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestRouter_ControlsFlag(t *testing.T) {
	flag := suspend.New()
	progress := func() (string, string) { return "words", "waiting" }
	r := monitor.New(flag, nil, progress, logger.NewDiscardLogger()).Router()

	st := decode(t, do(t, r, http.MethodGet, "/api/status"))
	assert.Equal(t, monitor.Status{Active: true, Sequence: "words", State: "waiting"}, st)

	st = decode(t, do(t, r, http.MethodPost, "/api/suspend"))
	assert.True(t, st.Suspended)
	assert.True(t, flag.Suspended())

	st = decode(t, do(t, r, http.MethodPost, "/api/resume"))
	assert.False(t, st.Suspended)

	st = decode(t, do(t, r, http.MethodPost, "/api/stop"))
	assert.False(t, st.Active)
	assert.False(t, flag.Active())

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodGet, "/api/stop").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/metrics").Code)
}

func TestRouter_ServesMetrics(t *testing.T) {
	provider := intMetrics.NewPrometheusRegistryProvider()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "stimkit_test_total", Help: "test"})
	provider.Registry().MustRegister(c)
	c.Inc()

	r := monitor.New(suspend.New(), provider.Handler(), nil, logger.NewDiscardLogger()).Router()
	rec := do(t, r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stimkit_test_total 1")
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := monitor.New(suspend.New(), nil, nil, logger.NewDiscardLogger())
	require.NoError(t, s.Start("127.0.0.1:0"))
	require.NotEmpty(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/api/status")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `"active":true`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
