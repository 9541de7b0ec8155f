package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
	stimmetrics "github.com/stimkit/stimkit/pkg/stimkit/v1/metrics"
)

// PrometheusRegistryProvider owns a private Prometheus registry so that
// several factories in one process never collide on the default registry.
type PrometheusRegistryProvider struct {
	registry *prometheus.Registry
}

// NewPrometheusRegistryProvider creates an empty registry.
func NewPrometheusRegistryProvider() *PrometheusRegistryProvider {
	return &PrometheusRegistryProvider{registry: prometheus.NewRegistry()}
}

// NewProcessRegistryProvider creates a registry that also exports the Go
// runtime and process collectors, as the CLI does.
func NewProcessRegistryProvider() *PrometheusRegistryProvider {
	p := NewPrometheusRegistryProvider()
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *PrometheusRegistryProvider) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRegistryProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// RegisterOrReuse registers c on reg. If an identical collector is already
// registered, that one is returned instead so several components can share
// one registry.
func RegisterOrReuse[T prometheus.Collector](reg prometheus.Registerer, log stimlog.Logger, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(T); ok {
			log.Debugf("Metric collector already registered, reusing it.")
			return existing
		}
	}
	log.Warnf("Failed to register metric collector: %v", err)
	return c
}

var _ stimmetrics.RegistryProvider = (*PrometheusRegistryProvider)(nil)
