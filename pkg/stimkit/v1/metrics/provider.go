package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider gives access to the registry holding the painter's
// collectors, so a host can expose them however it likes.
type RegistryProvider interface {
	// Registry returns the Prometheus registry containing stimkit metrics.
	Registry() *prometheus.Registry
}
