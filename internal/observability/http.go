package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

// Registry is the collector registry scraped by MetricsHandler. It carries the
// evaluation collectors plus the Go runtime and process collectors.
func Registry() *prometheus.Registry {
	RegisterMetrics()
	return registry
}

// MetricsHandler serves the evaluation registry in the Prometheus text format.
func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{
		Registry:          registry,
		EnableOpenMetrics: true,
	}))
}

func runtimeCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "evaluation_api"}),
	}
}
