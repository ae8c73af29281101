// Package metrics exposes report generation metrics for Prometheus scraping
package metrics

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

const namespace = "audit_reporter"

// Metrics holds the service's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	reportsTotal      *prometheus.CounterVec
	imagesTotal       *prometheus.CounterVec
	generationSeconds *prometheus.HistogramVec
	artifactsStored   prometheus.GaugeFunc
}

// New creates and registers all collectors. artifactCount, when non-nil,
// backs the stored artifacts gauge.
func New(artifactCount func() float64) (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Total number of report generations",
		},
		[]string{"generator", "status"},
	)
	m.imagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_images_total",
			Help:      "Evidence images processed, by outcome",
		},
		[]string{"generator", "outcome"},
	)
	m.generationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time taken to generate a report",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"generator"},
	)

	collectorsToRegister := []prometheus.Collector{
		m.reportsTotal,
		m.imagesTotal,
		m.generationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	if artifactCount != nil {
		m.artifactsStored = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "artifacts_stored",
				Help:      "Generated reports waiting for deferred download",
			},
			artifactCount,
		)
		collectorsToRegister = append(collectorsToRegister, m.artifactsStored)
	}

	for _, c := range collectorsToRegister {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return m, nil
}

// Record implements the activity recorder interface
func (m *Metrics) Record(_ context.Context, rec *models.GenerationRecord) error {
	generator := string(rec.Generator)
	m.reportsTotal.WithLabelValues(generator, string(rec.Status)).Inc()
	m.imagesTotal.WithLabelValues(generator, "placed").Add(float64(rec.ImagesPlaced))
	m.imagesTotal.WithLabelValues(generator, "skipped").Add(float64(rec.ImagesSkipped))
	m.generationSeconds.WithLabelValues(generator).Observe(rec.Duration.Seconds())
	return nil
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
