// Package metrics expone las métricas del cierre de ventas en Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NotSleepp/possbien-sub001/internal/application/ports"
)

var _ ports.SalesMetrics = (*SalesMetrics)(nil)

// SalesMetrics implementa ports.SalesMetrics.
type SalesMetrics struct {
	allocated   *prometheus.CounterVec
	exhausted   *prometheus.CounterVec
	orphaned    *prometheus.CounterVec
	salesClosed *prometheus.CounterVec
	closeTime   *prometheus.HistogramVec
}

// NewSalesMetrics registra los colectores en registerer (DefaultRegisterer si es nil).
func NewSalesMetrics(registerer prometheus.Registerer, app string) *SalesMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if app == "" {
		app = "possbien"
	}
	constLabels := prometheus.Labels{"app": app}

	m := &SalesMetrics{
		allocated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_document_numbers_allocated_total",
			Help:        "Números de comprobante asignados por serie (incluye los revertidos).",
			ConstLabels: constLabels,
		}, []string{"serie"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_series_exhausted_total",
			Help:        "Intentos de asignación sobre una serie agotada.",
			ConstLabels: constLabels,
		}, []string{"serie"}),
		orphaned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_orphaned_numbers_total",
			Help:        "Commits de venta fallidos que pudieron dejar un número consumido sin venta.",
			ConstLabels: constLabels,
		}, []string{"serie"}),
		salesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "pos_sales_closed_total",
			Help:        "Cierres de venta por resultado.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		closeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "pos_close_sale_duration_seconds",
			Help:        "Duración del cierre de venta.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"outcome"}),
	}
	registerer.MustRegister(m.allocated, m.exhausted, m.orphaned, m.salesClosed, m.closeTime)
	return m
}

func (m *SalesMetrics) NumberAllocated(series string) {
	m.allocated.WithLabelValues(series).Inc()
}

func (m *SalesMetrics) SeriesExhausted(series string) {
	m.exhausted.WithLabelValues(series).Inc()
}

func (m *SalesMetrics) OrphanedNumber(series string) {
	m.orphaned.WithLabelValues(series).Inc()
}

func (m *SalesMetrics) SaleClosed(outcome string, elapsed time.Duration) {
	m.salesClosed.WithLabelValues(outcome).Inc()
	m.closeTime.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
