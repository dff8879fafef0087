package ports

import "time"

// SalesMetrics puerto de salida para métricas del cierre de ventas.
// El adaptador Prometheus vive en infrastructure/metrics; en tests se usa NopMetrics.
type SalesMetrics interface {
	// NumberAllocated cuenta un número de comprobante asignado (aunque luego se revierta).
	NumberAllocated(series string)
	SeriesExhausted(series string)
	// SaleClosed registra el resultado del cierre; outcome es "ok" o la clase del error.
	SaleClosed(outcome string, elapsed time.Duration)
	// OrphanedNumber cuenta números que pudieron quedar consumidos sin venta asociada.
	OrphanedNumber(series string)
}

// NopMetrics implementación vacía.
type NopMetrics struct{}

func (NopMetrics) NumberAllocated(string)           {}
func (NopMetrics) SeriesExhausted(string)           {}
func (NopMetrics) SaleClosed(string, time.Duration) {}
func (NopMetrics) OrphanedNumber(string)            {}
