package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// SerializationRange rango de numeración de comprobantes por sucursal, tipo de comprobante y serie.
// CurrentNumber (numero_actual) es el próximo número a emitir y solo lo modifica la asignación.
// EndNumber nil = rango sin límite.
type SerializationRange struct {
	ID             string
	CompanyID      string
	BranchID       string
	DocumentTypeID string
	Series         string // ej: "B001"
	StartNumber    int64
	CurrentNumber  int64
	EndNumber      *int64
	IsDefault      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MaxSeriesLength longitud máxima del código de serie.
const MaxSeriesLength = 10

var seriesPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// NormalizeSeries limpia espacios y pasa a mayúsculas.
func NormalizeSeries(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Validate comprueba las invariantes del rango. El error describe la regla violada;
// el llamador lo envuelve con domain.ErrInvalidRange.
func (r *SerializationRange) Validate() error {
	if r.BranchID == "" || r.DocumentTypeID == "" {
		return fmt.Errorf("sucursal y tipo de comprobante son obligatorios")
	}
	if r.Series == "" || len(r.Series) > MaxSeriesLength || !seriesPattern.MatchString(r.Series) {
		return fmt.Errorf("serie %q inválida: alfanumérica de 1 a %d caracteres", r.Series, MaxSeriesLength)
	}
	if r.StartNumber < 0 {
		return fmt.Errorf("numero inicial negativo: %d", r.StartNumber)
	}
	if r.CurrentNumber < r.StartNumber {
		return fmt.Errorf("numero actual %d menor que numero inicial %d", r.CurrentNumber, r.StartNumber)
	}
	if r.EndNumber != nil && r.CurrentNumber > *r.EndNumber {
		return fmt.Errorf("numero actual %d mayor que numero final %d", r.CurrentNumber, *r.EndNumber)
	}
	return nil
}

// Exhausted indica si el rango ya no puede emitir números.
func (r *SerializationRange) Exhausted() bool {
	return r.EndNumber != nil && r.CurrentNumber >= *r.EndNumber
}

// Remaining números que aún pueden asignarse; nil si el rango no tiene límite.
func (r *SerializationRange) Remaining() *int64 {
	if r.EndNumber == nil {
		return nil
	}
	n := *r.EndNumber - r.CurrentNumber
	if n < 0 {
		n = 0
	}
	return &n
}

// Allocation resultado de asignar un número de comprobante.
type Allocation struct {
	RangeID string
	Series  string
	Number  int64
}

// DocumentNumber formato legible serie-número (ej: B001-00000042).
func (a Allocation) DocumentNumber() string {
	return fmt.Sprintf("%s-%08d", a.Series, a.Number)
}
