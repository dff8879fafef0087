package entity

import "github.com/shopspring/decimal"

// DiscountKind tipo de descuento.
type DiscountKind string

const (
	DiscountPercentage  DiscountKind = "PORCENTAJE"
	DiscountFixedAmount DiscountKind = "MONTO_FIJO"
)

// Discount descuento solicitado por el cajero (por línea o sobre el carrito).
// Value es porcentaje (0-100, admite decimales) o monto fijo en unidades mínimas según Kind.
type Discount struct {
	Kind   DiscountKind
	Value  decimal.Decimal
	Reason string
}

// IsZero un descuento nil o con valor 0 se trata como ausente.
func (d *Discount) IsZero() bool {
	return d == nil || d.Value.IsZero()
}

// CartLine línea del carrito. UnitPrice en unidades mínimas (centavos).
type CartLine struct {
	ProductID   string
	Description string
	UnitPrice   int64
	Quantity    int64
	Discount    *Discount
}

// CustomerInfo datos del cliente informados por el frontend (no autoritativos).
type CustomerInfo struct {
	DocumentNumber string
	Name           string
	Email          string
}

// Cart carrito enviado al cierre de venta. Es un valor inmutable para el finalizador.
type Cart struct {
	Lines    []CartLine
	Discount *Discount
	Customer *CustomerInfo
}
