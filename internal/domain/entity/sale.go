package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod medio de pago.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "EFECTIVO"
	PaymentCard     PaymentMethod = "TARJETA"
	PaymentTransfer PaymentMethod = "TRANSFERENCIA"
)

// Valid indica si el medio de pago es soportado.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Payment pago entregado por el cliente. Received y Change solo aplican a efectivo.
type Payment struct {
	Method    PaymentMethod
	Amount    int64 // monto aplicado a la venta
	Received  int64 // efectivo recibido
	Change    int64 // vuelto
	Reference string
}

// SaleStatusCompleted único estado persistido: los borradores viven en el cliente.
const SaleStatusCompleted = "COMPLETADA"

// Sale comprobante de venta finalizado. Inmutable una vez creado.
type Sale struct {
	ID             string
	CompanyID      string
	BranchID       string
	DocumentTypeID string
	Series         string
	Number         int64
	CashierID      string
	Customer       *CustomerInfo
	Lines          []SaleLine
	Payments       []SalePayment
	GrossSubtotal  int64 // antes de descuentos por línea
	Subtotal       int64
	DiscountAmount int64
	TaxRate        decimal.Decimal
	TaxAmount      int64
	Total          int64
	Change         int64
	DiscountReason string
	AuthorizedBy   string // vacío si no requirió autorización
	AuthorizedAt   *time.Time
	Status         string
	CreatedAt      time.Time
}

// SaleLine copia de la línea del carrito al momento del cierre.
type SaleLine struct {
	ID             string
	SaleID         string
	Position       int
	ProductID      string
	Description    string
	UnitPrice      int64
	Quantity       int64
	DiscountAmount int64
	LineTotal      int64
}

// SalePayment desglose de pagos de la venta.
type SalePayment struct {
	ID        string
	SaleID    string
	Position  int
	Method    PaymentMethod
	Amount    int64
	Received  *int64 // solo efectivo
	Change    *int64 // solo efectivo
	Reference string
}
