package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountRequest descuento pedido por el cajero. Tipo: PORCENTAJE | MONTO_FIJO.
// Valor en porcentaje (0-100) o en unidades mínimas de moneda.
type DiscountRequest struct {
	Kind   string          `json:"tipo" validate:"required,oneof=PORCENTAJE MONTO_FIJO"`
	Value  decimal.Decimal `json:"valor"`
	Reason string          `json:"motivo"`
}

// AuthorizationRequest credenciales del supervisor que aprueba el descuento.
type AuthorizationRequest struct {
	Supervisor string `json:"supervisor" validate:"required"`
	Code       string `json:"codigo" validate:"required"`
}

// SaleLineRequest línea del carrito.
type SaleLineRequest struct {
	ProductID   string           `json:"idProducto" validate:"required"`
	Description string           `json:"descripcion"`
	UnitPrice   int64            `json:"precioUnitario" validate:"min=0"`
	Quantity    int64            `json:"cantidad" validate:"min=1"`
	Discount    *DiscountRequest `json:"descuento,omitempty"`
}

// PaymentRequest pago entregado. En efectivo Recibido es lo que entregó el cliente
// y Monto es opcional.
type PaymentRequest struct {
	Method    string `json:"metodo" validate:"required,oneof=EFECTIVO TARJETA TRANSFERENCIA"`
	Amount    int64  `json:"monto"`
	Received  int64  `json:"recibido"`
	Reference string `json:"referencia"`
}

// CustomerRequest datos opcionales del cliente.
type CustomerRequest struct {
	DocumentNumber string `json:"documento"`
	Name           string `json:"nombre"`
	Email          string `json:"email"`
}

// CloseSaleRequest entrada de POST /api/ventas. Serie vacía usa la serie por defecto.
type CloseSaleRequest struct {
	BranchID       string                `json:"idSucursal" validate:"required"`
	DocumentTypeID string                `json:"idTipoComprobante" validate:"required"`
	Series         string                `json:"serie,omitempty"`
	Lines          []SaleLineRequest     `json:"lineas" validate:"required,min=1,dive"`
	Discount       *DiscountRequest      `json:"descuento,omitempty"`
	Authorization  *AuthorizationRequest `json:"autorizacion,omitempty"`
	Payments       []PaymentRequest      `json:"pagos" validate:"required,min=1,dive"`
	Customer       *CustomerRequest      `json:"cliente,omitempty"`
}

// SaleLineResponse línea registrada.
type SaleLineResponse struct {
	Position       int    `json:"posicion"`
	ProductID      string `json:"idProducto"`
	Description    string `json:"descripcion"`
	UnitPrice      int64  `json:"precioUnitario"`
	Quantity       int64  `json:"cantidad"`
	DiscountAmount int64  `json:"descuento"`
	LineTotal      int64  `json:"total"`
}

// SalePaymentResponse pago conciliado.
type SalePaymentResponse struct {
	Position  int    `json:"posicion"`
	Method    string `json:"metodo"`
	Amount    int64  `json:"monto"`
	Received  *int64 `json:"recibido,omitempty"`
	Change    *int64 `json:"vuelto,omitempty"`
	Reference string `json:"referencia,omitempty"`
}

// SaleResponse venta cerrada.
type SaleResponse struct {
	ID             string                `json:"id"`
	BranchID       string                `json:"idSucursal"`
	DocumentTypeID string                `json:"idTipoComprobante"`
	Series         string                `json:"serie"`
	Number         int64                 `json:"numeroActual"`
	DocumentNumber string                `json:"numeroComprobante"`
	CashierID      string                `json:"idCajero"`
	Customer       *CustomerRequest      `json:"cliente,omitempty"`
	Lines          []SaleLineResponse    `json:"lineas,omitempty"`
	Payments       []SalePaymentResponse `json:"pagos,omitempty"`
	GrossSubtotal  int64                 `json:"subtotalBruto"`
	Subtotal       int64                 `json:"subtotal"`
	DiscountAmount int64                 `json:"descuento"`
	DiscountReason string                `json:"motivoDescuento,omitempty"`
	TaxRate        decimal.Decimal       `json:"tasaImpuesto"`
	TaxAmount      int64                 `json:"impuesto"`
	Total          int64                 `json:"total"`
	Change         int64                 `json:"vuelto"`
	Currency       string                `json:"moneda"`
	AuthorizedBy   string                `json:"autorizadoPor,omitempty"`
	AuthorizedAt   *time.Time            `json:"fechaAutorizacion,omitempty"`
	Status         string                `json:"estado"`
	CreatedAt      time.Time             `json:"fechaCreacion"`
}

// SaleListResponse listado paginado (sin líneas ni pagos).
type SaleListResponse struct {
	Items []SaleResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}
