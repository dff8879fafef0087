package domain

import "errors"

// Errores genéricos (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores de configuración de serialización: problema del operador, nunca se reintentan.
var (
	ErrNoDefaultSeriesConfigured = errors.New("no hay serie por defecto configurada para la sucursal y tipo de comprobante")
	ErrInvalidRange              = errors.New("rango de serialización inválido")
	ErrRangeNotFound             = errors.New("rango de serialización no encontrado")
	ErrDuplicateSeries           = errors.New("la serie ya existe para la sucursal y tipo de comprobante")
)

// ErrSeriesExhausted el rango llegó a su número final; terminal hasta que se configure otro.
var ErrSeriesExhausted = errors.New("serie agotada")

// Errores de validación del carrito y pagos: se rechazan antes de asignar número.
var (
	ErrEmptyCart                            = errors.New("el carrito está vacío")
	ErrInvalidCartLine                      = errors.New("línea de carrito inválida")
	ErrInvalidDiscount                      = errors.New("descuento inválido")
	ErrDiscountExceedsTotal                 = errors.New("el descuento iguala o supera el total")
	ErrAuthorizationRequired                = errors.New("el descuento requiere autorización de un supervisor")
	ErrAuthorizationDenied                  = errors.New("autorización denegada")
	ErrInvalidPayment                       = errors.New("pago inválido")
	ErrInsufficientCashReceived             = errors.New("efectivo recibido insuficiente")
	ErrOverpaymentNotAllowedExceptFinalCash = errors.New("sobrepago no permitido salvo en el último pago en efectivo")
	ErrPaymentsDoNotCoverTotal              = errors.New("los pagos no cubren el total de la venta")
)

// ErrPersistenceFailed la venta no pudo guardarse después de asignar número.
var ErrPersistenceFailed = errors.New("no se pudo registrar la venta")

// Kind clasifica un error para que la capa llamadora decida sin comparar mensajes.
type Kind int

const (
	KindInternal Kind = iota
	KindConfiguration
	KindExhaustion
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindExhaustion:
		return "exhaustion"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNoDefaultSeriesConfigured, KindConfiguration},
	{ErrInvalidRange, KindConfiguration},
	{ErrRangeNotFound, KindConfiguration},
	{ErrDuplicateSeries, KindConflict},
	{ErrSeriesExhausted, KindExhaustion},
	{ErrEmptyCart, KindValidation},
	{ErrInvalidCartLine, KindValidation},
	{ErrInvalidDiscount, KindValidation},
	{ErrDiscountExceedsTotal, KindValidation},
	{ErrAuthorizationRequired, KindValidation},
	{ErrAuthorizationDenied, KindValidation},
	{ErrInvalidPayment, KindValidation},
	{ErrInsufficientCashReceived, KindValidation},
	{ErrOverpaymentNotAllowedExceptFinalCash, KindValidation},
	{ErrPaymentsDoNotCoverTotal, KindValidation},
	{ErrInvalidInput, KindValidation},
	{ErrUnauthorized, KindAuthorization},
	{ErrForbidden, KindAuthorization},
	{ErrNotFound, KindNotFound},
	{ErrConflict, KindConflict},
}

// KindOf devuelve la clase del error (KindInternal si no es un error de dominio).
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsRetryable indica si reintentar con la misma entrada puede tener éxito.
// Solo los fallos internos (infraestructura) lo son; validación requiere corregir la entrada
// y configuración/agotamiento requieren intervención del operador.
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == KindInternal
}
