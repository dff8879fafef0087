// Package pricing calcula subtotal, descuentos, impuesto y total de un carrito.
// Es un servicio de dominio puro: sin I/O y determinista para las mismas entradas.
package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
)

// DefaultTaxRate IVA general (19%).
var DefaultTaxRate = decimal.RequireFromString("0.19")

var (
	hundred  = decimal.NewFromInt(100)
	maxMoney = decimal.NewFromInt(math.MaxInt64)
)

// LineResult montos calculados para una línea.
type LineResult struct {
	Gross          int64 // precio unitario × cantidad
	DiscountAmount int64
	Total          int64
}

// Result desglose del carrito. Todos los montos en unidades mínimas.
// Subtotal - DiscountAmount + TaxAmount == Total siempre se cumple.
type Result struct {
	Lines             []LineResult
	GrossSubtotal     int64
	LineDiscountTotal int64
	Subtotal          int64 // suma de líneas ya descontadas
	DiscountAmount    int64 // descuento sobre el carrito, redondeado half-up para mostrar y guardar
	DiscountPercent   decimal.Decimal
	TaxRate           decimal.Decimal
	TaxAmount         int64
	Total             int64

	cartDiscount decimal.Decimal // descuento del carrito sin redondear
}

// TotalDiscountPercent porcentaje de todos los descuentos (línea + carrito) sobre el subtotal bruto.
// Es el valor que evalúa el autorizador de descuentos.
func (r Result) TotalDiscountPercent() decimal.Decimal {
	if r.GrossSubtotal == 0 {
		return decimal.Zero
	}
	total := decimal.NewFromInt(r.LineDiscountTotal).Add(r.cartDiscount)
	return total.Mul(hundred).Div(decimal.NewFromInt(r.GrossSubtotal)).Round(4)
}

// HasDiscount indica si se aplicó algún descuento.
func (r Result) HasDiscount() bool {
	return r.LineDiscountTotal > 0 || r.cartDiscount.IsPositive()
}

// Engine motor de precios con la tasa de impuesto configurada.
type Engine struct {
	taxRate decimal.Decimal
}

// NewEngine construye el motor. taxRate es una fracción (0.19 = 19%).
func NewEngine(taxRate decimal.Decimal) *Engine {
	return &Engine{taxRate: taxRate}
}

// TaxRate tasa configurada.
func (e *Engine) TaxRate() decimal.Decimal { return e.taxRate }

// Compute calcula el desglose del carrito. discount es el descuento sobre el carrito;
// si es nil se usa cart.Discount.
//
// Los descuentos por línea se redondean por línea porque el total de cada línea se guarda
// en unidades mínimas. El descuento del carrito se mantiene exacto hasta el total:
// Total = round((Subtotal - descuento) × (1 + tasa)), half-up, un solo redondeo.
// DiscountAmount es el descuento redondeado y TaxAmount cuadra la diferencia.
func (e *Engine) Compute(cart entity.Cart, discount *entity.Discount) (Result, error) {
	if len(cart.Lines) == 0 {
		return Result{}, domain.ErrEmptyCart
	}
	if discount == nil {
		discount = cart.Discount
	}

	res := Result{
		Lines:   make([]LineResult, len(cart.Lines)),
		TaxRate: e.taxRate,
	}
	var gross, subtotal decimal.Decimal
	var lineDiscounts int64
	for i, line := range cart.Lines {
		lr, err := computeLine(line)
		if err != nil {
			return Result{}, fmt.Errorf("línea %d: %w", i+1, err)
		}
		res.Lines[i] = lr
		gross = gross.Add(decimal.NewFromInt(lr.Gross))
		subtotal = subtotal.Add(decimal.NewFromInt(lr.Total))
		lineDiscounts += lr.DiscountAmount
	}
	if gross.GreaterThan(maxMoney) {
		return Result{}, fmt.Errorf("%w: subtotal fuera de rango", domain.ErrInvalidCartLine)
	}
	res.GrossSubtotal = gross.IntPart()
	res.Subtotal = subtotal.IntPart()
	res.LineDiscountTotal = lineDiscounts

	exact, err := discountOver(discount, res.Subtotal)
	if err != nil {
		return Result{}, err
	}
	res.cartDiscount = exact
	res.DiscountAmount = exact.Round(0).IntPart()
	if res.Subtotal > 0 {
		res.DiscountPercent = exact.Mul(hundred).Div(decimal.NewFromInt(res.Subtotal)).Round(4)
	}

	base := decimal.NewFromInt(res.Subtotal).Sub(exact)
	total := base.Mul(decimal.NewFromInt(1).Add(e.taxRate)).Round(0)
	if total.GreaterThan(maxMoney) {
		return Result{}, fmt.Errorf("%w: total fuera de rango", domain.ErrInvalidCartLine)
	}
	res.Total = total.IntPart()
	res.TaxAmount = res.Total - (res.Subtotal - res.DiscountAmount)
	return res, nil
}

func computeLine(line entity.CartLine) (LineResult, error) {
	if line.ProductID == "" {
		return LineResult{}, fmt.Errorf("%w: producto requerido", domain.ErrInvalidCartLine)
	}
	if line.Quantity <= 0 {
		return LineResult{}, fmt.Errorf("%w: cantidad debe ser positiva", domain.ErrInvalidCartLine)
	}
	if line.UnitPrice < 0 {
		return LineResult{}, fmt.Errorf("%w: precio unitario negativo", domain.ErrInvalidCartLine)
	}
	gross := decimal.NewFromInt(line.UnitPrice).Mul(decimal.NewFromInt(line.Quantity))
	if gross.GreaterThan(maxMoney) {
		return LineResult{}, fmt.Errorf("%w: importe fuera de rango", domain.ErrInvalidCartLine)
	}
	g := gross.IntPart()
	exact, err := discountOver(line.Discount, g)
	if err != nil {
		return LineResult{}, err
	}
	amount := exact.Round(0).IntPart()
	return LineResult{Gross: g, DiscountAmount: amount, Total: g - amount}, nil
}

// discountOver convierte el descuento a monto exacto sobre base. Un descuento que iguala o
// supera la base no se recorta: es ErrDiscountExceedsTotal.
func discountOver(d *entity.Discount, base int64) (decimal.Decimal, error) {
	if d.IsZero() {
		return decimal.Zero, nil
	}
	if d.Value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: valor negativo", domain.ErrInvalidDiscount)
	}
	var exact decimal.Decimal
	switch d.Kind {
	case entity.DiscountPercentage:
		exact = decimal.NewFromInt(base).Mul(d.Value).Div(hundred)
	case entity.DiscountFixedAmount:
		if !d.Value.IsInteger() {
			return decimal.Zero, fmt.Errorf("%w: el monto fijo debe expresarse en unidades mínimas", domain.ErrInvalidDiscount)
		}
		exact = d.Value
	default:
		return decimal.Zero, fmt.Errorf("%w: tipo %q", domain.ErrInvalidDiscount, d.Kind)
	}
	if exact.GreaterThanOrEqual(decimal.NewFromInt(base)) {
		return decimal.Zero, domain.ErrDiscountExceedsTotal
	}
	return exact, nil
}
