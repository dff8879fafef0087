// Package sales orquesta el cierre de una venta: precios, autorización de descuentos,
// conciliación de pagos, asignación de número y persistencia en una sola transacción.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NotSleepp/possbien-sub001/internal/application/ports"
	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/payment"
	"github.com/NotSleepp/possbien-sub001/internal/domain/pricing"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
	"github.com/NotSleepp/possbien-sub001/pkg/logger"
)

// CloseSaleInput datos del cierre. Series vacío usa la serie por defecto.
// Discount nil usa Cart.Discount. Supervisor y AuthCode solo se exigen si el descuento
// supera el máximo sin autorización.
type CloseSaleInput struct {
	CompanyID      string
	CashierID      string
	BranchID       string
	DocumentTypeID string
	Series         string
	Cart           entity.Cart
	Discount       *entity.Discount
	Supervisor     string
	AuthCode       string
	Payments       []entity.Payment
}

// SaleFinalizer caso de uso de cierre de venta.
type SaleFinalizer struct {
	txRunner   SalesTxRunner
	allocator  NumberAllocator
	pricing    *pricing.Engine
	authorizer *DiscountAuthorizer
	saleRepo   repository.SaleRepository
	metrics    ports.SalesMetrics
	log        *logger.Logger
	currency   string
	now        func() time.Time
}

// NewSaleFinalizer construye el caso de uso. saleRepo (ligado al pool) atiende las consultas.
func NewSaleFinalizer(
	txRunner SalesTxRunner,
	allocator NumberAllocator,
	engine *pricing.Engine,
	authorizer *DiscountAuthorizer,
	saleRepo repository.SaleRepository,
	metrics ports.SalesMetrics,
	log *logger.Logger,
	currency string,
) *SaleFinalizer {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SaleFinalizer{
		txRunner:   txRunner,
		allocator:  allocator,
		pricing:    engine,
		authorizer: authorizer,
		saleRepo:   saleRepo,
		metrics:    metrics,
		log:        log.Component("sales"),
		currency:   currency,
		now:        time.Now,
	}
}

// CloseSale valida, asigna número y guarda la venta. Toda validación ocurre antes de tocar
// el rango: un carrito o pago inválido nunca consume número.
func (f *SaleFinalizer) CloseSale(ctx context.Context, in CloseSaleInput) (*entity.Sale, error) {
	start := time.Now()
	sale, err := f.closeSale(ctx, in)
	outcome := "ok"
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	f.metrics.SaleClosed(outcome, time.Since(start))
	return sale, err
}

func (f *SaleFinalizer) closeSale(ctx context.Context, in CloseSaleInput) (*entity.Sale, error) {
	if in.CompanyID == "" || in.CashierID == "" || in.BranchID == "" || in.DocumentTypeID == "" {
		return nil, fmt.Errorf("%w: empresa, cajero, sucursal y tipo de comprobante son obligatorios", domain.ErrInvalidInput)
	}

	discount := in.Discount
	if discount == nil {
		discount = in.Cart.Discount
	}
	priced, err := f.pricing.Compute(in.Cart, discount)
	if err != nil {
		return nil, err
	}

	var auth *Authorization
	if priced.HasDiscount() && f.authorizer.Requires(priced.TotalDiscountPercent()) {
		if in.Supervisor == "" && in.AuthCode == "" {
			return nil, fmt.Errorf("%w: descuento de %s%% supera el máximo de %s%%",
				domain.ErrAuthorizationRequired, priced.TotalDiscountPercent(), f.authorizer.MaxUnauthorized())
		}
		a, err := f.authorizer.Authorize(ctx, in.CompanyID, in.Supervisor, in.AuthCode)
		if err != nil {
			f.log.Warn().
				Err(err).
				Str("cashier_id", in.CashierID).
				Str("supervisor", in.Supervisor).
				Str("descuento_pct", priced.TotalDiscountPercent().String()).
				Msg("autorización de descuento rechazada")
			return nil, err
		}
		auth = &a
	}

	reconciled, err := payment.Reconcile(priced.Total, in.Payments)
	if err != nil {
		return nil, err
	}

	sale := buildSale(in, discount, priced, reconciled, auth, f.now().UTC())
	key := repository.RangeKey{CompanyID: in.CompanyID, BranchID: in.BranchID, DocumentTypeID: in.DocumentTypeID}

	var alloc *entity.Allocation
	stored := false
	err = f.txRunner.RunSale(ctx, func(rangeRepo repository.SerializationRangeRepository, saleRepo repository.SaleRepository) error {
		a, err := f.allocator.AllocateNextWith(ctx, rangeRepo, key, in.Series)
		if err != nil {
			return err
		}
		alloc = &a
		sale.Series = a.Series
		sale.Number = a.Number
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := saleRepo.Create(ctx, sale); err != nil {
			return err
		}
		stored = true
		return nil
	})
	if err != nil {
		return nil, f.failure(in, alloc, stored, err)
	}

	f.log.Info().
		Str("sale_id", sale.ID).
		Str("branch_id", sale.BranchID).
		Str("comprobante", entity.Allocation{Series: sale.Series, Number: sale.Number}.DocumentNumber()).
		Int64("total", sale.Total).
		Str("autorizado_por", sale.AuthorizedBy).
		Msg("venta cerrada")
	return sale, nil
}

// failure clasifica el error de la transacción. Sin número asignado se devuelve tal cual
// (errores de serie o de infraestructura). Con número asignado la venta no quedó registrada:
// ErrPersistenceFailed. Si el fallo fue en el commit el número pudo quedar consumido.
func (f *SaleFinalizer) failure(in CloseSaleInput, alloc *entity.Allocation, stored bool, err error) error {
	if alloc == nil {
		if domain.KindOf(err) == domain.KindInternal && !errors.Is(err, domain.ErrPersistenceFailed) {
			return fmt.Errorf("asignar número: %w", err)
		}
		return err
	}
	if stored {
		f.metrics.OrphanedNumber(alloc.Series)
		f.log.Error().
			Err(err).
			Str("branch_id", in.BranchID).
			Str("serie", alloc.Series).
			Int64("numero", alloc.Number).
			Msg("commit de la venta fallido, el número pudo quedar consumido sin venta")
	} else {
		f.log.Warn().
			Err(err).
			Str("branch_id", in.BranchID).
			Str("serie", alloc.Series).
			Int64("numero", alloc.Number).
			Msg("venta revertida, el número asignado se libera con el rollback")
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err)
}

func buildSale(in CloseSaleInput, discount *entity.Discount, priced pricing.Result, reconciled payment.Result, auth *Authorization, now time.Time) *entity.Sale {
	saleID := uuid.New().String()
	sale := &entity.Sale{
		ID:             saleID,
		CompanyID:      in.CompanyID,
		BranchID:       in.BranchID,
		DocumentTypeID: in.DocumentTypeID,
		CashierID:      in.CashierID,
		Customer:       in.Cart.Customer,
		Lines:          make([]entity.SaleLine, len(in.Cart.Lines)),
		Payments:       make([]entity.SalePayment, len(reconciled.Payments)),
		GrossSubtotal:  priced.GrossSubtotal,
		Subtotal:       priced.Subtotal,
		DiscountAmount: priced.DiscountAmount,
		TaxRate:        priced.TaxRate,
		TaxAmount:      priced.TaxAmount,
		Total:          priced.Total,
		Change:         reconciled.Change,
		Status:         entity.SaleStatusCompleted,
		CreatedAt:      now,
	}
	if !discount.IsZero() {
		sale.DiscountReason = discount.Reason
	}
	if auth != nil {
		at := auth.AuthorizedAt
		sale.AuthorizedBy = auth.AuthorizedBy
		sale.AuthorizedAt = &at
	}
	for i, l := range in.Cart.Lines {
		lr := priced.Lines[i]
		sale.Lines[i] = entity.SaleLine{
			ID:             uuid.New().String(),
			SaleID:         saleID,
			Position:       i + 1,
			ProductID:      l.ProductID,
			Description:    l.Description,
			UnitPrice:      l.UnitPrice,
			Quantity:       l.Quantity,
			DiscountAmount: lr.DiscountAmount,
			LineTotal:      lr.Total,
		}
	}
	for i, p := range reconciled.Payments {
		sp := entity.SalePayment{
			ID:        uuid.New().String(),
			SaleID:    saleID,
			Position:  i + 1,
			Method:    p.Method,
			Amount:    p.Amount,
			Reference: p.Reference,
		}
		if p.Method == entity.PaymentCash {
			received, change := p.Received, p.Change
			sp.Received = &received
			sp.Change = &change
		}
		sale.Payments[i] = sp
	}
	return sale
}
