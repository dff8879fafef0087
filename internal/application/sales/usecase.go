package sales

import (
	"context"
	"strings"

	"github.com/NotSleepp/possbien-sub001/internal/application/dto"
	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
)

// Close adapta la petición HTTP al cierre de venta.
func (f *SaleFinalizer) Close(ctx context.Context, companyID, cashierID string, in dto.CloseSaleRequest) (*dto.SaleResponse, error) {
	input := CloseSaleInput{
		CompanyID:      companyID,
		CashierID:      cashierID,
		BranchID:       in.BranchID,
		DocumentTypeID: in.DocumentTypeID,
		Series:         in.Series,
		Cart:           entity.Cart{Lines: make([]entity.CartLine, len(in.Lines))},
		Discount:       toDiscount(in.Discount),
		Payments:       make([]entity.Payment, len(in.Payments)),
	}
	if in.Authorization != nil {
		input.Supervisor = in.Authorization.Supervisor
		input.AuthCode = in.Authorization.Code
	}
	if in.Customer != nil {
		input.Cart.Customer = &entity.CustomerInfo{
			DocumentNumber: in.Customer.DocumentNumber,
			Name:           in.Customer.Name,
			Email:          in.Customer.Email,
		}
	}
	for i, l := range in.Lines {
		input.Cart.Lines[i] = entity.CartLine{
			ProductID:   l.ProductID,
			Description: l.Description,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Discount:    toDiscount(l.Discount),
		}
	}
	for i, p := range in.Payments {
		input.Payments[i] = entity.Payment{
			Method:    entity.PaymentMethod(strings.ToUpper(strings.TrimSpace(p.Method))),
			Amount:    p.Amount,
			Received:  p.Received,
			Reference: p.Reference,
		}
	}

	sale, err := f.CloseSale(ctx, input)
	if err != nil {
		return nil, err
	}
	return f.toSaleResponse(sale), nil
}

// GetSale obtiene una venta con líneas y pagos.
func (f *SaleFinalizer) GetSale(ctx context.Context, companyID, id string) (*dto.SaleResponse, error) {
	sale, err := f.saleRepo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	return f.toSaleResponse(sale), nil
}

// ListSales ventas de una sucursal, más recientes primero.
func (f *SaleFinalizer) ListSales(ctx context.Context, companyID, branchID string, page dto.PageRequest) (*dto.SaleListResponse, error) {
	page.DefaultPage()
	list, err := f.saleRepo.ListByBranch(ctx, companyID, branchID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := &dto.SaleListResponse{
		Items: make([]dto.SaleResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, s := range list {
		out.Items = append(out.Items, *f.toSaleResponse(s))
	}
	return out, nil
}

func toDiscount(in *dto.DiscountRequest) *entity.Discount {
	if in == nil {
		return nil
	}
	return &entity.Discount{
		Kind:   entity.DiscountKind(strings.ToUpper(strings.TrimSpace(in.Kind))),
		Value:  in.Value,
		Reason: in.Reason,
	}
}

func (f *SaleFinalizer) toSaleResponse(s *entity.Sale) *dto.SaleResponse {
	out := &dto.SaleResponse{
		ID:             s.ID,
		BranchID:       s.BranchID,
		DocumentTypeID: s.DocumentTypeID,
		Series:         s.Series,
		Number:         s.Number,
		DocumentNumber: entity.Allocation{Series: s.Series, Number: s.Number}.DocumentNumber(),
		CashierID:      s.CashierID,
		GrossSubtotal:  s.GrossSubtotal,
		Subtotal:       s.Subtotal,
		DiscountAmount: s.DiscountAmount,
		DiscountReason: s.DiscountReason,
		TaxRate:        s.TaxRate,
		TaxAmount:      s.TaxAmount,
		Total:          s.Total,
		Change:         s.Change,
		Currency:       f.currency,
		AuthorizedBy:   s.AuthorizedBy,
		AuthorizedAt:   s.AuthorizedAt,
		Status:         s.Status,
		CreatedAt:      s.CreatedAt,
	}
	if s.Customer != nil {
		out.Customer = &dto.CustomerRequest{
			DocumentNumber: s.Customer.DocumentNumber,
			Name:           s.Customer.Name,
			Email:          s.Customer.Email,
		}
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, dto.SaleLineResponse{
			Position:       l.Position,
			ProductID:      l.ProductID,
			Description:    l.Description,
			UnitPrice:      l.UnitPrice,
			Quantity:       l.Quantity,
			DiscountAmount: l.DiscountAmount,
			LineTotal:      l.LineTotal,
		})
	}
	for _, p := range s.Payments {
		out.Payments = append(out.Payments, dto.SalePaymentResponse{
			Position:  p.Position,
			Method:    string(p.Method),
			Amount:    p.Amount,
			Received:  p.Received,
			Change:    p.Change,
			Reference: p.Reference,
		})
	}
	return out
}
