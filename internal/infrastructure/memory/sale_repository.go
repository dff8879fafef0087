package memory

import (
	"context"
	"sort"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
)

// SaleRepo implementa repository.SaleRepository.
type SaleRepo struct {
	s *Store
	t *tx
}

var _ repository.SaleRepository = (*SaleRepo)(nil)

// Create deja la venta pendiente hasta el commit de la transacción.
func (r *SaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	if sale == nil || sale.ID == "" {
		return domain.ErrInvalidInput
	}
	return r.s.run(ctx, r.t, func(t *tx) error {
		for _, pending := range t.sales {
			if pending.ID == sale.ID || keyOfSale(pending) == keyOfSale(sale) {
				return domain.ErrConflict
			}
		}
		t.sales = append(t.sales, cloneSale(sale))
		return nil
	})
}

// GetByID nil, nil si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Sale, error) {
	if r.t != nil {
		for _, pending := range r.t.sales {
			if pending.ID == id && pending.CompanyID == companyID {
				return cloneSale(pending), nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sale, ok := r.s.sales[id]
	if !ok || sale.CompanyID != companyID {
		return nil, nil
	}
	return cloneSale(sale), nil
}

// ListByBranch ventas confirmadas de la sucursal, más recientes primero, sin líneas ni pagos.
func (r *SaleRepo) ListByBranch(ctx context.Context, companyID, branchID string, limit, offset int) ([]*entity.Sale, error) {
	r.s.mu.RLock()
	var list []*entity.Sale
	for _, sale := range r.s.sales {
		if sale.CompanyID == companyID && (branchID == "" || sale.BranchID == branchID) {
			header := *sale
			header.Lines = nil
			header.Payments = nil
			list = append(list, &header)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].Number > list[j].Number
	})
	if offset >= len(list) {
		return []*entity.Sale{}, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func cloneSale(s *entity.Sale) *entity.Sale {
	cp := *s
	cp.Lines = append([]entity.SaleLine(nil), s.Lines...)
	cp.Payments = make([]entity.SalePayment, len(s.Payments))
	for i, p := range s.Payments {
		p.Received = copyInt64(p.Received)
		p.Change = copyInt64(p.Change)
		cp.Payments[i] = p
	}
	if s.Customer != nil {
		c := *s.Customer
		cp.Customer = &c
	}
	if s.AuthorizedAt != nil {
		at := *s.AuthorizedAt
		cp.AuthorizedAt = &at
	}
	return &cp
}
