package repository

import (
	"context"

	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
)

// SaleRepository puerto de persistencia para ventas (cabecera, líneas y pagos).
type SaleRepository interface {
	// Create guarda la venta completa; dentro de una transacción todo o nada.
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, companyID, id string) (*entity.Sale, error)
	ListByBranch(ctx context.Context, companyID, branchID string, limit, offset int) ([]*entity.Sale, error)
}
