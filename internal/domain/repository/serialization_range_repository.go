package repository

import (
	"context"

	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
)

// RangeKey identifica un par sucursal / tipo de comprobante dentro de una empresa.
type RangeKey struct {
	CompanyID      string
	BranchID       string
	DocumentTypeID string
}

// SerializationRangeRepository puerto de persistencia para rangos de numeración.
// Ninguna implementación puede cachear numero_actual entre llamadas.
type SerializationRangeRepository interface {
	// AllocateNext incrementa numero_actual en una sola operación condicional y devuelve el valor
	// previo. series vacío selecciona el rango por defecto. Errores: ErrNoDefaultSeriesConfigured,
	// ErrRangeNotFound, ErrSeriesExhausted.
	AllocateNext(ctx context.Context, key RangeKey, series string) (entity.Allocation, error)

	// SetDefault deja exactamente un rango por defecto para el par; ErrRangeNotFound si la serie no existe.
	SetDefault(ctx context.Context, key RangeKey, series string) error

	Create(ctx context.Context, r *entity.SerializationRange) error
	// UpdateEndNumber cambia el número final; falla con ErrInvalidRange si queda por debajo de numero_actual.
	UpdateEndNumber(ctx context.Context, companyID, id string, end *int64) (*entity.SerializationRange, error)
	GetByID(ctx context.Context, companyID, id string) (*entity.SerializationRange, error)
	GetBySeries(ctx context.Context, key RangeKey, series string) (*entity.SerializationRange, error)
	ListByBranch(ctx context.Context, companyID, branchID string) ([]*entity.SerializationRange, error)
}
