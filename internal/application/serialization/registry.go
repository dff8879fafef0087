// Package serialization administra los rangos de numeración de comprobantes y asigna
// el número de cada venta.
package serialization

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NotSleepp/possbien-sub001/internal/application/dto"
	"github.com/NotSleepp/possbien-sub001/internal/application/ports"
	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
	"github.com/NotSleepp/possbien-sub001/pkg/logger"
)

// Registry fuente de verdad de los números de comprobante.
// repo está ligado al pool; AllocateNextWith usa el repositorio de la transacción del llamador.
type Registry struct {
	repo    repository.SerializationRangeRepository
	metrics ports.SalesMetrics
	log     *logger.Logger
}

// NewRegistry construye el registro. metrics y log pueden ser nil.
func NewRegistry(repo repository.SerializationRangeRepository, metrics ports.SalesMetrics, log *logger.Logger) *Registry {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{repo: repo, metrics: metrics, log: log.Component("serialization")}
}

// AllocateNext asigna el siguiente número fuera de cualquier transacción de venta.
func (r *Registry) AllocateNext(ctx context.Context, key repository.RangeKey, series string) (entity.Allocation, error) {
	return r.AllocateNextWith(ctx, r.repo, key, series)
}

// AllocateNextWith asigna el siguiente número usando repo (típicamente ligado a la transacción
// que también guarda la venta: si esa transacción hace rollback el número no se consume).
// series vacío usa la serie por defecto del par sucursal / tipo de comprobante.
func (r *Registry) AllocateNextWith(ctx context.Context, repo repository.SerializationRangeRepository, key repository.RangeKey, series string) (entity.Allocation, error) {
	if key.CompanyID == "" || key.BranchID == "" || key.DocumentTypeID == "" {
		return entity.Allocation{}, fmt.Errorf("%w: empresa, sucursal y tipo de comprobante son obligatorios", domain.ErrInvalidInput)
	}
	series = entity.NormalizeSeries(series)

	alloc, err := repo.AllocateNext(ctx, key, series)
	if err != nil {
		if errors.Is(err, domain.ErrSeriesExhausted) {
			r.metrics.SeriesExhausted(series)
			r.log.Warn().
				Str("branch_id", key.BranchID).
				Str("document_type_id", key.DocumentTypeID).
				Str("serie", series).
				Msg("serie agotada, configure un nuevo rango")
		}
		return entity.Allocation{}, err
	}
	r.metrics.NumberAllocated(alloc.Series)
	r.log.Debug().
		Str("branch_id", key.BranchID).
		Str("serie", alloc.Series).
		Int64("numero", alloc.Number).
		Msg("número asignado")
	return alloc, nil
}

// SetDefault marca la serie como por defecto y desmarca la anterior en una sola unidad atómica.
func (r *Registry) SetDefault(ctx context.Context, key repository.RangeKey, series string) error {
	series = entity.NormalizeSeries(series)
	if key.BranchID == "" || key.DocumentTypeID == "" || series == "" {
		return fmt.Errorf("%w: sucursal, tipo de comprobante y serie son obligatorios", domain.ErrInvalidInput)
	}
	if err := r.repo.SetDefault(ctx, key, series); err != nil {
		return err
	}
	r.log.Info().
		Str("branch_id", key.BranchID).
		Str("document_type_id", key.DocumentTypeID).
		Str("serie", series).
		Msg("serie por defecto actualizada")
	return nil
}

// CreateRange registra un rango nuevo. Si llega marcado por defecto desmarca el anterior.
func (r *Registry) CreateRange(ctx context.Context, companyID string, in dto.CreateSerializationRequest) (*dto.SerializationResponse, error) {
	now := time.Now()
	rng := &entity.SerializationRange{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		BranchID:       in.BranchID,
		DocumentTypeID: in.DocumentTypeID,
		Series:         entity.NormalizeSeries(in.Series),
		StartNumber:    in.StartNumber,
		CurrentNumber:  in.StartNumber,
		EndNumber:      in.EndNumber,
		IsDefault:      in.IsDefault,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.CurrentNumber != nil {
		rng.CurrentNumber = *in.CurrentNumber
	}
	if err := rng.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRange, err)
	}
	if err := r.repo.Create(ctx, rng); err != nil {
		return nil, err
	}
	r.log.Info().
		Str("range_id", rng.ID).
		Str("branch_id", rng.BranchID).
		Str("serie", rng.Series).
		Int64("numero_actual", rng.CurrentNumber).
		Bool("por_defecto", rng.IsDefault).
		Msg("rango de serialización creado")
	return toResponse(rng), nil
}

// UpdateRange cambia el número final. numero_actual nunca se modifica por esta vía.
func (r *Registry) UpdateRange(ctx context.Context, companyID, id string, in dto.UpdateSerializationRequest) (*dto.SerializationResponse, error) {
	if in.EndNumber != nil && *in.EndNumber < 0 {
		return nil, fmt.Errorf("%w: numero final negativo", domain.ErrInvalidRange)
	}
	rng, err := r.repo.UpdateEndNumber(ctx, companyID, id, in.EndNumber)
	if err != nil {
		return nil, err
	}
	return toResponse(rng), nil
}

// GetRange obtiene un rango de la empresa.
func (r *Registry) GetRange(ctx context.Context, companyID, id string) (*dto.SerializationResponse, error) {
	rng, err := r.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, domain.ErrRangeNotFound
	}
	return toResponse(rng), nil
}

// ListRanges rangos de una sucursal.
func (r *Registry) ListRanges(ctx context.Context, companyID, branchID string) (*dto.SerializationListResponse, error) {
	if branchID == "" {
		return nil, fmt.Errorf("%w: idSucursal es obligatorio", domain.ErrInvalidInput)
	}
	list, err := r.repo.ListByBranch(ctx, companyID, branchID)
	if err != nil {
		return nil, err
	}
	out := &dto.SerializationListResponse{Items: make([]dto.SerializationResponse, 0, len(list))}
	for _, rng := range list {
		out.Items = append(out.Items, *toResponse(rng))
	}
	return out, nil
}

func toResponse(r *entity.SerializationRange) *dto.SerializationResponse {
	return &dto.SerializationResponse{
		ID:             r.ID,
		BranchID:       r.BranchID,
		DocumentTypeID: r.DocumentTypeID,
		Series:         r.Series,
		StartNumber:    r.StartNumber,
		CurrentNumber:  r.CurrentNumber,
		EndNumber:      r.EndNumber,
		Remaining:      r.Remaining(),
		IsDefault:      r.IsDefault,
		Exhausted:      r.Exhausted(),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
