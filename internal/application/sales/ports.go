package sales

import (
	"context"

	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
)

// SalesTxRunner ejecuta fn dentro de una transacción con los repositorios atados a ella.
// Si fn devuelve error, o el contexto se cancela antes del commit, se hace rollback:
// el número asignado y la venta desaparecen juntos.
type SalesTxRunner interface {
	RunSale(ctx context.Context, fn func(
		rangeRepo repository.SerializationRangeRepository,
		saleRepo repository.SaleRepository,
	) error) error
}

// NumberAllocator asigna el número de comprobante con el repositorio de la transacción.
type NumberAllocator interface {
	AllocateNextWith(ctx context.Context, repo repository.SerializationRangeRepository, key repository.RangeKey, series string) (entity.Allocation, error)
}

// SupervisorVerifier valida las credenciales de un supervisor y devuelve su identificador
// para auditoría. Credenciales incorrectas o sin permiso: domain.ErrAuthorizationDenied.
type SupervisorVerifier interface {
	Verify(ctx context.Context, companyID, supervisor, code string) (string, error)
}
