package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
)

// DefaultMaxUnauthorizedDiscount porcentaje máximo que el cajero aplica sin supervisor.
var DefaultMaxUnauthorizedDiscount = decimal.NewFromInt(10)

// RequiresAuthorization indica si percent supera el máximo permitido sin supervisor.
// Igual al máximo no requiere autorización.
func RequiresAuthorization(percent, maxUnauthorized decimal.Decimal) bool {
	return percent.GreaterThan(maxUnauthorized)
}

// Authorization registro de auditoría de un descuento aprobado.
type Authorization struct {
	AuthorizedBy string
	AuthorizedAt time.Time
}

// DiscountAuthorizer decide cuándo un descuento necesita supervisor y valida sus credenciales.
// No guarda estado entre llamadas.
type DiscountAuthorizer struct {
	verifier        SupervisorVerifier
	maxUnauthorized decimal.Decimal
	now             func() time.Time
}

// NewDiscountAuthorizer construye el autorizador con el umbral configurado.
func NewDiscountAuthorizer(verifier SupervisorVerifier, maxUnauthorized decimal.Decimal) *DiscountAuthorizer {
	return &DiscountAuthorizer{verifier: verifier, maxUnauthorized: maxUnauthorized, now: time.Now}
}

// MaxUnauthorized umbral configurado.
func (a *DiscountAuthorizer) MaxUnauthorized() decimal.Decimal { return a.maxUnauthorized }

// Requires aplica RequiresAuthorization con el umbral configurado.
func (a *DiscountAuthorizer) Requires(percent decimal.Decimal) bool {
	return RequiresAuthorization(percent, a.maxUnauthorized)
}

// Authorize valida el código del supervisor. Cualquier rechazo es ErrAuthorizationDenied;
// los errores de infraestructura del verificador se propagan tal cual.
func (a *DiscountAuthorizer) Authorize(ctx context.Context, companyID, supervisor, code string) (Authorization, error) {
	if supervisor == "" || code == "" {
		return Authorization{}, fmt.Errorf("%w: supervisor y código son obligatorios", domain.ErrAuthorizationDenied)
	}
	if a.verifier == nil {
		return Authorization{}, fmt.Errorf("%w: no hay verificador de supervisores", domain.ErrAuthorizationDenied)
	}
	id, err := a.verifier.Verify(ctx, companyID, supervisor, code)
	if err != nil {
		return Authorization{}, err
	}
	return Authorization{AuthorizedBy: id, AuthorizedAt: a.now().UTC()}, nil
}
