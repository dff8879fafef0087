package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
)

// dummyHash se compara cuando el supervisor no existe para no delatar usuarios por tiempo de respuesta.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("possbien-no-user"), bcrypt.MinCost)

// SupervisorVerifier valida el código de autorización de descuentos contra el hash bcrypt
// guardado en el usuario. supervisor es el email del usuario dentro de la empresa.
type SupervisorVerifier struct {
	userRepo repository.UserRepository
}

// NewSupervisorVerifier construye el verificador.
func NewSupervisorVerifier(userRepo repository.UserRepository) *SupervisorVerifier {
	return &SupervisorVerifier{userRepo: userRepo}
}

// Verify devuelve el ID del supervisor si el código es correcto y el usuario puede autorizar.
func (v *SupervisorVerifier) Verify(ctx context.Context, companyID, supervisor, code string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(supervisor))
	user, err := v.userRepo.FindByEmailAndCompany(ctx, email, companyID)
	if err != nil {
		return "", err
	}
	if user == nil || !user.CanAuthorizeDiscounts() {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(code))
		return "", domain.ErrAuthorizationDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.AuthCodeHash), []byte(code)); err != nil {
		return "", domain.ErrAuthorizationDenied
	}
	return user.ID, nil
}

// HashCode genera el hash bcrypt de un código de autorización (alta de supervisores y semillas).
func HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
