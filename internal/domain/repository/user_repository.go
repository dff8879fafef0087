package repository

import (
	"context"

	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
)

// UserRepository puerto de lectura de usuarios usado para validar supervisores.
// El alta y administración de usuarios vive en el servicio de identidad.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmailAndCompany(ctx context.Context, email, companyID string) (*entity.User, error)
}
