package memory

import (
	"context"
	"strings"

	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
)

// UserRepo implementa repository.UserRepository sobre los usuarios cargados con AddUser.
type UserRepo struct {
	s *Store
}

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) FindByEmailAndCompany(ctx context.Context, email, companyID string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.CompanyID == companyID && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}
