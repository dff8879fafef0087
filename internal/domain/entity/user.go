package entity

import "time"

// Roles válidos para User.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
	RoleCajero     = "cajero"
)

// User usuario del punto de venta (pertenece a una Company).
// AuthCodeHash es el hash bcrypt del código de autorización de descuentos; solo lo tienen supervisores.
type User struct {
	ID           string
	CompanyID    string
	Email        string
	Name         string
	Role         string // admin, supervisor, cajero
	Status       string // active, inactive, suspended
	AuthCodeHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAuthorizeDiscounts indica si el usuario puede autorizar descuentos.
func (u *User) CanAuthorizeDiscounts() bool {
	if u == nil || u.Status != "active" || u.AuthCodeHash == "" {
		return false
	}
	return u.Role == RoleAdmin || u.Role == RoleSupervisor
}
