// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/foxmentors/portal/internal/core"
)

type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`
	TokenVersion int       `db:"token_version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// AccessRole parses the stored role column; unrecognised values are
// core.RoleUnknown and grant nothing.
func (u *User) AccessRole() core.Role {
	return core.ParseRole(u.Role)
}

func (u *User) IsAdmin() bool {
	return u.AccessRole() == core.RoleAdmin
}

func (u *User) IsMentor() bool {
	return u.AccessRole() == core.RoleMentor
}
