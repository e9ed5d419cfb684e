// AngelaMos | 2026
// role.go

package core

// Role is the closed set of access levels a user can hold.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleMentor  Role = "mentor"
	RoleStudent Role = "student"
	RoleUnknown Role = ""
)

// ParseRole maps a stored value to a Role. Anything outside the
// enumeration, including the empty string, is RoleUnknown.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleMentor, RoleStudent:
		return Role(s)
	default:
		return RoleUnknown
	}
}

func (r Role) Valid() bool {
	return r != RoleUnknown && ParseRole(string(r)) == r
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "unknown"
	}
	return string(r)
}
