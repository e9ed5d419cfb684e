// AngelaMos | 2026
// router.go

package dashboard

import (
	"github.com/foxmentors/portal/internal/core"
)

type View string

const (
	ViewAdmin   View = "admin"
	ViewMentor  View = "mentor"
	ViewStudent View = "student"
	ViewUnknown View = "unknown"
)

// Route picks exactly one view by exact role match. Anything that is not a
// known role lands on ViewUnknown, never on a default view.
func Route(role core.Role) View {
	switch role {
	case core.RoleAdmin:
		return ViewAdmin
	case core.RoleMentor:
		return ViewMentor
	case core.RoleStudent:
		return ViewStudent
	default:
		return ViewUnknown
	}
}
