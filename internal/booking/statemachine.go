// AngelaMos | 2026
// statemachine.go

package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/foxmentors/portal/internal/core"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusVerified  Status = "Verified"
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
)

var (
	ErrInvalidTransition = core.ErrInvalidTransition
	ErrUnknownMentor     = errors.New("unknown mentor")
	ErrInvalidStatus     = errors.New("invalid status")
)

// pipeline is the only path a booking may take. Completed is terminal.
var pipeline = map[Status]Status{
	StatusPending:   StatusVerified,
	StatusVerified:  StatusScheduled,
	StatusScheduled: StatusCompleted,
}

var allStatuses = []Status{
	StatusPending,
	StatusVerified,
	StatusScheduled,
	StatusCompleted,
}

func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) Valid() bool {
	_, ok := pipeline[s]
	return ok || s == StatusCompleted
}

func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// Next returns the single status reachable from s.
func (s Status) Next() (Status, bool) {
	next, ok := pipeline[s]
	return next, ok
}

func CanTransition(from, to Status) bool {
	next, ok := from.Next()
	return ok && next == to
}

// Authorize reports whether role may move a booking from one status to the
// next. It does not check mentor assignment; Complete does that against the
// stored booking.
func Authorize(role core.Role, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf(
			"%s -> %s: %w", from, to, ErrInvalidTransition,
		)
	}

	switch to {
	case StatusVerified, StatusScheduled:
		if role == core.RoleAdmin {
			return nil
		}
	case StatusCompleted:
		if role == core.RoleAdmin || role == core.RoleMentor {
			return nil
		}
	}

	return fmt.Errorf("%s may not move %s -> %s: %w",
		role, from, to, core.ErrForbidden)
}

// requiredRoleFor is the role set allowed to drive a booking into to,
// used to reject callers before any store read.
func requiredRoleFor(to Status) []core.Role {
	switch to {
	case StatusVerified, StatusScheduled:
		return []core.Role{core.RoleAdmin}
	case StatusCompleted:
		return []core.Role{core.RoleAdmin, core.RoleMentor}
	default:
		return nil
	}
}

func roleAllowed(role core.Role, allowed []core.Role) bool {
	if !role.Valid() {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
