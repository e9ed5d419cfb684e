// AngelaMos | 2026
// entity.go

package booking

import (
	"context"
	"time"

	"github.com/foxmentors/portal/internal/core"
	"github.com/foxmentors/portal/internal/middleware"
)

const UnassignedMentor = "Unassigned"

type Booking struct {
	ID           int64     `db:"id"`
	StudentName  string    `db:"student_name"`
	StudentEmail string    `db:"student_email"`
	StudentID    string    `db:"student_id"`
	Status       Status    `db:"status"`
	MentorID     *string   `db:"mentor_id"`
	MentorName   *string   `db:"mentor_name"`
	Notes        string    `db:"notes"`
	Version      int       `db:"version"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// MentorLabel is the display name of the assigned mentor.
func (b *Booking) MentorLabel() string {
	if b.MentorName == nil || *b.MentorName == "" {
		return UnassignedMentor
	}
	return *b.MentorName
}

func (b *Booking) AssignedTo(userID string) bool {
	return b.MentorID != nil && *b.MentorID == userID
}

// Actor is the authenticated caller of a booking operation.
type Actor struct {
	UserID string
	Role   core.Role
}

func ActorFromSession(s middleware.Session) Actor {
	return Actor{UserID: s.UserID, Role: s.Role}
}

// Person is the slice of a user record the workflow needs.
type Person struct {
	ID    string
	Email string
	Name  string
	Role  core.Role
}

// Directory resolves user ids. Unknown ids return core.ErrNotFound.
type Directory interface {
	LookupPerson(ctx context.Context, id string) (*Person, error)
}
