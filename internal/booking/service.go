// AngelaMos | 2026
// service.go

package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/foxmentors/portal/internal/core"
)

type Service struct {
	repo      Repository
	directory Directory
}

func NewService(repo Repository, directory Directory) *Service {
	return &Service{repo: repo, directory: directory}
}

// Submit opens a Pending, unassigned booking for the calling student.
func (s *Service) Submit(
	ctx context.Context,
	actor Actor,
	in SubmitInput,
) (*Booking, error) {
	if actor.Role != core.RoleStudent {
		return nil, fmt.Errorf("submit booking: %w", core.ErrForbidden)
	}

	name := strings.TrimSpace(in.StudentName)
	if name == "" {
		return nil, fmt.Errorf("submit booking: student name: %w", core.ErrInvalidInput)
	}

	student, err := s.directory.LookupPerson(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("submit booking: %w", err)
	}
	if student.Role != core.RoleStudent {
		return nil, fmt.Errorf("submit booking: %w", core.ErrForbidden)
	}

	b := &Booking{
		StudentName:  name,
		StudentEmail: student.Email,
		StudentID:    student.ID,
		Status:       StatusPending,
		Notes:        strings.TrimSpace(in.Notes),
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "booking submitted",
		"booking_id", b.ID,
		"student_id", student.ID,
	)

	return b, nil
}

func (s *Service) Verify(
	ctx context.Context,
	actor Actor,
	id int64,
	expectedVersion int,
) (*Booking, error) {
	return s.Transition(ctx, actor, id, TransitionRequest{
		To:              StatusVerified,
		ExpectedVersion: expectedVersion,
	})
}

func (s *Service) Schedule(
	ctx context.Context,
	actor Actor,
	id int64,
	mentorID string,
	expectedVersion int,
) (*Booking, error) {
	return s.Transition(ctx, actor, id, TransitionRequest{
		To:              StatusScheduled,
		ExpectedVersion: expectedVersion,
		MentorID:        mentorID,
	})
}

func (s *Service) Complete(
	ctx context.Context,
	actor Actor,
	id int64,
	expectedVersion int,
) (*Booking, error) {
	return s.Transition(ctx, actor, id, TransitionRequest{
		To:              StatusCompleted,
		ExpectedVersion: expectedVersion,
	})
}

// Transition moves booking id one step forward to req.To. The write only
// lands if the row still holds the status and version that were checked;
// otherwise the caller gets core.ErrConflict and may retry.
func (s *Service) Transition(
	ctx context.Context,
	actor Actor,
	id int64,
	req TransitionRequest,
) (*Booking, error) {
	ctx, span := core.StartSpan(ctx, "booking.transition",
		attribute.Int64("booking.id", id),
		attribute.String("booking.to", string(req.To)),
		attribute.String("actor.role", actor.Role.String()),
	)
	defer span.End()

	b, err := s.transition(ctx, actor, id, req)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}

	return b, nil
}

func (s *Service) transition(
	ctx context.Context,
	actor Actor,
	id int64,
	req TransitionRequest,
) (*Booking, error) {
	if req.MentorID != "" && req.To != StatusScheduled {
		return nil, fmt.Errorf(
			"mentor_id is only accepted when scheduling: %w",
			core.ErrInvalidInput,
		)
	}

	if !roleAllowed(actor.Role, requiredRoleFor(req.To)) {
		return nil, fmt.Errorf(
			"%s may not move booking to %q: %w",
			actor.Role, req.To, core.ErrForbidden,
		)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ExpectedVersion != 0 && req.ExpectedVersion != current.Version {
		return nil, fmt.Errorf(
			"booking %d is at version %d, not %d: %w",
			id, current.Version, req.ExpectedVersion, core.ErrConflict,
		)
	}

	if err := Authorize(actor.Role, current.Status, req.To); err != nil {
		return nil, fmt.Errorf("booking %d: %w", id, err)
	}

	if req.To == StatusCompleted &&
		actor.Role == core.RoleMentor &&
		!current.AssignedTo(actor.UserID) {
		return nil, fmt.Errorf(
			"booking %d is not assigned to this mentor: %w",
			id, core.ErrForbidden,
		)
	}

	update := StatusUpdate{
		ID:              id,
		From:            current.Status,
		To:              req.To,
		ExpectedVersion: current.Version,
	}

	if req.To == StatusScheduled {
		mentor, err := s.resolveMentor(ctx, req.MentorID)
		if err != nil {
			return nil, err
		}
		update.MentorID = &mentor.ID
	}

	swapped, err := s.repo.CompareAndSwap(ctx, update)
	if err != nil {
		return nil, err
	}

	if !swapped {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		slog.WarnContext(ctx, "booking transition lost a race",
			"booking_id", id,
			"from", current.Status,
			"to", req.To,
			"actor_id", actor.UserID,
		)
		return nil, fmt.Errorf("booking %d changed concurrently: %w", id, core.ErrConflict)
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "booking transitioned",
		"booking_id", id,
		"from", current.Status,
		"to", req.To,
		"actor_id", actor.UserID,
		"actor_role", actor.Role.String(),
	)

	return updated, nil
}

func (s *Service) resolveMentor(ctx context.Context, mentorID string) (*Person, error) {
	if strings.TrimSpace(mentorID) == "" {
		return nil, fmt.Errorf("mentor id required: %w", ErrUnknownMentor)
	}

	mentor, err := s.directory.LookupPerson(ctx, mentorID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("mentor %s: %w", mentorID, ErrUnknownMentor)
		}
		return nil, fmt.Errorf("lookup mentor: %w", err)
	}

	if mentor.Role != core.RoleMentor {
		return nil, fmt.Errorf("user %s is not a mentor: %w", mentorID, ErrUnknownMentor)
	}

	return mentor, nil
}

// Get returns a booking the actor may see: admins see all, students their
// own, mentors their assignments.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case core.RoleAdmin:
		return b, nil
	case core.RoleMentor:
		if b.AssignedTo(actor.UserID) {
			return b, nil
		}
	case core.RoleStudent:
		if b.StudentID == actor.UserID {
			return b, nil
		}
	}

	// hide existence from callers who cannot see it
	return nil, fmt.Errorf("get booking: %w", core.ErrNotFound)
}

func (s *Service) ListAll(
	ctx context.Context,
	actor Actor,
	params ListParams,
) ([]Booking, int, error) {
	if actor.Role != core.RoleAdmin {
		return nil, 0, fmt.Errorf("list bookings: %w", core.ErrForbidden)
	}

	return s.repo.List(ctx, params)
}

// ListForStudent returns the student's own bookings, newest first.
func (s *Service) ListForStudent(ctx context.Context, actor Actor) ([]Booking, error) {
	if actor.Role != core.RoleStudent {
		return nil, fmt.Errorf("list student bookings: %w", core.ErrForbidden)
	}

	student, err := s.directory.LookupPerson(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}

	return s.repo.ListByStudentEmail(ctx, student.Email)
}

// ListForMentor returns the Scheduled bookings assigned to the mentor.
func (s *Service) ListForMentor(ctx context.Context, actor Actor) ([]Booking, error) {
	if actor.Role != core.RoleMentor {
		return nil, fmt.Errorf("list mentor bookings: %w", core.ErrForbidden)
	}

	return s.repo.ListByMentor(ctx, actor.UserID, StatusScheduled)
}

func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return &StatsResponse{Total: total, ByStatus: counts}, nil
}
