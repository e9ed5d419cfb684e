// AngelaMos | 2026
// repository.go

package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/foxmentors/portal/internal/core"
)

// StatusUpdate is a guarded write: it applies only while the row still has
// From and ExpectedVersion.
type StatusUpdate struct {
	ID              int64
	From            Status
	To              Status
	ExpectedVersion int
	MentorID        *string
}

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	CompareAndSwap(ctx context.Context, u StatusUpdate) (bool, error)
	List(ctx context.Context, params ListParams) ([]Booking, int, error)
	ListByStudentEmail(ctx context.Context, email string) ([]Booking, error)
	ListByMentor(
		ctx context.Context,
		mentorID string,
		status Status,
	) ([]Booking, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const bookingSelect = `
	SELECT b.id, b.student_name, b.student_email, b.student_id, b.status,
	       b.mentor_id, m.name AS mentor_name, b.notes, b.version,
	       b.created_at, b.updated_at
	FROM bookings b
	LEFT JOIN users m ON m.id = b.mentor_id`

func (r *repository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (student_name, student_email, student_id, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, version, created_at, updated_at`

	err := r.db.GetContext(ctx, b, query,
		b.StudentName,
		b.StudentEmail,
		b.StudentID,
		b.Status,
		b.Notes,
	)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	query := bookingSelect + ` WHERE b.id = $1`

	var b Booking
	err := r.db.GetContext(ctx, &b, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get booking: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	return &b, nil
}

// CompareAndSwap reports false when the row changed since it was read or
// does not exist. The caller decides which.
func (r *repository) CompareAndSwap(
	ctx context.Context,
	u StatusUpdate,
) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $2,
		    mentor_id = COALESCE($3::uuid, mentor_id),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = $4 AND version = $5`

	result, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.To,
		u.MentorID,
		u.From,
		u.ExpectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}

	return rows == 1, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Booking, int, error) {
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := "SELECT COUNT(*) FROM bookings b WHERE " + whereClause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY b.id
		LIMIT $%d OFFSET $%d`,
		bookingSelect, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	return bookings, total, nil
}

func (r *repository) ListByStudentEmail(
	ctx context.Context,
	email string,
) ([]Booking, error) {
	query := bookingSelect + `
		WHERE b.student_email = $1
		ORDER BY b.created_at DESC, b.id DESC`

	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query, email); err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}

	return bookings, nil
}

func (r *repository) ListByMentor(
	ctx context.Context,
	mentorID string,
	status Status,
) ([]Booking, error) {
	query := bookingSelect + `
		WHERE b.mentor_id = $1 AND b.status = $2
		ORDER BY b.id`

	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query, mentorID, status); err != nil {
		return nil, fmt.Errorf("list mentor bookings: %w", err)
	}

	return bookings, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	query := `SELECT status, COUNT(*) AS count FROM bookings GROUP BY status`

	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}

	counts := make(map[Status]int, len(allStatuses))
	for _, st := range allStatuses {
		counts[st] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}
