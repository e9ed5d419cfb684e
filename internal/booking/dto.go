// AngelaMos | 2026
// dto.go

package booking

import (
	"math"
	"time"
)

type SubmitRequest struct {
	StudentName string `json:"student_name" validate:"required,min=1,max=200"`
	Notes       string `json:"notes"        validate:"max=2000"`
}

type SubmitInput struct {
	StudentName string
	Notes       string
}

// TransitionBody is the optional request body of the transition endpoints.
// A zero version means "whatever is current".
type TransitionBody struct {
	Version  int    `json:"version"   validate:"gte=0"`
	MentorID string `json:"mentor_id" validate:"omitempty,uuid"`
}

type TransitionRequest struct {
	To              Status
	ExpectedVersion int
	MentorID        string
}

type ListParams struct {
	Page     int
	PageSize int
	Status   Status
}

func (p *ListParams) Normalize(defaultSize, maxSize int) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	// keeps Offset from overflowing
	if limit := math.MaxInt / p.PageSize; p.Page > limit {
		p.Page = limit
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type Response struct {
	ID           int64     `json:"id"`
	StudentName  string    `json:"student_name"`
	StudentEmail string    `json:"student_email"`
	Status       Status    `json:"status"`
	MentorID     *string   `json:"mentor_id"`
	Mentor       string    `json:"mentor"`
	Notes        string    `json:"notes,omitempty"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type StatsResponse struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}

func ToResponse(b *Booking) Response {
	return Response{
		ID:           b.ID,
		StudentName:  b.StudentName,
		StudentEmail: b.StudentEmail,
		Status:       b.Status,
		MentorID:     b.MentorID,
		Mentor:       b.MentorLabel(),
		Notes:        b.Notes,
		Version:      b.Version,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func ToResponseList(bookings []Booking) []Response {
	out := make([]Response, 0, len(bookings))
	for i := range bookings {
		out = append(out, ToResponse(&bookings[i]))
	}
	return out
}
