// AngelaMos | 2026
// handler.go

package dashboard

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxmentors/portal/internal/booking"
	"github.com/foxmentors/portal/internal/config"
	"github.com/foxmentors/portal/internal/core"
	"github.com/foxmentors/portal/internal/middleware"
	"github.com/foxmentors/portal/internal/user"
)

type MentorRoster interface {
	ListMentors(ctx context.Context) ([]user.User, error)
}

type Handler struct {
	bookings *booking.Service
	mentors  MentorRoster
	portal   config.PortalConfig
}

func NewHandler(
	bookings *booking.Service,
	mentors MentorRoster,
	portal config.PortalConfig,
) *Handler {
	return &Handler{
		bookings: bookings,
		mentors:  mentors,
		portal:   portal,
	}
}

type Response struct {
	View     View                   `json:"view"`
	Bookings []booking.Response     `json:"bookings"`
	Stats    *booking.StatsResponse `json:"stats,omitempty"`
	Mentors  []user.MentorResponse  `json:"mentors,omitempty"`
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/dashboard", h.Get)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if !session.Authenticated() {
		core.Unauthorized(w, "")
		return
	}

	actor := booking.ActorFromSession(session)
	ctx := r.Context()

	var (
		resp Response
		err  error
	)

	switch Route(session.Role) {
	case ViewAdmin:
		resp, err = h.adminView(ctx, actor)
	case ViewMentor:
		resp, err = h.mentorView(ctx, actor)
	case ViewStudent:
		resp, err = h.studentView(ctx, actor)
	default:
		core.JSONError(w, core.NewAppError(
			core.ErrForbidden,
			"account role is not recognised",
			http.StatusForbidden,
			"UNKNOWN_ROLE",
		))
		return
	}

	if err != nil {
		booking.WriteError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) adminView(ctx context.Context, actor booking.Actor) (Response, error) {
	params := booking.ListParams{Page: 1}
	params.Normalize(h.portal.DefaultPageSize, h.portal.MaxPageSize)

	queue, _, err := h.bookings.ListAll(ctx, actor, params)
	if err != nil {
		return Response{}, err
	}

	stats, err := h.bookings.Stats(ctx)
	if err != nil {
		return Response{}, err
	}

	mentors, err := h.mentors.ListMentors(ctx)
	if err != nil {
		return Response{}, err
	}

	return Response{
		View:     ViewAdmin,
		Bookings: booking.ToResponseList(queue),
		Stats:    stats,
		Mentors:  user.ToMentorResponseList(mentors),
	}, nil
}

func (h *Handler) mentorView(ctx context.Context, actor booking.Actor) (Response, error) {
	assigned, err := h.bookings.ListForMentor(ctx, actor)
	if err != nil {
		return Response{}, err
	}

	return Response{
		View:     ViewMentor,
		Bookings: booking.ToResponseList(assigned),
	}, nil
}

func (h *Handler) studentView(ctx context.Context, actor booking.Actor) (Response, error) {
	mine, err := h.bookings.ListForStudent(ctx, actor)
	if err != nil {
		return Response{}, err
	}

	return Response{
		View:     ViewStudent,
		Bookings: booking.ToResponseList(mine),
	}, nil
}
