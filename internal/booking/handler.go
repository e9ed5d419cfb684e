// AngelaMos | 2026
// handler.go

package booking

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/foxmentors/portal/internal/core"
	"github.com/foxmentors/portal/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	students := middleware.RequireRole(core.RoleStudent)
	mentors := middleware.RequireRole(core.RoleMentor)
	completers := middleware.RequireRole(core.RoleMentor, core.RoleAdmin)

	r.Route("/bookings", func(r chi.Router) {
		r.Use(authenticator)

		r.With(students).Post("/", h.Submit)
		r.With(students).Get("/mine", h.ListMine)
		r.With(mentors).Get("/assigned", h.ListAssigned)

		r.Route("/{bookingID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.With(middleware.RequireAdmin).Post("/verify", h.Verify)
			r.With(middleware.RequireAdmin).Post("/schedule", h.Schedule)
			r.With(completers).Post("/complete", h.Complete)
		})
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	b, err := h.service.Submit(r.Context(), actorFrom(r), SubmitInput{
		StudentName: req.StudentName,
		Notes:       req.Notes,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	core.Created(w, ToResponse(b))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListForStudent(r.Context(), actorFrom(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, ToResponseList(bookings))
}

func (h *Handler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListForMentor(r.Context(), actorFrom(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, ToResponseList(bookings))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	b, err := h.service.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, ToResponse(b))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusVerified)
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusScheduled)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusCompleted)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, to Status) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	var body TransitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil &&
		!errors.Is(err, io.EOF) {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(body); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	b, err := h.service.Transition(r.Context(), actorFrom(r), id, TransitionRequest{
		To:              to,
		ExpectedVersion: body.Version,
		MentorID:        body.MentorID,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	core.OK(w, ToResponse(b))
}

// WriteError maps booking workflow errors onto the JSON envelope.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "booking")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "not allowed to perform this action on the booking")
	case errors.Is(err, ErrInvalidTransition):
		core.JSONError(w, core.InvalidTransitionError(err.Error()))
	case errors.Is(err, ErrUnknownMentor):
		core.JSONError(w, core.NewAppError(
			ErrUnknownMentor,
			"mentor_id does not reference a mentor",
			http.StatusUnprocessableEntity,
			"UNKNOWN_MENTOR",
		))
	case errors.Is(err, core.ErrConflict):
		core.Conflict(w, "booking was changed by someone else, please retry")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}

func actorFrom(r *http.Request) Actor {
	return ActorFromSession(middleware.GetSession(r.Context()))
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil || id < 1 {
		core.BadRequest(w, "invalid booking id")
		return 0, false
	}
	return id, true
}
