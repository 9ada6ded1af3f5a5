package attendee_api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/attendees"
	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/pagination"
	"ms-events/internal/relations"
	"ms-events/internal/resources"
	"ms-events/internal/utils"
)

type AttendeeService interface {
	List(ctx context.Context, eventID int64, page pagination.Params, include string) (*attendees.Page, error)
	Register(ctx context.Context, actor *models.User, eventID int64, include string) (*models.Attendee, relations.Set, error)
	Get(ctx context.Context, eventID, attendeeID int64, include string) (*models.Attendee, relations.Set, error)
	Remove(ctx context.Context, actor *models.User, eventID, attendeeID int64) error
}

type Handler struct {
	AttendeeService AttendeeService
	Logger          *logger.Logger
}

func urlID(r *http.Request, param, kind string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.NotFound(kind, raw)
	}
	return id, nil
}

func ids(r *http.Request) (int64, int64, error) {
	eventID, err := urlID(r, "id", "event")
	if err != nil {
		return 0, 0, err
	}
	attendeeID, err := urlID(r, "aid", "attendee")
	if err != nil {
		return 0, 0, err
	}
	return eventID, attendeeID, nil
}

// ListAttendees handles GET /api/events/{id}/attendees.
func (h *Handler) ListAttendees(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlID(r, "id", "event")
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	params := pagination.FromRequest(r)
	page, err := h.AttendeeService.List(r.Context(), eventID, params, r.URL.Query().Get("include"))
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	data := resources.Attendees(page.Attendees, page.Relations)
	utils.WriteJSON(w, http.StatusOK, pagination.New(r, params, page.Total, len(data), data))
}

// RegisterAttendee handles POST /api/events/{id}/attendees. The body is
// ignored; the actor registers themselves.
func (h *Handler) RegisterAttendee(w http.ResponseWriter, r *http.Request) {
	eventID, err := urlID(r, "id", "event")
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	attendee, set, err := h.AttendeeService.Register(r.Context(), auth.ActorFrom(r.Context()), eventID, r.URL.Query().Get("include"))
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	utils.WriteData(w, http.StatusCreated, resources.AttendeeFrom(attendee, set))
}

// GetAttendee handles GET /api/events/{id}/attendees/{aid}.
func (h *Handler) GetAttendee(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, err := ids(r)
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	attendee, set, err := h.AttendeeService.Get(r.Context(), eventID, attendeeID, r.URL.Query().Get("include"))
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	utils.WriteData(w, http.StatusOK, resources.AttendeeFrom(attendee, set))
}

// RemoveAttendee handles DELETE /api/events/{id}/attendees/{aid}.
func (h *Handler) RemoveAttendee(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, err := ids(r)
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	if err := h.AttendeeService.Remove(r.Context(), auth.ActorFrom(r.Context()), eventID, attendeeID); err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Get("/events/{id}/attendees", h.ListAttendees)
	r.Get("/events/{id}/attendees/{aid}", h.GetAttendee)

	r.Group(func(r chi.Router) {
		r.Use(protect)
		r.Post("/events/{id}/attendees", h.RegisterAttendee)
		r.Delete("/events/{id}/attendees/{aid}", h.RemoveAttendee)
	})
}
