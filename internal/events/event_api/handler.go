package event_api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/events"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/pagination"
	"ms-events/internal/relations"
	"ms-events/internal/resources"
	"ms-events/internal/utils"
)

type EventService interface {
	List(ctx context.Context, page pagination.Params, include string) (*events.Page, error)
	Get(ctx context.Context, id int64, include string) (*models.Event, relations.Set, error)
	Create(ctx context.Context, actor *models.User, req models.CreateEventRequest, include string) (*models.Event, relations.Set, error)
	Update(ctx context.Context, actor *models.User, id int64, req models.UpdateEventRequest, include string) (*models.Event, relations.Set, error)
	Delete(ctx context.Context, actor *models.User, id int64) error
}

type Handler struct {
	EventService EventService
	Logger       *logger.Logger
}

// EventID parses the {id} URL parameter. Anything that is not a positive
// integer cannot name an event, so it is reported as not found.
func EventID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.NotFound("event", chi.URLParam(r, "id"))
	}
	return id, nil
}

func include(r *http.Request) string {
	return r.URL.Query().Get("include")
}

// ListEvents handles GET /api/events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	page, err := h.EventService.List(r.Context(), params, include(r))
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	data := resources.Events(page.Events, page.Relations)
	utils.WriteJSON(w, http.StatusOK, pagination.New(r, params, page.Total, len(data), data))
}

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	event, set, err := h.EventService.Create(r.Context(), auth.ActorFrom(r.Context()), req, include(r))
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	utils.WriteData(w, http.StatusCreated, resources.EventFrom(event, set))
}

// GetEvent handles GET /api/events/{id}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := EventID(r)
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	event, set, err := h.EventService.Get(r.Context(), id, include(r))
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	utils.WriteData(w, http.StatusOK, resources.EventFrom(event, set))
}

// UpdateEvent handles PUT and PATCH /api/events/{id}.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := EventID(r)
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	var req models.UpdateEventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	event, set, err := h.EventService.Update(r.Context(), auth.ActorFrom(r.Context()), id, req, include(r))
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	utils.WriteData(w, http.StatusOK, resources.EventFrom(event, set))
}

// DeleteEvent handles DELETE /api/events/{id}.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := EventID(r)
	if err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}

	if err := h.EventService.Delete(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		utils.WriteError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes mounts the event routes. protect wraps the routes that need
// an authenticated actor.
func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Get("/events", h.ListEvents)
	r.Get("/events/{id}", h.GetEvent)

	r.Group(func(r chi.Router) {
		r.Use(protect)
		r.Post("/events", h.CreateEvent)
		r.Put("/events/{id}", h.UpdateEvent)
		r.Patch("/events/{id}", h.UpdateEvent)
		r.Delete("/events/{id}", h.DeleteEvent)
	})
}
