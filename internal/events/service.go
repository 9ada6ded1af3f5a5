package events

import (
	"context"
	"fmt"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/pagination"
	"ms-events/internal/relations"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

type DBLayer interface {
	ListEvents(ctx context.Context, page pagination.Params, include string) ([]models.Event, int, relations.Set, error)
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	LoadRelations(ctx context.Context, event *models.Event, include string, always ...relations.Relation) (relations.Set, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(ctx context.Context, activity models.Activity) error
}

type EventService struct {
	DB        DBLayer
	Publisher Publisher
	Validator *validation.Validator
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewEventService(db DBLayer, pub Publisher, v *validation.Validator, log *logger.Logger) *EventService {
	return &EventService{
		DB:        db,
		Publisher: pub,
		Validator: v,
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Page is one page of events plus the relations loaded on them.
type Page struct {
	Events    []models.Event
	Total     int
	Relations relations.Set
}

func (s *EventService) List(ctx context.Context, page pagination.Params, include string) (*Page, error) {
	events, total, set, err := s.DB.ListEvents(ctx, page, include)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return &Page{Events: events, Total: total, Relations: set}, nil
}

// Get returns the event with user and attendees always loaded.
func (s *EventService) Get(ctx context.Context, id int64, include string) (*models.Event, relations.Set, error) {
	event, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	set, err := s.DB.LoadRelations(ctx, event, include, relations.RelUser, relations.RelAttendees)
	if err != nil {
		return nil, nil, err
	}
	return event, set, nil
}

func (s *EventService) Create(ctx context.Context, actor *models.User, req models.CreateEventRequest, include string) (*models.Event, relations.Set, error) {
	if actor == nil {
		return nil, nil, utils.ErrUnauthenticated
	}

	req.Normalize()
	verr := s.Validator.Struct(req)
	start, startOK := utils.ParseDate(req.StartTime)
	end, endOK := utils.ParseDate(req.EndTime)
	if startOK && endOK {
		verr = checkOrder(verr, start, end)
	}
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}

	now := s.Now()
	event := &models.Event{
		Name:        req.Name,
		Description: req.Description,
		StartTime:   start,
		EndTime:     end,
		OwnerID:     actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, nil, fmt.Errorf("create event: %w", err)
	}
	s.Logger.LogDatabase("INSERT", "events", fmt.Sprintf("event %d created by user %d", event.ID, actor.ID))

	set, err := s.DB.LoadRelations(ctx, event, include)
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, models.ActivityEventCreated, event, actor)
	return event, set, nil
}

// Update applies a partial update. Only the owner may change an event, and
// the end time is checked against the merged start and end.
func (s *EventService) Update(ctx context.Context, actor *models.User, id int64, req models.UpdateEventRequest, include string) (*models.Event, relations.Set, error) {
	if actor == nil {
		return nil, nil, utils.ErrUnauthenticated
	}
	event, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !event.OwnedBy(actor.ID) {
		return nil, nil, utils.Forbidden("You are not authorized to update this event")
	}

	req.Normalize()
	verr := s.Validator.Struct(req)
	start, startOK := event.StartTime, true
	if req.StartTime != nil {
		start, startOK = utils.ParseDate(*req.StartTime)
	}
	end, endOK := event.EndTime, true
	if req.EndTime != nil {
		end, endOK = utils.ParseDate(*req.EndTime)
	}
	if startOK && endOK && (req.StartTime != nil || req.EndTime != nil) {
		verr = checkOrder(verr, start, end)
	}
	if err := verr.OrNil(); err != nil {
		return nil, nil, err
	}

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Description.Present {
		event.Description = req.Description.Value
	}
	event.StartTime = start
	event.EndTime = end
	event.UpdatedAt = s.Now()

	if err := s.DB.UpdateEvent(ctx, event); err != nil {
		return nil, nil, fmt.Errorf("update event: %w", err)
	}
	s.Logger.LogDatabase("UPDATE", "events", fmt.Sprintf("event %d updated by user %d", event.ID, actor.ID))

	set, err := s.DB.LoadRelations(ctx, event, include)
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, models.ActivityEventUpdated, event, actor)
	return event, set, nil
}

// Delete removes an event and its attendees. Only the owner may delete.
func (s *EventService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if actor == nil {
		return utils.ErrUnauthenticated
	}
	event, err := s.DB.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if !event.OwnedBy(actor.ID) {
		return utils.Forbidden("You are not authorized to delete this event")
	}

	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.Logger.LogDatabase("DELETE", "events", fmt.Sprintf("event %d deleted by user %d", id, actor.ID))
	s.publish(ctx, models.ActivityEventDeleted, event, actor)
	return nil
}

func checkOrder(verr *utils.ValidationError, start, end time.Time) *utils.ValidationError {
	if end.After(start) {
		return verr
	}
	if verr == nil {
		verr = utils.NewValidationError()
	}
	verr.Add("end_time", validation.After("end_time", "start_time"))
	return verr
}

// publish never fails the request; delivery problems are only logged.
func (s *EventService) publish(ctx context.Context, t models.ActivityType, event *models.Event, actor *models.User) {
	if s.Publisher == nil {
		return
	}
	activity := models.Activity{
		Type:       t,
		EntityID:   event.ID,
		EventID:    event.ID,
		ActorID:    actor.ID,
		OccurredAt: s.Now(),
		Payload: map[string]interface{}{
			"name":       event.Name,
			"start_time": event.StartTime,
			"end_time":   event.EndTime,
			"owner_id":   event.OwnerID,
		},
	}
	if err := s.Publisher.Publish(ctx, activity); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for event %d: %v", t, event.ID, err))
	}
}
