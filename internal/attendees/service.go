package attendees

import (
	"context"
	"fmt"
	"time"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/pagination"
	"ms-events/internal/relations"
	"ms-events/internal/utils"
)

type DBLayer interface {
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	ListAttendees(ctx context.Context, eventID int64, page pagination.Params, include string) ([]models.Attendee, int, relations.Set, error)
	GetAttendee(ctx context.Context, eventID, attendeeID int64) (*models.Attendee, error)
	IsRegistered(ctx context.Context, eventID, userID int64) (bool, error)
	LoadRelations(ctx context.Context, attendee *models.Attendee, include string) (relations.Set, error)
	CreateAttendee(ctx context.Context, attendee *models.Attendee) error
	DeleteAttendee(ctx context.Context, attendeeID int64) error
}

type Publisher interface {
	Publish(ctx context.Context, activity models.Activity) error
}

type AttendeeService struct {
	DB        DBLayer
	Publisher Publisher
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewAttendeeService(db DBLayer, pub Publisher, log *logger.Logger) *AttendeeService {
	return &AttendeeService{
		DB:        db,
		Publisher: pub,
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

type Page struct {
	Attendees []models.Attendee
	Total     int
	Relations relations.Set
}

// List returns the event's attendees, newest first. An unknown event is a 404
// rather than an empty page.
func (s *AttendeeService) List(ctx context.Context, eventID int64, page pagination.Params, include string) (*Page, error) {
	if _, err := s.DB.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	list, total, set, err := s.DB.ListAttendees(ctx, eventID, page, include)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return &Page{Attendees: list, Total: total, Relations: set}, nil
}

// Register signs the actor up for the event. Only self-registration exists.
func (s *AttendeeService) Register(ctx context.Context, actor *models.User, eventID int64, include string) (*models.Attendee, relations.Set, error) {
	if actor == nil {
		return nil, nil, utils.ErrUnauthenticated
	}
	if _, err := s.DB.GetEvent(ctx, eventID); err != nil {
		return nil, nil, err
	}

	registered, err := s.DB.IsRegistered(ctx, eventID, actor.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("check registration: %w", err)
	}
	if registered {
		return nil, nil, utils.Conflict("The user is already registered for this event")
	}

	now := s.Now()
	attendee := &models.Attendee{
		EventID:   eventID,
		UserID:    actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.DB.CreateAttendee(ctx, attendee); err != nil {
		return nil, nil, err
	}
	s.Logger.LogDatabase("INSERT", "attendees", fmt.Sprintf("user %d registered for event %d", actor.ID, eventID))

	set, err := s.DB.LoadRelations(ctx, attendee, include)
	if err != nil {
		return nil, nil, err
	}
	s.publish(ctx, models.ActivityAttendeeRegistered, attendee, actor)
	return attendee, set, nil
}

func (s *AttendeeService) Get(ctx context.Context, eventID, attendeeID int64, include string) (*models.Attendee, relations.Set, error) {
	if _, err := s.DB.GetEvent(ctx, eventID); err != nil {
		return nil, nil, err
	}
	attendee, err := s.DB.GetAttendee(ctx, eventID, attendeeID)
	if err != nil {
		return nil, nil, err
	}
	set, err := s.DB.LoadRelations(ctx, attendee, include)
	if err != nil {
		return nil, nil, err
	}
	return attendee, set, nil
}

// Remove deletes a registration. The event owner and the registered user
// may remove it.
func (s *AttendeeService) Remove(ctx context.Context, actor *models.User, eventID, attendeeID int64) error {
	if actor == nil {
		return utils.ErrUnauthenticated
	}
	event, err := s.DB.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	attendee, err := s.DB.GetAttendee(ctx, eventID, attendeeID)
	if err != nil {
		return err
	}
	if !event.OwnedBy(actor.ID) && attendee.UserID != actor.ID {
		return utils.Forbidden("You are not authorized to remove this attendee")
	}

	if err := s.DB.DeleteAttendee(ctx, attendeeID); err != nil {
		return fmt.Errorf("delete attendee: %w", err)
	}
	s.Logger.LogDatabase("DELETE", "attendees", fmt.Sprintf("attendee %d removed from event %d by user %d", attendeeID, eventID, actor.ID))
	s.publish(ctx, models.ActivityAttendeeRemoved, attendee, actor)
	return nil
}

func (s *AttendeeService) publish(ctx context.Context, t models.ActivityType, attendee *models.Attendee, actor *models.User) {
	if s.Publisher == nil {
		return
	}
	activity := models.Activity{
		Type:       t,
		EntityID:   attendee.ID,
		EventID:    attendee.EventID,
		ActorID:    actor.ID,
		OccurredAt: s.Now(),
		Payload:    map[string]interface{}{"user_id": attendee.UserID},
	}
	if err := s.Publisher.Publish(ctx, activity); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for attendee %d: %v", t, attendee.ID, err))
	}
}
