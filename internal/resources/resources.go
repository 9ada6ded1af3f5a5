// Package resources renders models as JSON payloads. A relation appears in
// the payload only when it was selected for loading.
package resources

import (
	"time"

	"ms-events/internal/models"
	"ms-events/internal/relations"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Attendee struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	User      *User     `json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Event struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time"`
	OwnerID     int64        `json:"owner_id"`
	User        *User        `json:"user,omitempty"`
	Attendees   *[]*Attendee `json:"attendees,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func NewUser(u *models.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NewAttendee presents a single attendee. withUser controls the user key.
func NewAttendee(a *models.Attendee, withUser bool) *Attendee {
	out := &Attendee{
		ID:        a.ID,
		EventID:   a.EventID,
		UserID:    a.UserID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if withUser {
		out.User = NewUser(a.User)
	}
	return out
}

// AttendeeFrom presents an attendee loaded through the attendees resource.
func AttendeeFrom(a *models.Attendee, set relations.Set) *Attendee {
	return NewAttendee(a, set.Has(relations.RelUser))
}

func Attendees(list []models.Attendee, set relations.Set) []*Attendee {
	out := make([]*Attendee, 0, len(list))
	for i := range list {
		out = append(out, AttendeeFrom(&list[i], set))
	}
	return out
}

// EventFrom presents an event. Loading "attendees.user" also loads the
// attendees themselves, so either name exposes the attendees key.
func EventFrom(e *models.Event, set relations.Set) *Event {
	out := &Event{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		OwnerID:     e.OwnerID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if set.Has(relations.RelUser) {
		out.User = NewUser(e.User)
	}
	withAttendeeUser := set.Has(relations.RelAttendeesUser)
	if set.Has(relations.RelAttendees) || withAttendeeUser {
		attendees := make([]*Attendee, 0, len(e.Attendees))
		for _, a := range e.Attendees {
			attendees = append(attendees, NewAttendee(a, withAttendeeUser))
		}
		out.Attendees = &attendees
	}
	return out
}

func Events(list []models.Event, set relations.Set) []*Event {
	out := make([]*Event, 0, len(list))
	for i := range list {
		out = append(out, EventFrom(&list[i], set))
	}
	return out
}
