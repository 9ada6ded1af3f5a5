package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Attendee is a user's registration for an event. (event_id, user_id) is unique.
type Attendee struct {
	bun.BaseModel `bun:"table:attendees,alias:attendee"`

	ID        int64     `bun:"id,pk,autoincrement"`
	EventID   int64     `bun:"event_id,notnull,unique:attendees_event_user"`
	UserID    int64     `bun:"user_id,notnull,unique:attendees_event_user"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`

	// Relations
	User  *User  `bun:"rel:belongs-to,join:user_id=id"`
	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}
