package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/utils"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:event"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull"`
	Description *string   `bun:"description"`
	StartTime   time.Time `bun:"start_time,notnull"`
	EndTime     time.Time `bun:"end_time,notnull"`
	OwnerID     int64     `bun:"owner_id,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`

	// Relations
	User      *User       `bun:"rel:belongs-to,join:owner_id=id"`
	Attendees []*Attendee `bun:"rel:has-many,join:id=event_id"`
}

// OwnedBy reports whether userID created the event.
func (e *Event) OwnedBy(userID int64) bool {
	return e != nil && e.OwnerID == userID
}

type CreateEventRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description"`
	StartTime   string  `json:"start_time" validate:"required,date"`
	EndTime     string  `json:"end_time" validate:"required,date"`
}

// UpdateEventRequest carries a partial update. Nil fields keep their value;
// Description may be cleared with an explicit null.
type UpdateEventRequest struct {
	Name        *string                `json:"name" validate:"omitnil,filled,max=255"`
	Description utils.Optional[string] `json:"description"`
	StartTime   *string                `json:"start_time" validate:"omitnil,filled,date"`
	EndTime     *string                `json:"end_time" validate:"omitnil,filled,date"`
}

// Normalize trims surrounding whitespace. A blank description becomes null.
func (r *CreateEventRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.EndTime = strings.TrimSpace(r.EndTime)
	r.Description = blankToNil(r.Description)
}

func (r *UpdateEventRequest) Normalize() {
	r.Name = trimPtr(r.Name)
	r.StartTime = trimPtr(r.StartTime)
	r.EndTime = trimPtr(r.EndTime)
	r.Description.Value = blankToNil(r.Description.Value)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func blankToNil(s *string) *string {
	if s = trimPtr(s); s == nil || *s == "" {
		return nil
	}
	return s
}
