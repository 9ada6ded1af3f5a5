package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-events/internal/database"
	"ms-events/internal/models"
	"ms-events/internal/pagination"
	"ms-events/internal/relations"
	"ms-events/internal/utils"
)

type DB struct {
	Bun *bun.DB
}

// GetEvent fetches the parent event without relations.
func (d *DB) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event.id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("event", eventID)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) ListAttendees(ctx context.Context, eventID int64, page pagination.Params, include string) ([]models.Attendee, int, relations.Set, error) {
	var attendees []models.Attendee
	q := d.Bun.NewSelect().
		Model(&attendees).
		Where("attendee.event_id = ?", eventID).
		Order("attendee.created_at DESC", "attendee.id DESC")
	q, set := relations.Attendees.Apply(q, include)

	total, err := page.Apply(q).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, nil, err
	}
	return attendees, total, set, nil
}

// GetAttendee returns the attendee only when it belongs to eventID.
func (d *DB) GetAttendee(ctx context.Context, eventID, attendeeID int64) (*models.Attendee, error) {
	var attendee models.Attendee
	err := d.Bun.NewSelect().
		Model(&attendee).
		Where("attendee.id = ?", attendeeID).
		Where("attendee.event_id = ?", eventID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("attendee", attendeeID)
	}
	if err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (d *DB) IsRegistered(ctx context.Context, eventID, userID int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Attendee)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exists(ctx)
}

func (d *DB) LoadRelations(ctx context.Context, attendee *models.Attendee, include string) (relations.Set, error) {
	return relations.Attendees.Load(ctx, d.Bun, attendee, include)
}

// CreateAttendee inserts the registration. A concurrent duplicate hits the
// unique (event_id, user_id) index and is reported as a conflict.
func (d *DB) CreateAttendee(ctx context.Context, attendee *models.Attendee) error {
	_, err := d.Bun.NewInsert().Model(attendee).Exec(ctx)
	if database.IsUniqueViolation(err) {
		return utils.Conflict("The user is already registered for this event")
	}
	return err
}

func (d *DB) DeleteAttendee(ctx context.Context, attendeeID int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Attendee)(nil)).
		Where("id = ?", attendeeID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFound("attendee", attendeeID)
	}
	return nil
}
