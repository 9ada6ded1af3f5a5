package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
	"ms-events/internal/pagination"
	"ms-events/internal/relations"
	"ms-events/internal/utils"
)

type DB struct {
	Bun *bun.DB
}

// ListEvents returns one page of events, newest first, with the requested
// relations loaded.
func (d *DB) ListEvents(ctx context.Context, page pagination.Params, include string) ([]models.Event, int, relations.Set, error) {
	var events []models.Event
	q := d.Bun.NewSelect().
		Model(&events).
		Order("event.created_at DESC", "event.id DESC")
	q, set := relations.Events.Apply(q, include)

	total, err := page.Apply(q).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, nil, err
	}
	return events, total, set, nil
}

func (d *DB) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("event.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("event", id)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// LoadRelations reloads event with the selected relations.
func (d *DB) LoadRelations(ctx context.Context, event *models.Event, include string, always ...relations.Relation) (relations.Set, error) {
	return relations.Events.Load(ctx, d.Bun, event, include, always...)
}

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := d.Bun.NewUpdate().
		Model(event).
		Column("name", "description", "start_time", "end_time", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NotFound("event", event.ID)
	}
	return nil
}

// DeleteEvent removes the event and its attendees in one transaction.
func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Attendee)(nil)).
			Where("event_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*models.Event)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return utils.NotFound("event", id)
		}
		return nil
	})
}
