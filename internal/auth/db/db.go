package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
	"ms-events/internal/utils"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	return err
}

func (d *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("usr.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("usr.email = ?", email).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("user", email)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) CreateToken(ctx context.Context, token *models.PersonalAccessToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	_, err := d.Bun.NewInsert().Model(token).Exec(ctx)
	return err
}

func (d *DB) GetToken(ctx context.Context, id int64) (*models.PersonalAccessToken, error) {
	var token models.PersonalAccessToken
	err := d.Bun.NewSelect().
		Model(&token).
		Where("pat.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NotFound("token", id)
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// TouchToken records a use of the token. It reports false when the token
// no longer exists.
func (d *DB) TouchToken(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.PersonalAccessToken)(nil)).
		Set("last_used_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteUserTokens revokes every token of userID and returns how many went.
func (d *DB) DeleteUserTokens(ctx context.Context, userID int64) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.PersonalAccessToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
