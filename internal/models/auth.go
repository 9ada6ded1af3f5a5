package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// PersonalAccessToken stores the sha256 of a bearer token secret. The plain
// token handed to the client is "<id>|<secret>".
type PersonalAccessToken struct {
	bun.BaseModel `bun:"table:personal_access_tokens,alias:pat"`

	ID         int64      `bun:"id,pk,autoincrement"`
	UserID     int64      `bun:"user_id,notnull"`
	Name       string     `bun:"name,notnull"`
	Token      string     `bun:"token,unique,notnull"`
	LastUsedAt *time.Time `bun:"last_used_at"`
	CreatedAt  time.Time  `bun:"created_at,notnull"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims the email. The password is used as sent.
func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type TokenResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
