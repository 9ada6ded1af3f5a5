package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/utils"
	"ms-events/internal/validation"
)

const credentialsIncorrect = "The provided credentials are incorrect"

type DBLayer interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateToken(ctx context.Context, token *models.PersonalAccessToken) error
	GetToken(ctx context.Context, id int64) (*models.PersonalAccessToken, error)
	TouchToken(ctx context.Context, id int64, at time.Time) (bool, error)
	DeleteUserTokens(ctx context.Context, userID int64) (int64, error)
}

type AuthService struct {
	DB        DBLayer
	Cache     TokenCache
	Validator *validation.Validator
	Logger    *logger.Logger
	Now       func() time.Time

	// dummyHash is compared against for unknown emails.
	dummyHash []byte
}

func NewAuthService(db DBLayer, cache TokenCache, v *validation.Validator, log *logger.Logger, bcryptCost int) (*AuthService, error) {
	if cache == nil {
		cache = NoopCache()
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare password hasher: %w", err)
	}
	return &AuthService{
		DB:        db,
		Cache:     cache,
		Validator: v,
		Logger:    log,
		Now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}, nil
}

// HashPassword bcrypts a plain password for storage.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login checks the credentials and issues a new token. Unknown emails and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	req.Normalize()
	if verr := s.Validator.Struct(req); verr != nil {
		return nil, verr
	}

	user, err := s.DB.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = []byte(user.Password)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || user == nil {
		s.Logger.LogSecurity("LOGIN_FAILED", fmt.Sprintf("email=%s", req.Email))
		return nil, utils.ValidationFailed("email", credentialsIncorrect)
	}

	secret, hashed, err := NewSecret()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := &models.PersonalAccessToken{
		UserID:    user.ID,
		Name:      TokenName,
		Token:     hashed,
		CreatedAt: s.Now(),
	}
	if err := s.DB.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	s.Logger.Info("AUTH", fmt.Sprintf("User %d logged in, token %d issued", user.ID, token.ID))
	return &models.TokenResponse{Token: PlainToken(token.ID, secret)}, nil
}

// Logout revokes every token of actor. Calling it again is harmless.
func (s *AuthService) Logout(ctx context.Context, actor *models.User) error {
	if actor == nil {
		return utils.ErrUnauthenticated
	}

	n, err := s.DB.DeleteUserTokens(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	if err := s.Cache.ForgetUser(ctx, actor.ID); err != nil {
		s.Logger.Error("AUTH", fmt.Sprintf("Failed to purge cached tokens of user %d: %v", actor.ID, err))
	}

	s.Logger.Info("AUTH", fmt.Sprintf("User %d logged out, %d tokens revoked", actor.ID, n))
	return nil
}

// Authenticate resolves a plain bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, plain string) (*models.User, error) {
	id, secret, err := ParsePlainToken(plain)
	if err != nil {
		return nil, utils.ErrUnauthenticated
	}

	cached, err := s.Cache.Get(ctx, id)
	if err != nil {
		s.Logger.Warn("AUTH", fmt.Sprintf("Token cache read failed: %v", err))
		cached = nil
	}

	fromDB := false
	if cached == nil {
		row, err := s.DB.GetToken(ctx, id)
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.ErrUnauthenticated
		}
		if err != nil {
			return nil, fmt.Errorf("look up token: %w", err)
		}
		cached = &CachedToken{UserID: row.UserID, Hash: row.Token}
		fromDB = true
	}

	if subtle.ConstantTimeCompare([]byte(cached.Hash), []byte(utils.HashToken(secret))) != 1 {
		return nil, utils.ErrUnauthenticated
	}

	user, err := s.DB.GetUserByID(ctx, cached.UserID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("look up token owner: %w", err)
	}

	// The row must still exist, so a stale cache entry cannot outlive logout.
	alive, err := s.DB.TouchToken(ctx, id, s.Now())
	if err != nil {
		return nil, fmt.Errorf("touch token: %w", err)
	}
	if !alive {
		return nil, utils.ErrUnauthenticated
	}

	if fromDB {
		if err := s.Cache.Set(ctx, id, *cached); err != nil {
			s.Logger.Warn("AUTH", fmt.Sprintf("Token cache write failed: %v", err))
		}
	}
	return user, nil
}
