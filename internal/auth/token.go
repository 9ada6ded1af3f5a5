package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ms-events/internal/utils"
)

const (
	// TokenName is stored with every token issued by login.
	TokenName    = "api-token"
	secretLength = 40
)

var (
	ErrMissingToken   = errors.New("authorization header is missing")
	ErrMalformedToken = errors.New("malformed bearer token")
)

// ExtractTokenFromRequest extracts the bearer token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}

// NewSecret returns a fresh random secret and the hash to persist for it.
func NewSecret() (secret, hash string, err error) {
	secret, err = utils.RandomString(secretLength)
	if err != nil {
		return "", "", err
	}
	return secret, utils.HashToken(secret), nil
}

// PlainToken is the credential handed to clients: "<id>|<secret>".
func PlainToken(id int64, secret string) string {
	return fmt.Sprintf("%d|%s", id, secret)
}

// ParsePlainToken splits a plain token into its row id and secret.
func ParsePlainToken(plain string) (int64, string, error) {
	idPart, secret, ok := strings.Cut(plain, "|")
	if !ok || secret == "" {
		return 0, "", ErrMalformedToken
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", ErrMalformedToken
	}
	return id, secret, nil
}
