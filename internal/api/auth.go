package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// TokenVerifier validates the bearer tokens clients present on their first
// WebSocket message. Tokens are HS256 JWTs issued by the account service;
// the subject claim is the player id.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the shared HS256 secret.
func NewTokenVerifier(secret string) (*TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("auth: empty JWT secret")
	}
	return &TokenVerifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a token, returning the player id.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return "", errors.Wrap(err, "parsing token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token missing subject")
	}
	return sub, nil
}

// IssueToken mints a token for the given player id. Used by tests and the
// local development login stub.
func (v *TokenVerifier) IssueToken(playerID string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   playerID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return signed, nil
}
