// Package token signs and verifies the compact claim envelopes used by the
// registration, password-reset and session flows. Tokens are signed, not
// encrypted: payload fields are visible to any holder. Each flow uses its own
// signing secret so a token minted for one purpose can never be replayed as
// another.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validity windows for each token purpose.
const (
	ActivationTTL = 10 * time.Minute
	ResetTTL      = 10 * time.Minute
	SessionTTL    = 7 * 24 * time.Hour
)

var (
	// ErrExpired indicates the token's validity window has passed.
	ErrExpired = errors.New("token: expired")
	// ErrInvalid indicates a malformed, tampered or foreign-purpose token.
	ErrInvalid = errors.New("token: invalid")
)

// ActivationClaims is the pending-registration payload. It has no server-side
// stored representation and carries the submitted password until activation
// hashes it; it must never be logged or persisted as-is.
type ActivationClaims struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Categories []int64 `json:"categories,omitempty"`
	jwt.RegisteredClaims
}

// ResetClaims is the password-reset payload. The issued token string is
// mirrored onto the user record; the mirror is what prevents replay.
type ResetClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// SessionClaims proves authenticated identity for the session window.
type SessionClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Codec issues and verifies tokens with purpose-bound secrets.
type Codec struct {
	activationSecret []byte
	resetSecret      []byte
	sessionSecret    []byte
}

// NewCodec constructs a Codec. All three secrets must be distinct.
func NewCodec(activation, reset, session string) (*Codec, error) {
	if activation == "" || reset == "" || session == "" {
		return nil, errors.New("token: all signing secrets must be provided")
	}
	if activation == reset || activation == session || reset == session {
		return nil, errors.New("token: signing secrets must differ per purpose")
	}
	return &Codec{
		activationSecret: []byte(activation),
		resetSecret:      []byte(reset),
		sessionSecret:    []byte(session),
	}, nil
}

// IssueActivation mints a pending-registration token with a 10 minute window.
func (c *Codec) IssueActivation(name, email, password string, categories []int64) (string, error) {
	claims := &ActivationClaims{
		Name:             name,
		Email:            email,
		Password:         password,
		Categories:       categories,
		RegisteredClaims: registered(ActivationTTL),
	}
	return sign(claims, c.activationSecret)
}

// ParseActivation verifies an activation token and returns its claims.
func (c *Codec) ParseActivation(tokenString string) (*ActivationClaims, error) {
	claims := &ActivationClaims{}
	if err := parse(tokenString, claims, c.activationSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueReset mints a password-reset token with a 10 minute window.
func (c *Codec) IssueReset(name string) (string, error) {
	claims := &ResetClaims{
		Name:             name,
		RegisteredClaims: registered(ResetTTL),
	}
	return sign(claims, c.resetSecret)
}

// ParseReset verifies a reset token and returns its claims.
func (c *Codec) ParseReset(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := parse(tokenString, claims, c.resetSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueSession mints a 7 day session token bound to a user identifier.
func (c *Codec) IssueSession(userID int64) (string, error) {
	claims := &SessionClaims{
		UserID:           userID,
		RegisteredClaims: registered(SessionTTL),
	}
	return sign(claims, c.sessionSecret)
}

// ParseSession verifies a session token and returns its claims.
func (c *Codec) ParseSession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := parse(tokenString, claims, c.sessionSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func registered(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

func parse(tokenString string, claims jwt.Claims, secret []byte) error {
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !tok.Valid {
		return ErrInvalid
	}
	return nil
}
