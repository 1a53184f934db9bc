// Package google verifies Google Sign-In ID tokens.
package google

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/NordCoder/Warden/internal/domain/session"
	"github.com/NordCoder/Warden/internal/domain/user"
)

const DefaultCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

var validIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

var (
	ErrInvalidToken     = session.ErrInvalidExternalToken
	ErrEmailNotVerified = session.ErrUnverifiedEmail
)

type idClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

func (c idClaims) verified() bool {
	switch v := c.EmailVerified.(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

type Validator struct {
	clientID string
	keyFunc  jwt.Keyfunc
	now      func() time.Time
}

type Option func(*Validator)

func WithClock(now func() time.Time) Option { return func(v *Validator) { v.now = now } }

func NewValidator(clientID string, keyFunc jwt.Keyfunc, opts ...Option) (*Validator, error) {
	if clientID == "" {
		return nil, errors.New("google: client id is required")
	}
	if keyFunc == nil {
		return nil, errors.New("google: key func is required")
	}
	v := &Validator{clientID: clientID, keyFunc: keyFunc, now: time.Now}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// NewJWKSValidator fetches and refreshes Google's signing keys in the
// background until ctx is done.
func NewJWKSValidator(ctx context.Context, clientID, certsURL string, opts ...Option) (*Validator, error) {
	if certsURL == "" {
		certsURL = DefaultCertsURL
	}
	k, err := keyfunc.NewDefaultCtx(ctx, []string{certsURL})
	if err != nil {
		return nil, fmt.Errorf("google jwks: %w", err)
	}
	return NewValidator(clientID, k.Keyfunc, opts...)
}

func (v *Validator) Validate(_ context.Context, idToken string) (*user.ExternalIdentity, error) {
	var claims idClaims
	tok, err := jwt.ParseWithClaims(idToken, &claims, v.keyFunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if !issuerAllowed(claims.Issuer) || claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	if !claims.verified() {
		return nil, ErrEmailNotVerified
	}
	return &user.ExternalIdentity{
		Provider:       user.ProviderGoogle,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		DisplayName:    claims.Name,
	}, nil
}

func issuerAllowed(iss string) bool {
	for _, s := range validIssuers {
		if iss == s {
			return true
		}
	}
	return false
}
