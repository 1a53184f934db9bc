package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Warden/internal/domain/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const MinSecretLen = 32

var (
	ErrWeakSecret   = errors.New("signing secret must be at least 32 characters")
	ErrTokenInvalid = errors.New("invalid token")
)

type Settings struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer signs and verifies tokens. It keeps no state between calls.
type Issuer struct {
	s     Settings
	now   func() time.Time
	newID func() string
}

type Option func(*Issuer)

func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func WithIDSource(newID func() string) Option {
	return func(i *Issuer) { i.newID = newID }
}

func NewIssuer(s Settings, opts ...Option) (*Issuer, error) {
	if len(s.Secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	if s.AccessTTL <= 0 || s.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive: access=%s refresh=%s", s.AccessTTL, s.RefreshTTL)
	}
	i := &Issuer{
		s:   s,
		now: func() time.Time { return time.Now().UTC() },
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

func (i *Issuer) AccessTTL() time.Duration  { return i.s.AccessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.s.RefreshTTL }

// IssueAccess mints an access token; expiresAt = issuedAt + AccessTTL.
func (i *Issuer) IssueAccess(userID uuid.UUID, email string, roles []string) (string, time.Time, error) {
	token, _, exp, err := i.sign(userID, email, roles, TokenTypeAccess, i.s.AccessTTL)
	return token, exp, err
}

// IssueRefreshJWT mints a self-describing refresh token for the stateless strategy.
func (i *Issuer) IssueRefreshJWT(userID uuid.UUID, email string) (token, jti string, expiresAt time.Time, err error) {
	return i.sign(userID, email, nil, TokenTypeRefresh, i.s.RefreshTTL)
}

func (i *Issuer) sign(userID uuid.UUID, email string, roles []string, typ string, ttl time.Duration) (string, string, time.Time, error) {
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	jti := i.newID()

	claims := Claims{
		Email:     email,
		Roles:     append([]string(nil), roles...),
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    i.s.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}
	if i.s.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.s.Audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.s.Secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, jti, expiresAt, nil
}

func (i *Issuer) parserOpts(validateClaims bool) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if !validateClaims {
		return append(opts, jwt.WithoutClaimsValidation())
	}
	opts = append(opts, jwt.WithExpirationRequired(), jwt.WithIssuedAt(), jwt.WithTimeFunc(i.now))
	if i.s.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.s.Issuer))
	}
	if i.s.Audience != "" {
		opts = append(opts, jwt.WithAudience(i.s.Audience))
	}
	return opts
}

func (i *Issuer) parse(token, typ string, validateClaims bool) (*Claims, uuid.UUID, error) {
	var claims Claims
	_, err := jwt.NewParser(i.parserOpts(validateClaims)...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.s.Secret, nil
	})
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.TokenType != typ {
		return nil, uuid.Nil, fmt.Errorf("%w: unexpected token type %q", ErrTokenInvalid, claims.TokenType)
	}
	if claims.ID == "" {
		return nil, uuid.Nil, fmt.Errorf("%w: missing jti", ErrTokenInvalid)
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	return &claims, uid, nil
}

func (i *Issuer) ParseAccess(token string) (*session.Principal, error) {
	claims, uid, err := i.parse(token, TokenTypeAccess, true)
	if err != nil {
		return nil, err
	}
	return &session.Principal{
		UserID:  uid,
		Email:   claims.Email,
		Roles:   claims.Roles,
		TokenID: claims.ID,
	}, nil
}

// SubjectOfAccess checks signature and type but not lifetime. Used to pair an
// expired access token with the refresh token presented alongside it.
func (i *Issuer) SubjectOfAccess(token string) (uuid.UUID, error) {
	_, uid, err := i.parse(token, TokenTypeAccess, false)
	return uid, err
}

// ValidateAndExtractRefreshInfo fails closed: any fault yields ErrTokenInvalid
// and a zero RefreshInfo.
func (i *Issuer) ValidateAndExtractRefreshInfo(token string) (session.RefreshInfo, error) {
	claims, uid, err := i.parse(token, TokenTypeRefresh, true)
	if err != nil {
		return session.RefreshInfo{}, err
	}
	return session.RefreshInfo{
		UserID:    uid,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
