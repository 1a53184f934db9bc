package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

const (
	StrategyOpaque = "opaque"
	StrategyJWT    = "jwt"
)

// Presented is a refresh credential that passed structural checks.
type Presented struct {
	UserID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time

	secretHash string
	superseded bool
}

// Superseded reports that the credential was retired by a rotation, i.e. it
// is being replayed.
func (p Presented) Superseded() bool { return p.superseded }

// RefreshStrategy is one way of issuing and retiring refresh credentials.
// Errors from Inspect, Rotate and Revoke are *domainsession.AuthError for every
// caller-visible rejection.
type RefreshStrategy interface {
	Name() string
	Issue(ctx context.Context, userID uuid.UUID, email string) (token string, expiresAt time.Time, err error)
	// Inspect returns the owner of an Active credential. When the result is
	// domainsession.ErrRefreshTokenRevoked the returned Presented still names the owner.
	Inspect(ctx context.Context, token string) (Presented, error)
	// Rotate retires p and issues its successor. At most one caller wins
	// for the same p; the rest get domainsession.ErrRefreshTokenRevoked.
	Rotate(ctx context.Context, p Presented, email string) (token string, expiresAt time.Time, err error)
	// Revoke retires token. revoked is false when it already was.
	Revoke(ctx context.Context, token string) (p Presented, revoked bool, err error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]domainsession.RefreshRecord, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error)
}

type RefreshJWTIssuer interface {
	IssueRefreshJWT(userID uuid.UUID, email string) (token, jti string, expiresAt time.Time, err error)
	ValidateAndExtractRefreshInfo(token string) (domainsession.RefreshInfo, error)
}

// NewStrategy builds the strategy named by name. The ledger is used by
// "opaque", the registry by "jwt".
func NewStrategy(
	name string,
	ledger domainsession.RefreshLedger,
	registry domainsession.RevocationRegistry,
	jwtIssuer RefreshJWTIssuer,
	refreshTTL time.Duration,
	now func() time.Time,
) (RefreshStrategy, error) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	switch name {
	case "", StrategyOpaque:
		return NewOpaqueStrategy(ledger, refreshTTL, now), nil
	case StrategyJWT:
		return NewJWTStrategy(jwtIssuer, registry, now), nil
	default:
		return nil, fmt.Errorf("unknown refresh strategy %q", name)
	}
}
