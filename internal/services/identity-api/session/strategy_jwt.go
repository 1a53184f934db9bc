package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

var _ RefreshStrategy = (*JWTStrategy)(nil)

// JWTStrategy uses self-describing refresh tokens. Retirement is a
// denylist entry keyed by jti.
type JWTStrategy struct {
	issuer   RefreshJWTIssuer
	registry domainsession.RevocationRegistry
	now      func() time.Time
}

func NewJWTStrategy(issuer RefreshJWTIssuer, registry domainsession.RevocationRegistry, now func() time.Time) *JWTStrategy {
	return &JWTStrategy{issuer: issuer, registry: registry, now: now}
}

func (s *JWTStrategy) Name() string { return StrategyJWT }

func (s *JWTStrategy) Issue(_ context.Context, userID uuid.UUID, email string) (string, time.Time, error) {
	token, _, exp, err := s.issuer.IssueRefreshJWT(userID, email)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh: %w", err)
	}
	return token, exp, nil
}

func (s *JWTStrategy) decode(token string) (Presented, error) {
	info, err := s.issuer.ValidateAndExtractRefreshInfo(token)
	if err != nil {
		return Presented{}, domainsession.ErrInvalidRefreshToken
	}
	return Presented{UserID: info.UserID, TokenID: info.TokenID, ExpiresAt: info.ExpiresAt}, nil
}

func (s *JWTStrategy) Inspect(ctx context.Context, token string) (Presented, error) {
	p, err := s.decode(token)
	if err != nil {
		return Presented{}, err
	}
	revoked, err := s.registry.IsRevoked(ctx, p.TokenID)
	if err != nil {
		return Presented{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		p.superseded = true
		return p, domainsession.ErrRefreshTokenRevoked
	}
	return p, nil
}

func (s *JWTStrategy) retire(ctx context.Context, p Presented) (bool, error) {
	inserted, err := s.registry.Revoke(ctx, domainsession.RevocationEntry{
		TokenID:   p.TokenID,
		UserID:    p.UserID,
		ExpiresAt: p.ExpiresAt,
		RevokedAt: s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("revoke jti: %w", err)
	}
	return inserted, nil
}

func (s *JWTStrategy) Rotate(ctx context.Context, p Presented, email string) (string, time.Time, error) {
	won, err := s.retire(ctx, p)
	if err != nil {
		return "", time.Time{}, err
	}
	if !won {
		return "", time.Time{}, domainsession.ErrRefreshTokenRevoked
	}
	return s.Issue(ctx, p.UserID, email)
}

func (s *JWTStrategy) Revoke(ctx context.Context, token string) (Presented, bool, error) {
	p, err := s.decode(token)
	if err != nil {
		return Presented{}, false, err
	}
	inserted, err := s.retire(ctx, p)
	if err != nil {
		return Presented{}, false, err
	}
	return p, inserted, nil
}

func (s *JWTStrategy) ListActive(context.Context, uuid.UUID) ([]domainsession.RefreshRecord, error) {
	return nil, domainsession.ErrUnsupported
}

func (s *JWTStrategy) RevokeAll(context.Context, uuid.UUID) (int64, error) {
	return 0, domainsession.ErrUnsupported
}
