package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Warden/internal/auth"
	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

var _ RefreshStrategy = (*OpaqueStrategy)(nil)

// OpaqueStrategy hands out random tokens and keeps only their sha256 in the
// refresh ledger.
type OpaqueStrategy struct {
	ledger domainsession.RefreshLedger
	ttl    time.Duration
	now    func() time.Time
}

func NewOpaqueStrategy(ledger domainsession.RefreshLedger, ttl time.Duration, now func() time.Time) *OpaqueStrategy {
	return &OpaqueStrategy{ledger: ledger, ttl: ttl, now: now}
}

func (s *OpaqueStrategy) Name() string { return StrategyOpaque }

func (s *OpaqueStrategy) newRecord(userID uuid.UUID) (string, *domainsession.RefreshRecord, error) {
	raw, err := auth.GenerateRawToken(auth.RawTokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("gen refresh: %w", err)
	}
	now := s.now()
	return raw, &domainsession.RefreshRecord{
		UserID:    userID,
		TokenHash: auth.HashToken(raw),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}, nil
}

func (s *OpaqueStrategy) Issue(ctx context.Context, userID uuid.UUID, _ string) (string, time.Time, error) {
	raw, rec, err := s.newRecord(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.ledger.Create(ctx, rec); err != nil {
		return "", time.Time{}, fmt.Errorf("save refresh: %w", err)
	}
	return raw, rec.ExpiresAt, nil
}

func (s *OpaqueStrategy) lookup(ctx context.Context, token string) (*domainsession.RefreshRecord, error) {
	if !auth.LooksLikeRawToken(token) {
		return nil, domainsession.ErrInvalidRefreshToken
	}
	rec, err := s.ledger.FindByHash(ctx, auth.HashToken(token))
	if errors.Is(err, domainsession.ErrRecordNotFound) {
		return nil, domainsession.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh: %w", err)
	}
	return rec, nil
}

func presentedFrom(rec *domainsession.RefreshRecord) Presented {
	return Presented{
		UserID:     rec.UserID,
		TokenID:    rec.ID.String(),
		ExpiresAt:  rec.ExpiresAt,
		secretHash: rec.TokenHash,
		superseded: rec.ReplacedByHash != nil,
	}
}

func (s *OpaqueStrategy) Inspect(ctx context.Context, token string) (Presented, error) {
	rec, err := s.lookup(ctx, token)
	if err != nil {
		return Presented{}, err
	}
	p := presentedFrom(rec)
	if rec.IsRevoked() {
		return p, domainsession.ErrRefreshTokenRevoked
	}
	if rec.IsExpired(s.now()) {
		return Presented{}, domainsession.ErrInvalidRefreshToken
	}
	return p, nil
}

func (s *OpaqueStrategy) Rotate(ctx context.Context, p Presented, _ string) (string, time.Time, error) {
	raw, next, err := s.newRecord(p.UserID)
	if err != nil {
		return "", time.Time{}, err
	}
	err = s.ledger.Rotate(ctx, p.secretHash, p.UserID, next, s.now())
	if errors.Is(err, domainsession.ErrNotActive) {
		return "", time.Time{}, domainsession.ErrRefreshTokenRevoked
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("rotate refresh: %w", err)
	}
	return raw, next.ExpiresAt, nil
}

func (s *OpaqueStrategy) Revoke(ctx context.Context, token string) (Presented, bool, error) {
	rec, err := s.lookup(ctx, token)
	if err != nil {
		return Presented{}, false, err
	}
	p := presentedFrom(rec)
	if rec.IsRevoked() {
		return p, false, nil
	}
	revoked, err := s.ledger.Revoke(ctx, rec.TokenHash, s.now())
	if err != nil {
		return Presented{}, false, fmt.Errorf("revoke refresh: %w", err)
	}
	return p, revoked, nil
}

func (s *OpaqueStrategy) ListActive(ctx context.Context, userID uuid.UUID) ([]domainsession.RefreshRecord, error) {
	return s.ledger.ListActive(ctx, userID, s.now())
}

func (s *OpaqueStrategy) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.ledger.RevokeAllForUser(ctx, userID, s.now())
}
