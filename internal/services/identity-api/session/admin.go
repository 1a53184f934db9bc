package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/outbox"
	domainsession "github.com/NordCoder/Warden/internal/domain/session"
	"github.com/NordCoder/Warden/internal/domain/user"
)

// SessionInfo describes one active refresh credential without its secret.
type SessionInfo struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ListSessions returns the caller's active sessions, newest first. Only the
// opaque strategy can answer; jwt yields domainsession.ErrUnsupported.
func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID) (out []SessionInfo, err error) {
	ctx, done := s.begin(ctx, "list_sessions")
	defer done(&err)

	recs, err := s.refresh.ListActive(ctx, userID)
	if err != nil {
		return nil, s.fault(ctx, "list_sessions", err)
	}
	out = make([]SessionInfo, 0, len(recs))
	for _, r := range recs {
		out = append(out, SessionInfo{ID: r.ID, CreatedAt: r.CreatedAt, ExpiresAt: r.ExpiresAt})
	}
	return out, nil
}

// LogoutAll retires every active session of userID.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID) (n int64, err error) {
	ctx, done := s.begin(ctx, "logout_all")
	defer done(&err)

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if n, err = s.refresh.RevokeAll(ctx, userID); err != nil || n == 0 {
			return err
		}
		return s.emit(ctx, outbox.KindSessionRevoked, userID, nil, map[string]string{
			"reason": "logout_all",
			"count":  strconv.FormatInt(n, 10),
		})
	})
	if err != nil {
		return 0, s.fault(ctx, "logout_all", err)
	}
	return n, nil
}

// BanUser blocks sign-in and refresh for userID until the given time and
// retires the sessions the strategy can enumerate. With the jwt strategy
// outstanding refresh tokens die on their next use instead.
func (s *Service) BanUser(ctx context.Context, actorID, userID uuid.UUID, until time.Time, reason string) (err error) {
	ctx, done := s.begin(ctx, "ban_user")
	defer done(&err)

	if !until.After(s.now()) {
		ve := domainsession.NewValidationError()
		ve.Add("until", "Ban end must be in the future")
		return ve
	}
	if err = s.requireUser(ctx, userID); err != nil {
		return s.fault(ctx, "ban_user", err)
	}

	until = until.UTC()
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.creds.Ban(ctx, userID, &until); err != nil {
			return fmt.Errorf("ban: %w", err)
		}
		n, err := s.refresh.RevokeAll(ctx, userID)
		if err != nil && !errors.Is(err, domainsession.ErrUnsupported) {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return s.emit(ctx, outbox.KindUserBanned, userID, &actorID, map[string]string{
			"until":            until.Format(time.RFC3339),
			"reason":           reason,
			"revoked_sessions": strconv.FormatInt(n, 10),
		})
	})
	if err != nil {
		return s.fault(ctx, "ban_user", err)
	}
	s.logWith(ctx).Info("user banned",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actorID.String()),
		zap.Time("until", until),
	)
	return nil
}

func (s *Service) UnbanUser(ctx context.Context, actorID, userID uuid.UUID) (err error) {
	ctx, done := s.begin(ctx, "unban_user")
	defer done(&err)

	if err = s.requireUser(ctx, userID); err != nil {
		return s.fault(ctx, "unban_user", err)
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.creds.Ban(ctx, userID, nil); err != nil {
			return fmt.Errorf("unban: %w", err)
		}
		return s.emit(ctx, outbox.KindUserUnbanned, userID, &actorID, nil)
	})
	return s.fault(ctx, "unban_user", err)
}

// AssignRole grants roleName to userID. The change is visible on the user's
// next refresh.
func (s *Service) AssignRole(ctx context.Context, actorID, userID uuid.UUID, roleName string) (err error) {
	ctx, done := s.begin(ctx, "assign_role")
	defer done(&err)

	canonical, ok := s.roles.Canonical(roleName)
	if !ok {
		ve := domainsession.NewValidationError()
		ve.Add("role", "Unknown role")
		return ve
	}
	if err = s.requireUser(ctx, userID); err != nil {
		return s.fault(ctx, "assign_role", err)
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.creds.AssignRole(ctx, userID, canonical); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
		return s.emit(ctx, outbox.KindRoleAssigned, userID, &actorID, map[string]string{"role": canonical})
	})
	return s.fault(ctx, "assign_role", err)
}

func (s *Service) requireUser(ctx context.Context, id uuid.UUID) error {
	_, err := s.creds.FindByID(ctx, id)
	if errors.Is(err, user.ErrNotFound) {
		return domainsession.ErrUserNotFound
	}
	return err
}
