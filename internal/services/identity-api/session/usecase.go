package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/domain/role"
	domainsession "github.com/NordCoder/Warden/internal/domain/session"
	"github.com/NordCoder/Warden/internal/domain/user"
)

type Registered struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

type GoogleLoginResult struct {
	domainsession.Tokens
	UserID  uuid.UUID `json:"user_id"`
	Created bool      `json:"created"`
}

type Profile struct {
	User  *user.User `json:"user"`
	Roles []string   `json:"roles"`
}

// Register creates a password account with the default role. A taken email
// is reported as ErrIdentityConflict, in the same family as bad credentials.
func (s *Service) Register(ctx context.Context, email, password string) (res *Registered, err error) {
	ctx, done := s.begin(ctx, "register")
	defer done(&err)

	if err = validateCredentials(email, password); err != nil {
		return nil, err
	}

	var u *user.User
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.creds.CreateUser(ctx, email, password)
		if errors.Is(err, user.ErrEmailTaken) {
			return domainsession.ErrIdentityConflict
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		if err := s.creds.AssignRole(ctx, u.ID, role.Default); err != nil {
			return fmt.Errorf("assign default role: %w", err)
		}
		return s.emit(ctx, outbox.KindUserRegistered, u.ID, nil, map[string]string{"method": "password"})
	})
	if err != nil {
		return nil, s.fault(ctx, "register", err)
	}

	s.logWith(ctx).Info("user registered", zap.String("user_id", u.ID.String()))
	return &Registered{UserID: u.ID, Email: u.Email}, nil
}

// Login never tells an unknown email, a wrong password and a password-less
// account apart.
func (s *Service) Login(ctx context.Context, email, password string) (tokens *domainsession.Tokens, err error) {
	ctx, done := s.begin(ctx, "login")
	defer done(&err)

	if err = validateLogin(email, password); err != nil {
		return nil, err
	}

	u, err := s.creds.VerifyPassword(ctx, email, password)
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, user.ErrWrongPassword), errors.Is(err, user.ErrNoPassword):
		return nil, domainsession.ErrInvalidCredentials
	case err != nil:
		return nil, s.fault(ctx, "login", fmt.Errorf("verify password: %w", err))
	}
	if u.IsBanned(s.now()) {
		return nil, domainsession.ErrAccountBanned
	}

	roles, err := s.creds.Roles(ctx, u.ID)
	if err != nil {
		return nil, s.fault(ctx, "login", fmt.Errorf("roles: %w", err))
	}
	tokens, err = s.signIn(ctx, u, roles, "password")
	if err != nil {
		return nil, s.fault(ctx, "login", err)
	}
	return tokens, nil
}

// GoogleLogin signs in with a Google ID token, creating and linking the
// account on first use.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (res *GoogleLoginResult, err error) {
	ctx, done := s.begin(ctx, "google_login")
	defer done(&err)

	if err = validateGoogleToken(idToken); err != nil {
		return nil, err
	}
	if s.external == nil {
		return nil, s.fault(ctx, "google_login", errors.New("google sign-in is not configured"))
	}

	ident, err := s.external.Validate(ctx, idToken)
	if err != nil {
		return nil, s.fault(ctx, "google_login", err)
	}

	u, created, err := s.creds.FindOrCreateExternalUser(ctx, *ident)
	if err != nil {
		return nil, s.fault(ctx, "google_login", fmt.Errorf("find or create: %w", err))
	}
	if created {
		s.emitDetached(ctx, outbox.KindUserRegistered, u.ID, map[string]string{"method": "google"})
	}
	if u.IsBanned(s.now()) {
		return nil, domainsession.ErrAccountBanned
	}

	roles, err := s.creds.Roles(ctx, u.ID)
	if err != nil {
		return nil, s.fault(ctx, "google_login", fmt.Errorf("roles: %w", err))
	}
	if len(roles) == 0 {
		if err := s.creds.AssignRole(ctx, u.ID, role.Default); err != nil {
			return nil, s.fault(ctx, "google_login", fmt.Errorf("assign default role: %w", err))
		}
		roles = []string{role.Default}
	}

	tokens, err := s.signIn(ctx, u, roles, "google")
	if err != nil {
		return nil, s.fault(ctx, "google_login", err)
	}
	return &GoogleLoginResult{Tokens: *tokens, UserID: u.ID, Created: created}, nil
}

func (s *Service) signIn(ctx context.Context, u *user.User, roles []string, method string) (*domainsession.Tokens, error) {
	access, accessExp, err := s.access.IssueAccess(u.ID, u.Email, roles)
	if err != nil {
		return nil, fmt.Errorf("sign access: %w", err)
	}

	var refresh string
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if refresh, _, err = s.refresh.Issue(ctx, u.ID, u.Email); err != nil {
			return err
		}
		return s.emit(ctx, outbox.KindSessionCreated, u.ID, nil, map[string]string{
			"method":   method,
			"strategy": s.refresh.Name(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &domainsession.Tokens{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: accessExp}, nil
}

// RefreshToken rotates refreshToken. Ban state and roles are read again, so
// the new access token reflects the account as it is now. accessToken is
// optional; when given it must belong to the same user, expired or not.
func (s *Service) RefreshToken(ctx context.Context, refreshToken, accessToken string) (tokens *domainsession.Tokens, err error) {
	ctx, done := s.begin(ctx, "refresh")
	defer done(&err)

	if err = validateRefreshToken(refreshToken); err != nil {
		return nil, err
	}

	p, err := s.refresh.Inspect(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domainsession.ErrRefreshTokenRevoked) && p.Superseded() {
			s.reuse(ctx, p)
		}
		return nil, s.fault(ctx, "refresh", err)
	}

	if accessToken != "" {
		sub, err := s.access.SubjectOfAccess(accessToken)
		if err != nil || sub != p.UserID {
			return nil, domainsession.ErrInvalidRefreshToken
		}
	}

	u, err := s.creds.FindByID(ctx, p.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, domainsession.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, s.fault(ctx, "refresh", fmt.Errorf("load user: %w", err))
	}
	if u.IsBanned(s.now()) {
		return nil, domainsession.ErrAccountSuspended
	}

	roles, err := s.creds.Roles(ctx, u.ID)
	if err != nil {
		return nil, s.fault(ctx, "refresh", fmt.Errorf("roles: %w", err))
	}
	access, accessExp, err := s.access.IssueAccess(u.ID, u.Email, roles)
	if err != nil {
		return nil, s.fault(ctx, "refresh", fmt.Errorf("sign access: %w", err))
	}

	var refresh string
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if refresh, _, err = s.refresh.Rotate(ctx, p, u.Email); err != nil {
			return err
		}
		return s.emit(ctx, outbox.KindSessionRotated, u.ID, nil, map[string]string{
			"token_id": p.TokenID,
			"strategy": s.refresh.Name(),
		})
	})
	if err != nil {
		if errors.Is(err, domainsession.ErrRefreshTokenRevoked) {
			// lost the race for this token to a concurrent refresh
			s.reuse(ctx, p)
		}
		return nil, s.fault(ctx, "refresh", err)
	}

	return &domainsession.Tokens{AccessToken: access, RefreshToken: refresh, AccessExpiresAt: accessExp}, nil
}

func (s *Service) reuse(ctx context.Context, p Presented) {
	reuseDetected.Inc()
	s.logWith(ctx).Warn("refresh token reuse",
		zap.String("user_id", p.UserID.String()),
		zap.String("token_id", p.TokenID),
	)
	s.emitDetached(ctx, outbox.KindSessionReuseDetected, p.UserID, map[string]string{
		"token_id": p.TokenID,
		"strategy": s.refresh.Name(),
	})
}

// Logout retires refreshToken. Repeating it is a successful no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, done := s.begin(ctx, "logout")
	defer done(&err)

	if err = validateRefreshToken(refreshToken); err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, revoked, err := s.refresh.Revoke(ctx, refreshToken)
		if err != nil || !revoked {
			return err
		}
		return s.emit(ctx, outbox.KindSessionRevoked, p.UserID, nil, map[string]string{
			"token_id": p.TokenID,
			"reason":   "logout",
		})
	})
	return s.fault(ctx, "logout", err)
}

// SetPassword adds a password to an account that signed up through an
// external provider.
func (s *Service) SetPassword(ctx context.Context, userID uuid.UUID, password string) (err error) {
	ctx, done := s.begin(ctx, "set_password")
	defer done(&err)

	if err = ValidateNewPassword(password); err != nil {
		return err
	}

	err = s.creds.SetPassword(ctx, userID, password)
	switch {
	case errors.Is(err, user.ErrPasswordExists):
		return domainsession.ErrPasswordAlreadySet
	case errors.Is(err, user.ErrNotFound):
		return domainsession.ErrUserNotFound
	}
	return s.fault(ctx, "set_password", err)
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (p *Profile, err error) {
	ctx, done := s.begin(ctx, "me")
	defer done(&err)

	u, err := s.creds.FindByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, domainsession.ErrUserNotFound
	}
	if err != nil {
		return nil, s.fault(ctx, "me", err)
	}
	roles, err := s.creds.Roles(ctx, userID)
	if err != nil {
		return nil, s.fault(ctx, "me", err)
	}
	return &Profile{User: u, Roles: roles}, nil
}
