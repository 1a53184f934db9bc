// Package credentials owns user records, password verification, external
// login linkage and ban state.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Warden/internal/domain/role"
	"github.com/NordCoder/Warden/internal/domain/user"
)

type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (ok bool, needsRehash bool, err error)
}

type Store struct {
	users  user.Repo
	hasher Hasher
	roles  *role.Hierarchy
	now    func() time.Time
	log    *zap.Logger

	dummyOnce sync.Once
	dummy     string
}

func NewStore(users user.Repo, hasher Hasher, roles *role.Hierarchy, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		users:  users,
		hasher: hasher,
		roles:  roles,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With(zap.String("component", "credentials")),
	}
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *Store) CreateUser(ctx context.Context, email, password string) (*user.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	u := &user.User{Email: NormalizeEmail(email), PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// VerifyPassword returns the user when password matches. A legacy or
// outdated hash is upgraded in place; failure to upgrade does not fail login.
func (s *Store) VerifyPassword(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.burnVerify(password)
		}
		return nil, err
	}
	if !u.HasPassword() {
		s.burnVerify(password)
		return nil, user.ErrNoPassword
	}
	ok, rehash, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, user.ErrWrongPassword
	}
	if rehash {
		if hash, err := s.hasher.Hash(password); err != nil {
			s.log.Warn("rehash password", zap.String("user_id", u.ID.String()), zap.Error(err))
		} else if err := s.users.SetPasswordHash(ctx, u.ID, hash); err != nil {
			s.log.Warn("store rehashed password", zap.String("user_id", u.ID.String()), zap.Error(err))
		} else {
			u.PasswordHash = hash
		}
	}
	return u, nil
}

// burnVerify spends the same work as a real verification so that unknown
// and password-less accounts answer in the same time as a wrong password.
func (s *Store) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("warden-timing-equalizer")
	})
	if s.dummy != "" {
		_, _, _ = s.hasher.Verify(password, s.dummy)
	}
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Store) IsBanned(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.IsBanned(s.now()), nil
}

func (s *Store) Roles(ctx context.Context, id uuid.UUID) ([]string, error) {
	return s.users.Roles(ctx, id)
}

// AssignRole stores the canonical spelling of name.
func (s *Store) AssignRole(ctx context.Context, id uuid.UUID, name string) error {
	canonical, ok := s.roles.Canonical(name)
	if !ok {
		return fmt.Errorf("%w: %q", role.ErrUnknownRole, name)
	}
	return s.users.AssignRole(ctx, id, canonical)
}

// FindOrCreateExternalUser resolves ident to a local account by email,
// creating a password-less one when needed. The email is confirmed and the
// provider login linked. created reports whether the account is new.
func (s *Store) FindOrCreateExternalUser(ctx context.Context, ident user.ExternalIdentity) (u *user.User, created bool, err error) {
	email := NormalizeEmail(ident.Email)

	u, err = s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, user.ErrNotFound):
		now := s.now()
		u = &user.User{Email: email, EmailConfirmed: true, CreatedAt: now, UpdatedAt: now}
		if err = s.users.Create(ctx, u); err != nil {
			if !errors.Is(err, user.ErrEmailTaken) {
				return nil, false, err
			}
			// lost a concurrent first login for the same email
			if u, err = s.users.GetByEmail(ctx, email); err != nil {
				return nil, false, err
			}
		} else {
			created = true
		}
	case err != nil:
		return nil, false, err
	}

	if !u.EmailConfirmed {
		if err := s.users.ConfirmEmail(ctx, u.ID); err != nil {
			return nil, false, fmt.Errorf("confirm email: %w", err)
		}
		u.EmailConfirmed = true
	}

	if err := s.ensureLinked(ctx, u.ID, ident); err != nil {
		return nil, false, err
	}
	return u, created, nil
}

func (s *Store) ensureLinked(ctx context.Context, id uuid.UUID, ident user.ExternalIdentity) error {
	logins, err := s.users.ExternalLogins(ctx, id)
	if err != nil {
		return fmt.Errorf("external logins: %w", err)
	}
	for _, l := range logins {
		if l.Provider == ident.Provider && l.ProviderUserID == ident.ProviderUserID {
			return nil
		}
	}
	err = s.users.LinkExternalLogin(ctx, user.ExternalLogin{
		Provider:       ident.Provider,
		ProviderUserID: ident.ProviderUserID,
		UserID:         id,
		CreatedAt:      s.now(),
	})
	if errors.Is(err, user.ErrAlreadyLinked) {
		return nil
	}
	return err
}

func (s *Store) HasPassword(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return u.HasPassword(), nil
}

// SetPassword is only allowed for accounts that have none yet.
func (s *Store) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	has, err := s.HasPassword(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return user.ErrPasswordExists
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.SetPasswordHash(ctx, id, hash)
}

// Ban sets or clears (until == nil) the ban.
func (s *Store) Ban(ctx context.Context, id uuid.UUID, until *time.Time) error {
	return s.users.SetBannedUntil(ctx, id, until)
}
