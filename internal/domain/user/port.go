package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	ConfirmEmail(ctx context.Context, id uuid.UUID) error
	SetBannedUntil(ctx context.Context, id uuid.UUID, until *time.Time) error

	Roles(ctx context.Context, id uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, id uuid.UUID, role string) error

	ExternalLogins(ctx context.Context, id uuid.UUID) ([]ExternalLogin, error)
	LinkExternalLogin(ctx context.Context, l ExternalLogin) error
}
