package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/NordCoder/Warden/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	userColumns = `id, email, password_hash, email_confirmed, banned_until, created_at, updated_at`

	qUserInsert = `
INSERT INTO users (id, email, password_hash, email_confirmed)
VALUES ($1, $2, $3, $4)
RETURNING created_at, updated_at;`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1);`

	qUserSetPassword = `
UPDATE users
SET password_hash = $2,
    updated_at    = NOW()
WHERE id = $1;`

	qUserConfirmEmail = `
UPDATE users
SET email_confirmed = TRUE,
    updated_at      = NOW()
WHERE id = $1;`

	qUserSetBan = `
UPDATE users
SET banned_until = $2,
    updated_at   = NOW()
WHERE id = $1;`

	qUserRoles = `
SELECT role
FROM user_roles
WHERE user_id = $1
ORDER BY role;`

	qUserAssignRole = `
INSERT INTO user_roles (user_id, role)
VALUES ($1, $2)
ON CONFLICT (user_id, role) DO NOTHING;`

	qExternalLogins = `
SELECT provider, provider_user_id, user_id, created_at
FROM external_logins
WHERE user_id = $1
ORDER BY created_at;`

	qLinkExternalLogin = `
INSERT INTO external_logins (provider, provider_user_id, user_id)
VALUES ($1, $2, $3);`
)

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if u.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		u.ID = id
	}

	eq := r.db.execQueryer(ctx)
	if err := eq.QueryRow(ctx, qUserInsert, u.ID, u.Email, u.PasswordHash, u.EmailConfirmed).
		Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.execQueryer(ctx).QueryRow(ctx, qUserByEmail, email), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.updateOne(ctx, "user set password", qUserSetPassword, id, hash)
}

func (r *UserRepo) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	return r.updateOne(ctx, "user confirm email", qUserConfirmEmail, id)
}

func (r *UserRepo) SetBannedUntil(ctx context.Context, id uuid.UUID, until *time.Time) error {
	return r.updateOne(ctx, "user set ban", qUserSetBan, id, until)
}

func (r *UserRepo) Roles(ctx context.Context, id uuid.UUID) ([]string, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qUserRoles, id)
	if err != nil {
		return nil, fmt.Errorf("user roles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (r *UserRepo) AssignRole(ctx context.Context, id uuid.UUID, role string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qUserAssignRole, id, role); err != nil {
		if isForeignKeyViolation(err) {
			return user.ErrNotFound
		}
		return fmt.Errorf("user assign role: %w", err)
	}
	return nil
}

func (r *UserRepo) ExternalLogins(ctx context.Context, id uuid.UUID) ([]user.ExternalLogin, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.execQueryer(ctx).Query(ctx, qExternalLogins, id)
	if err != nil {
		return nil, fmt.Errorf("external logins: %w", err)
	}
	defer rows.Close()

	var out []user.ExternalLogin
	for rows.Next() {
		var l user.ExternalLogin
		if err := rows.Scan(&l.Provider, &l.ProviderUserID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan external login: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *UserRepo) LinkExternalLogin(ctx context.Context, l user.ExternalLogin) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.execQueryer(ctx).Exec(ctx, qLinkExternalLogin, l.Provider, l.ProviderUserID, l.UserID); err != nil {
		switch {
		case isUniqueViolation(err):
			return user.ErrAlreadyLinked
		case isForeignKeyViolation(err):
			return user.ErrNotFound
		}
		return fmt.Errorf("link external login: %w", err)
	}
	return nil
}

func (r *UserRepo) updateOne(ctx context.Context, op, q string, args ...any) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.execQueryer(ctx).Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row, out *user.User) error {
	if err := row.Scan(&out.ID, &out.Email, &out.PasswordHash, &out.EmailConfirmed,
		&out.BannedUntil, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}
