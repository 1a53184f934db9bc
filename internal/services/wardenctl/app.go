// Package wardenctl implements the operator commands that work directly on
// the credential store, bypassing the public API.
package wardenctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/NordCoder/Warden/internal/domain/role"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/services/identity-api/session"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

var ErrUsage = errors.New("usage error")

type Store interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	CreateUser(ctx context.Context, email, password string) (*user.User, error)
	AssignRole(ctx context.Context, id uuid.UUID, name string) error
	Ban(ctx context.Context, id uuid.UUID, until *time.Time) error
}

type Sessions interface {
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
}

type App struct {
	Store    Store
	Sessions Sessions
	Out      io.Writer
	Log      *zap.Logger
	Now      func() time.Time
}

const Usage = `usage: wardenctl <command> [args]

commands:
  grant-role <email> <role>           roles: Member, Admin, SuperAdmin
  ban <email> <duration|RFC3339>      e.g. 72h or 2030-01-01T00:00:00Z
  unban <email>
  create-superadmin <email>           prompts for the password
`

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	if a.Now == nil {
		a.Now = func() time.Time { return time.Now().UTC() }
	}
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "grant-role":
		if len(rest) != 2 {
			return ErrUsage
		}
		return a.grantRole(ctx, rest[0], rest[1])
	case "ban":
		if len(rest) != 2 {
			return ErrUsage
		}
		until, err := parseUntil(rest[1], a.Now())
		if err != nil {
			return err
		}
		return a.ban(ctx, rest[0], until)
	case "unban":
		if len(rest) != 1 {
			return ErrUsage
		}
		return a.unban(ctx, rest[0])
	case "create-superadmin":
		if len(rest) != 1 {
			return ErrUsage
		}
		return a.createSuperAdmin(ctx, rest[0])
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) lookup(ctx context.Context, email string) (*user.User, error) {
	u, err := a.Store.FindByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	return u, err
}

func (a *App) grantRole(ctx context.Context, email, name string) error {
	u, err := a.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := a.Store.AssignRole(ctx, u.ID, name); err != nil {
		return err
	}
	a.Log.Info("role granted", zap.String("user_id", u.ID.String()), zap.String("role", name))
	fmt.Fprintf(a.Out, "granted %s to %s\n", name, u.Email)
	return nil
}

func (a *App) ban(ctx context.Context, email string, until time.Time) error {
	u, err := a.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := a.Store.Ban(ctx, u.ID, &until); err != nil {
		return err
	}
	n, err := a.Sessions.RevokeAllForUser(ctx, u.ID, a.Now())
	if err != nil {
		return fmt.Errorf("user banned but sessions not revoked: %w", err)
	}
	a.Log.Info("user banned", zap.String("user_id", u.ID.String()), zap.Time("until", until), zap.Int64("revoked", n))
	fmt.Fprintf(a.Out, "banned %s until %s, revoked %d session(s)\n", u.Email, until.Format(time.RFC3339), n)
	return nil
}

func (a *App) unban(ctx context.Context, email string) error {
	u, err := a.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := a.Store.Ban(ctx, u.ID, nil); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "unbanned %s\n", u.Email)
	return nil
}

func (a *App) createSuperAdmin(ctx context.Context, email string) error {
	pw, err := a.promptPassword("Password: ")
	if err != nil {
		return err
	}
	again, err := a.promptPassword("Repeat password: ")
	if err != nil {
		return err
	}
	if !bytes.Equal(pw, again) {
		return errors.New("passwords do not match")
	}
	if err := session.ValidateNewPassword(string(pw)); err != nil {
		return err
	}

	u, err := a.Store.CreateUser(ctx, email, string(pw))
	if err != nil {
		return err
	}
	if err := a.Store.AssignRole(ctx, u.ID, role.SuperAdmin); err != nil {
		return fmt.Errorf("user %s created without role: %w", u.ID, err)
	}
	a.Log.Info("superadmin created", zap.String("user_id", u.ID.String()))
	fmt.Fprintf(a.Out, "created superadmin %s (%s)\n", u.Email, u.ID)
	return nil
}

func (a *App) promptPassword(prompt string) ([]byte, error) {
	fmt.Fprint(a.Out, prompt)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.Out)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}

func parseUntil(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("ban duration must be positive")
		}
		return now.Add(d).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is neither a duration nor an RFC3339 time", ErrUsage, s)
	}
	if !t.After(now) {
		return time.Time{}, fmt.Errorf("ban end must be in the future")
	}
	return t.UTC(), nil
}
