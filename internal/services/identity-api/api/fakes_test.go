package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Warden/internal/domain/role"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/services/identity-api/session"

	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

var (
	memberID = uuid.MustParse("0190f5a4-0000-7000-8000-000000000001")
	adminID  = uuid.MustParse("0190f5a4-0000-7000-8000-000000000002")
	targetID = uuid.MustParse("0190f5a4-0000-7000-8000-000000000003")
)

type tokenTable map[string]*domainsession.Principal

func (t tokenTable) ParseAccess(token string) (*domainsession.Principal, error) {
	if p, ok := t[token]; ok {
		return p, nil
	}
	return nil, errors.New("bad token")
}

func testTokens() tokenTable {
	return tokenTable{
		"member-token": {UserID: memberID, Email: "m@example.com", Roles: []string{role.Member}},
		"admin-token":  {UserID: adminID, Email: "a@example.com", Roles: []string{role.Member, role.Admin}},
	}
}

type banCall struct {
	actor, target uuid.UUID
	until         time.Time
	reason        string
}

// fakeSessions answers with canned values and records what it was asked.
type fakeSessions struct {
	mu sync.Mutex

	err error

	lastRefresh string
	lastAccess  string
	lastLogout  string
	bans        []banCall
	roles       map[uuid.UUID][]string
}

func (f *fakeSessions) tokens() *domainsession.Tokens {
	return &domainsession.Tokens{
		AccessToken:     "access-1",
		RefreshToken:    "refresh-1",
		AccessExpiresAt: time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC),
	}
}

func (f *fakeSessions) Register(_ context.Context, email, _ string) (*session.Registered, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &session.Registered{UserID: memberID, Email: email}, nil
}

func (f *fakeSessions) Login(context.Context, string, string) (*domainsession.Tokens, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens(), nil
}

func (f *fakeSessions) GoogleLogin(context.Context, string) (*session.GoogleLoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &session.GoogleLoginResult{Tokens: *f.tokens(), UserID: memberID, Created: true}, nil
}

func (f *fakeSessions) RefreshToken(_ context.Context, refresh, access string) (*domainsession.Tokens, error) {
	f.mu.Lock()
	f.lastRefresh, f.lastAccess = refresh, access
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t := f.tokens()
	t.RefreshToken = "refresh-2"
	return t, nil
}

func (f *fakeSessions) Logout(_ context.Context, refresh string) error {
	f.mu.Lock()
	f.lastLogout = refresh
	f.mu.Unlock()
	return f.err
}

func (f *fakeSessions) SetPassword(context.Context, uuid.UUID, string) error { return f.err }

func (f *fakeSessions) Me(_ context.Context, id uuid.UUID) (*session.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &session.Profile{
		User:  &user.User{ID: id, Email: "m@example.com", EmailConfirmed: true},
		Roles: []string{role.Member},
	}, nil
}

func (f *fakeSessions) ListSessions(context.Context, uuid.UUID) ([]session.SessionInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []session.SessionInfo{{ID: targetID}}, nil
}

func (f *fakeSessions) LogoutAll(context.Context, uuid.UUID) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func (f *fakeSessions) BanUser(_ context.Context, actor, target uuid.UUID, until time.Time, reason string) error {
	f.mu.Lock()
	f.bans = append(f.bans, banCall{actor: actor, target: target, until: until, reason: reason})
	f.mu.Unlock()
	return f.err
}

func (f *fakeSessions) UnbanUser(context.Context, uuid.UUID, uuid.UUID) error { return f.err }

func (f *fakeSessions) AssignRole(_ context.Context, _, target uuid.UUID, name string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roles == nil {
		f.roles = map[uuid.UUID][]string{}
	}
	f.roles[target] = append(f.roles[target], name)
	return nil
}

func newTestServer(f *fakeSessions) *Server {
	return NewServer(f, testTokens(), Opts{
		Cookie:     CookieOpts{Name: "warden_rt"},
		RefreshTTL: 24 * time.Hour,
		Now:        func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
}
