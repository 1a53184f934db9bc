package session

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Warden/internal/auth"
	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/domain/role"
	domainsession "github.com/NordCoder/Warden/internal/domain/session"
	"github.com/NordCoder/Warden/internal/domain/user"
	"github.com/NordCoder/Warden/internal/services/identity-api/credentials"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Now().UTC().Truncate(time.Second)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memUsers struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*user.User
	roles  map[uuid.UUID][]string
	logins []user.ExternalLogin
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*user.User{}, roles: map[uuid.UUID][]string{}}
}

func (m *memUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) update(id uuid.UUID, f func(*user.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return user.ErrNotFound
	}
	f(u)
	return nil
}

func (m *memUsers) SetPasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	return m.update(id, func(u *user.User) { u.PasswordHash = hash })
}

func (m *memUsers) ConfirmEmail(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(u *user.User) { u.EmailConfirmed = true })
}

func (m *memUsers) SetBannedUntil(_ context.Context, id uuid.UUID, until *time.Time) error {
	return m.update(id, func(u *user.User) { u.BannedUntil = until })
}

func (m *memUsers) Roles(_ context.Context, id uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.roles[id]...)
	sort.Strings(out)
	return out, nil
}

func (m *memUsers) AssignRole(_ context.Context, id uuid.UUID, r string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.roles[id] {
		if x == r {
			return nil
		}
	}
	m.roles[id] = append(m.roles[id], r)
	return nil
}

func (m *memUsers) ExternalLogins(_ context.Context, id uuid.UUID) ([]user.ExternalLogin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.ExternalLogin
	for _, l := range m.logins {
		if l.UserID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memUsers) LinkExternalLogin(_ context.Context, l user.ExternalLogin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.logins {
		if x.Provider == l.Provider && x.ProviderUserID == l.ProviderUserID {
			return user.ErrAlreadyLinked
		}
	}
	m.logins = append(m.logins, l)
	return nil
}

// memLedger mirrors the conditional update of the postgres ledger under a mutex.
type memLedger struct {
	mu   sync.Mutex
	recs map[string]*domainsession.RefreshRecord
}

func newMemLedger() *memLedger {
	return &memLedger{recs: map[string]*domainsession.RefreshRecord{}}
}

func (l *memLedger) Create(_ context.Context, r *domainsession.RefreshRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	l.recs[r.TokenHash] = &cp
	return nil
}

func (l *memLedger) FindByHash(_ context.Context, h string) (*domainsession.RefreshRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.recs[h]
	if !ok {
		return nil, domainsession.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (l *memLedger) Rotate(_ context.Context, oldHash string, userID uuid.UUID, next *domainsession.RefreshRecord, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.recs[oldHash]
	if !ok || r.UserID != userID || !r.IsActive(now) {
		return domainsession.ErrNotActive
	}
	r.RevokedAt = &now
	nh := next.TokenHash
	r.ReplacedByHash = &nh
	if next.ID == uuid.Nil {
		next.ID = uuid.New()
	}
	cp := *next
	l.recs[next.TokenHash] = &cp
	return nil
}

func (l *memLedger) Revoke(_ context.Context, h string, now time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.recs[h]
	if !ok || r.RevokedAt != nil {
		return false, nil
	}
	r.RevokedAt = &now
	return true, nil
}

func (l *memLedger) ListActive(_ context.Context, userID uuid.UUID, now time.Time) ([]domainsession.RefreshRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domainsession.RefreshRecord
	for _, r := range l.recs {
		if r.UserID == userID && r.IsActive(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (l *memLedger) RevokeAllForUser(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, r := range l.recs {
		if r.UserID == userID && r.IsActive(now) {
			t := now
			r.RevokedAt = &t
			n++
		}
	}
	return n, nil
}

func (l *memLedger) DeleteExpired(context.Context, time.Time, int) (int64, error) { return 0, nil }

type memRegistry struct {
	mu      sync.Mutex
	entries map[string]domainsession.RevocationEntry
}

func newMemRegistry() *memRegistry {
	return &memRegistry{entries: map[string]domainsession.RevocationEntry{}}
}

func (r *memRegistry) Revoke(_ context.Context, e domainsession.RevocationEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.TokenID]; ok {
		return false, nil
	}
	r.entries[e.TokenID] = e
	return true, nil
}

func (r *memRegistry) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok, nil
}

func (r *memRegistry) DeleteExpired(context.Context, time.Time, int) (int64, error) { return 0, nil }

type memOutbox struct {
	mu     sync.Mutex
	events []audit.Event
	kinds  []outbox.Kind
}

func (o *memOutbox) Enqueue(_ context.Context, _ string, kind outbox.Kind, data []byte) error {
	var e audit.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	o.kinds = append(o.kinds, kind)
	return nil
}

func (o *memOutbox) count(kind outbox.Kind) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, k := range o.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type fakeGoogle struct {
	ident *user.ExternalIdentity
	err   error
}

func (g *fakeGoogle) Validate(context.Context, string) (*user.ExternalIdentity, error) {
	if g.err != nil {
		return nil, g.err
	}
	cp := *g.ident
	return &cp, nil
}

const testSecret = "0123456789abcdef0123456789abcdef-test"

type harness struct {
	svc    *Service
	issuer *auth.Issuer
	users  *memUsers
	ledger *memLedger
	reg    *memRegistry
	events *memOutbox
	google *fakeGoogle
	clock  *clock
}

func newHarness(t *testing.T, strategy string) *harness {
	t.Helper()
	clk := newClock()
	iss, err := auth.NewIssuer(auth.Settings{
		Secret:     []byte(testSecret),
		Issuer:     "warden-test",
		Audience:   "warden-test",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, auth.WithClock(clk.Now))
	require.NoError(t, err)

	h := &harness{
		issuer: iss,
		users:  newMemUsers(),
		ledger: newMemLedger(),
		reg:    newMemRegistry(),
		events: &memOutbox{},
		google: &fakeGoogle{ident: &user.ExternalIdentity{
			Provider: user.ProviderGoogle, ProviderUserID: "g-42", Email: "gina@example.com", DisplayName: "Gina",
		}},
		clock: clk,
	}

	hier := role.NewHierarchy()
	hasher := &auth.PasswordHasher{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}
	strat, err := NewStrategy(strategy, h.ledger, h.reg, iss, iss.RefreshTTL(), clk.Now)
	require.NoError(t, err)

	h.svc, err = NewService(Deps{
		Credentials: credentials.NewStore(h.users, hasher, hier, nil),
		Access:      iss,
		Refresh:     strat,
		External:    h.google,
		Events:      h.events,
		Tx:          passTx{},
		Roles:       hier,
		Now:         clk.Now,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) register(t *testing.T, email string) uuid.UUID {
	t.Helper()
	res, err := h.svc.Register(context.Background(), email, "StrongPass1")
	require.NoError(t, err)
	return res.UserID
}

func (h *harness) login(t *testing.T, email string) *domainsession.Tokens {
	t.Helper()
	tok, err := h.svc.Login(context.Background(), email, "StrongPass1")
	require.NoError(t, err)
	return tok
}

var strategies = []string{StrategyOpaque, StrategyJWT}
