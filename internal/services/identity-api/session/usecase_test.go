package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Warden/internal/domain/outbox"
	"github.com/NordCoder/Warden/internal/domain/role"
	domainsession "github.com/NordCoder/Warden/internal/domain/session"
)

func TestRegisterThenLogin_SubjectMatches(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, strategy)
			ctx := context.Background()

			res, err := h.svc.Register(ctx, "a@x.com", "StrongPass1")
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", res.Email)

			tok, err := h.svc.Login(ctx, "a@x.com", "StrongPass1")
			require.NoError(t, err)
			assert.NotEmpty(t, tok.RefreshToken)
			assert.Equal(t, h.clock.Now().Add(30*time.Minute), tok.AccessExpiresAt)

			p, err := h.issuer.ParseAccess(tok.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, res.UserID, p.UserID)
			assert.Equal(t, []string{role.Member}, p.Roles)

			assert.Equal(t, 1, h.events.count(outbox.KindUserRegistered))
			assert.Equal(t, 1, h.events.count(outbox.KindSessionCreated))
		})
	}
}

func TestRegister_DuplicateEmailIsIdentityConflict(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	h.register(t, "dup@example.com")

	_, err := h.svc.Register(context.Background(), "DUP@example.com", "StrongPass1")
	require.ErrorIs(t, err, domainsession.ErrIdentityConflict)

	ae, ok := domainsession.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, "Registration failed", ae.Message)
}

func TestRegister_Validation(t *testing.T) {
	h := newHarness(t, StrategyOpaque)

	_, err := h.svc.Register(context.Background(), "not-an-email", "short")
	ve, ok := domainsession.AsValidationError(err)
	require.True(t, ok, "want validation error, got %v", err)
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields["password"], "Password must be at least 8 characters long")
	assert.Contains(t, ve.Fields["password"], "Password must contain an uppercase letter")
	assert.Contains(t, ve.Fields["password"], "Password must contain a digit")
	assert.Equal(t, 0, h.events.count(outbox.KindUserRegistered))
}

func TestRegister_MultibytePasswordLengthInCharacters(t *testing.T) {
	h := newHarness(t, StrategyOpaque)

	_, err := h.svc.Register(context.Background(), "mb@example.com", "Ééééé1")
	ve, ok := domainsession.AsValidationError(err)
	require.True(t, ok, "want validation error, got %v", err)
	assert.Equal(t, []string{"Password must be at least 8 characters long"}, ve.Fields["password"])

	_, err = h.svc.Register(context.Background(), "mb@example.com", "Éééééééé1")
	require.NoError(t, err)
}

func TestLogin_WrongPasswordLooksLikeUnknownEmail(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	h.register(t, "known@example.com")
	ctx := context.Background()

	_, wrongPw := h.svc.Login(ctx, "known@example.com", "WrongPass1")
	_, unknown := h.svc.Login(ctx, "ghost@example.com", "StrongPass1")

	require.ErrorIs(t, wrongPw, domainsession.ErrInvalidCredentials)
	require.ErrorIs(t, unknown, domainsession.ErrInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
}

func TestLogin_ExternalOnlyAccount(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	ctx := context.Background()

	_, err := h.svc.GoogleLogin(ctx, "id-token")
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, "gina@example.com", "StrongPass1")
	require.ErrorIs(t, err, domainsession.ErrInvalidCredentials)
}

func TestLogin_Banned(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	id := h.register(t, "banned@example.com")
	until := h.clock.Now().Add(time.Hour)
	require.NoError(t, h.users.SetBannedUntil(context.Background(), id, &until))

	_, err := h.svc.Login(context.Background(), "banned@example.com", "StrongPass1")
	require.ErrorIs(t, err, domainsession.ErrAccountBanned)

	h.clock.Advance(2 * time.Hour)
	_, err = h.svc.Login(context.Background(), "banned@example.com", "StrongPass1")
	require.NoError(t, err)
}

func TestRefresh_RotatesOnceOnly(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, strategy)
			id := h.register(t, "rot@example.com")
			first := h.login(t, "rot@example.com")
			ctx := context.Background()

			second, err := h.svc.RefreshToken(ctx, first.RefreshToken, "")
			require.NoError(t, err)
			assert.NotEqual(t, first.AccessToken, second.AccessToken)
			assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

			p, err := h.issuer.ParseAccess(second.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, id, p.UserID)

			_, err = h.svc.RefreshToken(ctx, first.RefreshToken, "")
			require.ErrorIs(t, err, domainsession.ErrRefreshTokenRevoked)
			assert.Equal(t, 1, h.events.count(outbox.KindSessionReuseDetected))

			third, err := h.svc.RefreshToken(ctx, second.RefreshToken, "")
			require.NoError(t, err)
			assert.NotEqual(t, second.RefreshToken, third.RefreshToken)
		})
	}
}

func TestRefresh_ConcurrentSameTokenExactlyOneWins(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, strategy)
			h.register(t, "race@example.com")
			tok := h.login(t, "race@example.com")

			const n = 16
			var (
				wg      sync.WaitGroup
				start   = make(chan struct{})
				results = make([]error, n)
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, results[i] = h.svc.RefreshToken(context.Background(), tok.RefreshToken, "")
				}(i)
			}
			close(start)
			wg.Wait()

			wins := 0
			for _, err := range results {
				if err == nil {
					wins++
					continue
				}
				ae, ok := domainsession.AsAuthError(err)
				require.True(t, ok, "loser got %v", err)
				assert.Contains(t, []domainsession.Kind{
					domainsession.KindRefreshTokenRevoked, domainsession.KindInvalidRefreshToken,
				}, ae.Kind)
			}
			assert.Equal(t, 1, wins)
			assert.Equal(t, 1, h.events.count(outbox.KindSessionRotated))
		})
	}
}

func TestRefresh_ReflectsCurrentRoles(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	id := h.register(t, "a@x.com")
	tok := h.login(t, "a@x.com")

	require.NoError(t, h.svc.AssignRole(context.Background(), uuid.New(), id, "admin"))

	next, err := h.svc.RefreshToken(context.Background(), tok.RefreshToken, "")
	require.NoError(t, err)
	p, err := h.issuer.ParseAccess(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, p.UserID)
	assert.ElementsMatch(t, []string{role.Member, role.Admin}, p.Roles)
	assert.True(t, h.svc.Hierarchy().Authorize(p.Roles, role.LevelAdmin))
}

func TestRefresh_SuspendedAccount(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, strategy)
			id := h.register(t, "s@example.com")
			tok := h.login(t, "s@example.com")

			until := h.clock.Now().Add(time.Hour)
			require.NoError(t, h.users.SetBannedUntil(context.Background(), id, &until))

			_, err := h.svc.RefreshToken(context.Background(), tok.RefreshToken, "")
			require.ErrorIs(t, err, domainsession.ErrAccountSuspended)
		})
	}
}

func TestRefresh_Expired(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, strategy)
			h.register(t, "old@example.com")
			tok := h.login(t, "old@example.com")

			h.clock.Advance(24 * time.Hour)
			_, err := h.svc.RefreshToken(context.Background(), tok.RefreshToken, "")
			require.ErrorIs(t, err, domainsession.ErrInvalidRefreshToken)
		})
	}
}

func TestRefresh_AccessTokenMustMatchOwner(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	h.register(t, "one@example.com")
	h.register(t, "two@example.com")
	one := h.login(t, "one@example.com")
	two := h.login(t, "two@example.com")
	ctx := context.Background()

	_, err := h.svc.RefreshToken(ctx, one.RefreshToken, two.AccessToken)
	require.ErrorIs(t, err, domainsession.ErrInvalidRefreshToken)

	// an expired access token of the right owner is fine
	h.clock.Advance(time.Hour)
	_, err = h.svc.RefreshToken(ctx, one.RefreshToken, one.AccessToken)
	require.NoError(t, err)
}

func TestRefresh_Malformed(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, strategy)

			_, err := h.svc.RefreshToken(context.Background(), "garbage", "")
			require.ErrorIs(t, err, domainsession.ErrInvalidRefreshToken)

			_, err = h.svc.RefreshToken(context.Background(), "", "")
			_, ok := domainsession.AsValidationError(err)
			require.True(t, ok)
		})
	}
}

func TestLogout_Idempotent(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, strategy)
			h.register(t, "out@example.com")
			tok := h.login(t, "out@example.com")
			ctx := context.Background()

			require.NoError(t, h.svc.Logout(ctx, tok.RefreshToken))
			require.NoError(t, h.svc.Logout(ctx, tok.RefreshToken))
			assert.Equal(t, 1, h.events.count(outbox.KindSessionRevoked))

			_, err := h.svc.RefreshToken(ctx, tok.RefreshToken, "")
			require.ErrorIs(t, err, domainsession.ErrRefreshTokenRevoked)
		})
	}
}

func TestLogout_Malformed(t *testing.T) {
	h := newHarness(t, StrategyOpaque)

	require.ErrorIs(t, h.svc.Logout(context.Background(), "nope"), domainsession.ErrInvalidRefreshToken)

	_, ok := domainsession.AsValidationError(h.svc.Logout(context.Background(), " "))
	require.True(t, ok)
}

func TestGoogleLogin(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	ctx := context.Background()

	first, err := h.svc.GoogleLogin(ctx, "id-token")
	require.NoError(t, err)
	assert.True(t, first.Created)

	p, err := h.issuer.ParseAccess(first.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, p.UserID)
	assert.Equal(t, []string{role.Member}, p.Roles)

	again, err := h.svc.GoogleLogin(ctx, "id-token")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.UserID, again.UserID)
	assert.Equal(t, 1, h.events.count(outbox.KindUserRegistered))

	until := h.clock.Now().Add(time.Hour)
	require.NoError(t, h.users.SetBannedUntil(ctx, first.UserID, &until))
	_, err = h.svc.GoogleLogin(ctx, "id-token")
	require.ErrorIs(t, err, domainsession.ErrAccountBanned)
}

func TestGoogleLogin_ValidatorRejections(t *testing.T) {
	h := newHarness(t, StrategyOpaque)

	h.google.err = domainsession.ErrUnverifiedEmail
	_, err := h.svc.GoogleLogin(context.Background(), "id-token")
	require.ErrorIs(t, err, domainsession.ErrUnverifiedEmail)

	h.google.err = domainsession.ErrInvalidExternalToken
	_, err = h.svc.GoogleLogin(context.Background(), "id-token")
	require.ErrorIs(t, err, domainsession.ErrInvalidExternalToken)

	_, err = h.svc.GoogleLogin(context.Background(), "")
	_, ok := domainsession.AsValidationError(err)
	require.True(t, ok)
}

func TestSetPassword(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	ctx := context.Background()

	g, err := h.svc.GoogleLogin(ctx, "id-token")
	require.NoError(t, err)

	require.NoError(t, h.svc.SetPassword(ctx, g.UserID, "StrongPass1"))
	_, err = h.svc.Login(ctx, "gina@example.com", "StrongPass1")
	require.NoError(t, err)

	require.ErrorIs(t, h.svc.SetPassword(ctx, g.UserID, "OtherPass2"), domainsession.ErrPasswordAlreadySet)
	require.ErrorIs(t, h.svc.SetPassword(ctx, uuid.New(), "OtherPass2"), domainsession.ErrUserNotFound)
}

func TestMe(t *testing.T) {
	h := newHarness(t, StrategyOpaque)
	id := h.register(t, "me@example.com")

	p, err := h.svc.Me(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", p.User.Email)
	assert.Equal(t, []string{role.Member}, p.Roles)

	_, err = h.svc.Me(context.Background(), uuid.New())
	require.ErrorIs(t, err, domainsession.ErrUserNotFound)
}
