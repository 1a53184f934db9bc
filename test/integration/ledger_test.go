//go:build integration

package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Warden/internal/auth"
	domainsession "github.com/NordCoder/Warden/internal/domain/session"
	"github.com/NordCoder/Warden/internal/domain/user"
	pg "github.com/NordCoder/Warden/internal/repository/postgres"
)

func seedUser(t *testing.T, db *pg.DB) *user.User {
	t.Helper()
	u := &user.User{Email: RandEmail("it-ledger"), PasswordHash: "not_used_for_itests"}
	require.NoError(t, pg.NewUserRepo(db).Create(context.Background(), u))
	return u
}

func newRecord(t *testing.T, userID uuid.UUID, ttl time.Duration) (*domainsession.RefreshRecord, string) {
	t.Helper()
	raw, err := auth.GenerateRawToken(32)
	require.NoError(t, err)
	now := time.Now().UTC()
	return &domainsession.RefreshRecord{
		UserID:    userID,
		TokenHash: auth.HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, raw
}

func TestRefreshLedger_ConcurrentRotateHasOneWinner(t *testing.T) {
	cfg := LoadCfg()
	DBOpen(t, cfg.DBDSN)
	db := NewPGX(t, cfg.DBDSN)
	ledger := pg.NewRefreshLedger(db, pg.NewTransactor(db, nil))
	ctx := context.Background()

	u := seedUser(t, db)
	rec, _ := newRecord(t, u.ID, time.Hour)
	require.NoError(t, ledger.Create(ctx, rec))

	const racers = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		notAlive int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			succ, _ := newRecord(t, u.ID, time.Hour)
			<-start
			err := ledger.Rotate(ctx, rec.TokenHash, u.ID, succ, time.Now().UTC())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domainsession.ErrNotActive):
				notAlive++
			default:
				t.Errorf("unexpected rotate error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, notAlive)

	old, err := ledger.FindByHash(ctx, rec.TokenHash)
	require.NoError(t, err)
	assert.True(t, old.IsRevoked())
	require.NotNil(t, old.ReplacedByHash)

	active, err := ledger.ListActive(ctx, u.ID, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, *old.ReplacedByHash, active[0].TokenHash)
}

func TestRefreshLedger_RevokeAllAndCleanup(t *testing.T) {
	cfg := LoadCfg()
	DBOpen(t, cfg.DBDSN)
	db := NewPGX(t, cfg.DBDSN)
	ledger := pg.NewRefreshLedger(db, pg.NewTransactor(db, nil))
	ctx := context.Background()

	u := seedUser(t, db)
	for i := 0; i < 3; i++ {
		rec, _ := newRecord(t, u.ID, time.Hour)
		require.NoError(t, ledger.Create(ctx, rec))
	}
	stale, _ := newRecord(t, u.ID, -time.Minute)
	require.NoError(t, ledger.Create(ctx, stale))

	n, err := ledger.RevokeAllForUser(ctx, u.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = ledger.RevokeAllForUser(ctx, u.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, n)

	var deleted int64
	for {
		n, err := ledger.DeleteExpired(ctx, time.Now().UTC(), 100)
		require.NoError(t, err)
		deleted += n
		if n < 100 {
			break
		}
	}
	assert.GreaterOrEqual(t, deleted, int64(1))

	_, err = ledger.FindByHash(ctx, stale.TokenHash)
	require.Error(t, err)
}

func TestRevocationRegistry_InsertOnce(t *testing.T) {
	cfg := LoadCfg()
	DBOpen(t, cfg.DBDSN)
	db := NewPGX(t, cfg.DBDSN)
	reg := pg.NewRevocationRepo(db)
	ctx := context.Background()

	u := seedUser(t, db)
	entry := domainsession.RevocationEntry{
		TokenID:   uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		RevokedAt: time.Now().UTC(),
	}

	first, err := reg.Revoke(ctx, entry)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := reg.Revoke(ctx, entry)
	require.NoError(t, err)
	assert.False(t, again)

	revoked, err := reg.IsRevoked(ctx, entry.TokenID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRefreshLedger_ConcurrentRevokeReportsOneWinner(t *testing.T) {
	cfg := LoadCfg()
	DBOpen(t, cfg.DBDSN)
	db := NewPGX(t, cfg.DBDSN)
	ledger := pg.NewRefreshLedger(db, pg.NewTransactor(db, nil))
	ctx := context.Background()

	u := seedUser(t, db)
	rec, _ := newRecord(t, u.ID, time.Hour)
	require.NoError(t, ledger.Create(ctx, rec))

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := ledger.Revoke(ctx, rec.TokenHash, time.Now().UTC())
			if err != nil {
				t.Errorf("unexpected revoke error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	got, err := ledger.FindByHash(ctx, rec.TokenHash)
	require.NoError(t, err)
	assert.True(t, got.IsRevoked())
}
