package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Warden/internal/domain/session"
)

func newMockDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithPool(mock, time.Second), mock
}

func TestRefreshLedger_RotateCommitsBothSteps(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewRefreshLedger(db, NewTransactor(db, nil))

	userID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	next := &session.RefreshRecord{UserID: userID, TokenHash: "new-hash", ExpiresAt: now.Add(time.Hour), CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs("old-hash", userID, now, "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(pgxmock.AnyArg(), userID, "new-hash", now.Add(time.Hour), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, ledger.Rotate(context.Background(), "old-hash", userID, next, now))
	require.NotEqual(t, uuid.Nil, next.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshLedger_RotateLostRaceRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewRefreshLedger(db, NewTransactor(db, nil))

	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs("old-hash", userID, now, "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := ledger.Rotate(context.Background(), "old-hash", userID,
		&session.RefreshRecord{UserID: userID, TokenHash: "new-hash", ExpiresAt: now.Add(time.Hour)}, now)
	require.ErrorIs(t, err, session.ErrNotActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshLedger_RevokeOnlyTouchesActiveRecords(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewRefreshLedger(db, NewTransactor(db, nil))
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE refresh_tokens\s+SET revoked_at = \$2\s+WHERE token_hash = \$1\s+AND revoked_at IS NULL`).
		WithArgs("h", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`AND revoked_at IS NULL`).
		WithArgs("h", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	first, err := ledger.Revoke(context.Background(), "h", now)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := ledger.Revoke(context.Background(), "h", now)
	require.NoError(t, err)
	assert.False(t, second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshLedger_RevokeWrapsErrors(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewRefreshLedger(db, NewTransactor(db, nil))
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE refresh_tokens`).
		WithArgs("h", now).
		WillReturnError(errors.New("conn reset"))

	_, err := ledger.Revoke(context.Background(), "h", now)
	require.ErrorContains(t, err, "refresh revoke")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshLedger_RevokeAllAndDeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewRefreshLedger(db, NewTransactor(db, nil))
	userID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(userID, now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec("DELETE FROM refresh_tokens").
		WithArgs(now, 500).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := ledger.RevokeAllForUser(context.Background(), userID, now)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = ledger.DeleteExpired(context.Background(), now, 500)
	require.NoError(t, err)
	require.EqualValues(t, 7, n)

	_, err = ledger.DeleteExpired(context.Background(), now, 0)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshLedger_CreateDuplicateHash(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewRefreshLedger(db, NewTransactor(db, nil))

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnError(uniqueViolation())

	err := ledger.Create(context.Background(), &session.RefreshRecord{UserID: uuid.New(), TokenHash: "dup", ExpiresAt: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}
