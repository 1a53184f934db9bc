package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Warden/internal/domain/audit"
	"github.com/NordCoder/Warden/internal/domain/outbox"
)

func TestOutboxRepo_EnqueueJoinsCallerTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepo(db)
	tx := NewTransactor(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs("k-1", []byte(`{}`), outbox.KindSessionCreated, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := tx.WithTx(context.Background(), func(ctx context.Context) error {
		return repo.Enqueue(ctx, "k-1", outbox.KindSessionCreated, []byte(`{}`))
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepo_MarkSuccessSkipsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepo(db)

	require.NoError(t, repo.MarkSuccess(context.Background(), nil))

	mock.ExpectExec("UPDATE outbox").
		WithArgs([]string{"a", "b"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	require.NoError(t, repo.MarkSuccess(context.Background(), []string{"a", "b"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepo_PurgeProcessed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOutboxRepo(db)
	before := time.Now().Add(-time.Hour)

	_, err := repo.PurgeProcessed(context.Background(), before, 0)
	require.Error(t, err)

	mock.ExpectExec("DELETE FROM outbox").
		WithArgs(before, 50).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))
	n, err := repo.PurgeProcessed(context.Background(), before, 50)
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_InsertIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepo(db)
	e := &audit.Event{Key: "evt-1", Name: "session.created", UserID: uuid.New(), OccurredAt: time.Now().UTC()}

	mock.ExpectExec("INSERT INTO auth_audit_log").
		WithArgs(e.Key, e.Name, e.UserID, e.ActorID, e.OccurredAt, []byte(`{}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO auth_audit_log").
		WithArgs(e.Key, e.Name, e.UserID, e.ActorID, e.OccurredAt, []byte(`{}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := repo.Insert(context.Background(), e)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = repo.Insert(context.Background(), e)
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepo_InsertWrapsStoreError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepo(db)
	boom := errors.New("connection reset")

	mock.ExpectExec("INSERT INTO auth_audit_log").WillReturnError(boom)

	_, err := repo.Insert(context.Background(), &audit.Event{Key: "evt-2", Name: "user.banned", UserID: uuid.New()})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
