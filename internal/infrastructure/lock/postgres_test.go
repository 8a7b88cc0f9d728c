package lock

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/polla/internal/platform/keylock"
	"github.com/stretchr/testify/require"
)

func TestPostgresLocker_AdvisoryLockIsExclusive(t *testing.T) {
	dbURL := strings.TrimSpace(os.Getenv("POLLA_TEST_DB_URL"))
	if dbURL == "" {
		t.Skip("POLLA_TEST_DB_URL is not set")
	}

	db, err := sqlx.Open("postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	first := NewPostgresLocker(db)
	second := NewPostgresLocker(db)

	ok, err := first.TryLock(ctx, "match-sync:pg")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.TryLock(ctx, "match-sync:pg")
	require.NoError(t, err)
	require.False(t, ok, "another session must not take a held key")

	ok, err = first.TryLock(ctx, "match-sync:pg")
	require.NoError(t, err)
	require.False(t, ok, "the same locker must not hand out a held key twice")

	require.NoError(t, first.Unlock(ctx, "match-sync:pg"))
	require.ErrorIs(t, first.Unlock(ctx, "match-sync:pg"), keylock.ErrNotHeld)

	ok, err = second.TryLock(ctx, "match-sync:pg")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, second.Unlock(ctx, "match-sync:pg"))
}
