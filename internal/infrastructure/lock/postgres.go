package lock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/polla/internal/platform/keylock"
)

// PostgresLocker maps keys onto session-level advisory locks. Each held key
// pins one pooled connection until Unlock, because advisory locks belong to
// the session that took them.
type PostgresLocker struct {
	db *sqlx.DB

	mu    sync.Mutex
	conns map[string]*sqlx.Conn
}

func NewPostgresLocker(db *sqlx.DB) *PostgresLocker {
	return &PostgresLocker{
		db:    db,
		conns: make(map[string]*sqlx.Conn),
	}
}

func (l *PostgresLocker) TryLock(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	_, held := l.conns[key]
	l.mu.Unlock()
	if held {
		return false, nil
	}

	conn, err := l.db.Connx(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool
	if err := conn.GetContext(ctx, &acquired, `SELECT pg_try_advisory_lock(hashtext($1))`, key); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("try advisory lock key=%s: %w", key, err)
	}
	if !acquired {
		_ = conn.Close()
		return false, nil
	}

	l.mu.Lock()
	l.conns[key] = conn
	l.mu.Unlock()
	return true, nil
}

func (l *PostgresLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	conn, ok := l.conns[key]
	delete(l.conns, key)
	l.mu.Unlock()
	if !ok {
		return keylock.ErrNotHeld
	}

	var released sql.NullBool
	if err := conn.GetContext(ctx, &released, `SELECT pg_advisory_unlock(hashtext($1))`, key); err != nil {
		// The session may still hold the lock; never hand it back to the pool.
		discard(conn)
		return fmt.Errorf("advisory unlock key=%s: %w", key, err)
	}
	_ = conn.Close()
	if !released.Valid || !released.Bool {
		return fmt.Errorf("%w: key=%s", keylock.ErrNotHeld, key)
	}
	return nil
}

// discard closes the driver connection instead of returning it to the pool.
func discard(conn *sqlx.Conn) {
	_ = conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = conn.Close()
}
