package postgres

import (
	"database/sql"
	"time"
)

type matchTableModel struct {
	ID           int64         `db:"id"`
	PublicID     string        `db:"public_id"`
	PoolID       string        `db:"pool_id"`
	ExternalID   string        `db:"external_id"`
	HomeTeam     string        `db:"home_team"`
	AwayTeam     string        `db:"away_team"`
	ScheduledAt  time.Time     `db:"scheduled_at"`
	HomeGoals    sql.NullInt64 `db:"home_goals"`
	AwayGoals    sql.NullInt64 `db:"away_goals"`
	StatusShort  string        `db:"status_short"`
	StatusLong   string        `db:"status_long"`
	LastSyncedAt sql.NullTime  `db:"last_synced_at"`
	Finalized    bool          `db:"finalized"`
	CreatedAt    time.Time     `db:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at"`
}
