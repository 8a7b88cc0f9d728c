package postgres

import (
	"database/sql"
	"time"
)

type forecastTableModel struct {
	ID            int64         `db:"id"`
	PublicID      string        `db:"public_id"`
	PoolID        string        `db:"pool_id"`
	MatchID       string        `db:"match_id"`
	ParticipantID string        `db:"participant_id"`
	HomeGoals     int           `db:"home_goals"`
	AwayGoals     int           `db:"away_goals"`
	Points        sql.NullInt64 `db:"points"`
	SubmittedAt   time.Time     `db:"submitted_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

type matchScoreTableModel struct {
	MatchID       string    `db:"match_id"`
	PoolID        string    `db:"pool_id"`
	ParticipantID string    `db:"participant_id"`
	Points        int       `db:"points"`
	Definitive    bool      `db:"definitive"`
	CalculatedAt  time.Time `db:"calculated_at"`
}
