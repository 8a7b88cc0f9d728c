package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/polla/internal/domain/match"
	qb "github.com/riskibarqy/polla/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(qb.Eq("public_id", matchID)).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match by id query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match by id: %w", err)
	}

	return matchFromRow(row), true, nil
}

func (r *MatchRepository) ListByPool(ctx context.Context, poolID string) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(qb.Eq("pool_id", poolID)).
		OrderBy("scheduled_at", "public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches by pool query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches by pool: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}
	return out, nil
}

// SaveSyncedState writes the refreshed snapshot unless the stored row is
// already finalized. It reports whether a row was written.
func (r *MatchRepository) SaveSyncedState(ctx context.Context, m match.Match) (bool, error) {
	query, args, err := qb.Update("matches").
		Set("home_goals", intPtrToNullInt64(m.HomeGoals)).
		Set("away_goals", intPtrToNullInt64(m.AwayGoals)).
		Set("status_short", m.StatusShort).
		Set("status_long", m.StatusLong).
		Set("last_synced_at", timePtrToNullTime(m.LastSyncedAt)).
		Set("finalized", m.Finalized).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", m.ID),
			qb.Eq("finalized", false),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build save synced match query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("save synced match: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return false, fmt.Errorf("read saved match rows: %w", err)
	}
	return affected == 1, nil
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:           row.PublicID,
		PoolID:       row.PoolID,
		ExternalID:   row.ExternalID,
		HomeTeam:     row.HomeTeam,
		AwayTeam:     row.AwayTeam,
		ScheduledAt:  row.ScheduledAt.UTC(),
		HomeGoals:    nullInt64ToIntPtr(row.HomeGoals),
		AwayGoals:    nullInt64ToIntPtr(row.AwayGoals),
		StatusShort:  match.NormalizeStatus(row.StatusShort),
		StatusLong:   row.StatusLong,
		LastSyncedAt: nullTimeToPtr(row.LastSyncedAt),
		Finalized:    row.Finalized,
	}
}
