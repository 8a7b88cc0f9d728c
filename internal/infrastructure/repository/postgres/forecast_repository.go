package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/polla/internal/domain/forecast"
	qb "github.com/riskibarqy/polla/internal/platform/querybuilder"
)

var forecastConflictColumns = []string{"match_id", "participant_id"}

type ForecastRepository struct {
	db *sqlx.DB
}

func NewForecastRepository(db *sqlx.DB) *ForecastRepository {
	return &ForecastRepository{db: db}
}

func (r *ForecastRepository) ListByMatch(ctx context.Context, matchID string) ([]forecast.Forecast, error) {
	return r.list(ctx, qb.Eq("match_id", matchID))
}

func (r *ForecastRepository) ListByPool(ctx context.Context, poolID string) ([]forecast.Forecast, error) {
	return r.list(ctx, qb.Eq("pool_id", poolID))
}

func (r *ForecastRepository) list(ctx context.Context, filter qb.Condition) ([]forecast.Forecast, error) {
	query, args, err := qb.Select("*").From("forecasts").
		Where(filter).
		OrderBy("match_id", "participant_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list forecasts query: %w", err)
	}

	var rows []forecastTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select forecasts: %w", err)
	}

	out := make([]forecast.Forecast, 0, len(rows))
	for _, row := range rows {
		out = append(out, forecastFromRow(row))
	}
	return out, nil
}

// Upsert inserts the forecast or replaces the goals of the existing one for the
// same (match, participant). The stored id and submission time are kept.
func (r *ForecastRepository) Upsert(ctx context.Context, item forecast.Forecast) (forecast.Forecast, error) {
	query, args, err := qb.InsertInto("forecasts").
		Columns("public_id", "pool_id", "match_id", "participant_id", "home_goals", "away_goals", "submitted_at", "updated_at").
		Values(item.ID, item.PoolID, item.MatchID, item.ParticipantID, item.HomeGoals, item.AwayGoals, item.SubmittedAt.UTC(), item.UpdatedAt.UTC()).
		OnConflictDoUpdate(forecastConflictColumns, "home_goals", "away_goals", "updated_at").
		Suffix("RETURNING *").
		ToSQL()
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("build upsert forecast query: %w", err)
	}

	var row forecastTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isUniqueViolation(err) {
			return forecast.Forecast{}, fmt.Errorf("upsert forecast: duplicate forecast id=%s: %w", item.ID, err)
		}
		return forecast.Forecast{}, fmt.Errorf("upsert forecast: %w", err)
	}
	return forecastFromRow(row), nil
}

func (r *ForecastRepository) SetLegacyPoints(ctx context.Context, matchID, participantID string, points int) error {
	query, args, err := qb.Update("forecasts").
		Set("points", points).
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("participant_id", participantID),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set forecast points query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set forecast points: %w", err)
	}
	return nil
}

func forecastFromRow(row forecastTableModel) forecast.Forecast {
	return forecast.Forecast{
		ID:            row.PublicID,
		PoolID:        row.PoolID,
		MatchID:       row.MatchID,
		ParticipantID: row.ParticipantID,
		HomeGoals:     row.HomeGoals,
		AwayGoals:     row.AwayGoals,
		Points:        nullInt64ToIntPtr(row.Points),
		SubmittedAt:   row.SubmittedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}
