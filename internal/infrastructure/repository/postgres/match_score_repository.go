package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/polla/internal/domain/matchscore"
	qb "github.com/riskibarqy/polla/internal/platform/querybuilder"
)

type MatchScoreRepository struct {
	db *sqlx.DB
}

func NewMatchScoreRepository(db *sqlx.DB) *MatchScoreRepository {
	return &MatchScoreRepository{db: db}
}

func (r *MatchScoreRepository) Upsert(ctx context.Context, item matchscore.MatchScore) error {
	query, args, err := qb.UpsertModel("match_scores", matchScoreTableModel{
		MatchID:       item.MatchID,
		PoolID:        item.PoolID,
		ParticipantID: item.ParticipantID,
		Points:        item.Points,
		Definitive:    item.Definitive,
		CalculatedAt:  item.CalculatedAt.UTC(),
	}, []string{"match_id", "participant_id"})
	if err != nil {
		return fmt.Errorf("build upsert match score query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert match score: %w", err)
	}
	return nil
}

func (r *MatchScoreRepository) ListByPool(ctx context.Context, poolID string) ([]matchscore.MatchScore, error) {
	query, args, err := qb.Select("*").From("match_scores").
		Where(qb.Eq("pool_id", poolID)).
		OrderBy("match_id", "participant_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match scores query: %w", err)
	}

	var rows []matchScoreTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select match scores: %w", err)
	}

	out := make([]matchscore.MatchScore, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchscore.MatchScore{
			MatchID:       row.MatchID,
			PoolID:        row.PoolID,
			ParticipantID: row.ParticipantID,
			Points:        row.Points,
			Definitive:    row.Definitive,
			CalculatedAt:  row.CalculatedAt.UTC(),
		})
	}
	return out, nil
}
