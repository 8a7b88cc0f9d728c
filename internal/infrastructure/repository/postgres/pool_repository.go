package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/polla/internal/domain/pool"
	qb "github.com/riskibarqy/polla/internal/platform/querybuilder"
)

const participantStatusAccepted = "ACCEPTED"

type PoolRepository struct {
	db *sqlx.DB
}

func NewPoolRepository(db *sqlx.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

func (r *PoolRepository) GetByID(ctx context.Context, poolID string) (pool.Pool, bool, error) {
	query, args, err := qb.Select("*").From("pools").
		Where(
			qb.Eq("public_id", poolID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return pool.Pool{}, false, fmt.Errorf("build get pool by id query: %w", err)
	}

	var row poolTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return pool.Pool{}, false, nil
		}
		return pool.Pool{}, false, fmt.Errorf("get pool by id: %w", err)
	}

	item, err := poolFromRow(row)
	if err != nil {
		return pool.Pool{}, false, err
	}
	return item, true, nil
}

// UpdateState moves the pool from one state to another. It reports false when
// the stored state no longer matches from.
func (r *PoolRepository) UpdateState(ctx context.Context, poolID string, from, to pool.State) (bool, error) {
	query, args, err := qb.Update("pools").
		Set("state", string(to)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", poolID),
			qb.Eq("state", string(from)),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build update pool state query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update pool state: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return false, fmt.Errorf("read updated pool rows: %w", err)
	}
	return affected == 1, nil
}

func (r *PoolRepository) MarkFinalized(ctx context.Context, poolID string) (bool, error) {
	query, args, err := qb.Update("pools").
		Set("state", string(pool.StateFinalized)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", poolID),
			qb.Expr("state <> ?", string(pool.StateFinalized)),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build finalize pool query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("finalize pool: %w", err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return false, fmt.Errorf("read finalized pool rows: %w", err)
	}
	return affected == 1, nil
}

type PoolAccessRepository struct {
	db *sqlx.DB
}

func NewPoolAccessRepository(db *sqlx.DB) *PoolAccessRepository {
	return &PoolAccessRepository{db: db}
}

func (r *PoolAccessRepository) IsCreatorOrAcceptedParticipant(ctx context.Context, poolID, participantID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM pools p
	WHERE p.public_id = $1
	  AND p.deleted_at IS NULL
	  AND (
	    p.creator_id = $2
	    OR EXISTS (
	      SELECT 1 FROM pool_participants pp
	      WHERE pp.pool_id = p.public_id
	        AND pp.participant_id = $2
	        AND pp.status = $3
	    )
	  )
)`

	var allowed bool
	if err := r.db.GetContext(ctx, &allowed, query, poolID, participantID, participantStatusAccepted); err != nil {
		return false, fmt.Errorf("check pool access: %w", err)
	}
	return allowed, nil
}

func poolFromRow(row poolTableModel) (pool.Pool, error) {
	state, err := pool.ParseState(row.State)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("decode pool=%s: %w", row.PublicID, err)
	}

	return pool.Pool{
		ID:        row.PublicID,
		Name:      row.Name,
		CreatorID: row.CreatorID,
		StartsAt:  row.StartsAt.UTC(),
		EntryFee:  row.EntryFee,
		State:     state,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
		DeletedAt: row.DeletedAt,
	}, nil
}
