package match

import "context"

type Repository interface {
	GetByID(ctx context.Context, matchID string) (Match, bool, error)
	ListByPool(ctx context.Context, poolID string) ([]Match, error)
	// SaveSyncedState persists a refreshed snapshot. It returns false without
	// writing when the stored row is already finalized.
	SaveSyncedState(ctx context.Context, m Match) (bool, error)
}
