package pool

import "context"

type Repository interface {
	// GetByID ignores soft-deleted pools.
	GetByID(ctx context.Context, poolID string) (Pool, bool, error)
	// UpdateState moves a pool from one state to another and reports whether
	// the stored state still matched from.
	UpdateState(ctx context.Context, poolID string, from, to State) (bool, error)
	// MarkFinalized moves any non-finalized pool to FINALIZED. It reports false
	// when the pool was already finalized.
	MarkFinalized(ctx context.Context, poolID string) (bool, error)
}

// AccessRepository answers whether a participant may read a pool.
type AccessRepository interface {
	IsCreatorOrAcceptedParticipant(ctx context.Context, poolID, participantID string) (bool, error)
}
