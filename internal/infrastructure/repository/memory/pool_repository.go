package memory

import (
	"context"
	"sync"
	"time"

	"github.com/riskibarqy/polla/internal/domain/pool"
)

type PoolRepository struct {
	mu    sync.RWMutex
	pools map[string]pool.Pool
	now   func() time.Time
}

func NewPoolRepository(pools []pool.Pool) *PoolRepository {
	byID := make(map[string]pool.Pool, len(pools))
	for _, item := range pools {
		byID[item.ID] = item
	}

	return &PoolRepository{pools: byID, now: time.Now}
}

func (r *PoolRepository) GetByID(_ context.Context, poolID string) (pool.Pool, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.pools[poolID]
	if !ok || item.IsDeleted() {
		return pool.Pool{}, false, nil
	}
	return item, true, nil
}

func (r *PoolRepository) UpdateState(_ context.Context, poolID string, from, to pool.State) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.pools[poolID]
	if !ok || item.IsDeleted() || item.State != from {
		return false, nil
	}
	item.State = to
	item.UpdatedAt = r.now().UTC()
	r.pools[poolID] = item
	return true, nil
}

func (r *PoolRepository) MarkFinalized(_ context.Context, poolID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.pools[poolID]
	if !ok || item.IsDeleted() || item.State == pool.StateFinalized {
		return false, nil
	}
	item.State = pool.StateFinalized
	item.UpdatedAt = r.now().UTC()
	r.pools[poolID] = item
	return true, nil
}

// SoftDelete hides the pool from every read.
func (r *PoolRepository) SoftDelete(_ context.Context, poolID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.pools[poolID]
	if !ok {
		return nil
	}
	deletedAt := r.now().UTC()
	item.DeletedAt = &deletedAt
	r.pools[poolID] = item
	return nil
}

// AccessRepository stores accepted pool participants.
type AccessRepository struct {
	mu       sync.RWMutex
	pools    *PoolRepository
	accepted map[string]map[string]struct{}
}

func NewAccessRepository(pools *PoolRepository, accepted map[string][]string) *AccessRepository {
	byPool := make(map[string]map[string]struct{}, len(accepted))
	for poolID, participants := range accepted {
		set := make(map[string]struct{}, len(participants))
		for _, participantID := range participants {
			set[participantID] = struct{}{}
		}
		byPool[poolID] = set
	}

	return &AccessRepository{pools: pools, accepted: byPool}
}

func (r *AccessRepository) IsCreatorOrAcceptedParticipant(ctx context.Context, poolID, participantID string) (bool, error) {
	if r.pools != nil {
		p, ok, err := r.pools.GetByID(ctx, poolID)
		if err != nil {
			return false, err
		}
		if ok && p.CreatorID == participantID {
			return true, nil
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.accepted[poolID][participantID]
	return ok, nil
}

func (r *AccessRepository) Accept(poolID, participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.accepted[poolID] == nil {
		r.accepted[poolID] = make(map[string]struct{})
	}
	r.accepted[poolID][participantID] = struct{}{}
}
