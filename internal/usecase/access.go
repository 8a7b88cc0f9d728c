package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/polla/internal/domain/pool"
)

// poolAccess resolves a pool and checks that the participant may read it.
type poolAccess struct {
	pools  pool.Repository
	access pool.AccessRepository
}

func (a poolAccess) authorize(ctx context.Context, poolID, participantID string) (pool.Pool, error) {
	poolID = strings.TrimSpace(poolID)
	participantID = strings.TrimSpace(participantID)
	if poolID == "" {
		return pool.Pool{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}
	if participantID == "" {
		return pool.Pool{}, fmt.Errorf("%w: participant id is required", ErrUnauthorized)
	}

	p, ok, err := a.pools.GetByID(ctx, poolID)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("get pool: %w", err)
	}
	if !ok || p.IsDeleted() {
		return pool.Pool{}, fmt.Errorf("%w: pool=%s", ErrNotFound, poolID)
	}
	if p.CreatorID == participantID {
		return p, nil
	}

	allowed, err := a.access.IsCreatorOrAcceptedParticipant(ctx, poolID, participantID)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("check pool access: %w", err)
	}
	if !allowed {
		return pool.Pool{}, fmt.Errorf("%w: participant=%s is not a member of pool=%s", ErrUnauthorized, participantID, poolID)
	}

	return p, nil
}
