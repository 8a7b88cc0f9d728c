package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

type PoolStateService struct {
	pools   pool.Repository
	matches match.Repository
	sweeps  SweepScheduler
	logger  *logging.Logger
	now     func() time.Time
}

// NewPoolStateService builds the creator-facing state machine. sweeps may be
// nil, in which case no background finalization is queued.
func NewPoolStateService(pools pool.Repository, matches match.Repository, sweeps SweepScheduler, logger *logging.Logger) *PoolStateService {
	if logger == nil {
		logger = logging.Default()
	}

	return &PoolStateService{
		pools:   pools,
		matches: matches,
		sweeps:  sweeps,
		logger:  logger.Named("pool_state"),
		now:     time.Now,
	}
}

// Transition applies a creator-requested state change. FINALIZED is never
// reachable here, and the OPEN -> CREATED rollback is refused once any match
// has kicked off.
func (s *PoolStateService) Transition(ctx context.Context, poolID, actorID string, target pool.State) (pool.Pool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolStateService.Transition",
		attribute.String("pool_id", poolID),
		attribute.String("target_state", string(target)),
	)
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return pool.Pool{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}

	p, ok, err := s.pools.GetByID(ctx, poolID)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("get pool: %w", err)
	}
	if !ok || p.IsDeleted() {
		return pool.Pool{}, fmt.Errorf("%w: pool=%s", ErrNotFound, poolID)
	}
	if p.CreatorID != strings.TrimSpace(actorID) {
		return pool.Pool{}, fmt.Errorf("%w: only the pool creator can change its state", ErrUnauthorized)
	}
	if target == pool.StateFinalized {
		return pool.Pool{}, fmt.Errorf("%w: pools are finalized automatically", ErrInvalidTransition)
	}

	now := s.now()
	next, err := p.Transition(target, now)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	if pool.IsRollback(p.State, target) {
		matches, err := s.matches.ListByPool(ctx, poolID)
		if err != nil {
			return pool.Pool{}, fmt.Errorf("list matches by pool: %w", err)
		}
		for _, m := range matches {
			if m.HasStarted(now) {
				return pool.Pool{}, fmt.Errorf("%w: match=%s already started", ErrInvalidTransition, m.ID)
			}
		}
	}

	updated, err := s.pools.UpdateState(ctx, poolID, p.State, target)
	if err != nil {
		return pool.Pool{}, fmt.Errorf("update pool state: %w", err)
	}
	if !updated {
		return pool.Pool{}, fmt.Errorf("%w: pool=%s changed concurrently", ErrInvalidTransition, poolID)
	}

	s.logger.InfoContext(ctx, "pool state changed",
		"pool_id", poolID,
		"from", p.State,
		"to", target,
	)
	s.scheduleSweep(ctx, poolID, target)
	return next, nil
}

func (s *PoolStateService) scheduleSweep(ctx context.Context, poolID string, target pool.State) {
	if s.sweeps == nil || (target != pool.StateOpen && target != pool.StateClosed) {
		return
	}
	if err := s.sweeps.Schedule(ctx, poolID, 0); err != nil {
		s.logger.WarnContext(ctx, "schedule pool sweep failed", "pool_id", poolID, "error", err)
	}
}
