package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// JobQueue publishes delayed callbacks to this service's internal job routes.
type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

// SweepScheduler queues a sweep of a pool.
type SweepScheduler interface {
	Schedule(ctx context.Context, poolID string, delay time.Duration) error
}

type poolFinalizerRunner interface {
	FinalizeIfComplete(ctx context.Context, poolID string) (FinalizeResult, error)
}

type PoolSweepConfig struct {
	LiveInterval   time.Duration
	IdleInterval   time.Duration
	PreKickoffLead time.Duration
}

type SweepResult struct {
	PoolID        string
	PoolState     pool.State
	SyncedMatches int
	SyncFailures  int
	Finalize      FinalizeResult
	// NextDelay is zero when no further sweep was queued.
	NextDelay time.Duration
	Queued    bool
}

// PoolSweepService keeps pools moving toward FINALIZED when no participant is
// reading scores. Each run refreshes started matches, attempts finalization and
// queues the next run based on the match calendar.
type PoolSweepService struct {
	pools     pool.Repository
	matches   match.Repository
	syncer    MatchScoreSyncer
	finalizer poolFinalizerRunner
	queue     JobQueue
	cfg       PoolSweepConfig
	logger    *logging.Logger
	now       func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewPoolSweepService(
	pools pool.Repository,
	matches match.Repository,
	syncer MatchScoreSyncer,
	finalizer poolFinalizerRunner,
	queue JobQueue,
	cfg PoolSweepConfig,
	logger *logging.Logger,
) *PoolSweepService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 5 * time.Minute
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = 6 * time.Hour
	}
	if cfg.PreKickoffLead < 0 {
		cfg.PreKickoffLead = 0
	}

	return &PoolSweepService{
		pools:     pools,
		matches:   matches,
		syncer:    syncer,
		finalizer: finalizer,
		queue:     queue,
		cfg:       cfg,
		logger:    logger.Named("pool_sweep"),
		now:       time.Now,
	}
}

func SweepJobPath(poolID string) string {
	return "/v1/internal/pools/" + strings.TrimSpace(poolID) + "/sweep"
}

func (s *PoolSweepService) Schedule(ctx context.Context, poolID string, delay time.Duration) error {
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}
	if delay < 0 {
		delay = 0
	}

	bucket := s.cfg.LiveInterval
	dedupID := dedupKey("sweep", poolID, s.now().Add(delay), bucket)
	payload := map[string]any{
		"pool_id":     poolID,
		"dispatch_id": dedupID,
	}
	if err := s.queue.Enqueue(ctx, SweepJobPath(poolID), payload, delay, dedupID); err != nil {
		return fmt.Errorf("enqueue sweep pool=%s: %w", poolID, err)
	}
	return nil
}

// RunSweep refreshes every started, unfinalized match of the pool, attempts
// finalization and queues the next sweep unless the pool is finalized.
func (s *PoolSweepService) RunSweep(ctx context.Context, poolID string) (SweepResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolSweepService.RunSweep", attribute.String("pool_id", poolID))
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return SweepResult{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}

	p, ok, err := s.pools.GetByID(ctx, poolID)
	if err != nil {
		return SweepResult{}, fmt.Errorf("get pool: %w", err)
	}
	if !ok || p.IsDeleted() {
		return SweepResult{}, fmt.Errorf("%w: pool=%s", ErrNotFound, poolID)
	}

	result := SweepResult{PoolID: poolID, PoolState: p.State}
	if p.IsFinalized() {
		result.Finalize = FinalizeResult{PoolID: poolID, Complete: true}
		return result, nil
	}

	matches, err := s.matches.ListByPool(ctx, poolID)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list matches by pool: %w", err)
	}

	now := s.now()
	for i, m := range matches {
		if m.Finalized || !m.HasStarted(now) || s.syncer == nil {
			continue
		}
		view, err := s.syncer.SyncMatch(ctx, m)
		if err != nil {
			result.SyncFailures++
			s.logger.WarnContext(ctx, "sweep match sync failed", "pool_id", poolID, "match_id", m.ID, "error", err)
			continue
		}
		result.SyncedMatches++
		matches[i].StatusShort = view.StatusShort
		matches[i].Finalized = view.Finalized
	}

	finalized, err := s.finalizer.FinalizeIfComplete(ctx, poolID)
	if err != nil {
		return SweepResult{}, fmt.Errorf("finalize pool=%s: %w", poolID, err)
	}
	result.Finalize = finalized
	if finalized.Complete {
		result.PoolState = pool.StateFinalized
		return result, nil
	}

	delay := s.nextDelay(now, matches)
	if err := s.Schedule(ctx, poolID, delay); err != nil {
		return SweepResult{}, err
	}
	result.NextDelay = delay
	result.Queued = true

	s.logger.InfoContext(ctx, "pool sweep completed",
		"pool_id", poolID,
		"synced_matches", result.SyncedMatches,
		"sync_failures", result.SyncFailures,
		"next_delay", delay.String(),
	)
	return result, nil
}

func (s *PoolSweepService) nextDelay(now time.Time, matches []match.Match) time.Duration {
	minDelay := time.Minute
	hasLive, nearestUpcoming := analyzeMatches(matches, now)
	if hasLive {
		return maxDuration(s.cfg.LiveInterval, minDelay)
	}
	if nearestUpcoming != nil {
		delay := nearestUpcoming.Add(-s.cfg.PreKickoffLead).Sub(now)
		if delay <= 0 {
			return maxDuration(s.cfg.LiveInterval, minDelay)
		}
		return maxDuration(delay, minDelay)
	}
	return maxDuration(s.cfg.IdleInterval, minDelay)
}

// analyzeMatches reports whether any unfinalized match has kicked off and
// returns the nearest future kickoff.
func analyzeMatches(items []match.Match, now time.Time) (bool, *time.Time) {
	var nearestUpcoming *time.Time
	hasLive := false
	for _, item := range items {
		if item.Finalized || match.IsCancelledLikeStatus(item.StatusShort) {
			continue
		}
		if item.HasStarted(now) {
			hasLive = true
			continue
		}
		if item.ScheduledAt.IsZero() {
			continue
		}
		if nearestUpcoming == nil || item.ScheduledAt.Before(*nearestUpcoming) {
			next := item.ScheduledAt
			nearestUpcoming = &next
		}
	}
	return hasLive, nearestUpcoming
}

func dedupKey(prefix, poolID string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	return sanitizeDedupSegment(prefix) + "-" + sanitizeDedupSegment(poolID) + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func maxDuration(left, right time.Duration) time.Duration {
	if left > right {
		return left
	}
	return right
}
