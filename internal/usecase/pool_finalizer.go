package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/polla/internal/domain/forecast"
	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/matchscore"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/domain/scoring"
	"github.com/riskibarqy/polla/internal/platform/logging"
	"github.com/riskibarqy/polla/internal/platform/resilience"
	concpool "github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultFinalizeMaxWorkers    = 4
	defaultFinalizeCheckInterval = 30 * time.Second
	defaultFinalizeTimeout       = 30 * time.Second
	defaultFinalizeQueueWorkers  = 8
)

type FinalizeResult struct {
	PoolID string
	// Complete is true when every match of the pool is finalized.
	Complete bool
	// Transitioned is true only for the call that moved the pool to FINALIZED.
	Transitioned  bool
	ScoresWritten int
	// InconsistentMatches lists finalized matches skipped for missing goals.
	InconsistentMatches []string
}

type PoolFinalizerConfig struct {
	MaxWorkers    int
	QueueWorkers  int
	CheckInterval time.Duration
	Timeout       time.Duration
}

type PoolFinalizer struct {
	pools     pool.Repository
	matches   match.Repository
	forecasts forecast.Repository
	scores    matchscore.Repository
	rules     scoring.Rules
	metrics   SyncMetrics
	logger    *logging.Logger
	cfg       PoolFinalizerConfig
	now       func() time.Time

	queue  *ants.Pool
	flight resilience.SingleFlight[FinalizeResult]

	checkMu   sync.Mutex
	lastCheck map[string]time.Time
}

func NewPoolFinalizer(
	pools pool.Repository,
	matches match.Repository,
	forecasts forecast.Repository,
	scores matchscore.Repository,
	rules scoring.Rules,
	metrics SyncMetrics,
	cfg PoolFinalizerConfig,
	logger *logging.Logger,
) (*PoolFinalizer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = noopSyncMetrics{}
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultFinalizeMaxWorkers
	}
	if cfg.QueueWorkers <= 0 {
		cfg.QueueWorkers = defaultFinalizeQueueWorkers
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultFinalizeCheckInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFinalizeTimeout
	}
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("validate scoring rules: %w", err)
	}

	queue, err := ants.NewPool(cfg.QueueWorkers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create finalization worker pool: %w", err)
	}

	return &PoolFinalizer{
		pools:     pools,
		matches:   matches,
		forecasts: forecasts,
		scores:    scores,
		rules:     rules,
		metrics:   metrics,
		logger:    logger.Named("pool_finalizer"),
		cfg:       cfg,
		now:       time.Now,
		queue:     queue,
		lastCheck: make(map[string]time.Time),
	}, nil
}

// Close stops accepting triggers and waits for queued checks.
func (f *PoolFinalizer) Close() {
	if f.queue != nil {
		f.queue.Release()
	}
}

// Trigger schedules FinalizeIfComplete in the background. Checks for the same
// pool are throttled to one per check interval; failures are only logged and
// the next trigger retries.
func (f *PoolFinalizer) Trigger(ctx context.Context, poolID string) {
	f.submit(ctx, poolID, false)
}

// TriggerNow schedules a check that ignores the throttle and never joins a
// check already in flight, so a match that just became final is always seen.
func (f *PoolFinalizer) TriggerNow(ctx context.Context, poolID string) {
	f.submit(ctx, poolID, true)
}

func (f *PoolFinalizer) submit(ctx context.Context, poolID string, force bool) {
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return
	}
	if force {
		f.markCheck(poolID)
	} else if !f.reserveCheck(poolID) {
		return
	}

	detached := context.WithoutCancel(ctx)
	err := f.queue.Submit(func() {
		runCtx, cancel := context.WithTimeout(detached, f.cfg.Timeout)
		defer cancel()

		if force {
			f.flight.Forget(poolID)
		}
		if _, err := f.FinalizeIfComplete(runCtx, poolID); err != nil {
			f.releaseCheck(poolID)
			f.logger.WarnContext(runCtx, "background pool finalization failed", "pool_id", poolID, "forced", force, "error", err)
		}
	})
	if err != nil {
		f.releaseCheck(poolID)
		f.logger.WarnContext(ctx, "pool finalization trigger rejected", "pool_id", poolID, "forced", force, "error", err)
	}
}

// FinalizeIfComplete writes definitive match scores and moves the pool to
// FINALIZED once every match is finalized. Calling it again is harmless.
func (f *PoolFinalizer) FinalizeIfComplete(ctx context.Context, poolID string) (FinalizeResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PoolFinalizer.FinalizeIfComplete", attribute.String("pool_id", poolID))
	defer span.End()

	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return FinalizeResult{}, fmt.Errorf("%w: pool id is required", ErrInvalidInput)
	}

	result, err, _ := f.flight.Do(poolID, func() (FinalizeResult, error) {
		return f.finalize(ctx, poolID)
	})
	if err != nil {
		f.metrics.ObserveFinalization(FinalizationOutcomeFailed)
		return FinalizeResult{}, err
	}
	return result, nil
}

func (f *PoolFinalizer) finalize(ctx context.Context, poolID string) (FinalizeResult, error) {
	result := FinalizeResult{PoolID: poolID}

	p, ok, err := f.pools.GetByID(ctx, poolID)
	if err != nil {
		return result, fmt.Errorf("get pool: %w", err)
	}
	if !ok || p.IsDeleted() {
		return result, fmt.Errorf("%w: pool=%s", ErrNotFound, poolID)
	}
	if p.IsFinalized() {
		result.Complete = true
		f.metrics.ObserveFinalization(FinalizationOutcomeAlready)
		return result, nil
	}

	matches, err := f.matches.ListByPool(ctx, poolID)
	if err != nil {
		return result, fmt.Errorf("list matches by pool: %w", err)
	}
	if len(matches) == 0 {
		f.metrics.ObserveFinalization(FinalizationOutcomeIncomplete)
		return result, nil
	}
	for _, m := range matches {
		if !m.Finalized {
			f.metrics.ObserveFinalization(FinalizationOutcomeIncomplete)
			return result, nil
		}
	}
	result.Complete = true

	var (
		mu           sync.Mutex
		written      int
		inconsistent []string
	)
	workers := concpool.New().WithMaxGoroutines(f.cfg.MaxWorkers).WithContext(ctx).WithCancelOnError()
	for _, m := range matches {
		workers.Go(func(ctx context.Context) error {
			count, err := f.scoreMatch(ctx, m)
			if errors.Is(err, errInconsistentFinalization) {
				mu.Lock()
				inconsistent = append(inconsistent, m.ID)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			written += count
			mu.Unlock()
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		return result, err
	}
	result.ScoresWritten = written
	result.InconsistentMatches = inconsistent

	transitioned, err := f.pools.MarkFinalized(ctx, poolID)
	if err != nil {
		return result, fmt.Errorf("mark pool finalized: %w", err)
	}
	result.Transitioned = transitioned

	if transitioned {
		f.metrics.ObserveFinalization(FinalizationOutcomeFinalized)
		f.logger.InfoContext(ctx, "pool finalized",
			"pool_id", poolID,
			"matches", len(matches),
			"scores_written", written,
			"inconsistent_matches", len(inconsistent),
		)
	} else {
		f.metrics.ObserveFinalization(FinalizationOutcomeAlready)
	}

	return result, nil
}

var errInconsistentFinalization = errors.New("inconsistent finalization")

func (f *PoolFinalizer) scoreMatch(ctx context.Context, m match.Match) (int, error) {
	if !m.HasGoals() {
		f.metrics.ObserveFinalization(FinalizationOutcomeInconsistent)
		f.logger.WarnContext(ctx, "finalized match has no goals, skipping",
			"match_id", m.ID,
			"pool_id", m.PoolID,
			"status", m.StatusShort,
		)
		return 0, errInconsistentFinalization
	}

	forecasts, err := f.forecasts.ListByMatch(ctx, m.ID)
	if err != nil {
		return 0, fmt.Errorf("list forecasts by match=%s: %w", m.ID, err)
	}

	calculatedAt := f.now().UTC()
	for _, item := range forecasts {
		points := scoring.Compute(&item.HomeGoals, &item.AwayGoals, m.HomeGoals, m.AwayGoals, f.rules)
		if err := f.scores.Upsert(ctx, matchscore.MatchScore{
			MatchID:       m.ID,
			PoolID:        m.PoolID,
			ParticipantID: item.ParticipantID,
			Points:        points,
			Definitive:    true,
			CalculatedAt:  calculatedAt,
		}); err != nil {
			return 0, fmt.Errorf("upsert match score match=%s participant=%s: %w", m.ID, item.ParticipantID, err)
		}
		if err := f.forecasts.SetLegacyPoints(ctx, m.ID, item.ParticipantID, points); err != nil {
			return 0, fmt.Errorf("set forecast points match=%s participant=%s: %w", m.ID, item.ParticipantID, err)
		}
	}

	return len(forecasts), nil
}

func (f *PoolFinalizer) reserveCheck(poolID string) bool {
	now := f.now()

	f.checkMu.Lock()
	defer f.checkMu.Unlock()

	if last, ok := f.lastCheck[poolID]; ok && now.Sub(last) < f.cfg.CheckInterval {
		return false
	}
	f.lastCheck[poolID] = now
	return true
}

func (f *PoolFinalizer) markCheck(poolID string) {
	now := f.now()
	f.checkMu.Lock()
	f.lastCheck[poolID] = now
	f.checkMu.Unlock()
}

func (f *PoolFinalizer) releaseCheck(poolID string) {
	f.checkMu.Lock()
	delete(f.lastCheck, poolID)
	f.checkMu.Unlock()
}
