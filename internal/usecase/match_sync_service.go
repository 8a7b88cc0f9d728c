package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/platform/keylock"
	"github.com/riskibarqy/polla/internal/platform/logging"
)

type ScoreSource string

const (
	SourceCache   ScoreSource = "CACHE"
	SourceNetwork ScoreSource = "NETWORK"
)

const (
	defaultSyncWaitAttempts = 5
	defaultSyncWaitInterval = 200 * time.Millisecond
	syncLockKeyPrefix       = "match-sync:"
)

// MatchScoreView is the score snapshot returned to readers.
type MatchScoreView struct {
	MatchID     string
	PoolID      string
	StatusShort string
	StatusLong  string
	HomeGoals   *int
	AwayGoals   *int
	Finalized   bool
	Source      ScoreSource
	// FreshnessSecondsRemaining is nil for snapshots that never expire.
	FreshnessSecondsRemaining *int
	// Stale marks a snapshot served past its freshness window.
	Stale bool
}

func (v MatchScoreView) IsScorable() bool {
	return !match.IsNotStartedStatus(v.StatusShort) && v.HomeGoals != nil && v.AwayGoals != nil
}

type MatchSyncConfig struct {
	Freshness    match.FreshnessPolicy
	WaitAttempts int
	WaitInterval time.Duration
}

type MatchSyncService struct {
	access    poolAccess
	matches   match.Repository
	gateway   MatchDataGateway
	locker    keylock.Locker
	finalizer FinalizationTrigger
	metrics   SyncMetrics
	logger    *logging.Logger
	cfg       MatchSyncConfig
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewMatchSyncService(
	pools pool.Repository,
	access pool.AccessRepository,
	matches match.Repository,
	gateway MatchDataGateway,
	locker keylock.Locker,
	finalizer FinalizationTrigger,
	metrics SyncMetrics,
	cfg MatchSyncConfig,
	logger *logging.Logger,
) *MatchSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	if metrics == nil {
		metrics = noopSyncMetrics{}
	}
	if cfg.WaitAttempts <= 0 {
		cfg.WaitAttempts = defaultSyncWaitAttempts
	}
	if cfg.WaitInterval <= 0 {
		cfg.WaitInterval = defaultSyncWaitInterval
	}

	return &MatchSyncService{
		access:    poolAccess{pools: pools, access: access},
		matches:   matches,
		gateway:   gateway,
		locker:    locker,
		finalizer: finalizer,
		metrics:   metrics,
		logger:    logger.Named("match_sync"),
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// GetScore returns the current score of a pool match for an authorized participant.
func (s *MatchSyncService) GetScore(ctx context.Context, poolID, matchID, participantID string) (MatchScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.GetScore")
	defer span.End()

	if _, err := s.access.authorize(ctx, poolID, participantID); err != nil {
		return MatchScoreView{}, err
	}

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return MatchScoreView{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	m, ok, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return MatchScoreView{}, fmt.Errorf("get match: %w", err)
	}
	if !ok || m.PoolID != strings.TrimSpace(poolID) {
		return MatchScoreView{}, fmt.Errorf("%w: match=%s pool=%s", ErrNotFound, matchID, poolID)
	}

	return s.SyncMatch(ctx, m)
}

// SyncMatch serves m from storage while it is fresh and otherwise refreshes it
// from the provider. At most one caller per external match refreshes at a time;
// the others wait briefly for that refresh and fall back to the stored snapshot.
// Provider and lock failures never reach the caller.
func (s *MatchSyncService) SyncMatch(ctx context.Context, m match.Match) (MatchScoreView, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchSyncService.SyncMatch")
	defer span.End()

	now := s.now()
	if m.Finalized && m.HasGoals() {
		s.triggerFinalization(ctx, m.PoolID, false)
		s.metrics.ObserveSync(SyncOutcomeCacheFinal)
		return s.view(m, SourceCache, now), nil
	}
	if s.cfg.Freshness.IsFresh(m, now) {
		s.metrics.ObserveSync(SyncOutcomeCacheFresh)
		return s.view(m, SourceCache, now), nil
	}

	key := syncLockKeyPrefix + m.ExternalID
	acquired, err := s.locker.TryLock(ctx, key)
	if err != nil {
		s.metrics.ObserveLock(LockOutcomeUnavailable)
		s.logger.WarnContext(ctx, "match sync lock unavailable, refreshing without lock",
			"match_id", m.ID,
			"external_match_id", m.ExternalID,
			"error", err,
		)
		return s.refresh(ctx, m, false)
	}
	if !acquired {
		s.metrics.ObserveLock(LockOutcomeContended)
		return s.waitForRefresh(ctx, m)
	}

	s.metrics.ObserveLock(LockOutcomeAcquired)
	defer s.unlock(ctx, key)

	return s.refresh(ctx, m, true)
}

func (s *MatchSyncService) refresh(ctx context.Context, m match.Match, locked bool) (MatchScoreView, error) {
	current := m
	if locked {
		latest, ok, err := s.matches.GetByID(ctx, m.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "re-read match under lock failed", "match_id", m.ID, "error", err)
		} else if ok {
			current = latest
		}

		now := s.now()
		if current.Finalized && current.HasGoals() {
			s.triggerFinalization(ctx, current.PoolID, false)
			s.metrics.ObserveSync(SyncOutcomeCacheRecheck)
			return s.view(current, SourceCache, now), nil
		}
		if s.cfg.Freshness.IsFresh(current, now) {
			s.metrics.ObserveSync(SyncOutcomeCacheRecheck)
			return s.view(current, SourceCache, now), nil
		}
	}

	state, err := s.gateway.FetchMatchState(ctx, current.ExternalID)
	if err != nil {
		s.metrics.ObserveSync(SyncOutcomeUpstreamStale)
		s.logger.WarnContext(ctx, "match provider unavailable, serving stale snapshot",
			"match_id", current.ID,
			"external_match_id", current.ExternalID,
			"error", err,
		)
		return s.staleView(current), nil
	}

	next, err := current.ApplyProviderState(state.toProviderState(), s.now())
	if err != nil {
		if errors.Is(err, match.ErrMatchFinalized) {
			return s.view(current, SourceCache, s.now()), nil
		}
		return MatchScoreView{}, fmt.Errorf("apply provider state: %w", err)
	}

	saved, err := s.matches.SaveSyncedState(ctx, next)
	if err != nil {
		s.logger.ErrorContext(ctx, "persist synced match failed",
			"match_id", next.ID,
			"error", err,
		)
	} else if !saved {
		latest, ok, getErr := s.matches.GetByID(ctx, next.ID)
		if getErr == nil && ok {
			s.metrics.ObserveSync(SyncOutcomeCacheRecheck)
			return s.view(latest, SourceCache, s.now()), nil
		}
	}

	if next.Finalized {
		s.logger.InfoContext(ctx, "match finalized",
			"match_id", next.ID,
			"pool_id", next.PoolID,
			"status", next.StatusShort,
		)
		s.triggerFinalization(ctx, next.PoolID, !current.Finalized)
	}

	s.metrics.ObserveSync(SyncOutcomeNetwork)
	return s.view(next, SourceNetwork, s.now()), nil
}

func (s *MatchSyncService) waitForRefresh(ctx context.Context, m match.Match) (MatchScoreView, error) {
	for attempt := 0; attempt < s.cfg.WaitAttempts; attempt++ {
		if err := s.sleep(ctx, s.cfg.WaitInterval); err != nil {
			break
		}

		latest, ok, err := s.matches.GetByID(ctx, m.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "poll match during refresh wait failed", "match_id", m.ID, "error", err)
			continue
		}
		if ok && syncedAfter(latest, m) {
			s.metrics.ObserveSync(SyncOutcomeWaitedFresh)
			if latest.Finalized {
				s.triggerFinalization(ctx, latest.PoolID, !m.Finalized)
			}
			return s.view(latest, SourceCache, s.now()), nil
		}
	}

	s.metrics.ObserveSync(SyncOutcomeWaitedStale)
	return s.staleView(m), nil
}

func (s *MatchSyncService) unlock(ctx context.Context, key string) {
	if err := s.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
		s.logger.WarnContext(ctx, "release match sync lock failed", "key", key, "error", err)
	}
}

// triggerFinalization asks for a pool check. justFinalized marks a refresh
// that flipped the match; those checks bypass the per-pool throttle.
func (s *MatchSyncService) triggerFinalization(ctx context.Context, poolID string, justFinalized bool) {
	if s.finalizer == nil || poolID == "" {
		return
	}
	if justFinalized {
		s.finalizer.TriggerNow(ctx, poolID)
		return
	}
	s.finalizer.Trigger(ctx, poolID)
}

func (s *MatchSyncService) view(m match.Match, source ScoreSource, now time.Time) MatchScoreView {
	out := MatchScoreView{
		MatchID:     m.ID,
		PoolID:      m.PoolID,
		StatusShort: m.StatusShort,
		StatusLong:  m.StatusLong,
		Finalized:   m.Finalized,
		Source:      source,
	}
	if !match.IsNotStartedStatus(m.StatusShort) {
		out.HomeGoals = cloneInt(m.HomeGoals)
		out.AwayGoals = cloneInt(m.AwayGoals)
	}

	remaining, expires := s.cfg.Freshness.Remaining(m, now)
	if expires {
		seconds := int(remaining / time.Second)
		out.FreshnessSecondsRemaining = &seconds
		out.Stale = remaining <= 0
	}
	return out
}

func (s *MatchSyncService) staleView(m match.Match) MatchScoreView {
	out := s.view(m, SourceCache, s.now())
	if !(m.Finalized && m.HasGoals()) {
		out.Stale = true
	}
	return out
}

func syncedAfter(latest, previous match.Match) bool {
	if latest.LastSyncedAt == nil {
		return false
	}
	if previous.LastSyncedAt == nil {
		return true
	}
	return latest.LastSyncedAt.After(*previous.LastSyncedAt)
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
