package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/platform/keylock"
)

func TestMatchSyncService_SyncMatch_FreshSnapshotServedFromCache(t *testing.T) {
	t.Parallel()

	now := time.Now()
	m := testMatch("m1", match.StatusFirstHalf, intPtr(1), intPtr(0), false, timePtr(now.Add(-5*time.Second)))
	store := newTestStore(pool.StateOpen, []match.Match{m}, nil)
	gateway := &stubMatchGateway{}
	metrics := newCountingMetrics()
	svc := newTestSyncService(store, gateway, keylock.NewMemory(), nil, metrics)
	svc.now = func() time.Time { return now }

	view, err := svc.SyncMatch(context.Background(), m)
	if err != nil {
		t.Fatalf("sync match: %v", err)
	}
	if gateway.calls.Load() != 0 {
		t.Fatalf("expected no provider call, got %d", gateway.calls.Load())
	}
	if view.Source != SourceCache || view.Stale {
		t.Fatalf("unexpected view source=%s stale=%v", view.Source, view.Stale)
	}
	if view.FreshnessSecondsRemaining == nil || *view.FreshnessSecondsRemaining != 25 {
		t.Fatalf("unexpected freshness remaining: %v", view.FreshnessSecondsRemaining)
	}
	if metrics.get("sync:"+SyncOutcomeCacheFresh) != 1 {
		t.Fatalf("expected cache_fresh outcome to be recorded")
	}
}

func TestMatchSyncService_SyncMatch_FinalizedNeverHitsNetwork(t *testing.T) {
	t.Parallel()

	synced := time.Now().Add(-72 * time.Hour)
	m := testMatch("m1", match.StatusFinished, intPtr(2), intPtr(1), true, &synced)
	store := newTestStore(pool.StateClosed, []match.Match{m}, nil)
	gateway := &stubMatchGateway{}
	trigger := &recordingTrigger{}
	svc := newTestSyncService(store, gateway, keylock.NewMemory(), trigger, nil)

	view, err := svc.SyncMatch(context.Background(), m)
	if err != nil {
		t.Fatalf("sync match: %v", err)
	}
	if gateway.calls.Load() != 0 {
		t.Fatalf("expected no provider call for finalized match, got %d", gateway.calls.Load())
	}
	if !view.Finalized || view.Source != SourceCache {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.FreshnessSecondsRemaining != nil {
		t.Fatalf("finalized snapshot must not expire, got %d", *view.FreshnessSecondsRemaining)
	}
	if trigger.count() != 1 {
		t.Fatalf("expected finalization trigger, got %d", trigger.count())
	}
	if trigger.forcedCount() != 0 {
		t.Fatalf("cached final reads must use the throttled trigger")
	}
}

func TestMatchSyncService_SyncMatch_NotStartedClearsProviderGoals(t *testing.T) {
	t.Parallel()

	m := testMatch("m1", match.StatusNotStarted, nil, nil, false, nil)
	store := newTestStore(pool.StateOpen, []match.Match{m}, nil)
	gateway := &stubMatchGateway{state: ExternalMatchState{
		StatusShort: "ns",
		StatusLong:  "Not Started",
		HomeGoals:   intPtr(0),
		AwayGoals:   intPtr(0),
	}}
	svc := newTestSyncService(store, gateway, keylock.NewMemory(), nil, nil)

	view, err := svc.SyncMatch(context.Background(), m)
	if err != nil {
		t.Fatalf("sync match: %v", err)
	}
	if view.Source != SourceNetwork {
		t.Fatalf("expected network source, got %s", view.Source)
	}
	if view.HomeGoals != nil || view.AwayGoals != nil {
		t.Fatalf("expected nil goals before kickoff, got %v-%v", view.HomeGoals, view.AwayGoals)
	}
	if view.IsScorable() {
		t.Fatalf("not started view must not be scorable")
	}

	stored, _, _ := store.matches.GetByID(context.Background(), "m1")
	if stored.HomeGoals != nil || stored.AwayGoals != nil || stored.LastSyncedAt == nil {
		t.Fatalf("unexpected stored match: %+v", stored)
	}
}

func TestMatchSyncService_SyncMatch_FinishedResultFinalizesAndTriggers(t *testing.T) {
	t.Parallel()

	m := testMatch("m1", match.StatusSecondHalf, intPtr(1), intPtr(1), false, timePtr(time.Now().Add(-time.Minute)))
	store := newTestStore(pool.StateClosed, []match.Match{m}, nil)
	gateway := &stubMatchGateway{state: ExternalMatchState{
		StatusShort: match.StatusFinished,
		StatusLong:  "Match Finished",
		HomeGoals:   intPtr(2),
		AwayGoals:   intPtr(1),
	}}
	trigger := &recordingTrigger{}
	svc := newTestSyncService(store, gateway, keylock.NewMemory(), trigger, nil)

	view, err := svc.SyncMatch(context.Background(), m)
	if err != nil {
		t.Fatalf("sync match: %v", err)
	}
	if !view.Finalized || *view.HomeGoals != 2 || *view.AwayGoals != 1 {
		t.Fatalf("unexpected view: %+v", view)
	}
	stored, _, _ := store.matches.GetByID(context.Background(), "m1")
	if !stored.Finalized {
		t.Fatalf("expected stored match to be finalized")
	}
	if trigger.count() != 1 {
		t.Fatalf("expected one finalization trigger, got %d", trigger.count())
	}
	if trigger.forcedCount() != 1 {
		t.Fatalf("a refresh that finalizes the match must bypass the throttle")
	}
}

func TestMatchSyncService_SyncMatch_ProviderErrorServesStale(t *testing.T) {
	t.Parallel()

	m := testMatch("m1", match.StatusFirstHalf, intPtr(1), intPtr(0), false, timePtr(time.Now().Add(-10*time.Minute)))
	store := newTestStore(pool.StateOpen, []match.Match{m}, nil)
	gateway := &stubMatchGateway{err: errors.New("provider down")}
	metrics := newCountingMetrics()
	svc := newTestSyncService(store, gateway, keylock.NewMemory(), nil, metrics)

	view, err := svc.SyncMatch(context.Background(), m)
	if err != nil {
		t.Fatalf("provider failure must not surface, got %v", err)
	}
	if !view.Stale || view.Source != SourceCache {
		t.Fatalf("expected stale cache view, got %+v", view)
	}
	if view.HomeGoals == nil || *view.HomeGoals != 1 {
		t.Fatalf("expected previous goals to be served, got %v", view.HomeGoals)
	}
	if metrics.get("sync:"+SyncOutcomeUpstreamStale) != 1 {
		t.Fatalf("expected upstream_stale outcome")
	}
}

func TestMatchSyncService_SyncMatch_LockErrorRefreshesWithoutLock(t *testing.T) {
	t.Parallel()

	m := testMatch("m1", match.StatusFirstHalf, intPtr(0), intPtr(0), false, nil)
	store := newTestStore(pool.StateOpen, []match.Match{m}, nil)
	gateway := &stubMatchGateway{state: ExternalMatchState{StatusShort: match.StatusHalfTime, HomeGoals: intPtr(1), AwayGoals: intPtr(0)}}
	locker := &stubLocker{err: errors.New("lock backend down")}
	svc := newTestSyncService(store, gateway, locker, nil, nil)

	view, err := svc.SyncMatch(context.Background(), m)
	if err != nil {
		t.Fatalf("sync match: %v", err)
	}
	if gateway.calls.Load() != 1 || view.Source != SourceNetwork {
		t.Fatalf("expected unlocked network refresh, calls=%d source=%s", gateway.calls.Load(), view.Source)
	}
	if locker.unlocks.Load() != 0 {
		t.Fatalf("unlock must not be called when the lock was never held")
	}
}

func TestMatchSyncService_SyncMatch_ContendedLockServesStaleAfterWaiting(t *testing.T) {
	t.Parallel()

	m := testMatch("m1", match.StatusFirstHalf, intPtr(0), intPtr(0), false, timePtr(time.Now().Add(-time.Hour)))
	store := newTestStore(pool.StateOpen, []match.Match{m}, nil)
	gateway := &stubMatchGateway{}
	metrics := newCountingMetrics()
	svc := newTestSyncService(store, gateway, &stubLocker{acquired: false}, nil, metrics)

	var sleeps int
	svc.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}

	view, err := svc.SyncMatch(context.Background(), m)
	if err != nil {
		t.Fatalf("sync match: %v", err)
	}
	if gateway.calls.Load() != 0 {
		t.Fatalf("waiting caller must not call the provider")
	}
	if sleeps != svc.cfg.WaitAttempts {
		t.Fatalf("unexpected wait attempts: got=%d want=%d", sleeps, svc.cfg.WaitAttempts)
	}
	if !view.Stale || view.Source != SourceCache {
		t.Fatalf("expected stale cache view, got %+v", view)
	}
	if metrics.get("sync:"+SyncOutcomeWaitedStale) != 1 {
		t.Fatalf("expected waited_stale outcome")
	}
}

func TestMatchSyncService_SyncMatch_ConcurrentCallersRefreshOnce(t *testing.T) {
	t.Parallel()

	m := testMatch("m1", match.StatusFirstHalf, intPtr(0), intPtr(0), false, timePtr(time.Now().Add(-time.Hour)))
	store := newTestStore(pool.StateOpen, []match.Match{m}, nil)
	gateway := &stubMatchGateway{
		delay: 50 * time.Millisecond,
		state: ExternalMatchState{StatusShort: match.StatusSecondHalf, HomeGoals: intPtr(2), AwayGoals: intPtr(0)},
	}
	svc := newTestSyncService(store, gateway, keylock.NewMemory(), nil, nil)

	const callers = 32
	var wg sync.WaitGroup
	views := make([]MatchScoreView, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			views[i], errs[i] = svc.SyncMatch(context.Background(), m)
		}(i)
	}
	wg.Wait()

	if got := gateway.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one provider call, got %d", got)
	}
	for i := range views {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if views[i].HomeGoals == nil || *views[i].HomeGoals != 2 {
			t.Fatalf("caller %d got stale goals: %+v", i, views[i])
		}
	}
}

func TestMatchSyncService_GetScore_Access(t *testing.T) {
	t.Parallel()

	m := testMatch("m1", match.StatusFinished, intPtr(1), intPtr(0), true, nil)
	store := newTestStore(pool.StateClosed, []match.Match{m}, nil)
	svc := newTestSyncService(store, &stubMatchGateway{}, keylock.NewMemory(), nil, nil)
	ctx := context.Background()

	if _, err := svc.GetScore(ctx, testPoolID, "m1", testOutsider); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.GetScore(ctx, "missing-pool", "m1", testParticipant); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing pool, got %v", err)
	}
	if _, err := svc.GetScore(ctx, testPoolID, "missing-match", testParticipant); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing match, got %v", err)
	}

	view, err := svc.GetScore(ctx, testPoolID, "m1", testCreatorID)
	if err != nil {
		t.Fatalf("creator get score: %v", err)
	}
	if view.MatchID != "m1" || !view.Finalized {
		t.Fatalf("unexpected view: %+v", view)
	}
}
