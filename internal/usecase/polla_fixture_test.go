package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/polla/internal/domain/forecast"
	"github.com/riskibarqy/polla/internal/domain/match"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/polla/internal/platform/keylock"
	"github.com/shopspring/decimal"
)

const (
	testPoolID      = "pool-1"
	testCreatorID   = "creator-1"
	testParticipant = "participant-1"
	testOutsider    = "outsider-1"
)

type stubMatchGateway struct {
	calls atomic.Int32
	delay time.Duration

	mu    sync.Mutex
	state ExternalMatchState
	err   error
}

func (s *stubMatchGateway) FetchMatchState(ctx context.Context, externalMatchID string) (ExternalMatchState, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return ExternalMatchState{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return ExternalMatchState{}, s.err
	}
	out := s.state
	out.ExternalID = externalMatchID
	return out, nil
}

type stubLocker struct {
	acquired bool
	err      error
	unlocks  atomic.Int32
}

func (s *stubLocker) TryLock(context.Context, string) (bool, error) {
	return s.acquired, s.err
}

func (s *stubLocker) Unlock(context.Context, string) error {
	s.unlocks.Add(1)
	return nil
}

type recordingTrigger struct {
	mu     sync.Mutex
	pools  []string
	forced int
}

func (r *recordingTrigger) Trigger(_ context.Context, poolID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools = append(r.pools, poolID)
}

func (r *recordingTrigger) TriggerNow(_ context.Context, poolID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools = append(r.pools, poolID)
	r.forced++
}

func (r *recordingTrigger) forcedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forced
}

func (r *recordingTrigger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) ObserveSync(outcome string)         { m.add("sync:" + outcome) }
func (m *countingMetrics) ObserveLock(outcome string)         { m.add("lock:" + outcome) }
func (m *countingMetrics) ObserveFinalization(outcome string) { m.add("finalize:" + outcome) }

func (m *countingMetrics) add(key string) {
	m.mu.Lock()
	m.counts[key]++
	m.mu.Unlock()
}

func (m *countingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

type testStore struct {
	pools     *memory.PoolRepository
	access    *memory.AccessRepository
	matches   *memory.MatchRepository
	forecasts *memory.ForecastRepository
	scores    *memory.MatchScoreRepository
}

func newTestStore(state pool.State, matches []match.Match, forecasts []forecast.Forecast) testStore {
	pools := memory.NewPoolRepository([]pool.Pool{testPool(state)})
	return testStore{
		pools:     pools,
		access:    memory.NewAccessRepository(pools, map[string][]string{testPoolID: {testParticipant, "participant-2", "participant-3"}}),
		matches:   memory.NewMatchRepository(matches),
		forecasts: memory.NewForecastRepository(forecasts),
		scores:    memory.NewMatchScoreRepository(),
	}
}

func testPool(state pool.State) pool.Pool {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return pool.Pool{
		ID:        testPoolID,
		Name:      "Test pool",
		CreatorID: testCreatorID,
		StartsAt:  now,
		EntryFee:  decimal.NewFromInt(5),
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testMatch(id, status string, home, away *int, finalized bool, syncedAt *time.Time) match.Match {
	return match.Match{
		ID:           id,
		PoolID:       testPoolID,
		ExternalID:   "ext-" + id,
		HomeTeam:     "Home " + id,
		AwayTeam:     "Away " + id,
		ScheduledAt:  time.Now().Add(-time.Hour).UTC(),
		HomeGoals:    home,
		AwayGoals:    away,
		StatusShort:  status,
		LastSyncedAt: syncedAt,
		Finalized:    finalized,
	}
}

func testForecast(matchID, participantID string, home, away int) forecast.Forecast {
	now := time.Now().UTC()
	return forecast.Forecast{
		ID:            matchID + "-" + participantID,
		PoolID:        testPoolID,
		MatchID:       matchID,
		ParticipantID: participantID,
		HomeGoals:     home,
		AwayGoals:     away,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
}

func intPtr(v int) *int {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}

func newTestSyncService(store testStore, gateway MatchDataGateway, locker keylock.Locker, trigger FinalizationTrigger, metrics SyncMetrics) *MatchSyncService {
	return NewMatchSyncService(
		store.pools,
		store.access,
		store.matches,
		gateway,
		locker,
		trigger,
		metrics,
		MatchSyncConfig{
			Freshness:    match.DefaultFreshnessPolicy(),
			WaitAttempts: 20,
			WaitInterval: 10 * time.Millisecond,
		},
		nil,
	)
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
