package usecase

import (
	"context"

	"github.com/riskibarqy/polla/internal/domain/match"
)

// ExternalMatchState is one match as reported by the match data provider.
type ExternalMatchState struct {
	ExternalID  string
	StatusShort string
	StatusLong  string
	HomeGoals   *int
	AwayGoals   *int
}

func (s ExternalMatchState) toProviderState() match.ProviderState {
	return match.ProviderState{
		StatusShort: s.StatusShort,
		StatusLong:  s.StatusLong,
		HomeGoals:   s.HomeGoals,
		AwayGoals:   s.AwayGoals,
	}
}

// MatchDataGateway fetches the current state of a match from the provider.
// Implementations bound every call by a timeout.
type MatchDataGateway interface {
	FetchMatchState(ctx context.Context, externalMatchID string) (ExternalMatchState, error)
}

// FinalizationTrigger schedules a pool finalization check without blocking the caller.
type FinalizationTrigger interface {
	// Trigger may be throttled per pool.
	Trigger(ctx context.Context, poolID string)
	// TriggerNow is used when a refresh has just flipped a match to finalized.
	TriggerNow(ctx context.Context, poolID string)
}

// MatchScoreSyncer returns a fresh-enough snapshot for a match.
type MatchScoreSyncer interface {
	SyncMatch(ctx context.Context, m match.Match) (MatchScoreView, error)
}

// SyncMetrics receives outcome counters from the synchronizer and finalizer.
type SyncMetrics interface {
	ObserveSync(outcome string)
	ObserveLock(outcome string)
	ObserveFinalization(outcome string)
}

const (
	SyncOutcomeCacheFinal    = "cache_final"
	SyncOutcomeCacheFresh    = "cache_fresh"
	SyncOutcomeCacheRecheck  = "cache_recheck"
	SyncOutcomeNetwork       = "network"
	SyncOutcomeWaitedFresh   = "waited_fresh"
	SyncOutcomeWaitedStale   = "waited_stale"
	SyncOutcomeUpstreamStale = "upstream_stale"

	LockOutcomeAcquired    = "acquired"
	LockOutcomeContended   = "contended"
	LockOutcomeUnavailable = "unavailable"

	FinalizationOutcomeIncomplete   = "incomplete"
	FinalizationOutcomeFinalized    = "finalized"
	FinalizationOutcomeAlready      = "already_finalized"
	FinalizationOutcomeInconsistent = "inconsistent"
	FinalizationOutcomeFailed       = "failed"
)

type noopSyncMetrics struct{}

func (noopSyncMetrics) ObserveSync(string)         {}
func (noopSyncMetrics) ObserveLock(string)         {}
func (noopSyncMetrics) ObserveFinalization(string) {}
