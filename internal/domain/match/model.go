package match

import (
	"errors"
	"strings"
	"time"
)

// Provider short status codes.
const (
	StatusToBeDefined   = "TBD"
	StatusNotStarted    = "NS"
	StatusFirstHalf     = "1H"
	StatusHalfTime      = "HT"
	StatusSecondHalf    = "2H"
	StatusExtraTime     = "ET"
	StatusBreakTime     = "BT"
	StatusPenalties     = "P"
	StatusSuspended     = "SUSP"
	StatusInterrupted   = "INT"
	StatusLive          = "LIVE"
	StatusFinished      = "FT"
	StatusAfterExtra    = "AET"
	StatusAfterPenalty  = "PEN"
	StatusPostponed     = "PST"
	StatusCancelled     = "CANC"
	StatusAbandoned     = "ABD"
	StatusTechnicalLoss = "AWD"
	StatusWalkOver      = "WO"
)

// ForecastLeadTime is how long before kickoff forecasts stop being accepted.
const ForecastLeadTime = 5 * time.Minute

var ErrMatchFinalized = errors.New("match is finalized")

// Match is one fixture inside a pool together with its last synced state.
type Match struct {
	ID           string
	PoolID       string
	ExternalID   string
	HomeTeam     string
	AwayTeam     string
	ScheduledAt  time.Time
	HomeGoals    *int
	AwayGoals    *int
	StatusShort  string
	StatusLong   string
	LastSyncedAt *time.Time
	Finalized    bool
}

// ProviderState is the raw state reported by the match data provider.
type ProviderState struct {
	StatusShort string
	StatusLong  string
	HomeGoals   *int
	AwayGoals   *int
}

func NormalizeStatus(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func IsNotStartedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case "", StatusToBeDefined, StatusNotStarted:
		return true
	default:
		return false
	}
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFirstHalf, StatusHalfTime, StatusSecondHalf, StatusExtraTime,
		StatusBreakTime, StatusPenalties, StatusSuspended, StatusInterrupted, StatusLive:
		return true
	default:
		return false
	}
}

func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, StatusAfterExtra, StatusAfterPenalty:
		return true
	default:
		return false
	}
}

func IsCancelledLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusPostponed, StatusCancelled, StatusAbandoned, StatusTechnicalLoss, StatusWalkOver:
		return true
	default:
		return false
	}
}

// IsConcluded reports whether a state is final: a finished status with both goals known.
func IsConcluded(status string, homeGoals, awayGoals *int) bool {
	return IsFinishedStatus(status) && homeGoals != nil && awayGoals != nil
}

func (m Match) ForecastDeadline() time.Time {
	return m.ScheduledAt.Add(-ForecastLeadTime)
}

func (m Match) AcceptsForecasts(now time.Time) bool {
	return now.Before(m.ForecastDeadline())
}

func (m Match) HasStarted(now time.Time) bool {
	return !now.Before(m.ScheduledAt)
}

func (m Match) HasGoals() bool {
	return m.HomeGoals != nil && m.AwayGoals != nil
}

// IsScorable reports whether the snapshot can contribute points.
func (m Match) IsScorable() bool {
	return !IsNotStartedStatus(m.StatusShort) && m.HasGoals()
}

// ApplyProviderState returns the snapshot after a refresh at now.
// A not-started status always clears goals, even when the provider reports 0-0.
func (m Match) ApplyProviderState(state ProviderState, now time.Time) (Match, error) {
	if m.Finalized {
		return m, ErrMatchFinalized
	}

	next := m
	next.StatusShort = NormalizeStatus(state.StatusShort)
	next.StatusLong = strings.TrimSpace(state.StatusLong)
	next.HomeGoals = copyGoals(state.HomeGoals)
	next.AwayGoals = copyGoals(state.AwayGoals)
	if IsNotStartedStatus(next.StatusShort) {
		next.HomeGoals = nil
		next.AwayGoals = nil
	}
	next.Finalized = IsConcluded(next.StatusShort, next.HomeGoals, next.AwayGoals)

	syncedAt := now.UTC()
	next.LastSyncedAt = &syncedAt

	return next, nil
}

// Clone returns a deep copy safe to hand out from stores.
func (m Match) Clone() Match {
	out := m
	out.HomeGoals = copyGoals(m.HomeGoals)
	out.AwayGoals = copyGoals(m.AwayGoals)
	if m.LastSyncedAt != nil {
		synced := *m.LastSyncedAt
		out.LastSyncedAt = &synced
	}
	return out
}

func copyGoals(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
