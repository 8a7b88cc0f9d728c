package httpapi

import (
	"time"

	"github.com/riskibarqy/polla/internal/domain/forecast"
	"github.com/riskibarqy/polla/internal/domain/pool"
	"github.com/riskibarqy/polla/internal/usecase"
)

type submitForecastRequest struct {
	HomeGoals *int `json:"home_goals" validate:"required,gte=0,lte=99"`
	AwayGoals *int `json:"away_goals" validate:"required,gte=0,lte=99"`
}

type transitionPoolRequest struct {
	State string `json:"state" validate:"required,oneof=CREATED OPEN CLOSED FINALIZED"`
}

type matchScoreDTO struct {
	MatchID                   string `json:"match_id"`
	PoolID                    string `json:"pool_id"`
	StatusShort               string `json:"status_short"`
	StatusLong                string `json:"status_long"`
	HomeGoals                 *int   `json:"home_goals"`
	AwayGoals                 *int   `json:"away_goals"`
	Finalized                 bool   `json:"finalized"`
	Source                    string `json:"source"`
	FreshnessSecondsRemaining *int   `json:"freshness_seconds_remaining"`
	Stale                     bool   `json:"stale"`
}

type rankingEntryDTO struct {
	ParticipantID string `json:"participant_id"`
	Points        int    `json:"points"`
	Rank          int    `json:"rank"`
}

type rankingDTO struct {
	PoolID           string            `json:"pool_id"`
	PoolState        string            `json:"pool_state"`
	Definitive       bool              `json:"definitive"`
	SortedDescending bool              `json:"sorted_descending"`
	Entries          []rankingEntryDTO `json:"entries"`
}

type forecastDTO struct {
	ID            string    `json:"id"`
	PoolID        string    `json:"pool_id"`
	MatchID       string    `json:"match_id"`
	ParticipantID string    `json:"participant_id"`
	HomeGoals     int       `json:"home_goals"`
	AwayGoals     int       `json:"away_goals"`
	SubmittedAt   time.Time `json:"submitted_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type poolDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creator_id"`
	StartsAt  time.Time `json:"starts_at"`
	EntryFee  string    `json:"entry_fee"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

type finalizeResultDTO struct {
	PoolID              string   `json:"pool_id"`
	Complete            bool     `json:"complete"`
	Transitioned        bool     `json:"transitioned"`
	ScoresWritten       int      `json:"scores_written"`
	InconsistentMatches []string `json:"inconsistent_matches,omitempty"`
}

type sweepResultDTO struct {
	PoolID           string            `json:"pool_id"`
	PoolState        string            `json:"pool_state"`
	SyncedMatches    int               `json:"synced_matches"`
	SyncFailures     int               `json:"sync_failures"`
	Finalize         finalizeResultDTO `json:"finalize"`
	NextSweepSeconds *int              `json:"next_sweep_seconds,omitempty"`
}

func toMatchScoreDTO(v usecase.MatchScoreView) matchScoreDTO {
	return matchScoreDTO{
		MatchID:                   v.MatchID,
		PoolID:                    v.PoolID,
		StatusShort:               v.StatusShort,
		StatusLong:                v.StatusLong,
		HomeGoals:                 v.HomeGoals,
		AwayGoals:                 v.AwayGoals,
		Finalized:                 v.Finalized,
		Source:                    string(v.Source),
		FreshnessSecondsRemaining: v.FreshnessSecondsRemaining,
		Stale:                     v.Stale,
	}
}

func toRankingDTO(r usecase.Ranking) rankingDTO {
	entries := make([]rankingEntryDTO, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, rankingEntryDTO{ParticipantID: e.ParticipantID, Points: e.Points, Rank: e.Rank})
	}
	return rankingDTO{
		PoolID:           r.PoolID,
		PoolState:        string(r.PoolState),
		Definitive:       r.Definitive,
		SortedDescending: r.SortedDescending,
		Entries:          entries,
	}
}

func toForecastDTO(f forecast.Forecast) forecastDTO {
	return forecastDTO{
		ID:            f.ID,
		PoolID:        f.PoolID,
		MatchID:       f.MatchID,
		ParticipantID: f.ParticipantID,
		HomeGoals:     f.HomeGoals,
		AwayGoals:     f.AwayGoals,
		SubmittedAt:   f.SubmittedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func toPoolDTO(p pool.Pool) poolDTO {
	return poolDTO{
		ID:        p.ID,
		Name:      p.Name,
		CreatorID: p.CreatorID,
		StartsAt:  p.StartsAt,
		EntryFee:  p.EntryFee.StringFixed(2),
		State:     string(p.State),
		UpdatedAt: p.UpdatedAt,
	}
}

func toFinalizeResultDTO(r usecase.FinalizeResult) finalizeResultDTO {
	return finalizeResultDTO{
		PoolID:              r.PoolID,
		Complete:            r.Complete,
		Transitioned:        r.Transitioned,
		ScoresWritten:       r.ScoresWritten,
		InconsistentMatches: r.InconsistentMatches,
	}
}

func toSweepResultDTO(r usecase.SweepResult) sweepResultDTO {
	out := sweepResultDTO{
		PoolID:        r.PoolID,
		PoolState:     string(r.PoolState),
		SyncedMatches: r.SyncedMatches,
		SyncFailures:  r.SyncFailures,
		Finalize:      toFinalizeResultDTO(r.Finalize),
	}
	if r.Queued {
		seconds := int(r.NextDelay.Seconds())
		out.NextSweepSeconds = &seconds
	}
	return out
}
