package match

import (
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int {
	return &v
}

func TestApplyProviderState_NotStartedClearsGoals(t *testing.T) {
	now := time.Date(2026, 6, 11, 18, 0, 0, 0, time.UTC)
	m := Match{ID: "m1", ExternalID: "1001"}

	for _, status := range []string{"NS", "TBD", ""} {
		next, err := m.ApplyProviderState(ProviderState{
			StatusShort: status,
			StatusLong:  "Not Started",
			HomeGoals:   intPtr(0),
			AwayGoals:   intPtr(0),
		}, now)
		if err != nil {
			t.Fatalf("apply state %q: %v", status, err)
		}
		if next.HomeGoals != nil || next.AwayGoals != nil {
			t.Fatalf("expected absent goals for status %q, got %v-%v", status, next.HomeGoals, next.AwayGoals)
		}
		if next.Finalized {
			t.Fatalf("status %q must not finalize", status)
		}
		if next.LastSyncedAt == nil || !next.LastSyncedAt.Equal(now) {
			t.Fatalf("unexpected last synced at: %v", next.LastSyncedAt)
		}
	}
}

func TestApplyProviderState_FinishedFinalizes(t *testing.T) {
	now := time.Now()
	m := Match{ID: "m1"}

	next, err := m.ApplyProviderState(ProviderState{StatusShort: "ft", HomeGoals: intPtr(2), AwayGoals: intPtr(1)}, now)
	if err != nil {
		t.Fatalf("apply state: %v", err)
	}
	if !next.Finalized {
		t.Fatalf("expected finalized match")
	}
	if next.StatusShort != StatusFinished {
		t.Fatalf("unexpected status: %s", next.StatusShort)
	}

	if _, err := next.ApplyProviderState(ProviderState{StatusShort: "FT", HomeGoals: intPtr(3), AwayGoals: intPtr(1)}, now); !errors.Is(err, ErrMatchFinalized) {
		t.Fatalf("expected ErrMatchFinalized, got %v", err)
	}
}

func TestApplyProviderState_FinishedWithoutGoalsIsNotFinal(t *testing.T) {
	next, err := Match{}.ApplyProviderState(ProviderState{StatusShort: "FT", HomeGoals: intPtr(1)}, time.Now())
	if err != nil {
		t.Fatalf("apply state: %v", err)
	}
	if next.Finalized {
		t.Fatalf("a finished match without both goals must not finalize")
	}
}

func TestForecastDeadline(t *testing.T) {
	kickoff := time.Date(2026, 6, 11, 20, 0, 0, 0, time.UTC)
	m := Match{ScheduledAt: kickoff}

	if !m.AcceptsForecasts(kickoff.Add(-5*time.Minute - time.Second)) {
		t.Fatalf("expected forecasts accepted before deadline")
	}
	if m.AcceptsForecasts(kickoff.Add(-5 * time.Minute)) {
		t.Fatalf("expected forecasts rejected at deadline")
	}
	if m.AcceptsForecasts(kickoff) {
		t.Fatalf("expected forecasts rejected at kickoff")
	}
}

func TestStatusClasses(t *testing.T) {
	tests := []struct {
		status    string
		notStart  bool
		live      bool
		finished  bool
		cancelled bool
	}{
		{status: "NS", notStart: true},
		{status: "TBD", notStart: true},
		{status: "1H", live: true},
		{status: "ht", live: true},
		{status: "P", live: true},
		{status: "FT", finished: true},
		{status: "PEN", finished: true},
		{status: "PST", cancelled: true},
		{status: "CANC", cancelled: true},
	}

	for _, tt := range tests {
		if got := IsNotStartedStatus(tt.status); got != tt.notStart {
			t.Fatalf("IsNotStartedStatus(%q)=%v want=%v", tt.status, got, tt.notStart)
		}
		if got := IsLiveStatus(tt.status); got != tt.live {
			t.Fatalf("IsLiveStatus(%q)=%v want=%v", tt.status, got, tt.live)
		}
		if got := IsFinishedStatus(tt.status); got != tt.finished {
			t.Fatalf("IsFinishedStatus(%q)=%v want=%v", tt.status, got, tt.finished)
		}
		if got := IsCancelledLikeStatus(tt.status); got != tt.cancelled {
			t.Fatalf("IsCancelledLikeStatus(%q)=%v want=%v", tt.status, got, tt.cancelled)
		}
	}
}
