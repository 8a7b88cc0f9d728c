package pool

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{from: StateCreated, to: StateOpen, want: true},
		{from: StateOpen, to: StateClosed, want: true},
		{from: StateOpen, to: StateCreated, want: true},
		{from: StateClosed, to: StateFinalized, want: true},
		{from: StateCreated, to: StateClosed, want: false},
		{from: StateCreated, to: StateFinalized, want: false},
		{from: StateClosed, to: StateOpen, want: false},
		{from: StateFinalized, to: StateClosed, want: false},
		{from: StateFinalized, to: StateCreated, want: false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s)=%v want=%v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransition(t *testing.T) {
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	p := Pool{ID: "p1", State: StateOpen}

	next, err := p.Transition(StateCreated, now)
	if err != nil {
		t.Fatalf("rollback transition: %v", err)
	}
	if next.State != StateCreated || !next.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected pool after rollback: %+v", next)
	}

	if _, err := next.Transition(StateFinalized, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestParseState(t *testing.T) {
	if state, err := ParseState(" open "); err != nil || state != StateOpen {
		t.Fatalf("unexpected parse result state=%s err=%v", state, err)
	}
	if _, err := ParseState("archived"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}
