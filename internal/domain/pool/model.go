package pool

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateCreated   State = "CREATED"
	StateOpen      State = "OPEN"
	StateClosed    State = "CLOSED"
	StateFinalized State = "FINALIZED"
)

var ErrInvalidTransition = errors.New("invalid pool state transition")

// Pool groups matches and participants competing on forecasts.
type Pool struct {
	ID        string
	Name      string
	CreatorID string
	StartsAt  time.Time
	EntryFee  decimal.Decimal
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

func ParseState(raw string) (State, error) {
	state := State(strings.ToUpper(strings.TrimSpace(raw)))
	switch state {
	case StateCreated, StateOpen, StateClosed, StateFinalized:
		return state, nil
	default:
		return "", fmt.Errorf("unknown pool state %q", raw)
	}
}

func (p Pool) IsDeleted() bool {
	return p.DeletedAt != nil
}

func (p Pool) IsFinalized() bool {
	return p.State == StateFinalized
}

func (p Pool) AcceptsForecasts() bool {
	return p.State == StateCreated || p.State == StateOpen
}

// CanTransition reports whether a manual move from one state to another is allowed.
// FINALIZED is reached only through finalization and never left.
func CanTransition(from, to State) bool {
	switch from {
	case StateCreated:
		return to == StateOpen
	case StateOpen:
		return to == StateClosed || to == StateCreated
	case StateClosed:
		return to == StateFinalized
	default:
		return false
	}
}

// IsRollback reports the single reverse transition OPEN -> CREATED.
func IsRollback(from, to State) bool {
	return from == StateOpen && to == StateCreated
}

func (p Pool) Transition(to State, now time.Time) (Pool, error) {
	if !CanTransition(p.State, to) {
		return p, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.State, to)
	}
	next := p
	next.State = to
	next.UpdatedAt = now.UTC()
	return next, nil
}
