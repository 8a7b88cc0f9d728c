package resilience

import (
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
)

var ErrCircuitOpen = crerr.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreakerConfig is loaded per dependency from <PREFIX>_CIRCUIT_* env keys.
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxReq:   2,
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	d := DefaultCircuitBreakerConfig()
	if c.FailureThreshold < 1 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = d.HalfOpenMaxReq
	}
	return c
}

// StateListener observes breaker transitions for a named dependency.
type StateListener func(dependency string, state CircuitState)

// CircuitBreaker guards calls to one upstream dependency. Consecutive counted
// failures open it; after OpenTimeout up to HalfOpenMaxReq probes decide
// whether it closes again.
type CircuitBreaker struct {
	mu       sync.Mutex
	name     string
	cfg      CircuitBreakerConfig
	listener StateListener
	now      func() time.Time

	state     CircuitState
	failures  int
	openedAt  time.Time
	probes    int
	successes int
}

// NewNamedCircuitBreaker builds a breaker from config. A disabled config
// yields a breaker whose Execute always runs fn.
func NewNamedCircuitBreaker(name string, cfg CircuitBreakerConfig, listener StateListener) *CircuitBreaker {
	return &CircuitBreaker{
		name:     name,
		cfg:      cfg.withDefaults(),
		listener: listener,
		now:      time.Now,
		state:    CircuitStateClosed,
	}
}

// Execute runs fn when the breaker allows it and records the outcome.
// Only errors for which isFailure reports true count towards opening; a nil
// isFailure counts every error.
func (b *CircuitBreaker) Execute(fn func() error, isFailure func(error) bool) error {
	if !b.cfg.Enabled {
		return fn()
	}
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()
	b.record(err == nil || (isFailure != nil && !isFailure(err)))
	return err
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.openElapsed() {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if !b.openElapsed() {
			return crerr.Wrapf(ErrCircuitOpen, "dependency=%s", b.name)
		}
		b.transition(CircuitStateHalfOpen)
	}
	if b.state == CircuitStateHalfOpen {
		if b.probes >= b.cfg.HalfOpenMaxReq {
			return crerr.Wrapf(ErrCircuitOpen, "dependency=%s half-open probes exhausted", b.name)
		}
		b.probes++
	}
	return nil
}

func (b *CircuitBreaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		if ok {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		if !ok {
			b.transition(CircuitStateOpen)
			return
		}
		b.successes++
		if b.successes >= b.cfg.HalfOpenMaxReq && b.probes == 0 {
			b.transition(CircuitStateClosed)
		}
	case CircuitStateOpen:
		if !ok {
			b.openedAt = b.now()
		}
	}
}

func (b *CircuitBreaker) openElapsed() bool {
	return b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout
}

// transition runs with b.mu held; listeners must not call back into the breaker.
func (b *CircuitBreaker) transition(to CircuitState) {
	b.state = to
	b.failures = 0
	b.probes = 0
	b.successes = 0
	if to == CircuitStateOpen {
		b.openedAt = b.now()
	}
	if b.listener != nil {
		b.listener(b.name, to)
	}
}
