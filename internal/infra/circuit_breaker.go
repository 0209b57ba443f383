package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards calls to the identity service. Once tripped, supervisor validation
// fails fast with ErrCircuitOpen instead of waiting out the validation
// timeout on every close attempt. After OpenTimeout a single probe is let
// through; its outcome decides whether the breaker closes again.
//
// A call abandoned because the caller's context was canceled says nothing
// about the service and is not counted.

type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker is open, or half-open with a
// probe already in flight.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	Name             string        // used in logs
	FailureThreshold int           // consecutive failures that trip the breaker (default 5)
	SuccessThreshold int           // consecutive probe successes that close it (default 2)
	OpenTimeout      time.Duration // time spent open before probing (default 30s)
}

// DefaultCBConfig returns the settings used for the identity service.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "identity",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     CBState
	failures  int
	successes int
	openedAt  time.Time
	probing   bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpen()
	return cb.state
}

// expireOpen moves an open breaker to half-open once OpenTimeout elapsed.
// Caller holds mu.
func (cb *CircuitBreaker) expireOpen() {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenTimeout {
		cb.setState(CBHalfOpen)
	}
}

// admit reports whether a call may proceed and whether it is the probe.
func (cb *CircuitBreaker) admit() (ok, probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireOpen()
	switch cb.state {
	case CBOpen:
		return false, false
	case CBHalfOpen:
		if cb.probing {
			return false, false
		}
		cb.probing = true
		return true, true
	default:
		return true, false
	}
}

// Execute runs fn unless the breaker rejects the call.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	ok, probe := cb.admit()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		cb.probing = false
	}
	switch {
	case err == nil:
		cb.record(true)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()) && !errors.Is(ctx.Err(), context.DeadlineExceeded):
		// caller gave up; not the service's fault
	default:
		cb.record(false)
	}
	return err
}

// record updates counters after a call. Caller holds mu.
func (cb *CircuitBreaker) record(success bool) {
	if success {
		switch cb.state {
		case CBClosed:
			cb.failures = 0
		case CBHalfOpen:
			cb.successes++
			if cb.successes >= cb.cfg.SuccessThreshold {
				cb.setState(CBClosed)
			}
		}
		return
	}

	switch cb.state {
	case CBClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.setState(CBOpen)
		}
	case CBHalfOpen:
		cb.setState(CBOpen)
	}
}

// setState resets the counters of the state being entered. Caller holds mu.
func (cb *CircuitBreaker) setState(next CBState) {
	if cb.state == next {
		return
	}
	log.Warn().Str("breaker", cb.cfg.Name).Str("from", cb.state.String()).Str("to", next.String()).
		Msg("circuit breaker: state change")
	cb.state = next
	cb.failures = 0
	cb.successes = 0
	if next == CBOpen {
		cb.openedAt = cb.now()
	}
}
