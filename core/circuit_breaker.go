package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/itsneelabh/nodemesh/pkg/logger"
)

// CircuitBreaker guards calls to a dependency that may be failing.
type CircuitBreaker interface {
	// Execute runs fn unless the circuit is open, in which case it returns an
	// error wrapping ErrCircuitOpen without calling fn.
	Execute(ctx context.Context, fn func() error) error

	// ExecuteWithTimeout is Execute with a deadline. A call that outlives the
	// timeout counts as a failure and returns ErrTimeout.
	ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error

	// GetState returns "closed", "open" or "half-open".
	GetState() string

	GetMetrics() map[string]interface{}

	// Reset closes the circuit and clears failure counts.
	Reset()

	// CanExecute reports whether a call would currently be let through.
	CanExecute() bool
}

// CircuitState is the state of a breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerParams configures NewCircuitBreaker.
type CircuitBreakerParams struct {
	Name   string
	Config CircuitBreakerConfig
	Logger logger.Logger
	Clock  clock.Clock
}

// DefaultCircuitBreakerParams returns the defaults used by the Redis mirror.
func DefaultCircuitBreakerParams(name string) CircuitBreakerParams {
	return CircuitBreakerParams{
		Name: name,
		Config: CircuitBreakerConfig{
			Enabled:          true,
			Threshold:        5,
			Timeout:          30 * time.Second,
			HalfOpenRequests: 1,
		},
	}
}

// ConsecutiveBreaker opens after Threshold consecutive failures, stays open
// for Timeout, then lets HalfOpenRequests trial calls through. One trial
// success closes it again; one trial failure reopens it.
type ConsecutiveBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger logger.Logger
	clock  clock.Clock

	mu               sync.Mutex
	state            CircuitState
	failures         int
	openedAt         time.Time
	halfOpenInFlight int

	successes uint64
	failed    uint64
	rejected  uint64
}

// NewCircuitBreaker builds a ConsecutiveBreaker. Threshold and
// HalfOpenRequests below 1 are raised to 1.
func NewCircuitBreaker(params CircuitBreakerParams) *ConsecutiveBreaker {
	cfg := params.Config
	if cfg.Threshold < 1 {
		cfg.Threshold = 1
	}
	if cfg.HalfOpenRequests < 1 {
		cfg.HalfOpenRequests = 1
	}
	cb := &ConsecutiveBreaker{
		name:   params.Name,
		cfg:    cfg,
		logger: params.Logger,
		clock:  params.Clock,
	}
	if cb.logger == nil {
		cb.logger = logger.NoOpLogger{}
	}
	if cb.clock == nil {
		cb.clock = clock.New()
	}
	return cb
}

func (cb *ConsecutiveBreaker) Execute(ctx context.Context, fn func() error) error {
	return cb.ExecuteWithTimeout(ctx, 0, fn)
}

func (cb *ConsecutiveBreaker) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !cb.cfg.Enabled {
		return run(ctx, timeout, fn)
	}

	trial, ok := cb.acquire()
	if !ok {
		return &MeshError{
			Op:      "CircuitBreaker.Execute",
			Kind:    KindMirror,
			ID:      cb.name,
			Message: fmt.Sprintf("circuit breaker %q is open", cb.name),
			Err:     ErrCircuitOpen,
		}
	}

	err := run(ctx, timeout, fn)
	cb.record(trial, err)
	return err
}

func run(ctx context.Context, timeout time.Duration, fn func() error) error {
	if timeout <= 0 {
		return fn()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("operation exceeded %s: %w", timeout, ErrTimeout)
	}
}

// acquire decides whether a call may proceed. trial is true for half-open
// probe calls.
func (cb *ConsecutiveBreaker) acquire() (trial bool, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.clock.Since(cb.openedAt) >= cb.cfg.Timeout {
		cb.transitionLocked(StateHalfOpen)
	}

	switch cb.state {
	case StateClosed:
		return false, true
	case StateHalfOpen:
		if cb.halfOpenInFlight < cb.cfg.HalfOpenRequests {
			cb.halfOpenInFlight++
			return true, true
		}
	}
	cb.rejected++
	return false, false
}

func (cb *ConsecutiveBreaker) record(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}

	if err == nil {
		cb.successes++
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.transitionLocked(StateClosed)
		}
		return
	}

	cb.failed++
	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.transitionLocked(StateOpen)
	case cb.state == StateClosed && cb.failures >= cb.cfg.Threshold:
		cb.transitionLocked(StateOpen)
	}
}

func (cb *ConsecutiveBreaker) transitionLocked(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	switch to {
	case StateOpen:
		cb.openedAt = cb.clock.Now()
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.halfOpenInFlight = 0
	}

	cb.logger.Info("Circuit breaker state changed", map[string]interface{}{
		"name":     cb.name,
		"from":     from.String(),
		"to":       to.String(),
		"failures": cb.failures,
	})
}

func (cb *ConsecutiveBreaker) GetState() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.clock.Since(cb.openedAt) >= cb.cfg.Timeout {
		return StateHalfOpen.String()
	}
	return cb.state.String()
}

func (cb *ConsecutiveBreaker) GetMetrics() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return map[string]interface{}{
		"name":                 cb.name,
		"state":                cb.state.String(),
		"consecutive_failures": cb.failures,
		"success":              cb.successes,
		"failure":              cb.failed,
		"rejected_executions":  cb.rejected,
	}
}

func (cb *ConsecutiveBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
	cb.failures = 0
	cb.halfOpenInFlight = 0
}

func (cb *ConsecutiveBreaker) CanExecute() bool {
	if !cb.cfg.Enabled {
		return true
	}
	switch cb.GetState() {
	case "closed":
		return true
	case "half-open":
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return cb.halfOpenInFlight < cb.cfg.HalfOpenRequests
	}
	return false
}
