package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is the breaker's operating mode.
type CircuitState string

const (
	// CircuitClosed lets requests through; the normal state.
	CircuitClosed CircuitState = "closed"
	// CircuitOpen rejects requests immediately after repeated failures.
	CircuitOpen CircuitState = "open"
	// CircuitHalfOpen lets a single probe through to test recovery.
	CircuitHalfOpen CircuitState = "half_open"
)

// ErrCircuitOpen is returned when a call is rejected without being made.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// BreakerConfig controls a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive
	// failures. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before allowing a
	// probe. Default: 60s (paid services rate-limit in minutes, not
	// seconds).
	ResetTimeout time.Duration

	// OnStateChange fires on every transition.
	OnStateChange func(from, to CircuitState)
}

// CircuitBreaker guards one paid service. A dead scrape or AI endpoint
// fails fast instead of burning the batch's pacing window on timeouts.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a breaker with defaults applied.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, state: CircuitClosed, now: time.Now}
}

// Execute runs fn through the breaker, returning ErrCircuitOpen when the
// circuit rejects the call.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

// ExecuteVal is Execute for calls that return a value.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !cb.allow() {
		return zero, ErrCircuitOpen
	}
	val, err := fn(ctx)
	cb.record(err)
	return val, err
}

// State returns the current state, accounting for reset-timeout expiry.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed. Used by retry_failed so a reopened
// batch gets a fresh chance at the service.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(CircuitClosed)
	cb.failures = 0
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
			cb.setState(CircuitHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == CircuitHalfOpen {
			cb.setState(CircuitClosed)
		}
		cb.failures = 0
		return
	}

	cb.failures++
	cb.openedAt = cb.now()
	switch cb.state {
	case CircuitHalfOpen:
		// A failed probe reopens immediately.
		cb.setState(CircuitOpen)
	case CircuitClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.setState(CircuitOpen)
		}
	}
}

func (cb *CircuitBreaker) setState(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}

// ServiceBreakers is a registry of per-service breakers. The pipeline
// keeps one for "scrape" and one for "ai_search".
type ServiceBreakers struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	cfg      BreakerConfig
}

// NewServiceBreakers creates an empty registry; breakers are created on
// first Get with the shared config.
func NewServiceBreakers(cfg BreakerConfig) *ServiceBreakers {
	return &ServiceBreakers{breakers: make(map[string]*CircuitBreaker), cfg: cfg}
}

// Get returns the named breaker, creating it if needed.
func (sb *ServiceBreakers) Get(service string) *CircuitBreaker {
	sb.mu.RLock()
	cb, ok := sb.breakers[service]
	sb.mu.RUnlock()
	if ok {
		return cb
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()
	if cb, ok = sb.breakers[service]; ok {
		return cb
	}
	cb = NewCircuitBreaker(sb.cfg)
	sb.breakers[service] = cb
	return cb
}

// ResetAll closes every registered breaker.
func (sb *ServiceBreakers) ResetAll() {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	for _, cb := range sb.breakers {
		cb.Reset()
	}
}

// States snapshots every breaker's state for telemetry.
func (sb *ServiceBreakers) States() map[string]CircuitState {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	states := make(map[string]CircuitState, len(sb.breakers))
	for name, cb := range sb.breakers {
		states[name] = cb.State()
	}
	return states
}
