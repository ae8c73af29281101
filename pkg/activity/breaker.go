package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// CircuitState is the state of a Breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"    // records flow to the sink
	CircuitStateOpen     CircuitState = "open"      // records are dropped
	CircuitStateHalfOpen CircuitState = "half_open" // one trial record decides
)

// ErrCircuitOpen is returned while a sink is being skipped
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig configures when a failing sink is skipped
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures" json:"max_failures"` // consecutive failures before opening
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"` // per-record deadline
}

// DefaultBreakerConfig returns the default breaker configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
		Timeout:      5 * time.Second,
	}
}

// BreakerStats reports breaker counters
type BreakerStats struct {
	Name         string       `json:"name"`
	State        CircuitState `json:"state"`
	Failures     int          `json:"failures"`
	Dropped      int64        `json:"dropped"`
	LastFailure  time.Time    `json:"last_failure,omitempty"`
	LastStateChg time.Time    `json:"last_state_change"`
}

// Breaker wraps a sink so that an unavailable backend stops slowing down
// report generation: after MaxFailures consecutive failures records are
// dropped until ResetTimeout has passed.
type Breaker struct {
	name   string
	next   Recorder
	config BreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	dropped     int64
	lastFailure time.Time
	lastChange  time.Time
	retryAfter  time.Time
}

// NewBreaker wraps next
func NewBreaker(name string, next Recorder, config BreakerConfig) *Breaker {
	defaults := DefaultBreakerConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = defaults.ResetTimeout
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	return &Breaker{
		name:       name,
		next:       next,
		config:     config,
		now:        time.Now,
		state:      CircuitStateClosed,
		lastChange: time.Now(),
	}
}

// Record implements Recorder
func (b *Breaker) Record(ctx context.Context, rec *models.GenerationRecord) error {
	if err := b.allow(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	if err := b.next.Record(ctx, rec); err != nil {
		b.recordFailure()
		return fmt.Errorf("%s: %w", b.name, err)
	}
	b.recordSuccess()
	return nil
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateOpen:
		if b.now().Before(b.retryAfter) {
			b.dropped++
			return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
		}
		b.setState(CircuitStateHalfOpen)
	case CircuitStateHalfOpen:
		// a trial record is already in flight
		b.dropped++
		return fmt.Errorf("%s: %w", b.name, ErrCircuitOpen)
	}
	return nil
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	if b.state == CircuitStateHalfOpen || b.failures >= b.config.MaxFailures {
		b.setState(CircuitStateOpen)
		b.retryAfter = b.now().Add(b.config.ResetTimeout)
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != CircuitStateClosed {
		b.setState(CircuitStateClosed)
	}
}

func (b *Breaker) setState(state CircuitState) {
	b.state = state
	b.lastChange = b.now()
}

// Stats returns a snapshot of the breaker
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		Name:         b.name,
		State:        b.state,
		Failures:     b.failures,
		Dropped:      b.dropped,
		LastFailure:  b.lastFailure,
		LastStateChg: b.lastChange,
	}
}
