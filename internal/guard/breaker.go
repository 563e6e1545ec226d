// Package guard holds the cross-cutting protections shared by the
// indexing pipeline and the query server: circuit breakers, per-client
// rate limiting, path sanitizing, and row-cap enforcement.
package guard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/repograph/repograph-go/internal/errors"
	"github.com/repograph/repograph-go/internal/logging"
)

// BreakerState is the circuit breaker's observable state.
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

// DeterministicTools are the template-backed tools that keep working
// when the translation path is down. Breaker errors suggest them.
var DeterministicTools = []string{
	"find_dependencies",
	"trace_variable",
	"get_role_usage",
	"analyze_playbook",
	"find_tasks_by_module",
	"get_task_hierarchy",
	"find_template_usage",
}

// Breaker is a consecutive-failure circuit breaker. It opens after
// FailureThreshold failures in a row, stays open for RecoveryTimeout,
// then admits a single probe.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	probing     bool

	now func() time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker(name string, failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
		now:              time.Now,
	}
}

// NewCypherGenerationBreaker guards the LLM translation path.
func NewCypherGenerationBreaker() *Breaker {
	return NewBreaker("cypher_generation", 3, 30*time.Second)
}

// NewNeo4jQueryBreaker guards graph store round trips.
func NewNeo4jQueryBreaker() *Breaker {
	return NewBreaker("neo4j_query", 5, 60*time.Second)
}

// State returns the current state, applying the lazy OPEN → HALF_OPEN
// transition when the recovery timeout has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *Breaker) stateLocked() BreakerState {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.recoveryTimeout {
		b.state = StateHalfOpen
		b.probing = false
		logging.Info("circuit breaker entering half-open", "breaker", b.name)
	}
	return b.state
}

// Allow reports whether a call may proceed. In HALF_OPEN exactly one
// probe is admitted; concurrent callers are refused until the probe
// resolves.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if b.probing {
			return b.openErrorLocked()
		}
		b.probing = true
		return nil
	default:
		return b.openErrorLocked()
	}
}

func (b *Breaker) openErrorLocked() error {
	retry := b.recoveryTimeout - b.now().Sub(b.lastFailure)
	if retry < 0 {
		retry = 0
	}
	return errors.New(errors.KindCircuitOpen, fmt.Sprintf(
		"%s circuit breaker is open (retry in %.0fs). Deterministic tools remain available: %s",
		b.name, retry.Seconds(), strings.Join(DeterministicTools, ", ")))
}

// RecordSuccess resets the failure count; in HALF_OPEN it closes the
// breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stateLocked() == StateHalfOpen {
		logging.Info("circuit breaker closing after successful probe", "breaker", b.name)
	}
	b.state = StateClosed
	b.failures = 0
	b.probing = false
}

// RecordFailure counts a failure; at the threshold (or on a failed
// HALF_OPEN probe) the breaker opens.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()
	switch b.stateLocked() {
	case StateHalfOpen:
		b.state = StateOpen
		b.probing = false
		logging.Warn("circuit breaker reopened after failed probe", "breaker", b.name)
	default:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = StateOpen
			logging.Warn("circuit breaker opened",
				"breaker", b.name, "consecutive_failures", b.failures)
		}
	}
}

// Call runs fn under the breaker: refused when open, recorded
// otherwise.
func (b *Breaker) Call(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// CallContext is Call for context-aware work. A failure while ctx is
// already done reflects the caller abandoning the request, not the
// downstream's health, so it is not counted against the breaker.
func (b *Breaker) CallContext(ctx context.Context, fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if ctx.Err() != nil {
			b.releaseProbe()
		} else {
			b.RecordFailure()
		}
		return err
	}
	b.RecordSuccess()
	return nil
}

// releaseProbe frees the HALF_OPEN probe slot without resolving the
// probe either way.
func (b *Breaker) releaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}
