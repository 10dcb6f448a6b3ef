package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/craftcode/landing-backend/internal/contact/domain"
	"github.com/craftcode/landing-backend/internal/logging"
)

const (
	// DefaultResetDelay is how long a successful submission stays visible before the form clears
	DefaultResetDelay = 3000 * time.Millisecond

	// FallbackErrorMessage is shown when a failure carries no usable text
	FallbackErrorMessage = "failed to send message, please try again"
)

// Inserter writes one contact submission row
type Inserter interface {
	Insert(ctx context.Context, rec domain.SubmissionRecord) (*domain.StoredSubmission, error)
}

// Option configures a Controller
type Option func(*Controller)

// WithResetDelay overrides DefaultResetDelay
func WithResetDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.resetDelay = d
		}
	}
}

// WithMetrics shares a metrics sink between controllers
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSessionID tags snapshots and log lines
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// Controller owns one contact form: the draft being edited and the submission lifecycle.
// Safe for concurrent use; the lock is never held while the insert is in flight.
type Controller struct {
	inserter   Inserter
	resetDelay time.Duration
	metrics    *Metrics
	sessionID  string

	mu         sync.Mutex
	draft      domain.SubmissionDraft
	state      domain.SubmissionState
	version    uint64
	updatedAt  time.Time
	resetTimer *time.Timer
	resetGen   uint64
	closed     bool
}

// NewController creates an idle controller with an empty draft
func NewController(inserter Inserter, opts ...Option) *Controller {
	c := &Controller{
		inserter:   inserter,
		resetDelay: DefaultResetDelay,
		metrics:    NewMetrics(),
		state:      domain.Idle(),
		updatedAt:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResetDelay returns the delay between a success and the form reset
func (c *Controller) ResetDelay() time.Duration {
	return c.resetDelay
}

// UpdateField replaces exactly one draft field. Values are not validated.
func (c *Controller) UpdateField(f domain.Field, value string) error {
	if !f.Valid() {
		return domain.ErrUnknownField
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrSessionClosed
	}
	c.draft = c.draft.With(f, value)
	c.touch()
	return nil
}

// Submit sends the current draft through the inserter once.
//
// Persistence failures never come back as errors: they are folded into the
// returned Failed state. The error is only ErrSubmitNotAllowed (a submission
// is in flight or its success is still on screen) or ErrSessionClosed.
func (c *Controller) Submit(ctx context.Context) (domain.SubmissionState, error) {
	logger := logging.NewLogger(ctx).WithSession(c.sessionID)

	c.mu.Lock()
	if c.closed {
		st := c.state
		c.mu.Unlock()
		return st, domain.ErrSessionClosed
	}
	if !c.state.CanSubmit() {
		st := c.state
		c.mu.Unlock()
		c.metrics.recordRejected()
		logger.LogDebugf("submit", "rejected phase=%s", st.Phase)
		return st, domain.ErrSubmitNotAllowed
	}
	c.setState(domain.Submitting())
	rec := c.draft.Record()
	c.mu.Unlock()

	c.metrics.recordSubmit()
	start := time.Now()
	stored, err := c.insert(ctx, rec)
	c.metrics.recordInsert(time.Since(start), err, errors.Is(err, domain.ErrNotConfigured))

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		msg := failureMessage(err)
		logger.LogWarnf("submit", "insert failed: %v", err)
		c.setState(domain.Failed(msg))
		return c.state, nil
	}

	if stored != nil && stored.ID != "" {
		logger.LogInfof("submit", "submission stored id=%s", stored.ID)
	} else {
		logger.LogInfof("submit", "submission stored")
	}
	c.setState(domain.Submitted())
	if !c.closed {
		c.scheduleReset()
	}
	return c.state, nil
}

// insert shields the controller from a panicking adapter
func (c *Controller) insert(ctx context.Context, rec domain.SubmissionRecord) (stored *domain.StoredSubmission, err error) {
	if c.inserter == nil {
		return nil, domain.NewNotConfigured()
	}
	defer func() {
		if r := recover(); r != nil {
			stored, err = nil, fmt.Errorf("insert panicked: %v", r)
		}
	}()
	return c.inserter.Insert(ctx, rec)
}

// scheduleReset must be called with c.mu held
func (c *Controller) scheduleReset() {
	if c.resetTimer != nil {
		c.resetTimer.Stop()
	}
	c.resetGen++
	gen := c.resetGen
	c.resetTimer = time.AfterFunc(c.resetDelay, func() {
		c.reset(gen)
	})
}

func (c *Controller) reset(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Stale or disposed: drop silently.
	if c.closed || gen != c.resetGen || c.state.Phase != domain.PhaseSubmitted {
		return
	}
	c.resetTimer = nil
	c.draft = domain.SubmissionDraft{}
	c.setState(domain.Idle())
}

// Close disposes the controller and cancels a pending reset
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.resetGen++
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
	c.touch()
}

// Closed reports whether Close was called
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// State returns the current submission state
func (c *Controller) State() domain.SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns a copy of the current draft
func (c *Controller) Draft() domain.SubmissionDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Snapshot returns state and draft read under one lock
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Snapshot{
		SessionID: c.sessionID,
		State:     c.state,
		Draft:     c.draft,
		Version:   c.version,
		UpdatedAt: c.updatedAt,
	}
}

// setState must be called with c.mu held
func (c *Controller) setState(next domain.SubmissionState) {
	if !c.state.Phase.CanTransitionTo(next.Phase) {
		logging.NewLogger(context.Background()).WithSession(c.sessionID).
			LogWarnf("transition", "unexpected transition %s -> %s", c.state.Phase, next.Phase)
	}
	c.state = next
	c.touch()
}

func (c *Controller) touch() {
	c.version++
	c.updatedAt = time.Now()
}

func failureMessage(err error) string {
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		if msg := strings.TrimSpace(pe.Message); msg != "" {
			return msg
		}
	}
	return FallbackErrorMessage
}
