package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/craftcode/landing-backend/internal/contact/domain"
	"github.com/craftcode/landing-backend/internal/logging"
)

const (
	// DefaultSessionTTL is how long an untouched form session is kept
	DefaultSessionTTL = 30 * time.Minute

	sweepSchedule = "@every 1m"
)

// Session pairs a controller with its last access time
type Session struct {
	ID         string
	Controller *Controller
	CreatedAt  time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) markSeen(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the last time the session was looked up
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry holds one controller per browser form session
type Registry struct {
	inserter   Inserter
	metrics    *Metrics
	resetDelay time.Duration
	ttl        time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	cron     *cron.Cron
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithSessionTTL overrides DefaultSessionTTL
func WithSessionTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithControllerResetDelay sets the reset delay of every created controller
func WithControllerResetDelay(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.resetDelay = d
		}
	}
}

// WithClock replaces time.Now for idle checks
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an empty registry. All controllers share inserter and metrics.
func NewRegistry(inserter Inserter, metrics *Metrics, opts ...RegistryOption) *Registry {
	if metrics == nil {
		metrics = NewMetrics()
	}
	r := &Registry{
		inserter:   inserter,
		metrics:    metrics,
		resetDelay: DefaultResetDelay,
		ttl:        DefaultSessionTTL,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the shared metrics sink
func (r *Registry) Metrics() *Metrics {
	return r.metrics
}

// NewController builds a controller that is not tracked by the registry
func (r *Registry) NewController(opts ...Option) *Controller {
	base := []Option{WithMetrics(r.metrics), WithResetDelay(r.resetDelay)}
	return NewController(r.inserter, append(base, opts...)...)
}

// Create starts a new session with an idle controller
func (r *Registry) Create() *Session {
	id := uuid.New().String()
	now := r.now()
	s := &Session{
		ID:         id,
		Controller: r.NewController(WithSessionID(id)),
		CreatedAt:  now,
		lastSeen:   now,
	}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	logging.NewLogger(context.Background()).WithSession(id).LogDebugf("session", "created")
	return s
}

// Get returns a session and refreshes its idle clock
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	s.markSeen(r.now())
	return s, nil
}

// Remove disposes a session
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Controller.Close()
	return nil
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many were removed.
// A session with an insert in flight is kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	var stale []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastSeen().After(cutoff) {
			continue
		}
		if s.Controller.State().Phase == domain.PhaseSubmitting {
			continue
		}
		stale = append(stale, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Controller.Close()
	}
	if len(stale) > 0 {
		logging.NewLogger(context.Background()).LogInfof("sweep", "removed %d idle sessions", len(stale))
	}
	return len(stale)
}

// StartSweeper runs Sweep on a cron schedule until Close
func (r *Registry) StartSweeper() error {
	c := cron.New()
	if _, err := c.AddFunc(sweepSchedule, func() { r.Sweep() }); err != nil {
		return err
	}

	r.mu.Lock()
	if r.cron != nil {
		r.mu.Unlock()
		return nil
	}
	r.cron = c
	r.mu.Unlock()

	c.Start()
	return nil
}

// Close stops the sweeper and disposes every session
func (r *Registry) Close() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	for _, s := range sessions {
		s.Controller.Close()
	}
}
