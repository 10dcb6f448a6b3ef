package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/craftcode/landing-backend/internal/contact/domain"
	"github.com/craftcode/landing-backend/internal/logging"
)

const (
	DefaultChannel = "contact:submissions"

	recentSuffix = ":recent"
	recentLimit  = 100
)

// LeadEvent is published once per stored submission
type LeadEvent struct {
	ID                 string    `json:"id,omitempty"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	ProjectDescription string    `json:"project_description"`
	CreatedAt          time.Time `json:"created_at"`
	RequestID          string    `json:"request_id,omitempty"`
}

// Publisher fans out new leads over Redis pub/sub and keeps a short history list
type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Channel returns the pub/sub channel name
func (p *Publisher) Channel() string {
	return p.channel
}

func (p *Publisher) recentKey() string {
	return p.channel + recentSuffix
}

// Publish sends the event and prepends it to the capped history list
func (p *Publisher) Publish(ctx context.Context, ev LeadEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal lead event: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, data)
	pipe.LPush(ctx, p.recentKey(), data)
	pipe.LTrim(ctx, p.recentKey(), 0, recentLimit-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish lead event: %w", err)
	}
	return nil
}

// Recent returns up to n events, newest first
func (p *Publisher) Recent(ctx context.Context, n int) ([]LeadEvent, error) {
	if n <= 0 || n > recentLimit {
		n = recentLimit
	}

	raw, err := p.client.LRange(ctx, p.recentKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent leads: %w", err)
	}

	out := make([]LeadEvent, 0, len(raw))
	for _, item := range raw {
		var ev LeadEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			logging.NewLogger(ctx).LogWarnf("recent_leads", "skipping malformed entry: %v", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Subscribe listens for new leads on the channel
func (p *Publisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.client.Subscribe(ctx, p.channel)
}

type inserter interface {
	Insert(ctx context.Context, rec domain.SubmissionRecord) (*domain.StoredSubmission, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, ev LeadEvent) error
}

// Inserter publishes a LeadEvent after every successful insert of the wrapped adapter.
// A publish failure is logged; the submission still counts as stored.
type Inserter struct {
	next      inserter
	publisher eventPublisher
	timeout   time.Duration
}

func NewInserter(next inserter, publisher eventPublisher) *Inserter {
	return &Inserter{next: next, publisher: publisher, timeout: 2 * time.Second}
}

func (i *Inserter) Insert(ctx context.Context, rec domain.SubmissionRecord) (*domain.StoredSubmission, error) {
	stored, err := i.next.Insert(ctx, rec)
	if err != nil || stored == nil {
		return stored, err
	}

	ev := LeadEvent{
		ID:                 string(stored.ID),
		Name:               stored.Name,
		Email:              stored.Email,
		Phone:              stored.Phone,
		ProjectDescription: stored.ProjectDescription,
		CreatedAt:          stored.CreatedAt,
		RequestID:          logging.RequestID(ctx),
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()
	if perr := i.publisher.Publish(pctx, ev); perr != nil {
		logging.NewLogger(ctx).LogError("publish_lead", perr)
	}
	return stored, nil
}
