package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/lifecycle"
)

// Event is the payload published after an accepted lifecycle action.
type Event struct {
	Entity     string                 `json:"entity"`
	Action     string                 `json:"action"`
	EntityID   uint                   `json:"entity_id"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	From       string                 `json:"from,omitempty"`
	To         string                 `json:"to,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Subject returns the event subject below prefix, e.g. lms.course.published.
func (e Event) Subject(prefix string) string {
	return fmt.Sprintf("%s.%s.%s", strings.Trim(prefix, "."), e.Entity, e.Action)
}

// EventPublisher delivers lifecycle events to interested consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type natsPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher publishes events as JSON on <prefix>.<entity>.<action>.
func NewNATSPublisher(conn *nats.Conn, prefix string) EventPublisher {
	return &natsPublisher{conn: conn, prefix: prefix}
}

func (p *natsPublisher) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(event.Subject(p.prefix), payload)
}

// eventEmitter publishes best-effort; delivery failures never fail a request.
type eventEmitter struct {
	publisher EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

func (e eventEmitter) emit(ctx context.Context, actor lifecycle.Actor, event Event) {
	if e.publisher == nil {
		return
	}
	event.ActorID = actor.ID
	event.ActorRole = string(actor.Role)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now().UTC()
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn().Err(err).
			Str("entity", event.Entity).
			Str("action", event.Action).
			Uint("entity_id", event.EntityID).
			Msg("failed to publish lifecycle event")
	}
}
