package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// StatusChangedEvent is published after a transition commits.
type StatusChangedEvent struct {
	EventID           string    `json:"event_id"`
	ApplicationID     uint      `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	Trigger           string    `json:"trigger"`
	FromStatus        string    `json:"from_status,omitempty"`
	ToStatus          string    `json:"to_status"`
	ActorID           uint      `json:"actor_id"`
	Remarks           string    `json:"remarks,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// StatusEventPublisher fans committed transitions out to other services.
type StatusEventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
}

type natsStatusPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSStatusPublisher publishes on "<channelBase>.applications.status". It returns nil when
// conn is nil so callers can skip publishing entirely.
func NewNATSStatusPublisher(conn *nats.Conn, channelBase string, logger zerolog.Logger) StatusEventPublisher {
	if conn == nil {
		return nil
	}

	base := strings.Trim(strings.ReplaceAll(channelBase, ":", "."), ".")
	if base == "" {
		base = "admission"
	}

	return &natsStatusPublisher{
		conn:    conn,
		subject: base + ".applications.status",
		logger:  logger.With().Str("component", "status_event_publisher").Logger(),
	}
}

func (p *natsStatusPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish status event: %w", err)
	}

	p.logger.Debug().Str("subject", p.subject).Uint("application_id", event.ApplicationID).Str("to_status", event.ToStatus).Msg("status event published")
	return nil
}
