// Package events fans portal domain events out over redis pub/sub and NATS so
// other portal nodes and downstream services can react to grading activity.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/observability"
)

// Event types.
const (
	TypeSubmissionFinalized = "submission.finalized"
	TypeSubmissionRescored  = "submission.rescored"
	TypeExerciseChanged     = "exercise.changed"
)

// Event describes something that changed learning data through the portal.
type Event struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Source       string    `json:"source"`
	ActorID      uint      `json:"actor_id,omitempty"`
	ActorRole    string    `json:"actor_role,omitempty"`
	ExerciseID   uint      `json:"exercise_id,omitempty"`
	SubmissionID uint      `json:"submission_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	Score        *float64  `json:"score,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher emits portal events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus publishes to and consumes from redis and NATS. Either transport may be nil.
type Bus struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewBus builds an event bus rooted at channelBase, e.g. "codelab:events".
func NewBus(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) *Bus {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":grading"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".grading"
	}

	return &Bus{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "event_bus").Logger(),
		now:          time.Now,
	}
}

// NodeID identifies this portal process as an event source.
func (b *Bus) NodeID() string {
	return b.nodeID
}

// Publish stamps and sends event on every configured transport.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = b.now().UTC()
	}
	event.Source = b.nodeID

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		} else {
			observability.EventsPublished().WithLabelValues("redis", event.Type).Inc()
		}
	}
	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			errs = append(errs, err)
		} else {
			observability.EventsPublished().WithLabelValues("nats", event.Type).Inc()
		}
	}
	return errors.Join(errs...)
}

// Subscribe delivers events to handle until ctx is cancelled. NATS is preferred
// when configured; redis pub/sub is used otherwise.
func (b *Bus) Subscribe(ctx context.Context, handle func(Event)) {
	switch {
	case b.nats != nil && b.natsSubject != "":
		b.consumeNATS(ctx, handle)
	case b.redis != nil && b.redisChannel != "":
		go b.consumeRedis(ctx, handle)
	}
}

func (b *Bus) consumeRedis(ctx context.Context, handle func(Event)) {
	pubsub := b.redis.Subscribe(ctx, b.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			b.logger.Error().Err(err).Msg("event redis subscription closed")
			return
		}
		b.dispatch([]byte(msg.Payload), handle)
	}
}

func (b *Bus) consumeNATS(ctx context.Context, handle func(Event)) {
	sub, err := b.nats.QueueSubscribe(b.natsSubject, "codelab-portal-"+b.nodeID, func(msg *nats.Msg) {
		b.dispatch(msg.Data, handle)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats event subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain event nats subscription")
		}
	}()
}

func (b *Bus) dispatch(payload []byte, handle func(Event)) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn().Err(err).Msg("invalid event payload")
		return
	}
	handle(event)
}
