package service

import (
	"context"
	"errors"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codelab-portal/internal/backend"
	"github.com/noah-isme/codelab-portal/internal/events"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/session"
)

// ErrSessionRequired indicates an operation was called without a signed-in session.
var ErrSessionRequired = errors.New("session is required")

// WithCorrelationID stores the request correlation id for audit entries and backend calls.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return backend.WithCorrelationID(ctx, id)
}

func correlationID(ctx context.Context) string {
	return backend.CorrelationIDFrom(ctx)
}

// recorder writes audit entries without failing the caller.
type recorder struct {
	activity ActivityRecorder
	events   events.Publisher
	logger   zerolog.Logger
}

func (r recorder) record(ctx context.Context, sess *session.Session, action, entityType string, entityID uint, metadata map[string]interface{}) {
	if r.activity == nil {
		return
	}
	entry := ActivityEntry{
		Action:        action,
		EntityType:    entityType,
		CorrelationID: correlationID(ctx),
		Metadata:      metadata,
	}
	if sess != nil {
		entry.ActorID = sess.UserID
		entry.ActorRole = sess.Role
	}
	if entityID > 0 {
		id := entityID
		entry.EntityID = &id
	}
	if _, err := r.activity.Record(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (r recorder) publish(ctx context.Context, sess *session.Session, event events.Event) {
	if r.events == nil {
		return
	}
	if sess != nil {
		event.ActorID = sess.UserID
		event.ActorRole = sess.Role
	}
	if err := r.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		r.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish event")
	}
}

var descriptionPolicy = bluemonday.UGCPolicy()

// sanitizeExercise strips unsafe markup from teacher-authored text.
func sanitizeExercise(exercise models.Exercise) models.Exercise {
	exercise.Title = strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(exercise.Title))
	exercise.Description = descriptionPolicy.Sanitize(exercise.Description)
	return exercise
}

func requireSession(sess *session.Session) error {
	if sess == nil {
		return ErrSessionRequired
	}
	return nil
}
