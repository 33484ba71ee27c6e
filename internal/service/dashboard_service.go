package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/codelab-portal/internal/dto"
	"github.com/noah-isme/codelab-portal/internal/events"
	"github.com/noah-isme/codelab-portal/internal/grading"
	"github.com/noah-isme/codelab-portal/internal/models"
	"github.com/noah-isme/codelab-portal/internal/session"
)

const dashboardCachePattern = "dashboard:teacher:*"

// EventSubscriber delivers portal events to a handler until ctx is cancelled.
type EventSubscriber interface {
	Subscribe(ctx context.Context, handle func(events.Event))
}

// DashboardService aggregates the teacher dashboard across classes, exercises and submissions.
type DashboardService interface {
	Dashboard(ctx context.Context, sess *session.Session) (dto.DashboardResponse, error)
	Invalidate(ctx context.Context) error
	Start(ctx context.Context, subscriber EventSubscriber)
}

type dashboardService struct {
	gateway     Gateway
	cache       *redis.Client
	cacheTTL    time.Duration
	concurrency int
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDashboardService constructs the dashboard service. concurrency bounds the
// number of backend calls issued in parallel for one dashboard.
func NewDashboardService(gateway Gateway, cache *redis.Client, ttl time.Duration, concurrency int, logger zerolog.Logger) DashboardService {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &dashboardService{
		gateway:     gateway,
		cache:       cache,
		cacheTTL:    ttl,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
		now:         time.Now,
	}
}

func dashboardCacheKey(teacherID uint) string {
	return fmt.Sprintf("dashboard:teacher:%d", teacherID)
}

func (s *dashboardService) Dashboard(ctx context.Context, sess *session.Session) (dto.DashboardResponse, error) {
	if err := requireSession(sess); err != nil {
		return dto.DashboardResponse{}, err
	}

	cacheKey := dashboardCacheKey(sess.UserID)
	tracer := otel.Tracer("github.com/noah-isme/codelab-portal/internal/service/dashboard")
	ctx, span := tracer.Start(ctx, "dashboard.aggregate")
	span.SetAttributes(attribute.String("dashboard.cache_key", cacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.DashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("dashboard.cache_hit", true))
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
			span.RecordError(err)
		}
	}

	classes, exercises, submissions, err := s.collect(ctx, sess)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collect_failed")
		return dto.DashboardResponse{}, err
	}

	response := dto.DashboardResponse{
		TeacherID:   sess.UserID,
		Summary:     grading.Summarize(classes, exercises, submissions),
		GeneratedAt: s.now().UTC(),
	}
	span.SetAttributes(
		attribute.Int("dashboard.classes", len(classes)),
		attribute.Int("dashboard.exercises", len(exercises)),
		attribute.Int("dashboard.submissions", len(submissions)),
	)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

// collect walks classes, their exercises and each exercise's submissions.
func (s *dashboardService) collect(ctx context.Context, sess *session.Session) ([]models.Class, []models.Exercise, []models.Submission, error) {
	classes, err := s.gateway.TeacherClasses(ctx, sess, sess.UserID)
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		mu          sync.Mutex
		exercises   []models.Exercise
		submissions []models.Submission
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, class := range classes {
		classID := class.ID
		group.Go(func() error {
			items, err := s.gateway.ClassExercises(groupCtx, sess, classID)
			if err != nil {
				return fmt.Errorf("class %d exercises: %w", classID, err)
			}
			mu.Lock()
			exercises = append(exercises, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, nil, err
	}

	group, groupCtx = errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for _, exercise := range exercises {
		exerciseID := exercise.ID
		group.Go(func() error {
			items, err := s.gateway.ExerciseSubmissions(groupCtx, sess, exerciseID)
			if err != nil {
				return fmt.Errorf("exercise %d submissions: %w", exerciseID, err)
			}
			mu.Lock()
			submissions = append(submissions, items...)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, nil, err
	}

	return classes, exercises, submissions, nil
}

// Invalidate removes every cached dashboard.
func (s *dashboardService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	iter := s.cache.Scan(ctx, 0, dashboardCachePattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.cache.Del(ctx, keys...).Err()
}

// Start drops cached dashboards whenever grading data changes.
func (s *dashboardService) Start(ctx context.Context, subscriber EventSubscriber) {
	if subscriber == nil {
		return
	}
	subscriber.Subscribe(ctx, func(event events.Event) {
		switch event.Type {
		case events.TypeSubmissionFinalized, events.TypeSubmissionRescored, events.TypeExerciseChanged:
		default:
			return
		}
		if err := s.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to invalidate dashboard cache")
		}
	})
}
