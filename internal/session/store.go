package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates the session expired, was revoked or never existed.
var ErrSessionNotFound = errors.New("session not found")

const keyPrefix = "portal:session:"

// Store persists sessions in redis with a sliding expiry.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	onDelete []func(id string)
}

// NewStore builds a redis-backed session store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

// OnDelete registers fn to be called with the id of every deleted session.
func (s *Store) OnDelete(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

// Create stores a new session and assigns its id.
func (s *Store) Create(ctx context.Context, role string, userID uint, displayName, backendToken string) (*Session, error) {
	sess := &Session{
		ID:           uuid.NewString(),
		Role:         role,
		UserID:       userID,
		DisplayName:  displayName,
		BackendToken: backendToken,
		CreatedAt:    s.now().UTC(),
		store:        s,
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, key(sess.ID), payload, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get loads a session and extends its expiry.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	payload, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.BackendToken == "" {
		return nil, ErrSessionNotFound
	}
	sess.store = s

	if err := s.client.Expire(ctx, key(id), s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return &sess, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.mu.RLock()
	hooks := append([]func(string){}, s.onDelete...)
	s.mu.RUnlock()
	for _, hook := range hooks {
		hook(id)
	}
	return nil
}

func key(id string) string {
	return keyPrefix + id
}
