package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/repository"
)

// rotateScript replaces the stored refresh token only when it still equals
// the presented one. KEYS[1]=session key, ARGV = expected, next, ttl ms.
var rotateScript = red.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == false or current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// SessionStore keeps one refresh token per identity under refresh_token:<identity key>.
type SessionStore struct {
	client     *red.Client
	defaultTTL time.Duration
}

// NewSessionStore constructs the store. defaultTTL is used by PutDefault and
// should equal the refresh token lifetime.
func NewSessionStore(client *red.Client, defaultTTL time.Duration) *SessionStore {
	return &SessionStore{client: client, defaultTTL: defaultTTL}
}

// Put stores token for identityKey, replacing any previous value.
func (s *SessionStore) Put(ctx context.Context, identityKey, token string, ttl time.Duration) error {
	key, err := s.key(identityKey)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("refresh token is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := s.client.Set(ctx, key, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// PutDefault stores token with the store default TTL.
func (s *SessionStore) PutDefault(ctx context.Context, identityKey, token string) error {
	return s.Put(ctx, identityKey, token, s.defaultTTL)
}

// Get returns the live refresh token or repository.ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, identityKey string) (string, error) {
	key, err := s.key(identityKey)
	if err != nil {
		return "", err
	}

	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get session: %w", err)
	}
	return value, nil
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, identityKey string) error {
	key, err := s.key(identityKey)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Exists reports whether a session is live for identityKey.
func (s *SessionStore) Exists(ctx context.Context, identityKey string) (bool, error) {
	key, err := s.key(identityKey)
	if err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists session: %w", err)
	}
	return n == 1, nil
}

// Rotate atomically replaces expected with next.
func (s *SessionStore) Rotate(ctx context.Context, identityKey, expected, next string, ttl time.Duration) (bool, error) {
	key, err := s.key(identityKey)
	if err != nil {
		return false, err
	}
	if expected == "" || next == "" {
		return false, fmt.Errorf("refresh tokens are required")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("ttl must be positive")
	}

	swapped, err := rotateScript.Run(ctx, s.client, []string{key}, expected, next, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis rotate session: %w", err)
	}
	return swapped == 1, nil
}

func (s *SessionStore) key(identityKey string) (string, error) {
	identityKey = strings.TrimSpace(identityKey)
	if identityKey == "" {
		return "", fmt.Errorf("identity key is required")
	}
	return domain.SessionKey(identityKey), nil
}
