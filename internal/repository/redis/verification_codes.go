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

// VerificationCodeStore persists email verification codes under email_code:<email>.
type VerificationCodeStore struct {
	client *red.Client
}

// NewVerificationCodeStore constructs the store.
func NewVerificationCodeStore(client *red.Client) *VerificationCodeStore {
	return &VerificationCodeStore{client: client}
}

// Save stores code for email, replacing any code sent earlier.
func (s *VerificationCodeStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	key, err := s.key(email)
	if err != nil {
		return err
	}
	switch {
	case strings.TrimSpace(code) == "":
		return errors.New("code is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	if err := s.client.Set(ctx, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("redis set verification code: %w", err)
	}
	return nil
}

// Get returns the pending code or repository.ErrNotFound.
func (s *VerificationCodeStore) Get(ctx context.Context, email string) (string, error) {
	key, err := s.key(email)
	if err != nil {
		return "", err
	}
	code, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get verification code: %w", err)
	}
	return code, nil
}

// Delete drops the pending code.
func (s *VerificationCodeStore) Delete(ctx context.Context, email string) error {
	key, err := s.key(email)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete verification code: %w", err)
	}
	return nil
}

func (s *VerificationCodeStore) key(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	return domain.VerificationCodeKeyPrefix + email, nil
}
