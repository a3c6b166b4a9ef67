package port

import (
	"context"
	"time"
)

// SessionStore holds the single live refresh token per identity key.
// Every write replaces the previous value for that key.
type SessionStore interface {
	Put(ctx context.Context, identityKey, token string, ttl time.Duration) error
	PutDefault(ctx context.Context, identityKey, token string) error
	Get(ctx context.Context, identityKey string) (string, error)
	Delete(ctx context.Context, identityKey string) error
	Exists(ctx context.Context, identityKey string) (bool, error)
	// Rotate swaps expected for next atomically. It reports false when the
	// stored value is absent or differs from expected.
	Rotate(ctx context.Context, identityKey, expected, next string, ttl time.Duration) (bool, error)
}

// VerificationCodeStore keeps short-lived email verification codes.
type VerificationCodeStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}
