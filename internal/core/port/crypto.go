package port

import (
	"time"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
)

// Argon2Params captures tunable parameters for the Argon2id hashing algorithm.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// PasswordPolicy rejects passwords that are too weak for a new account.
type PasswordPolicy interface {
	Validate(password string, userInputs ...string) error
}

// TokenCodec issues and parses signed identity tokens.
type TokenCodec interface {
	Issue(method domain.AuthMethod, category domain.TokenCategory, subject, role string, ttl time.Duration) (string, domain.Claims, error)
	IssuePair(method domain.AuthMethod, subject, role string, accessTTL, refreshTTL time.Duration) (domain.TokenPair, error)
	Parse(token string) (domain.Claims, error)
}
