package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/repository"
)

// CredentialVerifier checks a username/password pair against stored hashes.
type CredentialVerifier struct {
	users  port.LocalUserRepository
	hasher port.PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(users port.LocalUserRepository, hasher port.PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify returns the matching account or ErrInvalidCredentials. Unknown
// usernames and wrong passwords are indistinguishable to the caller, and an
// unknown username still pays for one hash comparison.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*domain.LocalUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			v.burnComparison(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := v.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

func (v *CredentialVerifier) burnComparison(password string) {
	v.dummyOnce.Do(func() {
		v.dummyHash, _ = v.hasher.Hash("storyteller-dummy-password")
	})
	if v.dummyHash != "" {
		_, _ = v.hasher.Verify(password, v.dummyHash)
	}
}
