package port

import (
	"context"
	"errors"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
)

// SocialIdentityVerifier exchanges a provider credential for a verified profile.
type SocialIdentityVerifier interface {
	Verify(ctx context.Context, provider, credential string) (*domain.SocialProfile, error)
}

// Mailer delivers transactional mail.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}

var (
	// ErrInvalidIdentityToken indicates the provider rejected the presented credential.
	ErrInvalidIdentityToken = errors.New("social: invalid identity token")
	// ErrUnsupportedProvider indicates no verifier is registered for the provider name.
	ErrUnsupportedProvider = errors.New("social: unsupported provider")
)
