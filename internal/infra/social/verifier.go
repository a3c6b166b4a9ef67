// Package social verifies identity credentials issued by third-party providers.
package social

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
)

const (
	ProviderGoogle = "google"
	ProviderKakao  = "kakao"

	maxNicknameRunes = 128
)

// ProviderVerifier validates a credential for one provider.
type ProviderVerifier interface {
	Name() string
	Verify(ctx context.Context, credential string) (*domain.SocialProfile, error)
}

// Registry dispatches verification to the provider named in the request and
// normalises the returned profile.
type Registry struct {
	providers map[string]ProviderVerifier
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewRegistry builds a Registry over the supplied provider verifiers.
func NewRegistry(logger *zap.Logger, providers ...ProviderVerifier) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		providers: make(map[string]ProviderVerifier, len(providers)),
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Verify implements port.SocialIdentityVerifier.
func (r *Registry) Verify(ctx context.Context, provider, credential string) (*domain.SocialProfile, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	p, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", port.ErrUnsupportedProvider, provider)
	}
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("%w: empty credential", port.ErrInvalidIdentityToken)
	}

	profile, err := p.Verify(ctx, credential)
	if err != nil {
		r.logger.Warn("social credential rejected", zap.String("provider", provider), zap.Error(err))
		return nil, err
	}

	profile.Provider = provider
	profile.AccountID = provider + "_" + profile.Subject
	profile.Nickname = r.cleanNickname(profile.Nickname, profile.Email)
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))

	return profile, nil
}

// cleanNickname strips markup from a provider display name and falls back to
// the email local part when nothing printable is left.
func (r *Registry) cleanNickname(nickname, email string) string {
	cleaned := strings.TrimSpace(r.sanitizer.Sanitize(nickname))
	if cleaned == "" {
		cleaned, _, _ = strings.Cut(email, "@")
	}
	if utf8.RuneCountInString(cleaned) > maxNicknameRunes {
		cleaned = string([]rune(cleaned)[:maxNicknameRunes])
	}
	return cleaned
}

func httpClientOrDefault(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return http.DefaultClient
}
