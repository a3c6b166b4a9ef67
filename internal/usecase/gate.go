package usecase

import (
	"errors"
	"regexp"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/security"
)

// DefaultPublicPaths are served without looking at the access header.
var DefaultPublicPaths = []string{
	`^/login(/.*)?$`,
	`^/oauth2(/.*)?$`,
	`^/(google|kakao)-login$`,
	`^/register$`,
	`^/username/verifications$`,
	`^/emails(/.*)?$`,
	`^/reissue$`,
	`^/healthCheck$`,
	`^/metrics$`,
	`^/swagger-ui(/.*)?$`,
	`^/v3/api-docs(/.*)?$`,
}

// AccessGate turns an access token into a request principal.
type AccessGate struct {
	codec  port.TokenCodec
	public []*regexp.Regexp
}

// NewAccessGate compiles the public path patterns. It fails on an invalid
// pattern rather than silently protecting or exposing a route.
func NewAccessGate(codec port.TokenCodec, publicPaths ...string) (*AccessGate, error) {
	if len(publicPaths) == 0 {
		publicPaths = DefaultPublicPaths
	}
	compiled := make([]*regexp.Regexp, 0, len(publicPaths))
	for _, pattern := range publicPaths {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &AccessGate{codec: codec, public: compiled}, nil
}

// IsPublic reports whether path bypasses the gate.
func (g *AccessGate) IsPublic(path string) bool {
	for _, re := range g.public {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Evaluate runs one request through the gate. A nil principal with a nil
// error means the request continues unauthenticated.
func (g *AccessGate) Evaluate(path, accessToken string) (*domain.Principal, error) {
	if g.IsPublic(path) {
		return nil, nil
	}
	if accessToken == "" {
		return nil, nil
	}

	claims, err := g.codec.Parse(accessToken)
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrInvalidAccessToken
	}

	if claims.Category != domain.TokenCategoryAccess {
		return nil, ErrInvalidAccessToken
	}

	switch claims.Method {
	case domain.AuthMethodLocal, domain.AuthMethodSocial:
		return &domain.Principal{
			Method:  claims.Method,
			Subject: claims.Subject,
			Role:    claims.Role,
		}, nil
	default:
		return nil, ErrInvalidAccessToken
	}
}
