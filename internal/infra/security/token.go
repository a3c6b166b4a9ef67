package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
)

var (
	// ErrMalformedToken indicates the token could not be decoded into known claims.
	ErrMalformedToken = errors.New("token: malformed")
	// ErrSignatureInvalid indicates the signature does not match the server secret.
	ErrSignatureInvalid = errors.New("token: signature invalid")
	// ErrTokenExpired indicates a correctly signed token is past its expiry.
	ErrTokenExpired = errors.New("token: expired")
)

const minSecretLength = 32

// tokenClaims is the wire shape of every token the service signs.
type tokenClaims struct {
	Category   string `json:"category"`
	AuthMethod string `json:"authMethod"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

func (c *tokenClaims) toDomain() domain.Claims {
	out := domain.Claims{
		ID:       c.ID,
		Category: domain.TokenCategory(c.Category),
		Method:   domain.AuthMethod(c.AuthMethod),
		Subject:  c.Subject,
		Role:     c.Role,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return out
}

// CodecOption customises a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(clock func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if clock != nil {
			c.now = clock
		}
	}
}

// TokenCodec issues and parses HS256-signed identity tokens. It holds no
// mutable state after construction and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec builds a codec around the process-wide signing secret.
func NewTokenCodec(secret []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token: secret must be at least %d bytes", minSecretLength)
	}

	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)

	return c, nil
}

// Issue signs a new token. iat is truncated to whole seconds so that
// exp is exactly iat+ttl once encoded.
func (c *TokenCodec) Issue(method domain.AuthMethod, category domain.TokenCategory, subject, role string, ttl time.Duration) (string, domain.Claims, error) {
	switch {
	case !method.Valid():
		return "", domain.Claims{}, fmt.Errorf("token: unknown auth method %q", method)
	case category != domain.TokenCategoryAccess && category != domain.TokenCategoryRefresh:
		return "", domain.Claims{}, fmt.Errorf("token: unknown category %q", category)
	case subject == "":
		return "", domain.Claims{}, errors.New("token: subject is required")
	case ttl <= 0:
		return "", domain.Claims{}, errors.New("token: ttl must be positive")
	}

	issuedAt := c.now().UTC().Truncate(time.Second)
	claims := &tokenClaims{
		Category:   string(category),
		AuthMethod: string(method),
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("token: sign: %w", err)
	}

	return signed, claims.toDomain(), nil
}

// IssuePair issues an access and a refresh token for the same identity.
func (c *TokenCodec) IssuePair(method domain.AuthMethod, subject, role string, accessTTL, refreshTTL time.Duration) (domain.TokenPair, error) {
	access, accessClaims, err := c.Issue(method, domain.TokenCategoryAccess, subject, role, accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshClaims, err := c.Issue(method, domain.TokenCategoryRefresh, subject, role, refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}
	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
	}, nil
}

// Parse verifies the signature and expiry of token. An expired but correctly
// signed token yields its claims together with ErrTokenExpired.
func (c *TokenCodec) Parse(token string) (domain.Claims, error) {
	if token == "" {
		return domain.Claims{}, ErrMalformedToken
	}

	claims := &tokenClaims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		// signature is checked before claims validation
		if claims.Category == "" || claims.Subject == "" {
			return domain.Claims{}, ErrMalformedToken
		}
		return claims.toDomain(), ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.Claims{}, ErrSignatureInvalid
	default:
		return domain.Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.Category == "" || claims.Subject == "" {
		return domain.Claims{}, ErrMalformedToken
	}

	return claims.toDomain(), nil
}

// IsExpired reports whether token is past its expiry. It reads exp without
// verifying the signature; undecodable tokens count as expired.
func (c *TokenCodec) IsExpired(token string) bool {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !c.now().Before(claims.ExpiresAt.Time)
}

// Category returns the category claim of a correctly signed token.
func (c *TokenCodec) Category(token string) (domain.TokenCategory, error) {
	claims, err := c.project(token)
	return claims.Category, err
}

// AuthMethod returns the authMethod claim of a correctly signed token.
func (c *TokenCodec) AuthMethod(token string) (domain.AuthMethod, error) {
	claims, err := c.project(token)
	return claims.Method, err
}

// Subject returns the identity key carried by token.
func (c *TokenCodec) Subject(token string) (string, error) {
	claims, err := c.project(token)
	return claims.Subject, err
}

// Role returns the role claim carried by token.
func (c *TokenCodec) Role(token string) (string, error) {
	claims, err := c.project(token)
	return claims.Role, err
}

// project is Parse without the expiry verdict.
func (c *TokenCodec) project(token string) (domain.Claims, error) {
	claims, err := c.Parse(token)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return domain.Claims{}, err
	}
	return claims, nil
}
