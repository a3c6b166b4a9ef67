package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/logger"
	"github.com/StoryTeller-v2/back-end/internal/infra/security"
	"github.com/StoryTeller-v2/back-end/internal/repository"
)

var tracer = otel.Tracer("github.com/StoryTeller-v2/back-end/internal/usecase")

const (
	opLogin       = "login"
	opSocialLogin = "social_login"
	opLogout      = "logout"
	opReissue     = "reissue"
	opRegister    = "register"
)

// IdentityAssertion is the identity a caller claims in a logout or reissue
// body. Local callers send Username, social callers send AccountID.
type IdentityAssertion struct {
	Username  string
	AccountID string
}

func (a IdentityAssertion) keyFor(method domain.AuthMethod) string {
	switch method {
	case domain.AuthMethodLocal:
		return strings.TrimSpace(a.Username)
	case domain.AuthMethodSocial:
		return strings.TrimSpace(a.AccountID)
	}
	return ""
}

func (a IdentityAssertion) empty() bool {
	return strings.TrimSpace(a.Username) == "" && strings.TrimSpace(a.AccountID) == ""
}

// LoginResult is returned by every flow that issues a token pair.
type LoginResult struct {
	Tokens   domain.TokenPair
	Identity domain.Identity
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Credentials *CredentialVerifier
	LocalUsers  port.LocalUserRepository
	SocialUsers port.SocialUserRepository
	Social      port.SocialIdentityVerifier
	Sessions    port.SessionStore
	Codec       port.TokenCodec
	Events      port.EventPublisher
	Metrics     port.OperationMetrics
	Logger      *zap.Logger
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

// AuthService coordinates login, logout and refresh-token rotation.
type AuthService struct {
	credentials *CredentialVerifier
	locals      port.LocalUserRepository
	socials     port.SocialUserRepository
	social      port.SocialIdentityVerifier
	sessions    port.SessionStore
	codec       port.TokenCodec
	events      port.EventPublisher
	metrics     port.OperationMetrics
	logger      *zap.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
}

// NewAuthService validates deps and constructs the service.
func NewAuthService(deps AuthDependencies) (*AuthService, error) {
	switch {
	case deps.Credentials == nil:
		return nil, errors.New("credential verifier is required")
	case deps.LocalUsers == nil || deps.SocialUsers == nil:
		return nil, errors.New("user repositories are required")
	case deps.Sessions == nil:
		return nil, errors.New("session store is required")
	case deps.Codec == nil:
		return nil, errors.New("token codec is required")
	case deps.AccessTTL <= 0 || deps.RefreshTTL <= 0:
		return nil, errors.New("token lifetimes must be positive")
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthService{
		credentials: deps.Credentials,
		locals:      deps.LocalUsers,
		socials:     deps.SocialUsers,
		social:      deps.Social,
		sessions:    deps.Sessions,
		codec:       deps.Codec,
		events:      deps.Events,
		metrics:     deps.Metrics,
		logger:      log,
		accessTTL:   deps.AccessTTL,
		refreshTTL:  deps.RefreshTTL,
		now:         time.Now,
	}, nil
}

// WithClock overrides the clock used for event timestamps.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login verifies local credentials and opens a session, replacing any
// session the account already had.
func (s *AuthService) Login(ctx context.Context, username, password string) (result *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { s.finish(span, opLogin, err) }()

	user, err := s.credentials.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	identity := domain.LocalIdentity(user)
	tokens, err := s.openSession(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventUserLoggedIn, identity, "", nil)
	return &LoginResult{Tokens: tokens, Identity: identity}, nil
}

// SocialLogin verifies a provider credential, upserts the social account and
// opens a session for it.
func (s *AuthService) SocialLogin(ctx context.Context, provider, credential, role string) (result *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.SocialLogin",
		trace.WithAttributes(attribute.String("auth.provider", provider)))
	defer func() { s.finish(span, opSocialLogin, err) }()

	if s.social == nil {
		return nil, fmt.Errorf("social login is not configured")
	}
	if strings.TrimSpace(credential) == "" {
		return nil, ErrInvalidIdentityToken
	}
	if !domain.SelfAssignableRole(role) {
		return nil, ErrInvalidInput
	}
	if role == "" {
		role = domain.DefaultRole
	}

	profile, err := s.social.Verify(ctx, provider, credential)
	switch {
	case errors.Is(err, port.ErrInvalidIdentityToken):
		return nil, ErrInvalidIdentityToken
	case errors.Is(err, port.ErrUnsupportedProvider):
		return nil, ErrRequestParsing
	case err != nil:
		return nil, fmt.Errorf("verify %s credential: %w", provider, err)
	}

	existed, err := s.socials.ExistsByAccountID(ctx, profile.AccountID)
	if err != nil {
		return nil, fmt.Errorf("lookup social user: %w", err)
	}

	now := s.now().UTC()
	user, err := s.socials.Upsert(ctx, domain.SocialUser{
		ID:        uuid.NewString(),
		AccountID: profile.AccountID,
		Provider:  profile.Provider,
		Nickname:  profile.Nickname,
		Email:     profile.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert social user: %w", err)
	}

	identity := domain.SocialIdentity(user)
	tokens, err := s.openSession(ctx, identity)
	if err != nil {
		return nil, err
	}

	if !existed {
		s.publish(ctx, domain.EventSocialUserLinked, identity, profile.Provider, nil)
	}
	s.publish(ctx, domain.EventUserLoggedIn, identity, profile.Provider, nil)
	return &LoginResult{Tokens: tokens, Identity: identity}, nil
}

// openSession issues a token pair and overwrites the identity's session
// with the new refresh token. Prior sessions are not read.
func (s *AuthService) openSession(ctx context.Context, identity domain.Identity) (domain.TokenPair, error) {
	tokens, err := s.codec.IssuePair(identity.Method, identity.Key(), identity.Role(), s.accessTTL, s.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if err := s.sessions.Put(ctx, identity.Key(), tokens.RefreshToken, s.refreshTTL); err != nil {
		return domain.TokenPair{}, fmt.Errorf("store session: %w", err)
	}
	return tokens, nil
}

// refreshClaims validates a presented refresh token up to, but not
// including, any session lookup.
func (s *AuthService) refreshClaims(token string) (domain.Claims, error) {
	if token == "" {
		return domain.Claims{}, ErrTokenMissing
	}

	claims, err := s.codec.Parse(token)
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return domain.Claims{}, ErrTokenExpired
	case err != nil:
		return domain.Claims{}, ErrInvalidRefreshToken
	}

	if claims.Category != domain.TokenCategoryRefresh {
		return domain.Claims{}, ErrInvalidRefreshToken
	}
	if !claims.Method.Valid() {
		return domain.Claims{}, ErrRequestParsing
	}
	return claims, nil
}

// Logout deletes the session of the asserted identity. The stored refresh
// token must be the one presented.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, assertion IdentityAssertion) (err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Logout")
	defer func() { s.finish(span, opLogout, err) }()

	claims, err := s.refreshClaims(refreshToken)
	if err != nil {
		return err
	}

	key := assertion.keyFor(claims.Method)
	if key == "" {
		return ErrRequestParsing
	}

	identity, err := s.lookupIdentity(ctx, claims.Method, key)
	if err != nil {
		return err
	}

	if err := s.matchSession(ctx, key, refreshToken); err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.publish(ctx, domain.EventUserLoggedOut, identity, providerOf(identity), nil)
	return nil
}

func (s *AuthService) matchSession(ctx context.Context, key, token string) error {
	stored, err := s.sessions.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidRefreshToken
		}
		return fmt.Errorf("load session: %w", err)
	}
	if stored != token {
		return ErrInvalidRefreshToken
	}
	return nil
}

// Reissue rotates the session of the asserted identity: a new token pair is
// issued from the refresh token's claims and atomically replaces the stored
// refresh token, provided the stored value is still the presented one.
func (s *AuthService) Reissue(ctx context.Context, refreshToken string, assertion IdentityAssertion) (result *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Reissue")
	defer func() { s.finish(span, opReissue, err) }()

	claims, err := s.refreshClaims(refreshToken)
	if err != nil {
		return nil, err
	}

	if assertion.empty() {
		return nil, ErrRequestParsing
	}
	key := assertion.keyFor(claims.Method)
	if key == "" {
		return nil, ErrRequestParsing
	}
	if key != claims.Subject {
		return nil, ErrInvalidRefreshToken
	}

	identity, err := s.lookupIdentity(ctx, claims.Method, key)
	if err != nil {
		return nil, err
	}

	tokens, err := s.codec.IssuePair(claims.Method, claims.Subject, claims.Role, s.accessTTL, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	rotated, err := s.sessions.Rotate(ctx, key, refreshToken, tokens.RefreshToken, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	if !rotated {
		return nil, ErrInvalidRefreshToken
	}

	s.publish(ctx, domain.EventTokenReissued, identity, providerOf(identity), nil)
	return &LoginResult{Tokens: tokens, Identity: identity}, nil
}

func (s *AuthService) lookupIdentity(ctx context.Context, method domain.AuthMethod, key string) (domain.Identity, error) {
	switch method {
	case domain.AuthMethodLocal:
		user, err := s.locals.GetByUsername(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Identity{}, ErrUserNotFound
			}
			return domain.Identity{}, fmt.Errorf("lookup local user: %w", err)
		}
		sanitized := *user
		sanitized.PasswordHash = ""
		return domain.LocalIdentity(&sanitized), nil
	case domain.AuthMethodSocial:
		user, err := s.socials.GetByAccountID(ctx, key)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Identity{}, ErrUserNotFound
			}
			return domain.Identity{}, fmt.Errorf("lookup social user: %w", err)
		}
		return domain.SocialIdentity(user), nil
	default:
		return domain.Identity{}, ErrRequestParsing
	}
}

func providerOf(identity domain.Identity) string {
	if identity.Social != nil {
		return identity.Social.Provider
	}
	return ""
}

// publish never fails the calling operation.
func (s *AuthService) publish(ctx context.Context, eventType domain.AuthEventType, identity domain.Identity, provider string, metadata map[string]any) {
	if s.events == nil {
		return
	}
	event := domain.AuthEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		Method:      identity.Method,
		IdentityKey: identity.Key(),
		Provider:    provider,
		OccurredAt:  s.now().UTC(),
		Metadata:    metadata,
	}
	if err := s.events.PublishAuthEvent(ctx, event); err != nil {
		s.logger.Warn("publish auth event failed",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("event_type", string(eventType)),
			zap.String("identity", logger.MaskIdentity(event.IdentityKey)),
			zap.Error(err),
		)
	}
}

func (s *AuthService) finish(span trace.Span, operation string, err error) {
	recordOutcome(span, s.metrics, operation, err)
}

func recordOutcome(span trace.Span, metrics port.OperationMetrics, operation string, err error) {
	result := outcome(err)
	if metrics != nil {
		metrics.RecordAuthOperation(operation, result)
	}
	span.SetAttributes(attribute.String("auth.result", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	span.End()
}

// outcome maps an error to a low-cardinality metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTokenMissing):
		return "token_missing"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrInvalidRefreshToken):
		return "invalid_refresh_token"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidIdentityToken):
		return "invalid_id_token"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrRequestParsing), errors.Is(err, ErrInvalidInput):
		return "bad_request"
	case errors.Is(err, ErrDuplicateUsername), errors.Is(err, ErrDuplicateEmail):
		return "conflict"
	case errors.Is(err, ErrWeakPassword):
		return "weak_password"
	default:
		return "error"
	}
}
