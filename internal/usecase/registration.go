package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/logger"
	"github.com/StoryTeller-v2/back-end/internal/repository"
)

// RegisterInput carries the fields of a local sign-up.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Role     string
}

// RegistrationService handles local account sign-up.
type RegistrationService struct {
	locals  port.LocalUserRepository
	socials port.SocialUserRepository
	hasher  port.PasswordHasher
	policy  port.PasswordPolicy
	events  port.EventPublisher
	metrics port.OperationMetrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRegistrationService constructs a registration service. events, metrics
// and log may be nil.
func NewRegistrationService(
	locals port.LocalUserRepository,
	socials port.SocialUserRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicy,
	events port.EventPublisher,
	metrics port.OperationMetrics,
	log *zap.Logger,
) *RegistrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		locals:  locals,
		socials: socials,
		hasher:  hasher,
		policy:  policy,
		events:  events,
		metrics: metrics,
		logger:  log,
		now:     time.Now,
	}
}

// WithClock overrides the clock used for timestamps.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Register creates a local account. Usernames are unique among local
// accounts; emails are unique across local and social accounts.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (user *domain.LocalUser, err error) {
	ctx, span := tracer.Start(ctx, "RegistrationService.Register")
	defer func() { recordOutcome(span, s.metrics, opRegister, err) }()

	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}
	if !domain.SelfAssignableRole(in.Role) {
		return nil, ErrInvalidInput
	}
	role := in.Role
	if role == "" {
		role = domain.DefaultRole
	}

	taken, err := s.locals.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrDuplicateUsername
	}

	if err := checkEmailUnused(ctx, s.locals, s.socials, email); err != nil {
		return nil, err
	}

	if s.policy != nil {
		if err := s.policy.Validate(in.Password, username, email); err != nil {
			return nil, ErrWeakPassword
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	created := domain.LocalUser{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.locals.Create(ctx, created); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	created.PasswordHash = ""

	if s.events != nil {
		event := domain.AuthEvent{
			EventID:     uuid.NewString(),
			Type:        domain.EventUserRegistered,
			Method:      domain.AuthMethodLocal,
			IdentityKey: created.Username,
			OccurredAt:  now,
		}
		if err := s.events.PublishAuthEvent(ctx, event); err != nil {
			s.logger.Warn("publish auth event failed",
				zap.String("request_id", logger.RequestID(ctx)),
				zap.String("event_type", string(event.Type)),
				zap.Error(err),
			)
		}
	}

	return &created, nil
}

// UsernameAvailable reports whether username is free for a new local account.
func (s *RegistrationService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, ErrInvalidInput
	}
	taken, err := s.locals.ExistsByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return !taken, nil
}

func checkEmailUnused(ctx context.Context, locals port.LocalUserRepository, socials port.SocialUserRepository, email string) error {
	used, err := locals.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check local email: %w", err)
	}
	if used {
		return ErrDuplicateEmail
	}
	used, err = socials.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check social email: %w", err)
	}
	if used {
		return ErrDuplicateEmail
	}
	return nil
}
