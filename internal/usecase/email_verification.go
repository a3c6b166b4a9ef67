package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/logger"
	"github.com/StoryTeller-v2/back-end/internal/infra/security"
	"github.com/StoryTeller-v2/back-end/internal/repository"
)

// EmailVerificationService issues and checks emailed sign-up codes.
type EmailVerificationService struct {
	locals  port.LocalUserRepository
	socials port.SocialUserRepository
	codes   port.VerificationCodeStore
	mailer  port.Mailer
	ttl     time.Duration
	logger  *zap.Logger
	newCode func() (string, error)
}

func NewEmailVerificationService(
	locals port.LocalUserRepository,
	socials port.SocialUserRepository,
	codes port.VerificationCodeStore,
	mailer port.Mailer,
	ttl time.Duration,
	log *zap.Logger,
) *EmailVerificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailVerificationService{
		locals:  locals,
		socials: socials,
		codes:   codes,
		mailer:  mailer,
		ttl:     ttl,
		logger:  log,
		newCode: func() (string, error) {
			return security.GenerateNumericCode(security.VerificationCodeLength)
		},
	}
}

var emailValidator = validator.New(validator.WithRequiredStructEnabled())

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := emailValidator.Var(email, "required,email,max=254"); err != nil {
		return "", ErrInvalidInput
	}
	return email, nil
}

// SendCode mails a fresh code to an email no account uses yet. A new
// request replaces any outstanding code.
func (s *EmailVerificationService) SendCode(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if err := checkEmailUnused(ctx, s.locals, s.socials, email); err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}

	if err := s.codes.Save(ctx, email, code, s.ttl); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}

	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		_ = s.codes.Delete(ctx, email)
		return fmt.Errorf("send verification code: %w", err)
	}

	s.logger.Info("verification code sent",
		zap.String("request_id", logger.RequestID(ctx)),
		zap.String("email", logger.MaskEmail(email)),
	)
	return nil
}

// VerifyCode reports whether code matches the outstanding code for email.
// A matching code is consumed.
func (s *EmailVerificationService) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}
	if err := checkEmailUnused(ctx, s.locals, s.socials, email); err != nil {
		return false, err
	}

	stored, err := s.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load verification code: %w", err)
	}

	if code == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}

	if err := s.codes.Delete(ctx, email); err != nil {
		s.logger.Warn("consume verification code failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	}
	return true, nil
}
