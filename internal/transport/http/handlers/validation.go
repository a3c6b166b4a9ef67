package handlers

import (
	"errors"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/StoryTeller-v2/back-end/internal/core/domain"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

var (
	identityKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,50}$`)
	registerOnce       sync.Once
	registerErr        error
)

// RegisterValidators adds the custom binding tags used by request models:
// identitykey for usernames and role for self-assignable roles.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin binding engine is not go-playground/validator")
			return
		}
		if err := v.RegisterValidation("identitykey", func(fl validator.FieldLevel) bool {
			return identityKeyPattern.MatchString(fl.Field().String())
		}); err != nil {
			registerErr = err
			return
		}
		registerErr = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return domain.SelfAssignableRole(fl.Field().String())
		})
	})
	return registerErr
}

// bindError classifies a binding failure. Field rule violations are invalid
// input; anything else means the body could not be read.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return usecase.ErrInvalidInput
	}
	return usecase.ErrRequestParsing
}
