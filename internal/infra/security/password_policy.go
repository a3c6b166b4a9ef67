package security

import (
	"errors"
	"strings"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// ErrWeakPassword is returned when a password fails the strength policy.
var ErrWeakPassword = errors.New("password does not meet the strength policy")

// StrengthPolicy rejects short passwords and passwords whose zxcvbn score
// falls below MinScore. User inputs such as the username and email are fed
// to zxcvbn so passwords derived from them score lower.
type StrengthPolicy struct {
	MinLength int
	MinScore  int
}

// DefaultStrengthPolicy is applied at registration.
func DefaultStrengthPolicy() StrengthPolicy {
	return StrengthPolicy{MinLength: 8, MinScore: 2}
}

// Validate implements port.PasswordPolicy.
func (p StrengthPolicy) Validate(password string, userInputs ...string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return ErrWeakPassword
	}
	if strings.TrimSpace(password) == "" {
		return ErrWeakPassword
	}

	minScore := p.MinScore
	if minScore > 4 {
		minScore = 4
	}
	if minScore <= 0 {
		return nil
	}

	inputs := make([]string, 0, len(userInputs))
	for _, in := range userInputs {
		if in = strings.TrimSpace(in); in != "" {
			inputs = append(inputs, in)
		}
	}

	if zxcvbn.PasswordStrength(password, inputs).Score < minScore {
		return ErrWeakPassword
	}
	return nil
}
