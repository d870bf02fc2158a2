package security

import (
	"fmt"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError describes why a candidate password was rejected.
type PasswordValidationError struct {
	Reason string
}

func (e *PasswordValidationError) Error() string {
	return fmt.Sprintf("password validation failed: %s", e.Reason)
}

// PasswordRule checks a single property of a candidate password.
type PasswordRule interface {
	Validate(password string) error
}

type PasswordRuleFunc func(password string) error

func (f PasswordRuleFunc) Validate(password string) error { return f(password) }

// PasswordValidator runs an ordered list of rules, failing on the first
// violation.
type PasswordValidator struct {
	rules []PasswordRule
}

func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	return &PasswordValidator{rules: rules}
}

func (v *PasswordValidator) Validate(password string) error {
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPasswordValidator covers the registration requirements: minimum
// length, character class mixing, and an estimated strength floor.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(8),
		RequireCharacterClassesRule(true, true, true, false),
		RequirePasswordStrengthRule(2),
	)
}

func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len(password) < min {
			return &PasswordValidationError{Reason: fmt.Sprintf("must be at least %d characters", min)}
		}
		return nil
	})
}

func RequireCharacterClassesRule(upper, lower, digit, special bool) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		var hasUpper, hasLower, hasDigit, hasSpecial bool
		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				hasUpper = true
			case unicode.IsLower(r):
				hasLower = true
			case unicode.IsDigit(r):
				hasDigit = true
			case unicode.IsPunct(r) || unicode.IsSymbol(r):
				hasSpecial = true
			}
		}
		if upper && !hasUpper {
			return &PasswordValidationError{Reason: "must contain an uppercase letter"}
		}
		if lower && !hasLower {
			return &PasswordValidationError{Reason: "must contain a lowercase letter"}
		}
		if digit && !hasDigit {
			return &PasswordValidationError{Reason: "must contain a digit"}
		}
		if special && !hasSpecial {
			return &PasswordValidationError{Reason: "must contain a special character"}
		}
		return nil
	})
}

// RequirePasswordStrengthRule rejects passwords whose estimated zxcvbn score
// falls below minScore (0-4).
func RequirePasswordStrengthRule(minScore int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		result := zxcvbn.PasswordStrength(password, nil)
		if result.Score < minScore {
			return &PasswordValidationError{Reason: "too easy to guess"}
		}
		return nil
	})
}
