package flows

import (
	"strings"

	"github.com/MrEthical07/glazeAuth/autherr"
	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the shortest password accepted locally.
const MinPasswordLength = 6

// CredentialValidator checks credential-login input before any network call.
type CredentialValidator struct {
	v *validator.Validate
}

// NewCredentialValidator builds a validator.
func NewCredentialValidator() *CredentialValidator {
	return &CredentialValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate returns a *autherr.ValidationError for the first invalid field, or
// nil. email is trimmed before checking.
func (c *CredentialValidator) Validate(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &autherr.ValidationError{Field: "email", Message: "please enter your email"}
	}
	if err := c.v.Var(email, "email"); err != nil {
		return &autherr.ValidationError{Field: "email", Message: "please enter a valid email address"}
	}
	if password == "" {
		return &autherr.ValidationError{Field: "password", Message: "please enter your password"}
	}
	if err := c.v.Var(password, "min=6"); err != nil {
		return &autherr.ValidationError{Field: "password", Message: "password must be at least 6 characters"}
	}
	return nil
}
