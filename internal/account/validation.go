// ABOUTME: Request payloads and ozzo validation rules for account operations
// ABOUTME: Enforces non-blank name, non-negative age, and a well-formed email

package account

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Request is the payload for creating or replacing an account.
// Age is a pointer so that an omitted age is distinguishable from zero.
type Request struct {
	Name  string `json:"name"`
	Age   *int   `json:"age"`
	Email string `json:"email"`
}

// Validate checks the payload. The returned error is a validation.Errors
// keyed by JSON field name.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name,
			validation.Required.Error("Name is mandatory"),
			validation.By(notBlank("Name is mandatory")),
		),
		validation.Field(&r.Age,
			validation.NotNil.Error("Age is mandatory"),
			validation.Min(0).Error("Age must be a positive number"),
		),
		validation.Field(&r.Email,
			validation.Required.Error("Email is mandatory"),
			validation.By(notBlank("Email is mandatory")),
			is.Email.Error("Email should be valid"),
		),
	)
}

// LoginRequest is the payload for email login.
type LoginRequest struct {
	Email string `json:"email"`
}

// Validate checks the login payload.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email,
			validation.Required.Error("Email is mandatory for authentication"),
			validation.By(notBlank("Email is mandatory for authentication")),
			is.Email.Error("Email should be valid"),
		),
	)
}

// notBlank rejects strings made only of whitespace, which Required accepts.
func notBlank(message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != "" && strings.TrimSpace(s) == "" {
			return errors.New(message)
		}
		return nil
	}
}
