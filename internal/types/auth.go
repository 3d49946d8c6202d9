package types

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Credentials is the login request.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration creates a new account.
type Registration struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// ProfileUpdate changes the current user's name and email.
type ProfileUpdate struct {
	Name  string `json:"name" validate:"required,min=1"`
	Email string `json:"email" validate:"required,email"`
}

// AuthToken is returned by the authenticate endpoint.
type AuthToken struct {
	JWT string `json:"jwt"`
}

// User is the account profile.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate validates the Credentials using the validator.
func (c *Credentials) Validate() error {
	return validate.Struct(c)
}

// Validate validates the Registration using the validator.
func (r *Registration) Validate() error {
	return validate.Struct(r)
}

// Validate validates the ProfileUpdate using the validator.
func (p *ProfileUpdate) Validate() error {
	return validate.Struct(p)
}

// ValidateStruct runs struct-tag validation on any request body.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}
