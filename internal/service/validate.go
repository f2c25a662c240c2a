package service

import (
	"github.com/go-playground/validator/v10"

	"natours/api/internal/apperr"
)

const MinPasswordLength = 8

var validate = validator.New(validator.WithRequiredStructEnabled())

type passwordInput struct {
	Password string `validate:"required,min=8,max=256"`
}

type signupFields struct {
	Name     string `validate:"required,max=128"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=256"`
}

var fieldMessages = map[string]string{
	"Name":     "Please provide your name",
	"Email":    "Please provide a valid email",
	"Password": "Password must be at least 8 characters",
}

// validateStruct maps the first failing field to a caller-safe InvalidInput.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		if msg, ok := fieldMessages[fieldErrs[0].Field()]; ok {
			return apperr.Wrap(apperr.InvalidInput, msg, err)
		}
	}
	return apperr.Wrap(apperr.InvalidInput, "Invalid input data", err)
}

func validatePassword(password string) error {
	return validateStruct(passwordInput{Password: password})
}
