// Package validation builds the request validator and turns its failures
// into field-level messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the longest input bcrypt will hash.
	MaxPasswordBytes = 72
)

// Error carries one message per offending field, keyed by the JSON name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return e.Fields[names[0]]
}

func (e *Error) Is(target error) bool {
	return target == ErrValidation
}

func FieldError(field, message string) *Error {
	return &Error{Fields: map[string]string{field: message}}
}

func New() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	// Registration can only fail for an empty tag or nil func.
	_ = validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	return validate
}

// Struct validates payload and returns nil or an *Error.
func Struct(validate *validator.Validate, payload any) error {
	if validate == nil {
		return nil
	}
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	result := &Error{Fields: make(map[string]string, len(fieldErrors))}
	for _, fieldError := range fieldErrors {
		result.Fields[fieldError.Field()] = message(fieldError)
	}
	return result
}

// StrongPassword requires at least MinPasswordLength characters, at most
// MaxPasswordBytes bytes, an upper-case letter, a lower-case letter, a digit
// and a special character.
func StrongPassword(password string) bool {
	if len([]rune(password)) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func message(fieldError validator.FieldError) string {
	field := fieldError.Field()
	switch fieldError.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "alphanum":
		return fmt.Sprintf("%s must only contain alpha-numeric characters", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fieldError.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fieldError.Param())
	case "strongpassword":
		return fmt.Sprintf("%s must be %d to %d bytes long and contain upper-case, lower-case, digit and special characters", field, MinPasswordLength, MaxPasswordBytes)
	case "e164":
		return fmt.Sprintf("%s must be a phone number in international format", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
