// Package utils holds request validation helpers shared by the HTTP and CLI surfaces.
package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/turtacn/pdmews/pkg/errors"
)

var defaultValidator *validator.Validate

var (
	matchFirstCap = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap   = regexp.MustCompile("([a-z0-9])([A-Z])")

	// phonePattern accepts digits with an optional leading plus, dashes and spaces.
	phonePattern = regexp.MustCompile(`^[+]?[0-9\- ]+$`)
)

func init() {
	defaultValidator = validator.New()
	_ = defaultValidator.RegisterValidation("uuid", validateUUID)
	_ = defaultValidator.RegisterValidation("calendar_date", validateCalendarDate)
}

// ValidateStruct validates s and returns an invalid_request error listing every failing field.
func ValidateStruct(s interface{}) errors.AppError {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ErrInvalidRequest(err.Error())
	}

	appErr := errors.ErrInvalidRequest("validation failed")
	for _, fe := range validationErrors {
		appErr = appErr.WithMetadata(toSnakeCase(fe.Field()), formatValidationError(fe))
	}
	return appErr
}

// ParseUUID parses s, returning an invalid_request error naming field on failure.
func ParseUUID(field, s string) (uuid.UUID, errors.AppError) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidRequest(fmt.Sprintf("%s must be a valid UUID", field)).WithCause(err)
	}
	return id, nil
}

// IsEmailLike reports whether s looks like an email address for breach lookup purposes.
func IsEmailLike(s string) bool {
	return strings.Contains(s, "@")
}

// IsPhoneLike reports whether s looks like a phone number.
func IsPhoneLike(s string) bool {
	return phonePattern.MatchString(s)
}

func validateUUID(fl validator.FieldLevel) bool {
	_, err := uuid.Parse(fl.Field().String())
	return err == nil
}

// validateCalendarDate accepts YYYY-MM-DD.
func validateCalendarDate(fl validator.FieldLevel) bool {
	_, err := ParseCalendarDate(fl.Field().String())
	return err == nil
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid UUID"
	case "calendar_date":
		return "must be a date formatted as YYYY-MM-DD"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

// toSnakeCase converts a string from CamelCase to snake_case.
func toSnakeCase(str string) string {
	snake := matchFirstCap.ReplaceAllString(str, "${1}_${2}")
	snake = matchAllCap.ReplaceAllString(snake, "${1}_${2}")
	return strings.ToLower(snake)
}
