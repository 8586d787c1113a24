// Package utils provides utility functions used throughout the application.
package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// videoIDRegex matches the URL-safe alphabet used by video identifiers
	videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	// channelURLRegex requires an absolute http(s) URL with a path
	channelURLRegex = regexp.MustCompile(`^https?://[^/\s]+/\S+$`)

	// Custom error messages for validation errors
	validationErrorMessages = map[string]string{
		"required":    "This field is required",
		"min":         "Value must be greater than or equal to %s",
		"max":         "Value must be less than or equal to %s",
		"url":         "Must be a valid URL",
		"oneof":       "Must be one of: %s",
		"video_id":    "Must contain only letters, numbers, underscores or hyphens",
		"channel_url": "Must be an absolute http(s) channel URL",
	}
)

func init() {
	validate = validator.New()

	// Report fields by their json/query names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "mapstructure"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = validate.RegisterValidation("video_id", validateVideoID)
	_ = validate.RegisterValidation("channel_url", validateChannelURL)
}

// Validate performs validation on the given struct and returns validation errors.
func Validate(s any) error {
	return validate.Struct(s)
}

// ValidateVar validates a single variable with the given tag and returns errors.
func ValidateVar(field any, tag string) error {
	return validate.Var(field, tag)
}

// FormatValidationErrors formats validation errors into a field to message map.
func FormatValidationErrors(err error) map[string]string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	out := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		message, ok := validationErrorMessages[fe.Tag()]
		if !ok {
			message = "Invalid value"
		}
		if param := fe.Param(); param != "" && strings.Contains(message, "%s") {
			message = strings.Replace(message, "%s", param, 1)
		}
		out[fe.Field()] = message
	}
	return out
}

// validateVideoID checks that a string looks like a video identifier.
func validateVideoID(fl validator.FieldLevel) bool {
	return videoIDRegex.MatchString(fl.Field().String())
}

// validateChannelURL checks that a string is an absolute channel URL.
func validateChannelURL(fl validator.FieldLevel) bool {
	return channelURLRegex.MatchString(fl.Field().String())
}
