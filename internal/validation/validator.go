// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/basket/internal/recommend"
)

// MaxIDLength bounds user and product ids.
const MaxIDLength = 256

// CodeValidation is the API error code for rejected input.
const CodeValidation = "VALIDATION_ERROR"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one rejected field, named by its JSON key.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return e.Message
}

// RequestValidationError collects every field that failed.
type RequestValidationError struct {
	Fields []FieldError
}

// Errors returns the failed fields.
func (ve *RequestValidationError) Errors() []FieldError {
	return ve.Fields
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// APIError is the VALIDATION_ERROR body. It mirrors api.APIError, which
// cannot be imported from here.
type APIError struct {
	Code    string
	Message string
	Details map[string]any
}

// ToAPIError shapes the failure for the API envelope. One field reports
// field, tag and value; several are listed under "fields".
func (ve *RequestValidationError) ToAPIError() *APIError {
	switch len(ve.Fields) {
	case 0:
		return &APIError{Code: CodeValidation, Message: "Validation failed"}
	case 1:
		f := ve.Fields[0]
		return &APIError{
			Code:    CodeValidation,
			Message: f.Message,
			Details: map[string]any{"field": f.Field, "tag": f.Tag, "value": f.Value},
		}
	}

	fields := make([]map[string]any, len(ve.Fields))
	msgs := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		fields[i] = map[string]any{"field": f.Field, "tag": f.Tag, "message": f.Message}
		msgs[i] = f.Field + ": " + f.Message
	}
	return &APIError{
		Code:    CodeValidation,
		Message: strings.Join(msgs, "; "),
		Details: map[string]any{"fields": fields},
	}
}

// GetValidator returns the shared validator with the storefront tags
// registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		// Registration only fails for an empty tag or nil func.
		_ = validate.RegisterValidation("entity_id", validateEntityID)
		_ = validate.RegisterValidation("event_type", validateEventType)
	})
	return validate
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// ValidateStruct validates s and returns nil or the failed fields.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &RequestValidationError{Fields: make([]FieldError, len(fieldErrs))}
	for i, fe := range fieldErrs {
		out.Fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: message(fe),
		}
	}
	return out
}

// validateEntityID accepts a non-blank id of at most MaxIDLength bytes
// without surrounding whitespace or control characters.
func validateEntityID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" || len(id) > MaxIDLength || strings.TrimSpace(id) != id {
		return false
	}
	return strings.IndexFunc(id, unicode.IsControl) < 0
}

// validateEventType accepts any spelling recommend.ParseEventType resolves.
func validateEventType(fl validator.FieldLevel) bool {
	_, err := recommend.ParseEventType(fl.Field().String())
	return err == nil
}

func message(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "entity_id":
		return fmt.Sprintf("%s must be a non-blank id without control characters (max %d bytes)", field, MaxIDLength)
	case "event_type":
		return field + " must be one of: view, cart_add, purchase, remove"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
