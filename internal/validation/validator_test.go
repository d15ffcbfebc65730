// Basket - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basket

package validation

import (
	"strings"
	"testing"
)

// ===================================================================================================
// Singleton Validator Tests
// ===================================================================================================

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

// ===================================================================================================
// ValidateStruct Tests
// ===================================================================================================

type eventInput struct {
	UserID    string   `json:"user_id" validate:"entity_id"`
	ProductID string   `json:"product_id" validate:"entity_id"`
	Type      string   `json:"type" validate:"event_type"`
	Source    string   `json:"source" validate:"omitempty,max=64"`
	Weight    *float64 `json:"weight,omitempty" validate:"omitempty,gte=-100,lte=100"`
}

type queryInput struct {
	UserID string `json:"user_id" validate:"entity_id"`
	K      int    `json:"k" validate:"min=0,max=1000"`
	Wait   string `json:"wait" validate:"omitempty,oneof=true false"`
}

func validEvent() eventInput {
	return eventInput{UserID: "u1", ProductID: "p1", Type: "view"}
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	w := 2.5
	tests := []struct {
		name  string
		input eventInput
	}{
		{name: "minimal event", input: validEvent()},
		{name: "alias type", input: eventInput{UserID: "u1", ProductID: "p1", Type: "Add-To-Cart"}},
		{name: "explicit weight", input: eventInput{UserID: "u1", ProductID: "p1", Type: "purchase", Weight: &w}},
		{name: "unicode ids", input: eventInput{UserID: "käufer-7", ProductID: "artikel/42", Type: "remove"}},
		{name: "max length id", input: eventInput{UserID: strings.Repeat("u", MaxIDLength), ProductID: "p1", Type: "view"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := ValidateStruct(&tt.input); err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	t.Parallel()

	heavy := 1000.0
	tests := []struct {
		name      string
		mutate    func(e *eventInput)
		wantField string
		wantTag   string
	}{
		{"empty user", func(e *eventInput) { e.UserID = "" }, "user_id", "entity_id"},
		{"blank product", func(e *eventInput) { e.ProductID = "   " }, "product_id", "entity_id"},
		{"padded id", func(e *eventInput) { e.UserID = " u1" }, "user_id", "entity_id"},
		{"control character", func(e *eventInput) { e.ProductID = "p\x001" }, "product_id", "entity_id"},
		{"id too long", func(e *eventInput) { e.UserID = strings.Repeat("u", MaxIDLength+1) }, "user_id", "entity_id"},
		{"unknown type", func(e *eventInput) { e.Type = "wishlist" }, "type", "event_type"},
		{"empty type", func(e *eventInput) { e.Type = "" }, "type", "event_type"},
		{"source too long", func(e *eventInput) { e.Source = strings.Repeat("s", 65) }, "source", "max"},
		{"weight out of range", func(e *eventInput) { e.Weight = &heavy }, "weight", "lte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			input := validEvent()
			tt.mutate(&input)

			err := ValidateStruct(&input)
			if err == nil {
				t.Fatal("ValidateStruct() should have returned an error")
			}

			found := false
			for _, e := range err.Errors() {
				if e.Field == tt.wantField && e.Tag == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected error on field %s with tag %s, got: %v", tt.wantField, tt.wantTag, err)
			}
		})
	}
}

func TestValidateStruct_QueryBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   queryInput
		wantErr bool
	}{
		{"zero k uses default", queryInput{UserID: "u1", K: 0}, false},
		{"upper bound", queryInput{UserID: "u1", K: 1000}, false},
		{"negative k", queryInput{UserID: "u1", K: -1}, true},
		{"k too large", queryInput{UserID: "u1", K: 1001}, true},
		{"wait true", queryInput{UserID: "u1", Wait: "true"}, false},
		{"wait garbage", queryInput{UserID: "u1", Wait: "soon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(&tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// ===================================================================================================
// ToAPIError Tests
// ===================================================================================================

func TestToAPIError_SingleError(t *testing.T) {
	t.Parallel()

	input := validEvent()
	input.Type = "wishlist"

	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %s, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "type must be one of") {
		t.Errorf("Message = %q, want event type hint", apiErr.Message)
	}
	if apiErr.Details["field"] != "type" {
		t.Errorf("Details[field] = %v, want type", apiErr.Details["field"])
	}
	if apiErr.Details["value"] != "wishlist" {
		t.Errorf("Details[value] = %v, want wishlist", apiErr.Details["value"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	t.Parallel()

	input := eventInput{Type: "nope"}

	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := len(err.Errors()); got != 3 {
		t.Fatalf("len(Errors()) = %d, want 3", got)
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %s, want VALIDATION_ERROR", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has type %T", apiErr.Details["fields"])
	}
	if len(fields) != 3 {
		t.Errorf("len(fields) = %d, want 3", len(fields))
	}
	if strings.Count(apiErr.Message, "; ") != 2 {
		t.Errorf("Message = %q, want three joined messages", apiErr.Message)
	}
}

func TestToAPIError_Empty(t *testing.T) {
	t.Parallel()

	apiErr := (&RequestValidationError{}).ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Message != "Validation failed" {
		t.Errorf("unexpected empty APIError: %+v", apiErr)
	}
	if got := (&RequestValidationError{}).Error(); got != "validation failed" {
		t.Errorf("Error() = %q", got)
	}
}

// ===================================================================================================
// Error Message Tests
// ===================================================================================================

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{"entity id", &eventInput{ProductID: "p1", Type: "view"}, "user_id must be a non-blank id"},
		{"string max", &eventInput{UserID: "u", ProductID: "p", Type: "view", Source: strings.Repeat("x", 70)}, "source must be at most 64 characters"},
		{"numeric max", &queryInput{UserID: "u", K: 5000}, "k must be at most 1000"},
		{"numeric min", &queryInput{UserID: "u", K: -5}, "k must be at least 0"},
		{"oneof", &queryInput{UserID: "u", Wait: "x"}, "wait must be one of: true false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Error() = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}
