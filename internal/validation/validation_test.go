package validation_test

import (
	"strings"
	"testing"

	"go.uber.org/multierr"

	"github.com/arthur-debert/nanorest/internal/validation"
	"github.com/arthur-debert/nanorest/types"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		schema   types.Schema
		wantErrs int
	}{
		{
			name:     "valid schema",
			resource: "user",
			schema: types.Schema{
				Route:      "/users",
				IDProperty: "id",
				Properties: map[string]types.Property{
					"id":        {Sync: types.SyncNever},
					"firstName": {},
					"managerId": {Sync: types.SyncCreate},
				},
				Relations: map[string]types.Relation{
					"manager": {Resource: "user", Property: "managerId"},
				},
			},
		},
		{
			name:     "absolute route is accepted",
			resource: "user",
			schema:   types.Schema{Route: "https://api.example.com/users", IDProperty: "id"},
		},
		{
			name:     "empty resource name",
			resource: " ",
			schema:   types.Schema{IDProperty: "id"},
			wantErrs: 1,
		},
		{
			name:     "missing id property and relative route",
			resource: "user",
			schema:   types.Schema{Route: "users"},
			wantErrs: 2,
		},
		{
			name:     "every bad property is reported",
			resource: "user",
			schema: types.Schema{
				IDProperty: "id",
				Properties: map[string]types.Property{
					"mngr":  {},
					"email": {Sync: "sometimes"},
					"age":   {Validation: map[string]types.ValidationRule{"": {}}},
				},
			},
			wantErrs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.resource, tt.schema)
			got := len(multierr.Errors(err))
			if got != tt.wantErrs {
				t.Errorf("Validate() returned %d errors, want %d: %v", got, tt.wantErrs, err)
			}
		})
	}
}

func TestValidateSimpleType(t *testing.T) {
	id := 7
	var nilPtr *int

	tests := []struct {
		name    string
		value   interface{}
		wantErr string
	}{
		{"nil", nil, ""},
		{"string", "abc", ""},
		{"float", 12.5, ""},
		{"int pointer", &id, ""},
		{"nil pointer", nilPtr, ""},
		{"slice", []int{1}, "array/slice"},
		{"map", map[string]int{}, "map type"},
		{"struct", struct{}{}, "simple type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateSimpleType(tt.value, "id")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
