package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/arthur-debert/nanorest/types"
)

// Validate checks a resolved schema for consistency.
// Every problem found is reported; the returned error combines them.
func Validate(name string, s types.Schema) error {
	var errs error

	if strings.TrimSpace(name) == "" {
		errs = multierr.Append(errs, fmt.Errorf("resource name cannot be empty"))
	}
	if s.IDProperty == "" {
		errs = multierr.Append(errs, fmt.Errorf("resource %s: idProperty cannot be empty", name))
	}
	if s.Route != "" && !strings.HasPrefix(s.Route, "/") && !IsAbsoluteURL(s.Route) {
		errs = multierr.Append(errs, fmt.Errorf("resource %s: route %q must start with '/'", name, s.Route))
	}

	for _, prop := range sortedKeys(s.Properties) {
		errs = multierr.Append(errs, validateProperty(name, prop, s.Properties[prop]))
	}

	for _, rel := range sortedKeys(s.Relations) {
		if rel == "" {
			errs = multierr.Append(errs, fmt.Errorf("resource %s: relation name cannot be empty", name))
		}
		if p := s.Relations[rel].Property; p != "" && IsReservedName(p) {
			errs = multierr.Append(errs, fmt.Errorf("resource %s: relation %s: property '%s' is reserved", name, rel, p))
		}
	}

	return errs
}

// validateProperty validates a single property descriptor
func validateProperty(resource, name string, p types.Property) error {
	var errs error
	if name == "" {
		errs = multierr.Append(errs, fmt.Errorf("resource %s: property name cannot be empty", resource))
	}
	if IsReservedName(name) {
		errs = multierr.Append(errs, fmt.Errorf("resource %s: property '%s' is reserved", resource, name))
	}
	if !p.Sync.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("resource %s: property %s: invalid sync rule %q", resource, name, string(p.Sync)))
	}
	for rule := range p.Validation {
		if rule == "" {
			errs = multierr.Append(errs, fmt.Errorf("resource %s: property %s: validation rule name cannot be empty", resource, name))
		}
	}
	return errs
}

// IsReservedName checks if a property name collides with model bookkeeping
func IsReservedName(name string) bool {
	reserved := []string{"mngr", "$$hashKey"}
	for _, r := range reserved {
		if name == r {
			return true
		}
	}
	return false
}

// IsAbsoluteURL reports whether route already carries a scheme
func IsAbsoluteURL(route string) bool {
	return strings.HasPrefix(route, "http://") || strings.HasPrefix(route, "https://")
}

// ValidateSimpleType ensures an identifier value is a simple type (string, number, bool)
func ValidateSimpleType(value interface{}, propertyName string) error {
	if value == nil {
		return nil
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Slice, reflect.Array:
		return fmt.Errorf("property '%s' cannot be an array/slice type, got %T", propertyName, value)
	case reflect.Map:
		return fmt.Errorf("property '%s' cannot be a map type, got %T", propertyName, value)
	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		return ValidateSimpleType(v.Elem().Interface(), propertyName)
	default:
		return fmt.Errorf("property '%s' must be a simple type (string, number, or bool), got %T", propertyName, value)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
