// Package validation runs the validation rules declared on schema
// properties.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/arthur-debert/nanorest/types"
)

var (
	// ErrUnknownRule is reported when a property names a rule that is not registered
	ErrUnknownRule = errors.New("unknown validation rule")

	emailValidate = validator.New()
)

// Errors maps property names to failed rule names to messages.
// An empty Errors means everything passed.
type Errors map[string]map[string]string

// Valid reports whether no rule failed
func (e Errors) Valid() bool {
	return len(e) == 0
}

func (e Errors) Error() string {
	props := make([]string, 0, len(e))
	for p := range e {
		props = append(props, p)
	}
	sort.Strings(props)

	var parts []string
	for _, p := range props {
		rules := make([]string, 0, len(e[p]))
		for r := range e[p] {
			rules = append(rules, r)
		}
		sort.Strings(rules)
		for _, r := range rules {
			parts = append(parts, fmt.Sprintf("%s %s", p, e[p][r]))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Registry maps rule names to validator functions
type Registry struct {
	mu    sync.RWMutex
	rules map[string]types.ValidatorFunc
}

// NewRegistry returns a registry holding the built-in rules:
// required, email, minValue, maxValue and rangeValue.
func NewRegistry() *Registry {
	return &Registry{
		rules: map[string]types.ValidatorFunc{
			"required":   Required,
			"email":      Email,
			"minValue":   MinValue,
			"maxValue":   MaxValue,
			"rangeValue": RangeValue,
		},
	}
}

// Register adds or replaces a named rule
func (r *Registry) Register(name string, fn types.ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[name] = fn
}

// Lookup returns the rule registered under name
func (r *Registry) Lookup(name string) (types.ValidatorFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.rules[name]
	return fn, ok
}

// Check runs every rule in rules against value and returns the messages of
// the rules that failed, keyed by rule name. A rule with its own Validator
// uses it; any other rule is looked up by name.
func (r *Registry) Check(value any, rules map[string]types.ValidationRule) map[string]string {
	var failed map[string]string
	for name, rule := range rules {
		fn := rule.Validator
		if fn == nil {
			var ok bool
			if fn, ok = r.Lookup(name); !ok {
				fn = unknownRule
			}
		}
		if err := fn(value, rule.Context); err != nil {
			if failed == nil {
				failed = make(map[string]string)
			}
			failed[name] = err.Error()
		}
	}
	return failed
}

func unknownRule(any, map[string]any) error {
	return ErrUnknownRule
}

// Required fails on nil and on empty strings
func Required(value any, _ map[string]any) error {
	if isEmpty(value) {
		return errors.New(requiredMessage())
	}
	return nil
}

// Email fails unless value is a string holding an email address
func Email(value any, _ map[string]any) error {
	s, ok := value.(string)
	if !ok || emailValidate.Var(s, "required,email") != nil {
		return errors.New(emailMessage())
	}
	return nil
}

// MinValue fails unless value is a number at least context["min"]
func MinValue(value any, ctx map[string]any) error {
	bound := ctx["min"]
	v, ok := toFloat(value)
	m, mok := toFloat(bound)
	if !ok || !mok || v < m {
		return errors.New(minValueMessage(bound))
	}
	return nil
}

// MaxValue fails unless value is a number at most context["max"]
func MaxValue(value any, ctx map[string]any) error {
	bound := ctx["max"]
	v, ok := toFloat(value)
	m, mok := toFloat(bound)
	if !ok || !mok || v > m {
		return errors.New(maxValueMessage(bound))
	}
	return nil
}

// RangeValue fails unless value is a number between context["min"] and
// context["max"], both inclusive
func RangeValue(value any, ctx map[string]any) error {
	low, high := ctx["min"], ctx["max"]
	v, ok := toFloat(value)
	lo, lok := toFloat(low)
	hi, hok := toFloat(high)
	if !ok || !lok || !hok || v < lo || v > hi {
		return errors.New(rangeValueMessage(low, high))
	}
	return nil
}

func requiredMessage() string { return "is required" }

func emailMessage() string { return "must be an email" }

func minValueMessage(bound any) string {
	return fmt.Sprintf("must be %s or higher", formatBound(bound))
}

func maxValueMessage(bound any) string {
	return fmt.Sprintf("must be %s or lower", formatBound(bound))
}

func rangeValueMessage(low, high any) string {
	return fmt.Sprintf("must be between %s and %s", formatBound(low), formatBound(high))
}

func formatBound(v any) string {
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
