package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/nanorest/nanorest"
	"github.com/arthur-debert/nanorest/nanorest/transport"
	"github.com/arthur-debert/nanorest/nanorest/validation"
)

// CLIError is an error shown to the user: what failed, why, and what to try
type CLIError struct {
	Operation   string   // e.g. "create", "find"
	Cause       string   // e.g. `user with ID "3" not found`
	Details     string   // technical detail, usually the wrapped error text
	Suggestions []string // printed as a numbered list
	Underlying  error
}

func (e *CLIError) Error() string {
	var b strings.Builder
	if e.Operation == "" {
		b.WriteString("Operation failed")
	} else {
		fmt.Fprintf(&b, "Failed to %s", e.Operation)
	}
	if e.Cause != "" {
		fmt.Fprintf(&b, ": %s", e.Cause)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, " (%s)", e.Details)
	}
	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for i, s := range e.Suggestions {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, s)
		}
	}
	return b.String()
}

func (e *CLIError) Unwrap() error {
	return e.Underlying
}

// NewUsageError creates an error for malformed arguments
func NewUsageError(operation, argument, value string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("invalid %s: %q", argument, value),
		Suggestions: suggestions,
	}
}

// NewNotFoundError creates an error for missing records
func NewNotFoundError(operation, resource, id string, underlying error) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("%s with ID %q not found", resource, id),
		Suggestions: []string{CommonSuggestions.CheckID},
		Underlying:  underlying,
	}
}

// NewConfigError creates an error for configuration issues
func NewConfigError(operation, issue string, suggestions ...string) *CLIError {
	return &CLIError{
		Operation:   operation,
		Cause:       fmt.Sprintf("configuration error: %s", issue),
		Suggestions: suggestions,
	}
}

// NewValidationError reports the rules a record failed, one per line
func NewValidationError(operation string, errs validation.Errors) *CLIError {
	props := make([]string, 0, len(errs))
	for p := range errs {
		props = append(props, p)
	}
	sort.Strings(props)

	var lines []string
	for _, p := range props {
		rules := make([]string, 0, len(errs[p]))
		for r := range errs[p] {
			rules = append(rules, r)
		}
		sort.Strings(rules)
		for _, r := range rules {
			lines = append(lines, fmt.Sprintf("%s %s", p, errs[p][r]))
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       "validation failed",
		Details:     strings.Join(lines, "; "),
		Suggestions: []string{"Fix the values with --set name=value"},
		Underlying:  errs,
	}
}

// NewRequestError creates an error for failed API calls
func NewRequestError(operation string, underlying error) *CLIError {
	cause := "request failed"
	details := ""
	var suggestions []string

	if underlying != nil {
		details = underlying.Error()

		var statusErr *transport.StatusError
		switch {
		case errors.Is(underlying, nanorest.ErrSchemaNotFound):
			cause = "unknown resource"
			suggestions = append(suggestions, CommonSuggestions.ListSchemas)
		case errors.Is(underlying, nanorest.ErrUnknownRelation):
			cause = "unknown relation"
			suggestions = append(suggestions, CommonSuggestions.ShowSchema)
		case errors.Is(underlying, nanorest.ErrInvalidSchema):
			cause = "invalid schema"
			suggestions = append(suggestions, CommonSuggestions.ShowSchema)
		case errors.As(underlying, &statusErr):
			cause = fmt.Sprintf("server answered %d", statusErr.StatusCode)
			if statusErr.StatusCode == 401 || statusErr.StatusCode == 403 {
				suggestions = append(suggestions, CommonSuggestions.CheckHeaders)
			}
		default:
			suggestions = append(suggestions, CommonSuggestions.CheckBaseURL)
		}
	}

	return &CLIError{
		Operation:   operation,
		Cause:       cause,
		Details:     details,
		Suggestions: suggestions,
		Underlying:  underlying,
	}
}

// WrapError keeps CLIErrors as they are and turns anything else into a
// request error for operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Operation == "" {
			cliErr.Operation = operation
		}
		return cliErr
	}
	return NewRequestError(operation, err)
}

// CommonSuggestions holds the suggestion texts shared by several commands
var CommonSuggestions = struct {
	CheckID      string
	CheckBaseURL string
	CheckHeaders string
	CheckCatalog string
	ListSchemas  string
	ShowSchema   string
	RunHelp      string
}{
	CheckID:      "Verify the record ID exists (try 'find' first)",
	CheckBaseURL: "Verify --base-url points to the API",
	CheckHeaders: "Pass credentials with --header Authorization=...",
	CheckCatalog: "Verify --catalog points to a readable catalog file",
	ListSchemas:  "Run 'nanorest schema list' to see registered resources",
	ShowSchema:   "Run 'nanorest schema show <resource>' to inspect the schema",
	RunHelp:      "Run command with --help for usage information",
}
