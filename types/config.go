package types

import (
	"net/http"
	"strings"
)

// Config holds the process-wide defaults used when schemas are registered
// and when models talk to the remote API.
type Config struct {
	// BaseURL is prefixed to every relative route (e.g. "/api" or "https://host/api")
	BaseURL string

	// ResponseDataLocation is the default envelope path for both list and item responses
	ResponseDataLocation string

	// ModelIDProperty is the default idProperty for schemas
	ModelIDProperty string

	// UpdateMethod is the HTTP method Sync uses for models that already exist remotely
	UpdateMethod string

	// RequestFormatter is the default formatter for outgoing payloads
	RequestFormatter RequestFormatter

	// FlattenItemRoute is the default value of Schema.FlattenItemRoute
	FlattenItemRoute bool

	// IsArray is the default value of Schema.IsArray (nil lets the request decide)
	IsArray *bool

	// ValidateOnSync runs property validation before every sync
	ValidateOnSync bool

	// StrictMode makes setting an undeclared property an error instead of a no-op
	StrictMode bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ModelIDProperty: "id",
		UpdateMethod:    http.MethodPut,
		ValidateOnSync:  true,
	}
}

// WithDefaults returns a copy of c where empty string settings are replaced
// by their defaults. Boolean settings are taken as-is.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ModelIDProperty == "" {
		c.ModelIDProperty = d.ModelIDProperty
	}
	if c.UpdateMethod == "" {
		c.UpdateMethod = d.UpdateMethod
	}
	c.UpdateMethod = strings.ToUpper(c.UpdateMethod)
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return c
}
