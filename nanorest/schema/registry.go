// Package schema stores named resource schemas and resolves them, with
// optional overrides, into independent copies.
package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/arthur-debert/nanorest/internal/validation"
	"github.com/arthur-debert/nanorest/types"
)

var (
	// ErrSchemaNotFound is returned when no schema is registered under a name
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrInvalidSchema is returned when a definition cannot be registered
	ErrInvalidSchema = errors.New("invalid schema definition")
)

// Registry holds the schemas known to a client. It is safe for concurrent
// use; every schema it returns is a fresh copy.
type Registry struct {
	mu      sync.RWMutex
	config  types.Config
	schemas map[string]types.Schema
	logger  *slog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used for registration events
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry whose defaults come from config
func NewRegistry(config types.Config, opts ...Option) *Registry {
	r := &Registry{
		config:  config.WithDefaults(),
		schemas: make(map[string]types.Schema),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the defaults this registry was built with
func (r *Registry) Config() types.Config {
	return r.config
}

// Template returns the schema every registration starts from
func (r *Registry) Template() types.Schema {
	return types.Schema{
		IDProperty:       r.config.ModelIDProperty,
		Properties:       map[string]types.Property{},
		Relations:        map[string]types.Relation{},
		DataListLocation: r.config.ResponseDataLocation,
		DataItemLocation: r.config.ResponseDataLocation,
		AutoParse:        true,
		RequestFormatter: r.config.RequestFormatter,
		IsArray:          cloneBool(r.config.IsArray),
		FlattenItemRoute: r.config.FlattenItemRoute,
	}
}

// Add registers def under name, merged over the default template. A name
// that is already registered is replaced.
func (r *Registry) Add(name string, def types.Definition) error {
	s := Merge(r.Template(), def)
	if err := validation.Validate(name, s); err != nil {
		r.logger.Warn("rejected schema", "resource", name, "error", err)
		return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	r.mu.Lock()
	_, replaced := r.schemas[name]
	r.schemas[name] = s
	r.mu.Unlock()

	r.logger.Debug("registered schema", "resource", name, "route", s.Route, "replaced", replaced)
	return nil
}

// AddDefinition registers a schema given as nested maps, the way schemas are
// written in configuration files. Anything other than a map is rejected with
// ErrInvalidSchema.
func (r *Registry) AddDefinition(name string, raw any) error {
	def, err := Decode(raw)
	if err != nil {
		r.logger.Warn("rejected schema definition", "resource", name, "error", err)
		return err
	}
	return r.Add(name, def)
}

// Get returns a copy of the schema registered under name with overrides
// deep-merged on top, in order. The stored schema is never modified.
func (r *Registry) Get(name string, overrides ...types.Overrides) (types.Schema, error) {
	r.mu.RLock()
	stored, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return types.Schema{}, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}

	s := stored.Clone()
	for _, o := range overrides {
		s = Merge(s, o)
	}
	return s, nil
}

// Has reports whether a schema is registered under name
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[name]
	return ok
}

// Remove deletes the schema registered under name, if any
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	delete(r.schemas, name)
	r.mu.Unlock()
	r.logger.Debug("removed schema", "resource", name)
}

// Names returns the registered resource names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
