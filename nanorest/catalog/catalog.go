// Package catalog keeps schema definitions in a YAML file so that they can be
// shared between processes, such as successive CLI invocations.
//
// Only definitions are persisted. Records always live on the remote API.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/types"
)

// Catalog is the content of a catalog file
type Catalog struct {
	// Defaults override the process-wide configuration
	Defaults Defaults `yaml:"defaults,omitempty"`

	// Naming names the strategy deriving remote property names
	// (snake, camel, pascal, kebab or screaming_snake). Empty keeps local names.
	Naming string `yaml:"naming,omitempty"`

	// Resources maps resource names to schema definitions, in the same shape
	// accepted by schema.Registry.AddDefinition
	Resources map[string]map[string]any `yaml:"resources,omitempty"`
}

// Defaults is the persisted subset of types.Config
type Defaults struct {
	BaseURL              string `yaml:"baseUrl,omitempty"`
	ResponseDataLocation string `yaml:"responseDataLocation,omitempty"`
	ModelIDProperty      string `yaml:"modelIdProperty,omitempty"`
	UpdateMethod         string `yaml:"updateMethod,omitempty"`
	FlattenItemRoute     *bool  `yaml:"flattenItemRoute,omitempty"`
	IsArray              *bool  `yaml:"isArray,omitempty"`
	ValidateOnSync       *bool  `yaml:"validateOnSync,omitempty"`
	StrictMode           *bool  `yaml:"strictMode,omitempty"`
}

// Apply returns base with every set default applied
func (d Defaults) Apply(base types.Config) types.Config {
	if d.BaseURL != "" {
		base.BaseURL = d.BaseURL
	}
	if d.ResponseDataLocation != "" {
		base.ResponseDataLocation = d.ResponseDataLocation
	}
	if d.ModelIDProperty != "" {
		base.ModelIDProperty = d.ModelIDProperty
	}
	if d.UpdateMethod != "" {
		base.UpdateMethod = strings.ToUpper(d.UpdateMethod)
	}
	if d.FlattenItemRoute != nil {
		base.FlattenItemRoute = *d.FlattenItemRoute
	}
	if d.IsArray != nil {
		v := *d.IsArray
		base.IsArray = &v
	}
	if d.ValidateOnSync != nil {
		base.ValidateOnSync = *d.ValidateOnSync
	}
	if d.StrictMode != nil {
		base.StrictMode = *d.StrictMode
	}
	return base
}

// Parse decodes a catalog document
func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if c.Resources == nil {
		c.Resources = make(map[string]map[string]any)
	}
	return c, nil
}

// Marshal encodes the catalog as YAML
func (c *Catalog) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return data, nil
}

// Names returns the resource names, sorted
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Put stores a definition under name, replacing any previous one. Function
// fields (getters, setters, custom validators, formatters) cannot be
// persisted and are dropped.
func (c *Catalog) Put(name string, def types.Definition) error {
	if name == "" {
		return fmt.Errorf("%w: resource name cannot be empty", schema.ErrInvalidSchema)
	}
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if c.Resources == nil {
		c.Resources = make(map[string]map[string]any)
	}
	c.Resources[name] = raw
	return nil
}

// Delete removes a resource and reports whether it was present
func (c *Catalog) Delete(name string) bool {
	if _, ok := c.Resources[name]; !ok {
		return false
	}
	delete(c.Resources, name)
	return true
}

// Definition decodes the stored definition of name, with the catalog's
// naming strategy and default route applied
func (c *Catalog) Definition(name string) (types.Definition, error) {
	raw, ok := c.Resources[name]
	if !ok {
		return types.Definition{}, fmt.Errorf("%w: %s", schema.ErrSchemaNotFound, name)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	def, err := schema.Decode(raw)
	if err != nil {
		return types.Definition{}, fmt.Errorf("%s: %w", name, err)
	}

	if c.Naming != "" {
		ns, ok := schema.NamingStrategyByName(c.Naming)
		if !ok {
			return types.Definition{}, fmt.Errorf("%w: unknown naming strategy %q", schema.ErrInvalidSchema, c.Naming)
		}
		def = ns.Apply(def)
	}
	if def.Route == nil {
		def.Route = types.String(schema.DefaultRoute(name))
	}
	return def, nil
}

// Register adds every resource of the catalog to registry. All resources are
// attempted; the returned error combines every failure.
func (c *Catalog) Register(registry *schema.Registry) error {
	var errs error
	for _, name := range c.Names() {
		def, err := c.Definition(name)
		if err == nil {
			err = registry.Add(name, def)
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

// NewRegistry builds a registry from base with the catalog's defaults applied
// and registers every resource in it
func (c *Catalog) NewRegistry(base types.Config, opts ...schema.Option) (*schema.Registry, error) {
	registry := schema.NewRegistry(c.Defaults.Apply(base), opts...)
	if err := c.Register(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
