package types

import "maps"

// SyncRule restricts when a property is transmitted to the remote API
type SyncRule string

const (
	// SyncAlways transmits the property on every sync type
	SyncAlways SyncRule = ""
	// SyncNever keeps the property local (read-only from the API's perspective)
	SyncNever SyncRule = "false"
	// SyncCreate transmits the property only when the record is created
	SyncCreate SyncRule = "create"
	// SyncUpdate transmits the property only when the record is updated
	SyncUpdate SyncRule = "update"
	// SyncReset behaves as SyncAlways. In an override it replaces an
	// inherited rule, which SyncAlways (the zero value) cannot do.
	SyncReset SyncRule = "true"
)

// Normalize maps SyncReset to SyncAlways and returns other rules unchanged
func (r SyncRule) Normalize() SyncRule {
	if r == SyncReset {
		return SyncAlways
	}
	return r
}

// Allows reports whether a property carrying this rule takes part in a sync
// of the given kind (SyncCreate or SyncUpdate). SyncNever allows nothing.
func (r SyncRule) Allows(kind SyncRule) bool {
	if r == SyncNever {
		return false
	}
	r = r.Normalize()
	return r == SyncAlways || r == kind
}

// Valid reports whether r is one of the known rules
func (r SyncRule) Valid() bool {
	switch r {
	case SyncAlways, SyncNever, SyncCreate, SyncUpdate, SyncReset:
		return true
	}
	return false
}

// ValidatorFunc checks a single property value. A nil error means the value
// passed; otherwise the error text is reported as the rule's message.
type ValidatorFunc func(value any, context map[string]any) error

// ValidationRule configures one validation rule on a property.
// Built-in rules are resolved by name; a non-nil Validator makes it a custom rule.
type ValidationRule struct {
	Context   map[string]any `mapstructure:"context" yaml:"context,omitempty"`
	Validator ValidatorFunc  `mapstructure:"-" yaml:"-"`
}

// Property describes one field of a resource
type Property struct {
	// Sync controls when the property is sent to the API
	Sync SyncRule `mapstructure:"sync" yaml:"sync,omitempty"`

	// RemoteProperty is the field name used by the API when it differs from the local name
	RemoteProperty string `mapstructure:"remoteProperty" yaml:"remoteProperty,omitempty"`

	// Getter transforms the stored value on read
	Getter func(value any) any `mapstructure:"-" yaml:"-"`

	// Setter transforms a value before it is stored
	Setter func(value any) any `mapstructure:"-" yaml:"-"`

	// Validation maps rule names to their configuration
	Validation map[string]ValidationRule `mapstructure:"validation" yaml:"validation,omitempty"`
}

// RemoteName returns the name the API uses for a property stored locally as local
func (p Property) RemoteName(local string) string {
	if p.RemoteProperty != "" {
		return p.RemoteProperty
	}
	return local
}

// Clone returns a copy of p that shares no maps with it
func (p Property) Clone() Property {
	if p.Validation != nil {
		rules := make(map[string]ValidationRule, len(p.Validation))
		for name, rule := range p.Validation {
			rule.Context = maps.Clone(rule.Context)
			rules[name] = rule
		}
		p.Validation = rules
	}
	return p
}

// Relation links a resource to another registered resource
type Relation struct {
	// Resource is the name of the related schema; defaults to the relation name
	Resource string `mapstructure:"resource" yaml:"resource,omitempty"`

	// Property makes the relation single valued, keyed by this local property's value
	Property string `mapstructure:"property" yaml:"property,omitempty"`

	// Flatten overrides FlattenItemRoute for the related repository
	Flatten *bool `mapstructure:"flatten" yaml:"flatten,omitempty"`

	// IsArray overrides whether the related query returns a collection
	IsArray *bool `mapstructure:"isArray" yaml:"isArray,omitempty"`
}

// RequestFormatter wraps an outgoing, already normalized payload.
// Returning nil keeps the payload as it is.
type RequestFormatter func(payload map[string]any) any

// Format applies f to payload, tolerating a nil formatter and a nil result
func (f RequestFormatter) Format(payload map[string]any) any {
	if f == nil {
		return payload
	}
	if out := f(payload); out != nil {
		return out
	}
	return payload
}

// Schema is the resolved definition of a resource. Schemas handed out by the
// registry are copies; mutating them never affects the stored definition.
type Schema struct {
	Route            string
	IDProperty       string
	Properties       map[string]Property
	Relations        map[string]Relation
	DataListLocation string
	DataItemLocation string
	AutoParse        bool
	RequestFormatter RequestFormatter
	IsArray          *bool
	FlattenItemRoute bool
	Inherit          map[string]any
}

// Clone returns a deep copy of s. Functions are shared, maps and pointers are not.
func (s Schema) Clone() Schema {
	out := s
	if s.Properties != nil {
		out.Properties = make(map[string]Property, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = prop.Clone()
		}
	}
	if s.Relations != nil {
		out.Relations = make(map[string]Relation, len(s.Relations))
		for name, rel := range s.Relations {
			rel.Flatten = cloneBool(rel.Flatten)
			rel.IsArray = cloneBool(rel.IsArray)
			out.Relations[name] = rel
		}
	}
	out.IsArray = cloneBool(s.IsArray)
	out.Inherit = maps.Clone(s.Inherit)
	return out
}

// HasProperty reports whether name is a declared property
func (s Schema) HasProperty(name string) bool {
	_, ok := s.Properties[name]
	return ok
}

// Definition is a partial schema. It is used both to register a schema (fields
// left nil take the registry defaults) and to override a stored schema on
// retrieval. Properties and Relations merge key by key, and inside a key
// field by field, so an override never erases sibling entries.
type Definition struct {
	Route            *string             `mapstructure:"route" yaml:"route,omitempty"`
	IDProperty       *string             `mapstructure:"idProperty" yaml:"idProperty,omitempty"`
	Properties       map[string]Property `mapstructure:"properties" yaml:"properties,omitempty"`
	Relations        map[string]Relation `mapstructure:"relations" yaml:"relations,omitempty"`
	DataListLocation *string             `mapstructure:"dataListLocation" yaml:"dataListLocation,omitempty"`
	DataItemLocation *string             `mapstructure:"dataItemLocation" yaml:"dataItemLocation,omitempty"`
	AutoParse        *bool               `mapstructure:"autoParse" yaml:"autoParse,omitempty"`
	RequestFormatter RequestFormatter    `mapstructure:"-" yaml:"-"`
	IsArray          *bool               `mapstructure:"isArray" yaml:"isArray,omitempty"`
	FlattenItemRoute *bool               `mapstructure:"flattenItemRoute" yaml:"flattenItemRoute,omitempty"`
	Inherit          map[string]any      `mapstructure:"-" yaml:"-"`
}

// Overrides is a Definition applied on top of a stored schema
type Overrides = Definition

// Bool returns a pointer to b
func Bool(b bool) *bool { return &b }

// String returns a pointer to s
func String(s string) *string { return &s }

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
