package schema

import (
	"maps"

	"github.com/arthur-debert/nanorest/types"
)

// Merge applies def on top of a copy of base and returns the result.
//
// Scalar fields are replaced when set in def. Properties and Relations merge
// key by key and, within an existing key, field by field; validation rules
// merge by rule name. Inherit merges key by key. base is left untouched.
//
// A property's Sync is replaced only when set: the zero SyncAlways keeps the
// base rule, and SyncReset (sync: true) puts it back to SyncAlways.
func Merge(base types.Schema, def types.Definition) types.Schema {
	s := base.Clone()

	if def.Route != nil {
		s.Route = *def.Route
	}
	if def.IDProperty != nil {
		s.IDProperty = *def.IDProperty
	}
	if def.DataListLocation != nil {
		s.DataListLocation = *def.DataListLocation
	}
	if def.DataItemLocation != nil {
		s.DataItemLocation = *def.DataItemLocation
	}
	if def.AutoParse != nil {
		s.AutoParse = *def.AutoParse
	}
	if def.RequestFormatter != nil {
		s.RequestFormatter = def.RequestFormatter
	}
	if def.IsArray != nil {
		s.IsArray = cloneBool(def.IsArray)
	}
	if def.FlattenItemRoute != nil {
		s.FlattenItemRoute = *def.FlattenItemRoute
	}

	if len(def.Properties) > 0 && s.Properties == nil {
		s.Properties = make(map[string]types.Property, len(def.Properties))
	}
	for name, p := range def.Properties {
		s.Properties[name] = mergeProperty(s.Properties[name], p)
	}

	if len(def.Relations) > 0 && s.Relations == nil {
		s.Relations = make(map[string]types.Relation, len(def.Relations))
	}
	for name, rel := range def.Relations {
		s.Relations[name] = mergeRelation(s.Relations[name], rel)
	}

	if len(def.Inherit) > 0 {
		if s.Inherit == nil {
			s.Inherit = make(map[string]any, len(def.Inherit))
		}
		maps.Copy(s.Inherit, def.Inherit)
	}

	return s
}

func mergeProperty(base, o types.Property) types.Property {
	out := base.Clone()
	if o.Sync != types.SyncAlways {
		out.Sync = o.Sync.Normalize()
	}
	if o.RemoteProperty != "" {
		out.RemoteProperty = o.RemoteProperty
	}
	if o.Getter != nil {
		out.Getter = o.Getter
	}
	if o.Setter != nil {
		out.Setter = o.Setter
	}
	if len(o.Validation) > 0 {
		if out.Validation == nil {
			out.Validation = make(map[string]types.ValidationRule, len(o.Validation))
		}
		for rule, cfg := range o.Validation {
			cfg.Context = maps.Clone(cfg.Context)
			out.Validation[rule] = cfg
		}
	}
	return out
}

func mergeRelation(base, o types.Relation) types.Relation {
	out := base
	if o.Resource != "" {
		out.Resource = o.Resource
	}
	if o.Property != "" {
		out.Property = o.Property
	}
	if o.Flatten != nil {
		out.Flatten = cloneBool(o.Flatten)
	} else {
		out.Flatten = cloneBool(base.Flatten)
	}
	if o.IsArray != nil {
		out.IsArray = cloneBool(o.IsArray)
	} else {
		out.IsArray = cloneBool(base.IsArray)
	}
	return out
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
