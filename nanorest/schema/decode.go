package schema

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/arthur-debert/nanorest/types"
)

var syncRuleType = reflect.TypeOf(types.SyncRule(""))

// Decode turns a schema written as nested maps into a Definition.
//
// Values the map form cannot express as data (getter, setter, validator,
// requestFormatter and inherit) are picked up when they hold functions of the
// matching signature. A boolean sync value of false means SyncNever and true
// means SyncReset.
func Decode(raw any) (types.Definition, error) {
	switch v := raw.(type) {
	case types.Definition:
		return v, nil
	case *types.Definition:
		if v == nil {
			return types.Definition{}, fmt.Errorf("%w: nil definition", ErrInvalidSchema)
		}
		return *v, nil
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return types.Definition{}, fmt.Errorf("%w: expected a map, got %T", ErrInvalidSchema, raw)
	}

	var def types.Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: syncRuleHook,
		Result:     &def,
	})
	if err != nil {
		return types.Definition{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return types.Definition{}, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}

	attachFuncs(m, &def)
	return def, nil
}

func syncRuleHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != syncRuleType || from.Kind() != reflect.Bool {
		return data, nil
	}
	if reflect.ValueOf(data).Bool() {
		return types.SyncReset, nil
	}
	return types.SyncNever, nil
}

func attachFuncs(m map[string]any, def *types.Definition) {
	switch f := m["requestFormatter"].(type) {
	case types.RequestFormatter:
		def.RequestFormatter = f
	case func(map[string]any) any:
		def.RequestFormatter = f
	}

	if inherit, ok := m["inherit"].(map[string]any); ok {
		def.Inherit = maps.Clone(inherit)
	}

	props, _ := m["properties"].(map[string]any)
	for name, rawProp := range props {
		pm, ok := rawProp.(map[string]any)
		if !ok {
			continue
		}
		p := def.Properties[name]
		if fn, ok := pm["getter"].(func(any) any); ok {
			p.Getter = fn
		}
		if fn, ok := pm["setter"].(func(any) any); ok {
			p.Setter = fn
		}
		rules, _ := pm["validation"].(map[string]any)
		for rule, rawRule := range rules {
			rm, ok := rawRule.(map[string]any)
			if !ok {
				continue
			}
			var fn types.ValidatorFunc
			switch v := rm["validator"].(type) {
			case types.ValidatorFunc:
				fn = v
			case func(any, map[string]any) error:
				fn = v
			}
			if fn == nil {
				continue
			}
			cfg := p.Validation[rule]
			cfg.Validator = fn
			if p.Validation == nil {
				p.Validation = make(map[string]types.ValidationRule)
			}
			p.Validation[rule] = cfg
		}
		if def.Properties == nil {
			def.Properties = make(map[string]types.Property)
		}
		def.Properties[name] = p
	}
}
