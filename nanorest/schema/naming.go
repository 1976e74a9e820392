package schema

import (
	"strings"

	"github.com/gobuffalo/flect"
	"github.com/iancoleman/strcase"

	"github.com/arthur-debert/nanorest/types"
)

// NamingStrategy converts a local property name into the API's field name
type NamingStrategy func(local string) string

// Built-in naming strategies
var (
	SnakeCase          NamingStrategy = strcase.ToSnake
	CamelCase          NamingStrategy = strcase.ToLowerCamel
	PascalCase         NamingStrategy = strcase.ToCamel
	KebabCase          NamingStrategy = strcase.ToKebab
	ScreamingSnakeCase NamingStrategy = strcase.ToScreamingSnake
)

var namingStrategies = map[string]NamingStrategy{
	"snake":           SnakeCase,
	"camel":           CamelCase,
	"pascal":          PascalCase,
	"kebab":           KebabCase,
	"screaming_snake": ScreamingSnakeCase,
}

// NamingStrategyByName looks up a built-in strategy ("snake", "camel",
// "pascal", "kebab", "screaming_snake"). Lookup ignores case.
func NamingStrategyByName(name string) (NamingStrategy, bool) {
	ns, ok := namingStrategies[strings.ToLower(name)]
	return ns, ok
}

// Apply fills RemoteProperty on every property of def that has none and whose
// converted name differs from the local one. The definition is copied.
func (n NamingStrategy) Apply(def types.Definition) types.Definition {
	if n == nil || len(def.Properties) == 0 {
		return def
	}
	props := make(map[string]types.Property, len(def.Properties))
	for local, p := range def.Properties {
		if p.RemoteProperty == "" {
			if remote := n(local); remote != local {
				p.RemoteProperty = remote
			}
		}
		props[local] = p
	}
	def.Properties = props
	return def
}

// DefaultRoute derives a collection route from a resource name:
// "user" becomes "/users" and "projectTask" becomes "/project-tasks".
func DefaultRoute(resource string) string {
	return "/" + flect.Pluralize(flect.Dasherize(resource))
}
