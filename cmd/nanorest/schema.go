package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/nanorest/nanorest"
	"github.com/arthur-debert/nanorest/nanorest/catalog"
	"github.com/arthur-debert/nanorest/nanorest/schema"
)

func (cli *CLI) schemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the resource schemas of the catalog",
	}
	cmd.AddCommand(cli.schemaListCommand())
	cmd.AddCommand(cli.schemaShowCommand())
	cmd.AddCommand(cli.schemaAddCommand())
	cmd.AddCommand(cli.schemaRemoveCommand())
	return cmd
}

func (cli *CLI) schemaListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()

			c, err := cli.catalogStore().Load(ctx)
			if err != nil {
				return WrapError("list schemas", err)
			}

			rows := make([]map[string]any, 0, len(c.Resources))
			for _, name := range c.Names() {
				def, err := c.Definition(name)
				if err != nil {
					return WrapError("list schemas", err)
				}
				row := map[string]any{"resource": name, "route": *def.Route, "properties": len(def.Properties)}
				if def.IDProperty != nil {
					row["idProperty"] = *def.IDProperty
				}
				rows = append(rows, row)
			}
			return cli.output(rows, "resource", "route", "idProperty", "properties")
		},
	}
}

func (cli *CLI) schemaShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <resource>",
		Short: "Show the resolved schema of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()

			client, err := cli.client(ctx, "show schema")
			if err != nil {
				return err
			}
			s, err := client.Registry().Get(args[0])
			if err != nil {
				return NewRequestError("show schema", err)
			}
			return cli.output(describeSchema(args[0], s))
		},
	}
}

func (cli *CLI) schemaAddCommand() *cobra.Command {
	var (
		from       string
		route      string
		idProperty string
		properties []string
		remotes    []string
	)

	cmd := &cobra.Command{
		Use:   "add <resource>",
		Short: "Add or replace a resource schema",
		Long: `Add or replace a resource schema in the catalog.

The schema is read from a YAML or JSON file with --from, or built from flags.
A property is given as name or name=sync, where sync is one of true, false,
create or update.

Examples:
  nanorest schema add user --from user.yaml
  nanorest schema add user --route /users --property id=false --property firstName --remote firstName=first_name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()
			name := args[0]

			var raw map[string]any
			if from != "" {
				data, err := os.ReadFile(from)
				if err != nil {
					return NewUsageError("add schema", "file", from, "Check the --from path")
				}
				if err := yaml.Unmarshal(data, &raw); err != nil {
					return &CLIError{Operation: "add schema", Cause: "cannot parse schema file", Details: err.Error(), Underlying: err}
				}
			} else {
				var err error
				if raw, err = schemaFromFlags(route, idProperty, properties, remotes); err != nil {
					return NewUsageError("add schema", "property", err.Error(), CommonSuggestions.RunHelp)
				}
			}

			err := cli.catalogStore().Update(ctx, func(c *catalog.Catalog) error {
				if c.Resources == nil {
					c.Resources = make(map[string]map[string]any)
				}
				c.Resources[name] = raw

				def, err := c.Definition(name)
				if err != nil {
					return err
				}
				return schema.NewRegistry(c.Defaults.Apply(nanorest.DefaultConfig())).Add(name, def)
			})
			if err != nil {
				return NewRequestError("add schema", err)
			}
			cli.logger.Info("schema added", "resource", name, "catalog", cli.viperInst.GetString("catalog"))
			_, err = fmt.Fprintf(cli.out, "Added schema %s\n", name)
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Read the schema from a YAML or JSON file")
	cmd.Flags().StringVar(&route, "route", "", "Collection route (defaults to the pluralized resource name)")
	cmd.Flags().StringVar(&idProperty, "id-property", "", "Name of the id property")
	cmd.Flags().StringArrayVarP(&properties, "property", "p", nil, "Property as name or name=sync (repeatable)")
	cmd.Flags().StringArrayVar(&remotes, "remote", nil, "Remote name as property=remote (repeatable)")
	return cmd
}

func (cli *CLI) schemaRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <resource>",
		Short: "Remove a resource schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()

			var found bool
			err := cli.catalogStore().Update(ctx, func(c *catalog.Catalog) error {
				found = c.Delete(args[0])
				return nil
			})
			if err != nil {
				return WrapError("remove schema", err)
			}
			if !found {
				return &CLIError{
					Operation:   "remove schema",
					Cause:       fmt.Sprintf("resource %q is not in the catalog", args[0]),
					Suggestions: []string{CommonSuggestions.ListSchemas},
				}
			}
			_, err = fmt.Fprintf(cli.out, "Removed schema %s\n", args[0])
			return err
		},
	}
}

// schemaFromFlags builds a raw definition in the shape stored by the catalog
func schemaFromFlags(route, idProperty string, properties, remotes []string) (map[string]any, error) {
	raw := map[string]any{}
	if route != "" {
		raw["route"] = route
	}
	if idProperty != "" {
		raw["idProperty"] = idProperty
	}

	props := map[string]any{}
	for _, p := range properties {
		name, sync, hasSync := strings.Cut(p, "=")
		if name == "" {
			return nil, fmt.Errorf("%q has no name", p)
		}
		desc := map[string]any{}
		if hasSync {
			switch sync {
			case "true":
			case "false", "create", "update":
				desc["sync"] = sync
			default:
				return nil, fmt.Errorf("%q has an unknown sync rule", p)
			}
		}
		props[name] = desc
	}
	for _, r := range remotes {
		name, remote, ok := strings.Cut(r, "=")
		if !ok || name == "" || remote == "" {
			return nil, fmt.Errorf("%q is not property=remote", r)
		}
		desc, ok := props[name].(map[string]any)
		if !ok {
			desc = map[string]any{}
			props[name] = desc
		}
		desc["remoteProperty"] = remote
	}
	if len(props) > 0 {
		raw["properties"] = props
	}
	return raw, nil
}

// describeSchema renders the data-only part of a schema
func describeSchema(name string, s nanorest.Schema) map[string]any {
	props := make(map[string]any, len(s.Properties))
	for pname, p := range s.Properties {
		desc := map[string]any{}
		if p.Sync != nanorest.SyncAlways {
			desc["sync"] = string(p.Sync)
		}
		if p.RemoteProperty != "" {
			desc["remoteProperty"] = p.RemoteProperty
		}
		if len(p.Validation) > 0 {
			rules := make([]string, 0, len(p.Validation))
			for r := range p.Validation {
				rules = append(rules, r)
			}
			sort.Strings(rules)
			desc["validation"] = rules
		}
		props[pname] = desc
	}

	relations := make(map[string]any, len(s.Relations))
	for rname, r := range s.Relations {
		desc := map[string]any{"resource": r.Resource}
		if r.Property != "" {
			desc["property"] = r.Property
		}
		if r.Flatten != nil {
			desc["flatten"] = *r.Flatten
		}
		relations[rname] = desc
	}

	out := map[string]any{
		"resource":         name,
		"route":            s.Route,
		"idProperty":       s.IDProperty,
		"dataListLocation": s.DataListLocation,
		"dataItemLocation": s.DataItemLocation,
		"autoParse":        s.AutoParse,
		"flattenItemRoute": s.FlattenItemRoute,
		"properties":       props,
		"relations":        relations,
	}
	if s.IsArray != nil {
		out["isArray"] = *s.IsArray
	}
	return out
}
