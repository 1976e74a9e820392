package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/nanorest/nanorest"
	"github.com/arthur-debert/nanorest/nanorest/transport"
)

func (cli *CLI) addRecordCommands() {
	cli.rootCmd.AddCommand(cli.findCommand())
	cli.rootCmd.AddCommand(cli.getCommand())
	cli.rootCmd.AddCommand(cli.createCommand())
	cli.rootCmd.AddCommand(cli.updateCommand())
	cli.rootCmd.AddCommand(cli.deleteCommand())
	cli.rootCmd.AddCommand(cli.relationCommand())
}

func (cli *CLI) findCommand() *cobra.Command {
	var (
		where []string
		post  string
		item  bool
	)

	cmd := &cobra.Command{
		Use:   "find <resource>",
		Short: "Find records of a resource",
		Long: `Find records of a resource. --where filters become query parameters;
--post sends a JSON body with a POST instead of a GET.

Examples:
  nanorest find user --where lastName=Lovelace
  nanorest find user --post '{"ids":[1,2,3]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()

			params, err := parseAssignments(where)
			if err != nil {
				return NewUsageError("find", "filter", err.Error(), "Use --where name=value")
			}
			q := nanorest.Query{Params: params}
			if post != "" {
				if err := json.Unmarshal([]byte(post), &q.Body); err != nil {
					return NewUsageError("find", "body", post, "--post expects a JSON object")
				}
			}

			client, err := cli.client(ctx, "find")
			if err != nil {
				return err
			}
			repo, err := client.Repository(args[0])
			if err != nil {
				return NewRequestError("find", err)
			}
			if item {
				repo.ForceIsArray(false)
			}

			res, err := repo.Find(ctx, q)
			if err != nil {
				return NewRequestError("find", err)
			}
			return cli.output(records(res), repo.Schema().IDProperty)
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "Filter as name=value (repeatable)")
	cmd.Flags().StringVar(&post, "post", "", "JSON body to POST with the query")
	cmd.Flags().BoolVar(&item, "item", false, "Read the response as a single record")
	return cmd
}

func (cli *CLI) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>...",
		Short: "Get records by id",
		Long: `Get one or more records by id. Several ids are fetched concurrently.

Examples:
  nanorest get user 12
  nanorest get user 12 13 14`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()

			client, err := cli.client(ctx, "get")
			if err != nil {
				return err
			}
			repo, err := client.Repository(args[0])
			if err != nil {
				return NewRequestError("get", err)
			}
			idProperty := repo.Schema().IDProperty

			if len(args) == 2 {
				res, err := repo.FindByID(ctx, args[1])
				if err != nil {
					return recordError("get", args[0], args[1], err)
				}
				return cli.output(records(res), idProperty)
			}

			ids := make([]any, 0, len(args)-1)
			for _, id := range args[1:] {
				ids = append(ids, id)
			}
			models, err := repo.FindMany(ctx, ids)
			if err != nil {
				return NewRequestError("get", err)
			}
			out := make([]map[string]any, 0, len(models))
			for _, m := range models {
				if m != nil {
					out = append(out, m.ToJSON())
				}
			}
			return cli.output(out, idProperty)
		},
	}
}

func (cli *CLI) createCommand() *cobra.Command {
	var set []string

	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create a record",
		Long: `Create a record from --set values. Values that parse as JSON keep their
type, everything else is sent as a string.

Example:
  nanorest create user --set firstName=Ada --set age=36`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()

			data, err := parseAssignments(set)
			if err != nil {
				return NewUsageError("create", "value", err.Error(), "Use --set name=value")
			}

			client, err := cli.client(ctx, "create")
			if err != nil {
				return err
			}
			m, err := client.NewModel(args[0], data, false)
			if err != nil {
				return NewRequestError("create", err)
			}

			res, err := m.Save(ctx)
			if err != nil {
				return NewRequestError("create", err)
			}
			if !res.Synced() {
				return NewValidationError("create", res.Validation)
			}
			return cli.output(m.ToJSON(), m.Schema().IDProperty)
		},
	}

	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "Value as name=value (repeatable)")
	return cmd
}

func (cli *CLI) updateCommand() *cobra.Command {
	var (
		set    []string
		method string
	)

	cmd := &cobra.Command{
		Use:   "update <resource> <id>",
		Short: "Update a record",
		Long: `Fetch a record, apply --set values and sync it back. The HTTP method
defaults to the configured update method.

PUT sends the whole record. Other methods send only the properties whose
value changed, and a property that was null before does not count as
changed; use --method PUT to fill such properties.

Example:
  nanorest update user 12 --set lastName=Hopper --method PATCH`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()
			resource, id := args[0], args[1]

			changes, err := parseAssignments(set)
			if err != nil {
				return NewUsageError("update", "value", err.Error(), "Use --set name=value")
			}
			if len(changes) == 0 {
				return NewUsageError("update", "value", "", "Give at least one --set name=value")
			}

			client, err := cli.client(ctx, "update")
			if err != nil {
				return err
			}
			repo, err := client.Repository(resource)
			if err != nil {
				return NewRequestError("update", err)
			}
			res, err := repo.FindByID(ctx, id)
			if err != nil {
				return recordError("update", resource, id, err)
			}
			m, ok := res.Single()
			if !ok {
				return NewNotFoundError("update", resource, id, nil)
			}

			for name, value := range changes {
				if err := m.Set(name, value); err != nil {
					return NewUsageError("update", "property", name, CommonSuggestions.ShowSchema)
				}
			}
			effective := strings.ToUpper(method)
			if effective == "" {
				effective = client.Config().UpdateMethod
			}
			if effective != http.MethodPut && len(m.DirtyProperties()) == 0 {
				suggestions := []string{"Properties that were null are sent only with --method PUT", CommonSuggestions.CheckID}
				return &CLIError{
					Operation:   "update",
					Cause:       "no changed properties to send",
					Details:     fmt.Sprintf("%s only sends properties that changed from a previous value", effective),
					Suggestions: suggestions,
				}
			}

			synced, err := m.Sync(ctx, method, true)
			if err != nil {
				return NewRequestError("update", err)
			}
			if !synced.Synced() {
				return NewValidationError("update", synced.Validation)
			}
			return cli.output(m.ToJSON(), m.Schema().IDProperty)
		},
	}

	cmd.Flags().StringArrayVarP(&set, "set", "s", nil, "Value as name=value (repeatable)")
	cmd.Flags().StringVarP(&method, "method", "m", "", "HTTP method (PUT, PATCH or POST)")
	return cmd
}

func (cli *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()
			resource, id := args[0], args[1]

			client, err := cli.client(ctx, "delete")
			if err != nil {
				return err
			}
			repo, err := client.Repository(resource)
			if err != nil {
				return NewRequestError("delete", err)
			}
			m := repo.Create(map[string]any{repo.Schema().IDProperty: id}, true)
			if err := m.Destroy(ctx); err != nil {
				return recordError("delete", resource, id, err)
			}
			_, err = fmt.Fprintf(cli.out, "Deleted %s %s\n", resource, id)
			return err
		},
	}
}

func (cli *CLI) relationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relation <resource> <id> <relation> [related-id]",
		Short: "Find the records related to a record",
		Long: `Find the records related to a record through a relation declared in its
schema. The related route is nested under the record's route.

Examples:
  nanorest relation user 12 project
  nanorest relation user 12 project 7`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := cli.commandContext(cmd)
			defer cancel()
			resource, id, relation := args[0], args[1], args[2]

			client, err := cli.client(ctx, "find related records")
			if err != nil {
				return err
			}
			repo, err := client.Repository(resource)
			if err != nil {
				return NewRequestError("find related records", err)
			}
			m := repo.Create(map[string]any{repo.Schema().IDProperty: id}, true)

			var relatedID any
			if len(args) == 4 {
				relatedID = args[3]
			}
			res, err := m.GetRelation(ctx, relation, relatedID)
			if err != nil {
				return NewRequestError("find related records", err)
			}
			return cli.output(records(res))
		},
	}
}

// recordError turns a 404 into a not-found error
func recordError(operation, resource, id string, err error) error {
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return NewNotFoundError(operation, resource, id, err)
	}
	return NewRequestError(operation, err)
}
