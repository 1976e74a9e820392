package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/nanorest/nanorest"
	"github.com/arthur-debert/nanorest/nanorest/catalog"
	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/nanorest/transport"
)

const defaultCatalog = "nanorest.catalog.yaml"

// CLI is the nanorest command line. Settings come from flags, NANOREST_*
// environment variables and an optional nanorest.yaml config file, in that
// order of precedence.
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	out       io.Writer
	logger    *slog.Logger

	// transport overrides the HTTP transport, for tests
	transport transport.Transport
}

// NewCLI creates the command tree writing results to out
func NewCLI(out io.Writer) *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		out:       out,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// Execute runs the command line
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	if configFile := os.Getenv("NANOREST_CONFIG"); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		cli.viperInst.SetConfigName("nanorest")
		cli.viperInst.SetConfigType("yaml")
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.nanorest")
		cli.viperInst.AddConfigPath("/etc/nanorest")
	}

	cli.viperInst.AutomaticEnv()
	cli.viperInst.SetEnvPrefix("NANOREST")
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	_ = cli.viperInst.ReadInConfig()
}

func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   "nanorest",
		Short: "Work with REST resources described by a schema catalog",
		Long: `nanorest keeps resource schemas in a catalog file and uses them to find,
create, update and delete records on a REST API.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (NANOREST_*)
3. Configuration file (NANOREST_CONFIG, ./nanorest.yaml, ~/.nanorest/nanorest.yaml)
4. Defaults stored in the catalog

Examples:
  nanorest schema add user --route /users --property id=false --property name
  nanorest --base-url https://api.example.com find user --where name=Ada
  nanorest get user 12 13 14
  nanorest update user 12 --set name=Grace --method PATCH`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := initLogging(cli.viperInst.GetString("log-level"), cli.viperInst.GetBool("verbose"))
			if err != nil {
				return NewConfigError(cmd.Name(), err.Error(), CommonSuggestions.RunHelp)
			}
			cli.logger = logger
			return nil
		},
	}
	cli.rootCmd.SetOut(cli.out)

	flags := cli.rootCmd.PersistentFlags()
	flags.StringP("catalog", "c", defaultCatalog, "Schema catalog file")
	flags.String("base-url", "", "API base URL (overrides the catalog default)")
	flags.String("update-method", "", "HTTP method used to update records (PUT or PATCH)")
	flags.StringSliceP("header", "H", nil, "Request header as name=value (repeatable)")
	flags.Duration("timeout", 30*time.Second, "Timeout for the whole command")
	flags.StringP("format", "f", "table", "Output format (table|json|yaml)")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.BoolP("verbose", "v", false, "Also write logs to stderr")

	for _, flag := range []string{"catalog", "base-url", "update-method", "header", "timeout", "format", "log-level", "verbose"} {
		_ = cli.viperInst.BindPFlag(flag, flags.Lookup(flag))
	}
}

func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(cli.schemaCommand())
	cli.addRecordCommands()
}

// catalogStore opens the configured catalog file
func (cli *CLI) catalogStore() *catalog.Store {
	return catalog.Open(cli.viperInst.GetString("catalog"), catalog.WithLogger(cli.logger))
}

// commandContext bounds a command by --timeout
func (cli *CLI) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := cli.viperInst.GetDuration("timeout"); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// client builds a client from the catalog, with flag overrides applied on
// top of the catalog defaults
func (cli *CLI) client(ctx context.Context, operation string) (*nanorest.Client, error) {
	c, err := cli.catalogStore().Load(ctx)
	if err != nil {
		return nil, &CLIError{
			Operation:   operation,
			Cause:       "cannot read catalog",
			Details:     err.Error(),
			Suggestions: []string{CommonSuggestions.CheckCatalog},
			Underlying:  err,
		}
	}

	config := c.Defaults.Apply(nanorest.DefaultConfig())
	if baseURL := cli.viperInst.GetString("base-url"); baseURL != "" {
		config.BaseURL = baseURL
	}
	if method := cli.viperInst.GetString("update-method"); method != "" {
		config.UpdateMethod = strings.ToUpper(method)
	}

	// config already carries the catalog defaults; c.NewRegistry would apply
	// them again over the flags
	registry := schema.NewRegistry(config, schema.WithLogger(cli.logger))
	if err := c.Register(registry); err != nil {
		return nil, NewRequestError(operation, err)
	}

	headers, err := parseHeaders(cli.viperInst.GetStringSlice("header"))
	if err != nil {
		return nil, NewUsageError(operation, "header", err.Error(), "Use --header name=value")
	}

	tr := cli.transport
	if tr == nil {
		tr = transport.NewHTTP(transport.WithLogger(cli.logger))
	}
	return nanorest.NewWithRegistry(registry, tr,
		nanorest.WithLogger(cli.logger),
		nanorest.WithHeaders(headers),
	), nil
}

func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%q is not name=value", v)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}
