// Package resource implements models and repositories on top of a schema
// registry and a transport.
package resource

import (
	"fmt"
	"log/slog"
	"maps"

	"go.opentelemetry.io/otel"

	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/nanorest/transport"
	"github.com/arthur-debert/nanorest/nanorest/validation"
	"github.com/arthur-debert/nanorest/types"
)

var tracer = otel.Tracer("nanorest.resource")

// Client ties a schema registry to a transport. Models and repositories
// created from the same client share both.
type Client struct {
	registry  *schema.Registry
	transport transport.Transport
	rules     *validation.Registry
	headers   map[string]string
	logger    *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used for sync and find events
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRules replaces the validation rule registry
func WithRules(rules *validation.Registry) Option {
	return func(c *Client) {
		if rules != nil {
			c.rules = rules
		}
	}
}

// WithHeaders sets headers sent with every request. Per-call headers win.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = maps.Clone(headers)
	}
}

// NewClient creates a client. The registry's configuration supplies the base
// URL, update method and validation toggle.
func NewClient(registry *schema.Registry, tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		registry:  registry,
		transport: tr,
		rules:     validation.NewRegistry(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the process-wide defaults
func (c *Client) Config() types.Config {
	return c.registry.Config()
}

// Registry returns the schema registry
func (c *Client) Registry() *schema.Registry {
	return c.registry
}

// Rules returns the validation rule registry
func (c *Client) Rules() *validation.Registry {
	return c.rules
}

// Repository returns a repository bound to the named schema with overrides applied
func (c *Client) Repository(name string, overrides ...types.Overrides) (*Repository, error) {
	r := c.NewRepository()
	if err := r.Bind(name, overrides...); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRepository returns a repository that is not bound to any schema yet
func (c *Client) NewRepository() *Repository {
	return &Repository{client: c}
}

// NewModel creates a model of the named resource
func (c *Client) NewModel(name string, data map[string]any, remote bool, overrides ...types.Overrides) (*Model, error) {
	s, err := c.registry.Get(name, overrides...)
	if err != nil {
		return nil, err
	}
	return newModel(c, name, s, data, remote), nil
}

func (c *Client) requestHeaders(extra map[string]string) map[string]string {
	if len(c.headers) == 0 && len(extra) == 0 {
		return nil
	}
	out := maps.Clone(c.headers)
	if out == nil {
		out = make(map[string]string, len(extra))
	}
	maps.Copy(out, extra)
	return out
}

func (c *Client) fullURL(route string) string {
	if isAbsoluteURL(route) {
		return route
	}
	return c.registry.Config().BaseURL + route
}

func describe(method, url string) string {
	return fmt.Sprintf("%s %s", method, url)
}
