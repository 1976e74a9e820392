// Package nanorest maps REST resources to client-side models.
//
// Resources are described by schemas held in a registry. A Repository queries
// the API for records of a resource and hydrates them into Models; a Model
// tracks its own changes and syncs them back with the right HTTP method and
// payload.
package nanorest

import (
	"github.com/arthur-debert/nanorest/nanorest/resource"
	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/nanorest/transport"
)

// Client is the entry point: it owns the schema registry and the transport
type Client = resource.Client

// Model is one record of a resource
type Model = resource.Model

// Repository queries the API for records of one resource
type Repository = resource.Repository

// Query describes a Repository.Find call
type Query = resource.Query

// Result is the outcome of a find
type Result = resource.Result

// SyncResult is the outcome of Model.Sync
type SyncResult = resource.SyncResult

// Option configures a Client
type Option = resource.Option

// Transport sends requests to the API
type Transport = transport.Transport

// New creates a client with an empty schema registry built from config.
// A nil transport means HTTP over http.DefaultClient.
func New(config Config, tr Transport, opts ...Option) *Client {
	if tr == nil {
		tr = transport.NewHTTP()
	}
	return resource.NewClient(schema.NewRegistry(config), tr, opts...)
}

// NewWithRegistry creates a client over an existing registry, typically one
// filled from a catalog
func NewWithRegistry(registry *schema.Registry, tr Transport, opts ...Option) *Client {
	if tr == nil {
		tr = transport.NewHTTP()
	}
	return resource.NewClient(registry, tr, opts...)
}

// Client options

// WithLogger is an alias for resource.WithLogger
var WithLogger = resource.WithLogger

// WithHeaders is an alias for resource.WithHeaders
var WithHeaders = resource.WithHeaders

// WithRules is an alias for resource.WithRules
var WithRules = resource.WithRules
