package resource

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	schemacheck "github.com/arthur-debert/nanorest/internal/validation"
	"github.com/arthur-debert/nanorest/nanorest/envelope"
	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/nanorest/transport"
	"github.com/arthur-debert/nanorest/types"
)

// Repository creates models of one resource and queries the API for them.
// It keeps no reference to the models it returns.
type Repository struct {
	client   *Client
	resource string
	schema   types.Schema
	bound    bool

	mu           sync.Mutex
	forceIsArray *bool
}

// Query describes one Find call. A non-nil ID fetches a single record
// (pointers are followed and a nil pointer counts as no ID);
// otherwise Params filter the collection. A non-empty Body turns the request
// into a POST carrying it, with Params still sent in the query string.
type Query struct {
	ID      any
	Params  map[string]any
	Headers map[string]string
	Body    map[string]any
}

func (c *Client) repositoryFor(name string, s types.Schema) *Repository {
	return &Repository{client: c, resource: name, schema: s, bound: true}
}

// Bind attaches the repository to a registered schema. A repository can be
// bound once; binding it again returns ErrSchemaRedefined.
func (r *Repository) Bind(name string, overrides ...types.Overrides) error {
	if r.bound {
		return fmt.Errorf("%w: %s", ErrSchemaRedefined, r.resource)
	}
	s, err := r.client.registry.Get(name, overrides...)
	if err != nil {
		return err
	}
	r.resource = name
	r.schema = s
	r.bound = true
	return nil
}

// ResourceName returns the name of the bound resource
func (r *Repository) ResourceName() string {
	return r.resource
}

// Schema returns a copy of the bound schema
func (r *Repository) Schema() types.Schema {
	return r.schema.Clone()
}

// Route returns the collection route relative to the base URL
func (r *Repository) Route() string {
	return r.schema.Route
}

// FullRoute returns the collection route prefixed with the base URL
func (r *Repository) FullRoute() string {
	return r.client.fullURL(r.schema.Route)
}

// Create builds a model of the bound resource. Overrides apply on top of the
// repository's schema.
func (r *Repository) Create(data map[string]any, remote bool, overrides ...types.Overrides) *Model {
	s := r.schema.Clone()
	for _, o := range overrides {
		s = schema.Merge(s, o)
	}
	return newModel(r.client, r.resource, s, data, remote)
}

// ForceIsArray overrides, for the next Find only, whether the response is
// read from the list location or the item location.
func (r *Repository) ForceIsArray(isArray bool) *Repository {
	r.mu.Lock()
	r.forceIsArray = &isArray
	r.mu.Unlock()
	return r
}

func (r *Repository) takeForceIsArray() *bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.forceIsArray
	r.forceIsArray = nil
	return v
}

// FindByID fetches a single record
func (r *Repository) FindByID(ctx context.Context, id any) (*Result, error) {
	return r.Find(ctx, Query{ID: id})
}

// FindAll fetches the collection filtered by params
func (r *Repository) FindAll(ctx context.Context, params map[string]any) (*Result, error) {
	return r.Find(ctx, Query{Params: params})
}

// Find queries the API and, when the schema auto-parses, hydrates the
// records it finds into remote models.
//
// Whether the list or the item location is read is decided by, in order,
// ForceIsArray, the schema's IsArray, and whether an ID was given. The shape
// of the data found there decides whether the result is a collection.
func (r *Repository) Find(ctx context.Context, q Query) (*Result, error) {
	if !r.bound {
		return nil, fmt.Errorf("%w: repository is not bound to a schema", ErrFindFailed)
	}
	force := r.takeForceIsArray()

	route := r.schema.Route
	id := derefID(q.ID)
	isArray := id == nil
	if id != nil {
		if err := schemacheck.ValidateSimpleType(id, r.schema.IDProperty); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFindFailed, err)
		}
		route = itemRoute(route, r.schema.FlattenItemRoute, id)
	}
	if r.schema.IsArray != nil {
		isArray = *r.schema.IsArray
	}
	if force != nil {
		isArray = *force
	}

	req := &transport.Request{
		Method:  http.MethodGet,
		URL:     r.client.fullURL(route),
		Params:  q.Params,
		Headers: r.client.requestHeaders(q.Headers),
	}
	if len(q.Body) > 0 {
		req.Method = http.MethodPost
		req.Body = q.Body
	}

	ctx, span := tracer.Start(ctx, "Repository.Find", trace.WithAttributes(
		attribute.String("nanorest.resource", r.resource),
		attribute.String("http.method", req.Method),
		attribute.Bool("nanorest.is_array", isArray),
	))
	defer span.End()

	resp, err := r.client.transport.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %s: %w", ErrFindFailed, describe(req.Method, req.URL), err)
	}

	result := &Result{Response: resp, Raw: resp.Body, isArray: isArray}
	if !r.schema.AutoParse {
		return result, nil
	}

	location := r.schema.DataItemLocation
	if isArray {
		location = r.schema.DataListLocation
	}
	data, err := envelope.Read(resp.Body, location)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %s: %w", ErrFindFailed, describe(req.Method, req.URL), err)
	}
	r.hydrate(result, data)

	span.SetAttributes(attribute.Int("nanorest.models", len(result.Models())))
	r.client.logger.Debug("found records", "resource", r.resource, "url", req.URL, "models", len(result.Models()))
	return result, nil
}

func (r *Repository) hydrate(result *Result, data any) {
	result.Data = data
	result.parsed = true

	switch v := data.(type) {
	case []any:
		result.isArray = true
		result.models = make([]*Model, 0, len(v))
		for i, item := range v {
			record, ok := item.(map[string]any)
			if !ok {
				r.client.logger.Warn("skipping non-object record", "resource", r.resource, "index", i)
				continue
			}
			result.models = append(result.models, newModel(r.client, r.resource, r.schema.Clone(), record, true))
		}
	case map[string]any:
		result.isArray = false
		result.single = newModel(r.client, r.resource, r.schema.Clone(), v, true)
	}
}

// FindMany fetches several records by id concurrently. Models are returned
// in the order of ids; the first failure cancels the rest.
func (r *Repository) FindMany(ctx context.Context, ids []any) ([]*Model, error) {
	models := make([]*Model, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			res, err := r.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if m, ok := res.Single(); ok {
				models[i] = m
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return models, nil
}

// FindAsync runs Find in the background and returns a handle to its outcome
func (r *Repository) FindAsync(ctx context.Context, q Query) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.result, p.err = r.Find(ctx, q)
	}()
	return p
}
