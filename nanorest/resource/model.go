package resource

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arthur-debert/nanorest/nanorest/envelope"
	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/nanorest/transport"
	"github.com/arthur-debert/nanorest/nanorest/validation"
	"github.com/arthur-debert/nanorest/types"
)

// Model is one record of a resource. Field values are kept under their
// local names; original holds the pre-change value of every field touched
// since the last successful sync.
//
// A Model is safe for concurrent use, but two concurrent syncs of the same
// model race: whichever response arrives last wins.
type Model struct {
	mu       sync.RWMutex
	client   *Client
	resource string
	schema   types.Schema
	data     map[string]any
	original map[string]any
	remote   bool
	deleted  bool
}

// SyncResult is the outcome of Model.Sync. When validation blocked the sync,
// Validation is non-empty and Response is nil.
type SyncResult struct {
	Response   *transport.Response
	Validation validation.Errors
}

// Synced reports whether the request was actually sent
func (r *SyncResult) Synced() bool {
	return r != nil && r.Response != nil
}

func newModel(c *Client, resource string, s types.Schema, data map[string]any, remote bool) *Model {
	m := &Model{
		client:   c,
		resource: resource,
		schema:   s,
		data:     make(map[string]any, len(s.Properties)),
		original: make(map[string]any),
	}
	m.extendLocked(data, remote)
	return m
}

// Resource returns the name of the model's resource
func (m *Model) Resource() string {
	return m.resource
}

// Schema returns a copy of the schema the model was built with
func (m *Model) Schema() types.Schema {
	return m.schema.Clone()
}

// Get returns the value of a property, or nil when unset. A property getter,
// if declared, transforms the stored value.
func (m *Model) Get(name string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(name)
}

func (m *Model) getLocked(name string) any {
	v := m.data[name]
	if p, ok := m.schema.Properties[name]; ok && p.Getter != nil {
		v = p.Getter(v)
	}
	return v
}

// ID returns the raw value of the id property
func (m *Model) ID() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[m.schema.IDProperty]
}

// Set assigns a property. Setting an undeclared property is ignored, or
// fails with ErrUnknownProperty when the configuration is strict.
func (m *Model) Set(name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.schema.HasProperty(name) {
		if m.client.Config().StrictMode {
			return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, m.resource, name)
		}
		return nil
	}
	m.setLocked(name, value)
	return nil
}

// setLocked stores value under name. The first change of a field since the
// last sync captures its previous value, unless that value was unset.
// Changing a field back to its captured value makes it clean again.
func (m *Model) setLocked(name string, value any) {
	current, had := m.data[name]
	if had && reflect.DeepEqual(current, value) {
		return
	}

	if orig, captured := m.original[name]; captured {
		if reflect.DeepEqual(orig, value) {
			delete(m.original, name)
		}
	} else if current != nil {
		m.original[name] = current
	}

	if p := m.schema.Properties[name]; p.Setter != nil {
		value = p.Setter(value)
	}
	m.data[name] = value
}

// DirtyProperties returns, sorted, the properties changed since the last sync
func (m *Model) DirtyProperties() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedKeys(m.original)
}

// Original returns the captured pre-change value of a dirty property
func (m *Model) Original(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.original[name]
	return v, ok
}

// ToJSON returns every schema property under its local name. Unset
// properties map to nil.
func (m *Model) ToJSON() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.toJSONLocked()
}

func (m *Model) toJSONLocked() map[string]any {
	out := make(map[string]any, len(m.schema.Properties))
	for name := range m.schema.Properties {
		out[name] = m.getLocked(name)
	}
	return out
}

// ExtendData normalizes data from remote naming and sets every property it
// holds. Keys that match no property are ignored. With setRemote the model
// is marked as existing remotely.
func (m *Model) ExtendData(data map[string]any, setRemote bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extendLocked(data, setRemote)
}

func (m *Model) extendLocked(data map[string]any, setRemote bool) {
	normalized := schema.NormalizeData(m.schema, data, schema.Incoming)
	for _, name := range sortedKeys(normalized) {
		if m.schema.HasProperty(name) {
			m.setLocked(name, normalized[name])
		}
	}
	if setRemote {
		m.remote = true
	}
}

// State derives the model's lifecycle state
func (m *Model) State() types.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *Model) stateLocked() types.State {
	return types.DeriveState(m.remote, m.deleted, hasValue(m.data[m.schema.IDProperty]), len(m.original) > 0)
}

// IsRemote reports whether the model is loaded or dirty
func (m *Model) IsRemote() bool {
	return m.State().IsRemote()
}

// Route returns the model's route relative to the base URL. Remote models
// get their id appended.
func (m *Model) Route() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routeLocked()
}

func (m *Model) routeLocked() string {
	if !m.stateLocked().IsRemote() {
		return m.schema.Route
	}
	return itemRoute(m.schema.Route, m.schema.FlattenItemRoute, m.getLocked(m.schema.IDProperty))
}

// FullRoute returns the route prefixed with the configured base URL
func (m *Model) FullRoute() string {
	return m.client.fullURL(m.Route())
}

// Save syncs the model with the method derived from its state
func (m *Model) Save(ctx context.Context) (*SyncResult, error) {
	return m.Sync(ctx, "", true)
}

// Sync sends the model to the API.
//
// An empty method means POST for new models and the configured update
// method otherwise. POST sends every property allowed on create, PUT sends
// ToJSON in full, DELETE sends nothing and any other method sends the dirty
// properties allowed on update. With syncLocal the response item is merged
// back and the model becomes clean.
//
// When validation on sync is enabled and fails, nothing is sent and the
// result carries the validation errors. Transport failures leave the model
// untouched and are reported wrapped in ErrSyncFailed.
func (m *Model) Sync(ctx context.Context, method string, syncLocal bool) (*SyncResult, error) {
	if m.client.Config().ValidateOnSync {
		if errs := m.Validate(); !errs.Valid() {
			m.client.logger.Debug("sync blocked by validation", "resource", m.resource, "errors", errs)
			return &SyncResult{Validation: errs}, nil
		}
	}
	return m.sync(ctx, method, syncLocal)
}

func (m *Model) sync(ctx context.Context, method string, syncLocal bool) (*SyncResult, error) {
	m.mu.RLock()
	method = strings.ToUpper(method)
	if method == "" {
		if m.stateLocked() == types.StateNew {
			method = http.MethodPost
		} else {
			method = m.client.Config().UpdateMethod
		}
	}
	var body any
	if method != http.MethodDelete {
		payload := schema.NormalizeData(m.schema, m.payloadLocked(method), schema.Outgoing)
		body = m.schema.RequestFormatter.Format(payload)
	}
	url := m.client.fullURL(m.routeLocked())
	m.mu.RUnlock()

	ctx, span := tracer.Start(ctx, "Model.Sync", trace.WithAttributes(
		attribute.String("nanorest.resource", m.resource),
		attribute.String("http.method", method),
	))
	defer span.End()

	resp, err := m.client.transport.Do(ctx, &transport.Request{
		Method:  method,
		URL:     url,
		Headers: m.client.requestHeaders(nil),
		Body:    body,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %s: %w", ErrSyncFailed, describe(method, url), err)
	}

	var item map[string]any
	if syncLocal {
		v, err := envelope.Read(resp.Body, m.schema.DataItemLocation)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("%w: %s: %w", ErrSyncFailed, describe(method, url), err)
		}
		item, _ = v.(map[string]any)
	}

	m.mu.Lock()
	if syncLocal {
		m.extendLocked(item, false)
		clear(m.original)
	}
	if method == http.MethodPost {
		m.remote = true
	}
	state := m.stateLocked()
	m.mu.Unlock()

	m.client.logger.Debug("synced model", "resource", m.resource, "method", method, "url", url, "state", state.String())
	return &SyncResult{Response: resp}, nil
}

// payloadLocked picks the properties sent for method, under local names
func (m *Model) payloadLocked(method string) map[string]any {
	if method == http.MethodPut {
		return m.toJSONLocked()
	}

	payload := make(map[string]any)
	if m.stateLocked() == types.StateLoaded {
		return payload
	}

	if method == http.MethodPost {
		for name, p := range m.schema.Properties {
			if p.Sync.Allows(types.SyncCreate) {
				payload[name] = m.getLocked(name)
			}
		}
		return payload
	}

	for name := range m.original {
		if m.schema.Properties[name].Sync.Allows(types.SyncUpdate) {
			payload[name] = m.getLocked(name)
		}
	}
	return payload
}

// Destroy deletes a remote model. It does nothing for models that are not
// remote. Once the DELETE succeeds the id is cleared and the model is
// deleted for good; on failure the model is left as it was.
func (m *Model) Destroy(ctx context.Context) error {
	if !m.IsRemote() {
		return nil
	}
	if _, err := m.sync(ctx, http.MethodDelete, false); err != nil {
		return err
	}

	m.mu.Lock()
	m.data[m.schema.IDProperty] = nil
	m.remote = false
	m.deleted = true
	clear(m.original)
	m.mu.Unlock()

	m.client.logger.Debug("destroyed model", "resource", m.resource)
	return nil
}

// Reset restores every dirty property to its captured value
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.data, m.original)
	clear(m.original)
}

// Validate runs the validation rules of the named properties, or of every
// property when no name is given.
func (m *Model) Validate(names ...string) validation.Errors {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(names) == 0 {
		names = sortedKeys(m.schema.Properties)
	}

	errs := validation.Errors{}
	for _, name := range names {
		p, ok := m.schema.Properties[name]
		if !ok || len(p.Validation) == 0 {
			continue
		}
		if failed := m.client.rules.Check(m.getLocked(name), p.Validation); len(failed) > 0 {
			errs[name] = failed
		}
	}
	return errs
}

// Inherited returns a value from the schema's inherit bag
func (m *Model) Inherited(name string) (any, bool) {
	v, ok := m.schema.Inherit[name]
	return v, ok
}

// Invoke calls an inherited function that takes the model
func (m *Model) Invoke(name string) (any, error) {
	v, ok := m.schema.Inherit[name]
	if !ok {
		return nil, fmt.Errorf("%s: nothing inherited under %q", m.resource, name)
	}
	switch fn := v.(type) {
	case func(*Model) any:
		return fn(m), nil
	case func(*Model) (any, error):
		return fn(m)
	case func(*Model):
		fn(m)
		return nil, nil
	}
	return nil, fmt.Errorf("%s: inherited %q is %T, not a function of the model", m.resource, name, v)
}

// GetRelation finds the records related to this model through a declared
// relation. The related repository's route is nested under this model's
// route. Single-valued relations, or a non-nil relationID, fetch one record;
// other relations fetch the collection.
func (m *Model) GetRelation(ctx context.Context, name string, relationID any) (*Result, error) {
	m.mu.RLock()
	rel, ok := m.schema.Relations[name]
	if !ok {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s has no relation %q", ErrUnknownRelation, m.resource, name)
	}
	flatten := m.schema.FlattenItemRoute
	parentRoute := m.routeLocked()
	if relationID == nil && rel.Property != "" {
		relationID = m.getLocked(rel.Property)
	}
	m.mu.RUnlock()

	resourceName := rel.Resource
	if resourceName == "" {
		resourceName = name
	}
	child, err := m.client.registry.Get(resourceName)
	if err != nil {
		return nil, err
	}
	if rel.Flatten != nil {
		flatten = *rel.Flatten
	}
	child.FlattenItemRoute = flatten
	child.Route = parentRoute + child.Route
	child.IsArray = cloneBool(rel.IsArray)

	repo := m.client.repositoryFor(resourceName, child)
	if rel.Property != "" || relationID != nil {
		if !hasValue(relationID) {
			return nil, fmt.Errorf("%w: %s relation %q: %s is empty", ErrFindFailed, m.resource, name, rel.Property)
		}
		return repo.FindByID(ctx, relationID)
	}
	return repo.FindAll(ctx, nil)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}
