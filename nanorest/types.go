package nanorest

import (
	"github.com/arthur-debert/nanorest/nanorest/envelope"
	"github.com/arthur-debert/nanorest/nanorest/resource"
	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/types"
)

// Re-export types from the types package for convenience
type State = types.State

const (
	StateNew     = types.StateNew
	StateLoaded  = types.StateLoaded
	StateDirty   = types.StateDirty
	StateDeleted = types.StateDeleted
)

// SyncRule is an alias for types.SyncRule
type SyncRule = types.SyncRule

const (
	SyncAlways = types.SyncAlways
	SyncNever  = types.SyncNever
	SyncCreate = types.SyncCreate
	SyncUpdate = types.SyncUpdate
	SyncReset  = types.SyncReset
)

// Config is an alias for types.Config
type Config = types.Config

// Schema is an alias for types.Schema
type Schema = types.Schema

// Definition is an alias for types.Definition
type Definition = types.Definition

// Overrides is an alias for types.Overrides
type Overrides = types.Overrides

// Property is an alias for types.Property
type Property = types.Property

// Relation is an alias for types.Relation
type Relation = types.Relation

// ValidationRule is an alias for types.ValidationRule
type ValidationRule = types.ValidationRule

// RequestFormatter is an alias for types.RequestFormatter
type RequestFormatter = types.RequestFormatter

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return types.DefaultConfig()
}

// Bool returns a pointer to b, for optional schema fields
func Bool(b bool) *bool { return types.Bool(b) }

// String returns a pointer to s, for optional schema fields
func String(s string) *string { return types.String(s) }

// WrapRequest returns a formatter that nests outgoing payloads under path
func WrapRequest(path string) RequestFormatter {
	return envelope.Wrap(path)
}

// Errors, re-exported so callers only need this package
var (
	ErrSchemaNotFound  = schema.ErrSchemaNotFound
	ErrInvalidSchema   = schema.ErrInvalidSchema
	ErrUnknownRelation = resource.ErrUnknownRelation
	ErrUnknownProperty = resource.ErrUnknownProperty
	ErrSchemaRedefined = resource.ErrSchemaRedefined
	ErrSyncFailed      = resource.ErrSyncFailed
	ErrFindFailed      = resource.ErrFindFailed
)
