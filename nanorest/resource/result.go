package resource

import (
	"context"

	"github.com/arthur-debert/nanorest/nanorest/transport"
)

// Result is the outcome of a Find. It holds either a single model or a
// collection, never both. When the schema does not auto-parse, only the raw
// response is set.
type Result struct {
	Response *transport.Response
	Raw      []byte
	Data     any // value read from the response envelope

	isArray bool
	parsed  bool
	single  *Model
	models  []*Model
}

// IsCollection reports whether the result holds a list of records
func (r *Result) IsCollection() bool {
	return r.isArray
}

// Parsed reports whether the response was hydrated into models
func (r *Result) Parsed() bool {
	return r.parsed
}

// Single returns the model of a single-record result
func (r *Result) Single() (*Model, bool) {
	if r.isArray || r.single == nil {
		return nil, false
	}
	return r.single, true
}

// Collection returns the models of a collection result, in response order
func (r *Result) Collection() []*Model {
	if !r.isArray {
		return nil
	}
	return r.models
}

// Models returns every hydrated model, whatever the shape
func (r *Result) Models() []*Model {
	if r.single != nil {
		return []*Model{r.single}
	}
	return r.models
}

// Pending is the handle returned by FindAsync
type Pending struct {
	done   chan struct{}
	result *Result
	err    error
}

// Done is closed once the find has completed
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the find completes or ctx ends
func (p *Pending) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
