package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/nanorest/nanorest/transport"
)

// Backend is a scripted transport. Requests must arrive in the order they
// were expected; each expectation answers exactly one request.
type Backend struct {
	t            testing.TB
	mu           sync.Mutex
	expectations []*Expectation
	requests     []*transport.Request
}

// Expectation is one scripted request and its response
type Expectation struct {
	method   string
	url      string
	body     any
	hasBody  bool
	status   int
	response []byte
	err      error
}

// NewBackend creates a backend that fails t when expectations are left
// unanswered at the end of the test.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{t: t}
	t.Cleanup(b.VerifyNoOutstandingExpectations)
	return b
}

// Expect scripts the next request. url includes the query string, if any.
func (b *Backend) Expect(method, url string) *Expectation {
	e := &Expectation{method: strings.ToUpper(method), url: url, status: http.StatusOK}
	b.mu.Lock()
	b.expectations = append(b.expectations, e)
	b.mu.Unlock()
	return e
}

// WithBody requires the request body to equal jsonBody, compared as JSON
func (e *Expectation) WithBody(jsonBody string) *Expectation {
	var v any
	if err := json.Unmarshal([]byte(jsonBody), &v); err != nil {
		panic(fmt.Sprintf("testutil: invalid expected body %q: %v", jsonBody, err))
	}
	e.body = v
	e.hasBody = true
	return e
}

// Respond sets the status and body returned. body may be a string, bytes or
// any value that encodes to JSON.
func (e *Expectation) Respond(status int, body any) *Expectation {
	e.status = status
	switch v := body.(type) {
	case nil:
		e.response = nil
	case string:
		e.response = []byte(v)
	case []byte:
		e.response = v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("testutil: cannot encode response: %v", err))
		}
		e.response = data
	}
	return e
}

// Fail makes the request fail with err instead of returning a response
func (e *Expectation) Fail(err error) *Expectation {
	e.err = err
	return e
}

// Do implements transport.Transport
func (b *Backend) Do(_ context.Context, req *transport.Request) (*transport.Response, error) {
	b.t.Helper()
	url := transport.AppendQuery(req.URL, req.Params)

	b.mu.Lock()
	b.requests = append(b.requests, req)
	if len(b.expectations) == 0 {
		b.mu.Unlock()
		b.t.Errorf("unexpected request %s %s", req.Method, url)
		return nil, fmt.Errorf("unexpected request %s %s", req.Method, url)
	}
	e := b.expectations[0]
	b.expectations = b.expectations[1:]
	b.mu.Unlock()

	if e.method != req.Method || e.url != url {
		b.t.Errorf("expected request %s %s, got %s %s", e.method, e.url, req.Method, url)
		return nil, fmt.Errorf("unexpected request %s %s", req.Method, url)
	}

	if e.hasBody {
		got, err := normalizeJSON(req.Body)
		if err != nil {
			b.t.Errorf("%s %s: cannot encode request body: %v", req.Method, url, err)
		} else if diff := cmp.Diff(e.body, got); diff != "" {
			b.t.Errorf("%s %s: body mismatch (-want +got):\n%s", req.Method, url, diff)
		}
	}

	if e.err != nil {
		return nil, e.err
	}
	if e.status < 200 || e.status > 299 {
		return nil, &transport.StatusError{Method: req.Method, URL: url, StatusCode: e.status, Body: e.response}
	}
	return &transport.Response{StatusCode: e.status, Body: e.response, Header: http.Header{}}, nil
}

// VerifyNoOutstandingExpectations fails the test for every expectation
// that was never requested
func (b *Backend) VerifyNoOutstandingExpectations() {
	b.t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.expectations {
		b.t.Errorf("expected request %s %s was never made", e.method, e.url)
	}
	b.expectations = nil
}

// Requests returns every request received so far
func (b *Backend) Requests() []*transport.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*transport.Request(nil), b.requests...)
}

func normalizeJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(data, &out)
	return out, err
}
