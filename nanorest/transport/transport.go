// Package transport issues the HTTP requests models and repositories need.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
)

// Request describes one call to the remote API
type Request struct {
	Method  string
	URL     string
	Params  map[string]any    // encoded into the query string
	Headers map[string]string // passed through unchanged
	Body    any               // JSON encoded when non-nil
}

// Response is the raw outcome of a successful call
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Transport performs a request and returns the response body on 2xx.
// Any other status is reported as a *StatusError.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Func adapts a plain function to the Transport interface
type Func func(ctx context.Context, req *Request) (*Response, error)

// Do implements Transport.Do
func (f Func) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// StatusError is returned for responses outside the 2xx range
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// EncodeQuery encodes params as a query string with keys in sorted order.
// Slices repeat the key, maps are sent as JSON and nil values are skipped.
func EncodeQuery(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		switch v := params[k].(type) {
		case nil:
		case []any:
			for _, item := range v {
				values.Add(k, formatParam(item))
			}
		case []string:
			for _, item := range v {
				values.Add(k, item)
			}
		default:
			values.Add(k, formatParam(v))
		}
	}
	return values.Encode()
}

// AppendQuery adds the encoded params to rawURL
func AppendQuery(rawURL string, params map[string]any) string {
	q := EncodeQuery(params)
	if q == "" {
		return rawURL
	}
	if u, err := url.Parse(rawURL); err == nil && u.RawQuery != "" {
		return rawURL + "&" + q
	}
	return rawURL + "?" + q
}

func formatParam(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
