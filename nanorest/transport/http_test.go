package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/nanorest/nanorest/transport"
)

func newMockedHTTP(t *testing.T, opts ...transport.Option) (*transport.HTTP, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	opts = append([]transport.Option{transport.WithClient(&http.Client{Transport: mt})}, opts...)
	return transport.NewHTTP(opts...), mt
}

func TestHTTPGetWithParams(t *testing.T) {
	h, mt := newMockedHTTP(t)

	var seen *http.Request
	mt.RegisterResponderWithQuery(http.MethodGet, "https://api.test/users",
		map[string]string{"firstName": "Test", "limit": "10"},
		func(req *http.Request) (*http.Response, error) {
			seen = req
			return httpmock.NewStringResponse(200, `{"users":[]}`), nil
		})

	resp, err := h.Do(context.Background(), &transport.Request{
		Method:  http.MethodGet,
		URL:     "https://api.test/users",
		Params:  map[string]any{"firstName": "Test", "limit": 10.0, "skip": nil},
		Headers: map[string]string{"Authorization": "Bearer token"},
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.JSONEq(t, `{"users":[]}`, string(resp.Body))

	require.NotNil(t, seen)
	require.Equal(t, "Bearer token", seen.Header.Get("Authorization"))
	require.NotEmpty(t, seen.Header.Get(transport.RequestIDHeader))
	require.Empty(t, seen.Header.Get("Content-Type"))
	require.Equal(t, 1, mt.GetTotalCallCount())
}

func TestHTTPPostBody(t *testing.T) {
	h, mt := newMockedHTTP(t)

	var body map[string]any
	var requestID string
	mt.RegisterResponder(http.MethodPost, "https://api.test/users",
		func(req *http.Request) (*http.Response, error) {
			data, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(data, &body); err != nil {
				return nil, err
			}
			requestID = req.Header.Get(transport.RequestIDHeader)
			require.Equal(t, "application/json", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(201, `{"id":234}`), nil
		})

	resp, err := h.Do(context.Background(), &transport.Request{
		Method:  http.MethodPost,
		URL:     "https://api.test/users",
		Body:    map[string]any{"firstName": "Test", "lastName": "User"},
		Headers: map[string]string{transport.RequestIDHeader: "fixed-id"},
	})
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)
	require.Equal(t, map[string]any{"firstName": "Test", "lastName": "User"}, body)
	require.Equal(t, "fixed-id", requestID)
}

func TestHTTPStatusError(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := transport.NewMetrics(reg)
	h, mt := newMockedHTTP(t, transport.WithMetrics(metrics))

	mt.RegisterResponder(http.MethodDelete, "https://api.test/users/1",
		httpmock.NewStringResponder(404, `{"error":"not found"}`))
	mt.RegisterResponder(http.MethodGet, "https://api.test/users/1",
		httpmock.NewStringResponder(200, `{}`))

	_, err := h.Do(context.Background(), &transport.Request{
		Method: http.MethodDelete,
		URL:    "https://api.test/users/1",
	})
	require.Error(t, err)

	var statusErr *transport.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, 404, statusErr.StatusCode)
	require.JSONEq(t, `{"error":"not found"}`, string(statusErr.Body))

	_, err = h.Do(context.Background(), &transport.Request{
		Method: http.MethodGet,
		URL:    "https://api.test/users/1",
	})
	require.NoError(t, err)

	require.Equal(t, 2, promtest.CollectAndCount(metrics.Collectors()[0]))
}

func TestHTTPNetworkError(t *testing.T) {
	h, mt := newMockedHTTP(t)
	mt.RegisterResponder(http.MethodGet, "https://api.test/users",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := h.Do(context.Background(), &transport.Request{Method: http.MethodGet, URL: "https://api.test/users"})
	require.Error(t, err)

	var statusErr *transport.StatusError
	require.False(t, errors.As(err, &statusErr))
}

func TestEncodeQuery(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"empty", nil, ""},
		{"sorted keys", map[string]any{"b": "2", "a": "1"}, "a=1&b=2"},
		{"numbers and bools", map[string]any{"id": 7.0, "active": true}, "active=true&id=7"},
		{"slices repeat the key", map[string]any{"tag": []any{"x", "y"}}, "tag=x&tag=y"},
		{"nil values are skipped", map[string]any{"a": nil, "b": "1"}, "b=1"},
		{"maps are JSON", map[string]any{"where": map[string]any{"a": 1}}, "where=%7B%22a%22%3A1%7D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, transport.EncodeQuery(tt.params))
		})
	}
}

func TestAppendQuery(t *testing.T) {
	require.Equal(t, "/users", transport.AppendQuery("/users", nil))
	require.Equal(t, "/users?a=1", transport.AppendQuery("/users", map[string]any{"a": "1"}))
	require.Equal(t, "/users?x=0&a=1", transport.AppendQuery("/users?x=0", map[string]any{"a": "1"}))
}

func TestFunc(t *testing.T) {
	var got *transport.Request
	var tr transport.Transport = transport.Func(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
		got = req
		return &transport.Response{StatusCode: 204}, nil
	})

	resp, err := tr.Do(context.Background(), &transport.Request{Method: http.MethodDelete, URL: "/users/1"})
	require.NoError(t, err)
	require.Equal(t, 204, resp.StatusCode)
	require.Equal(t, "/users/1", got.URL)
}
