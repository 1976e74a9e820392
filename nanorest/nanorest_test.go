package nanorest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/nanorest/nanorest"
	"github.com/arthur-debert/nanorest/nanorest/transport"
)

func TestClientOverHTTP(t *testing.T) {
	ctx := context.Background()
	mt := httpmock.NewMockTransport()
	tr := transport.NewHTTP(transport.WithClient(&http.Client{Transport: mt}))

	config := nanorest.DefaultConfig()
	config.BaseURL = "https://api.test/v1"
	config.UpdateMethod = http.MethodPatch
	config.ResponseDataLocation = "data"
	client := nanorest.New(config, tr, nanorest.WithHeaders(map[string]string{"Authorization": "Bearer t"}))

	require.NoError(t, client.Registry().Add("user", nanorest.Definition{
		Route: nanorest.String("/users"),
		Properties: map[string]nanorest.Property{
			"id":        {Sync: nanorest.SyncNever},
			"firstName": {RemoteProperty: "first_name"},
			"lastName":  {RemoteProperty: "last_name"},
		},
		RequestFormatter: nanorest.WrapRequest("user"),
	}))

	var created map[string]any
	mt.RegisterResponder(http.MethodPost, "https://api.test/v1/users",
		func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "Bearer t", req.Header.Get("Authorization"))
			data, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(data, &created); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(201, `{"data":{"id":234,"first_name":"Test","last_name":"User"}}`), nil
		})
	mt.RegisterResponder(http.MethodPatch, "https://api.test/v1/users/234",
		httpmock.NewStringResponder(200, `{"data":{"id":234,"first_name":"Renamed","last_name":"User"}}`))
	mt.RegisterResponder(http.MethodGet, "https://api.test/v1/users",
		httpmock.NewStringResponder(200, `{"data":[{"id":234,"first_name":"Renamed","last_name":"User"}]}`))
	mt.RegisterResponder(http.MethodDelete, "https://api.test/v1/users/234",
		httpmock.NewStringResponder(204, ``))

	m, err := client.NewModel("user", map[string]any{"firstName": "Test", "lastName": "User"}, false)
	require.NoError(t, err)
	require.Equal(t, nanorest.StateNew, m.State())

	res, err := m.Save(ctx)
	require.NoError(t, err)
	require.True(t, res.Synced())
	require.Equal(t, map[string]any{"user": map[string]any{"first_name": "Test", "last_name": "User"}}, created)
	require.Equal(t, nanorest.StateLoaded, m.State())
	require.Equal(t, "https://api.test/v1/users/234", m.FullRoute())

	require.NoError(t, m.Set("firstName", "Renamed"))
	require.Equal(t, nanorest.StateDirty, m.State())
	_, err = m.Save(ctx)
	require.NoError(t, err)
	require.Equal(t, nanorest.StateLoaded, m.State())

	users, err := client.Repository("user")
	require.NoError(t, err)
	found, err := users.FindAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, found.Collection(), 1)
	require.Equal(t, "Renamed", found.Collection()[0].Get("firstName"))

	require.NoError(t, m.Destroy(ctx))
	require.Equal(t, nanorest.StateDeleted, m.State())
	require.Equal(t, 4, mt.GetTotalCallCount())
}

func TestClientErrors(t *testing.T) {
	client := nanorest.New(nanorest.DefaultConfig(), transport.Func(
		func(context.Context, *transport.Request) (*transport.Response, error) {
			return nil, &transport.StatusError{StatusCode: 500}
		}))

	_, err := client.Repository("missing")
	require.ErrorIs(t, err, nanorest.ErrSchemaNotFound)

	require.NoError(t, client.Registry().Add("user", nanorest.Definition{Route: nanorest.String("/users")}))
	users, err := client.Repository("user")
	require.NoError(t, err)
	_, err = users.FindByID(context.Background(), 1)
	require.ErrorIs(t, err, nanorest.ErrFindFailed)
}
