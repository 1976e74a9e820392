package resource_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/arthur-debert/nanorest/nanorest/resource"
	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/nanorest/testutil"
	"github.com/arthur-debert/nanorest/nanorest/transport"
	"github.com/arthur-debert/nanorest/types"
)

func repository(t *testing.T, c *resource.Client, name string, overrides ...types.Overrides) *resource.Repository {
	t.Helper()
	r, err := c.Repository(name, overrides...)
	if err != nil {
		t.Fatalf("Repository(%s) failed: %v", name, err)
	}
	return r
}

func TestRepositoryFindByID(t *testing.T) {
	c, backend := testutil.NewClient(t, types.Config{})
	users := repository(t, c, testutil.User)

	backend.Expect("GET", "/users/124").
		Respond(200, `{"response":{"data":{"user":{"id":124,"firstName":"Test","lastName":"User"}}}}`)

	res, err := users.FindByID(context.Background(), 124)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if res.IsCollection() {
		t.Fatal("expected a single result")
	}
	if res.Collection() != nil {
		t.Error("single result should have no collection")
	}

	m, ok := res.Single()
	if !ok {
		t.Fatal("expected a model")
	}
	testutil.AssertState(t, m, types.StateLoaded)
	testutil.AssertJSON(t, m.ToJSON(), `{"id":124,"firstName":"Test","lastName":"User","managerId":null}`)
	if got := m.Route(); got != "/users/124" {
		t.Errorf("model route = %q", got)
	}
}

func TestRepositoryPointerIDs(t *testing.T) {
	c, backend := testutil.NewClient(t, types.Config{})
	users := repository(t, c, testutil.User)
	ctx := context.Background()

	id := 124
	backend.Expect("GET", "/users/124").
		Respond(200, `{"response":{"data":{"user":{"id":124}}}}`)
	res, err := users.FindByID(ctx, &id)
	if err != nil {
		t.Fatalf("FindByID(&id) failed: %v", err)
	}
	if res.IsCollection() {
		t.Error("expected a single result for a pointer id")
	}

	var missing *int
	backend.Expect("GET", "/users").
		Respond(200, `{"response":{"data":{"users":[]}}}`)
	res, err = users.FindByID(ctx, missing)
	if err != nil {
		t.Fatalf("FindByID(nil pointer) failed: %v", err)
	}
	if !res.IsCollection() {
		t.Error("a nil pointer id should fetch the collection")
	}

	name := "ada"
	m := users.Create(map[string]any{"id": &name}, true)
	if got := m.Route(); got != "/users/ada" {
		t.Errorf("model route = %q, want /users/ada", got)
	}
	m = users.Create(map[string]any{"id": missing}, false)
	testutil.AssertState(t, m, types.StateNew)
}

func TestRepositoryFindAll(t *testing.T) {
	c, backend := testutil.NewClient(t, types.Config{})
	users := repository(t, c, testutil.User)

	backend.Expect("GET", "/users?firstName=Test").
		Respond(200, `{"response":{"data":{"users":[
			{"id":1,"firstName":"Test","lastName":"One"},
			{"id":2,"firstName":"Test","lastName":"Two"}
		]}}}`)

	res, err := users.FindAll(context.Background(), map[string]any{"firstName": "Test"})
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if !res.IsCollection() {
		t.Fatal("expected a collection")
	}
	if _, ok := res.Single(); ok {
		t.Error("collection should have no single model")
	}

	models := res.Collection()
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	for i, m := range models {
		testutil.AssertState(t, m, types.StateLoaded)
		if got := m.ID(); got != float64(i+1) {
			t.Errorf("model %d has id %v", i, got)
		}
	}
	testutil.AssertModelCount(t, res, 2)
}

func TestRepositoryFindEmptyCollection(t *testing.T) {
	c, backend := testutil.NewClient(t, types.Config{})
	users := repository(t, c, testutil.User)

	backend.Expect("GET", "/users").Respond(200, `{"response":{"data":{"users":[]}}}`)
	res, err := users.FindAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if !res.IsCollection() || len(res.Collection()) != 0 {
		t.Errorf("expected an empty collection, got %+v", res.Collection())
	}
}

func TestRepositoryFindWithBody(t *testing.T) {
	c, backend := testutil.NewClient(t, types.Config{})
	users := repository(t, c, testutil.User)

	backend.Expect("POST", "/users?page=2").
		WithBody(`{"filter":{"lastName":"User"}}`).
		Respond(200, `{"response":{"data":{"users":[{"id":3}]}}}`)

	res, err := users.Find(context.Background(), resource.Query{
		Params: map[string]any{"page": 2},
		Body:   map[string]any{"filter": map[string]any{"lastName": "User"}},
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	testutil.AssertModelCount(t, res, 1)
}

func TestRepositoryHeaders(t *testing.T) {
	c, backend := testutil.NewClient(t, types.Config{}, resource.WithHeaders(map[string]string{
		"Authorization": "Bearer token",
		"X-Tenant":      "default",
	}))
	users := repository(t, c, testutil.User)

	backend.Expect("GET", "/users/1").Respond(200, `{}`)
	_, err := users.Find(context.Background(), resource.Query{
		ID:      1,
		Headers: map[string]string{"X-Tenant": "acme"},
	})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	reqs := backend.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	h := reqs[0].Headers
	if h["Authorization"] != "Bearer token" || h["X-Tenant"] != "acme" {
		t.Errorf("unexpected headers %v", h)
	}
}

func TestRepositoryIsArray(t *testing.T) {
	ctx := context.Background()

	t.Run("force is one-shot", func(t *testing.T) {
		c, backend := testutil.NewClient(t, types.Config{})
		users := repository(t, c, testutil.User)

		backend.Expect("GET", "/users").
			Respond(200, `{"response":{"data":{"user":{"id":1,"firstName":"Me"}}}}`)
		backend.Expect("GET", "/users").
			Respond(200, `{"response":{"data":{"users":[{"id":1},{"id":2}]}}}`)

		res, err := users.ForceIsArray(false).FindAll(ctx, nil)
		if err != nil {
			t.Fatalf("FindAll failed: %v", err)
		}
		m, ok := res.Single()
		if !ok || m.Get("firstName") != "Me" {
			t.Fatalf("expected the item location to be read, got %+v", res.Data)
		}

		res, err = users.FindAll(ctx, nil)
		if err != nil {
			t.Fatalf("FindAll failed: %v", err)
		}
		testutil.AssertModelCount(t, res, 2)
	})

	t.Run("schema override", func(t *testing.T) {
		c, backend := testutil.NewClient(t, types.Config{})
		users := repository(t, c, testutil.User, types.Overrides{IsArray: types.Bool(true)})

		backend.Expect("GET", "/users/1").
			Respond(200, `{"response":{"data":{"users":[{"id":1},{"id":11}]}}}`)

		res, err := users.FindByID(ctx, 1)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !res.IsCollection() {
			t.Fatal("expected a collection")
		}
		testutil.AssertModelCount(t, res, 2)
	})

	t.Run("shape follows the data", func(t *testing.T) {
		c, backend := testutil.NewClient(t, types.Config{})
		users := repository(t, c, testutil.User, types.Overrides{
			DataListLocation: types.String("data"),
			DataItemLocation: types.String("data"),
		})

		backend.Expect("GET", "/users/1").Respond(200, `{"data":[{"id":1}]}`)
		res, err := users.FindByID(ctx, 1)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if !res.IsCollection() {
			t.Error("a list in the response should make a collection")
		}
	})
}

func TestRepositoryWithoutAutoParse(t *testing.T) {
	c, backend := testutil.NewClient(t, types.Config{})
	users := repository(t, c, testutil.User, types.Overrides{AutoParse: types.Bool(false)})

	body := `{"response":{"data":{"users":[{"id":1}]}}}`
	backend.Expect("GET", "/users").Respond(200, body)

	res, err := users.FindAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if res.Parsed() {
		t.Error("result should not be parsed")
	}
	if string(res.Raw) != body {
		t.Errorf("raw body = %s", res.Raw)
	}
	testutil.AssertModelCount(t, res, 0)
}

func TestRepositoryNestedRoutes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		flatten   bool
		wantItem  string
		wantRoute string
	}{
		{"nested", false, "/users/1/projects/5", "/users/1/projects/5"},
		{"flattened", true, "/projects/5", "/projects/5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, backend := testutil.NewClient(t, types.Config{})
			projects := repository(t, c, testutil.Project, types.Overrides{
				Route:            types.String("/users/1/projects"),
				FlattenItemRoute: types.Bool(tt.flatten),
			})

			backend.Expect("GET", "/users/1/projects").
				Respond(200, `{"response":{"data":{"projects":[{"projectId":5,"name":"P"}]}}}`)
			backend.Expect("GET", tt.wantItem).
				Respond(200, `{"response":{"data":{"project":{"projectId":5,"name":"P"}}}}`)

			all, err := projects.FindAll(ctx, nil)
			if err != nil {
				t.Fatalf("FindAll failed: %v", err)
			}
			if got := all.Collection()[0].Route(); got != tt.wantRoute {
				t.Errorf("collection model route = %q, want %q", got, tt.wantRoute)
			}

			one, err := projects.FindByID(ctx, 5)
			if err != nil {
				t.Fatalf("FindByID failed: %v", err)
			}
			m, _ := one.Single()
			if got := m.Route(); got != tt.wantRoute {
				t.Errorf("model route = %q, want %q", got, tt.wantRoute)
			}
		})
	}
}

func TestRepositoryFindErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("status error", func(t *testing.T) {
		c, backend := testutil.NewClient(t, types.Config{})
		users := repository(t, c, testutil.User)

		backend.Expect("GET", "/users/404").Respond(404, `{"error":"not found"}`)
		_, err := users.FindByID(ctx, 404)
		if !errors.Is(err, resource.ErrFindFailed) {
			t.Fatalf("expected ErrFindFailed, got %v", err)
		}
		var statusErr *transport.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != 404 {
			t.Errorf("expected a 404 status error, got %v", err)
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		c, backend := testutil.NewClient(t, types.Config{})
		users := repository(t, c, testutil.User)

		backend.Expect("GET", "/users").Respond(200, `<html>`)
		if _, err := users.FindAll(ctx, nil); !errors.Is(err, resource.ErrFindFailed) {
			t.Fatalf("expected ErrFindFailed, got %v", err)
		}
	})

	t.Run("composite id", func(t *testing.T) {
		c, _ := testutil.NewClient(t, types.Config{})
		users := repository(t, c, testutil.User)

		if _, err := users.FindByID(ctx, []int{1, 2}); !errors.Is(err, resource.ErrFindFailed) {
			t.Fatalf("expected ErrFindFailed, got %v", err)
		}
	})

	t.Run("unbound repository", func(t *testing.T) {
		c, _ := testutil.NewClient(t, types.Config{})
		if _, err := c.NewRepository().FindAll(ctx, nil); !errors.Is(err, resource.ErrFindFailed) {
			t.Fatalf("expected ErrFindFailed, got %v", err)
		}
	})
}

func TestRepositoryBind(t *testing.T) {
	c, _ := testutil.NewClient(t, types.Config{})

	r := c.NewRepository()
	if err := r.Bind("unknown"); !errors.Is(err, schema.ErrSchemaNotFound) {
		t.Fatalf("expected ErrSchemaNotFound, got %v", err)
	}
	if err := r.Bind(testutil.User); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if r.ResourceName() != testutil.User || r.Route() != "/users" {
		t.Errorf("unexpected binding %s %s", r.ResourceName(), r.Route())
	}
	if err := r.Bind(testutil.Project); !errors.Is(err, resource.ErrSchemaRedefined) {
		t.Fatalf("expected ErrSchemaRedefined, got %v", err)
	}
	if r.ResourceName() != testutil.User {
		t.Error("failed rebind changed the repository")
	}

	if _, err := c.Repository("unknown"); !errors.Is(err, schema.ErrSchemaNotFound) {
		t.Fatalf("expected ErrSchemaNotFound, got %v", err)
	}
}

func TestRepositoryCreate(t *testing.T) {
	config := types.DefaultConfig()
	config.BaseURL = "https://api.example.com"
	c, _ := testutil.NewClient(t, config)
	users := repository(t, c, testutil.User)

	if got := users.FullRoute(); got != "https://api.example.com/users" {
		t.Errorf("FullRoute() = %q", got)
	}

	m := users.Create(map[string]any{"firstName": "New"}, false)
	testutil.AssertState(t, m, types.StateNew)
	if m.Resource() != testutil.User {
		t.Errorf("resource = %q", m.Resource())
	}

	loaded := users.Create(map[string]any{"id": 3}, true, types.Overrides{Route: types.String("/people")})
	testutil.AssertState(t, loaded, types.StateLoaded)
	if got := loaded.FullRoute(); got != "https://api.example.com/people/3" {
		t.Errorf("FullRoute() = %q", got)
	}
	if users.Route() != "/users" {
		t.Error("Create overrides leaked into the repository")
	}
}

func TestRepositoryFindMany(t *testing.T) {
	var calls atomic.Int32
	tr := transport.Func(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
		calls.Add(1)
		id := strings.TrimPrefix(req.URL, "/users/")
		if id == "13" {
			return nil, &transport.StatusError{Method: req.Method, URL: req.URL, StatusCode: 500}
		}
		body := fmt.Sprintf(`{"response":{"data":{"user":{"id":%s,"firstName":"User %s"}}}}`, id, id)
		return &transport.Response{StatusCode: 200, Body: []byte(body)}, nil
	})
	c := resource.NewClient(testutil.LoadSchemas(t, types.DefaultConfig()), tr)
	users := repository(t, c, testutil.User)

	models, err := users.FindMany(context.Background(), []any{3, 1, 2})
	if err != nil {
		t.Fatalf("FindMany failed: %v", err)
	}
	for i, want := range []float64{3, 1, 2} {
		if got := models[i].ID(); got != want {
			t.Errorf("models[%d] id = %v, want %v", i, got, want)
		}
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", calls.Load())
	}

	if _, err := users.FindMany(context.Background(), []any{1, 13}); !errors.Is(err, resource.ErrFindFailed) {
		t.Fatalf("expected ErrFindFailed, got %v", err)
	}
}

func TestRepositoryFindAsync(t *testing.T) {
	c, backend := testutil.NewClient(t, types.Config{})
	users := repository(t, c, testutil.User)

	backend.Expect("GET", "/users/7").Respond(200, `{"response":{"data":{"user":{"id":7}}}}`)

	p := users.FindAsync(context.Background(), resource.Query{ID: 7})
	res, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	select {
	case <-p.Done():
	default:
		t.Error("Done should be closed once Wait returned")
	}
	if m, ok := res.Single(); !ok || m.ID() != 7.0 {
		t.Errorf("unexpected result %+v", res.Data)
	}
}

func TestPendingWaitHonorsContext(t *testing.T) {
	block := make(chan struct{})
	tr := transport.Func(func(ctx context.Context, _ *transport.Request) (*transport.Response, error) {
		<-block
		return &transport.Response{StatusCode: 200}, nil
	})
	c := resource.NewClient(testutil.LoadSchemas(t, types.DefaultConfig()), tr)
	users := repository(t, c, testutil.User)

	p := users.FindAsync(context.Background(), resource.Query{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(block)
	<-p.Done()
}
