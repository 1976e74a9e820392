package resource_test

import (
	"context"
	"errors"
	"testing"

	"github.com/arthur-debert/nanorest/nanorest/resource"
	"github.com/arthur-debert/nanorest/nanorest/testutil"
	"github.com/arthur-debert/nanorest/types"
)

func TestGetRelation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		overrides  []types.Overrides
		data       map[string]any
		relation   string
		relationID any
		wantURL    string
		response   string
		collection bool
		wantRoute  string
	}{
		{
			name:       "collection nested under the model",
			data:       map[string]any{"id": 1},
			relation:   "project",
			wantURL:    "/users/1/projects",
			response:   `{"response":{"data":{"projects":[{"projectId":2},{"projectId":3}]}}}`,
			collection: true,
			wantRoute:  "/users/1/projects/2",
		},
		{
			name:       "single record by id",
			data:       map[string]any{"id": 1},
			relation:   "project",
			relationID: 2,
			wantURL:    "/users/1/projects/2",
			response:   `{"response":{"data":{"project":{"projectId":2,"name":"P"}}}}`,
			wantRoute:  "/users/1/projects/2",
		},
		{
			name:      "single record keyed by a property",
			data:      map[string]any{"id": 1, "managerId": 3},
			relation:  "manager",
			wantURL:   "/users/1/users/3",
			response:  `{"response":{"data":{"user":{"id":3,"firstName":"Boss"}}}}`,
			wantRoute: "/users/1/users/3",
		},
		{
			name: "flattened relation",
			overrides: []types.Overrides{{
				Relations: map[string]types.Relation{"project": {Flatten: types.Bool(true)}},
			}},
			data:       map[string]any{"id": 1},
			relation:   "project",
			relationID: 2,
			wantURL:    "/projects/2",
			response:   `{"response":{"data":{"project":{"projectId":2}}}}`,
			wantRoute:  "/projects/2",
		},
		{
			name: "parent flatten is inherited",
			overrides: []types.Overrides{{
				FlattenItemRoute: types.Bool(true),
			}},
			data:       map[string]any{"id": 1},
			relation:   "project",
			relationID: 2,
			wantURL:    "/projects/2",
			response:   `{"response":{"data":{"project":{"projectId":2}}}}`,
			wantRoute:  "/projects/2",
		},
		{
			name: "relation flatten wins over the parent",
			overrides: []types.Overrides{{
				FlattenItemRoute: types.Bool(true),
				Relations:        map[string]types.Relation{"project": {Flatten: types.Bool(false)}},
			}},
			data:       map[string]any{"id": 1},
			relation:   "project",
			relationID: 2,
			wantURL:    "/users/1/projects/2",
			response:   `{"response":{"data":{"project":{"projectId":2}}}}`,
			wantRoute:  "/users/1/projects/2",
		},
		{
			name: "relation name as resource",
			overrides: []types.Overrides{{
				Properties: map[string]types.Property{"teamId": {}},
				Relations:  map[string]types.Relation{"team": {Property: "teamId"}},
			}},
			data:      map[string]any{"id": 1, "teamId": "core"},
			relation:  "team",
			wantURL:   "/users/1/teams/core",
			response:  `{"response":{"data":{"team":{"id":"core","name":"Core"}}}}`,
			wantRoute: "/users/1/teams/core",
		},
		{
			name: "relation forcing the item location",
			overrides: []types.Overrides{{
				Relations: map[string]types.Relation{"project": {IsArray: types.Bool(false)}},
			}},
			data:      map[string]any{"id": 1},
			relation:  "project",
			wantURL:   "/users/1/projects",
			response:  `{"response":{"data":{"project":{"projectId":8}}}}`,
			wantRoute: "/users/1/projects/8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, backend := testutil.NewClient(t, types.Config{})
			user := newUser(t, c, tt.data, true, tt.overrides...)

			backend.Expect("GET", tt.wantURL).Respond(200, tt.response)

			res, err := user.GetRelation(ctx, tt.relation, tt.relationID)
			if err != nil {
				t.Fatalf("GetRelation failed: %v", err)
			}
			if res.IsCollection() != tt.collection {
				t.Fatalf("IsCollection() = %v, want %v", res.IsCollection(), tt.collection)
			}

			models := res.Models()
			if len(models) == 0 {
				t.Fatal("expected related models")
			}
			testutil.AssertState(t, models[0], types.StateLoaded)
			if got := models[0].Route(); got != tt.wantRoute {
				t.Errorf("related model route = %q, want %q", got, tt.wantRoute)
			}
		})
	}
}

func TestGetRelationChained(t *testing.T) {
	ctx := context.Background()
	c, backend := testutil.NewClient(t, types.Config{})
	user := newUser(t, c, map[string]any{"id": 1}, true)

	backend.Expect("GET", "/users/1/projects/2").
		Respond(200, `{"response":{"data":{"project":{"projectId":2}}}}`)
	backend.Expect("GET", "/users/1/projects/2/teams").
		Respond(200, `{"response":{"data":{"teams":[{"id":4,"name":"Core"}]}}}`)

	res, err := user.GetRelation(ctx, "project", 2)
	if err != nil {
		t.Fatalf("GetRelation failed: %v", err)
	}
	project, _ := res.Single()

	teams, err := project.GetRelation(ctx, "team", nil)
	if err != nil {
		t.Fatalf("GetRelation failed: %v", err)
	}
	if got := teams.Collection()[0].Route(); got != "/users/1/projects/2/teams/4" {
		t.Errorf("team route = %q", got)
	}
}

func TestGetRelationErrors(t *testing.T) {
	ctx := context.Background()
	c, backend := testutil.NewClient(t, types.Config{})

	user := newUser(t, c, map[string]any{"id": 1}, true)
	if _, err := user.GetRelation(ctx, "friends", nil); !errors.Is(err, resource.ErrUnknownRelation) {
		t.Errorf("expected ErrUnknownRelation, got %v", err)
	}
	if _, err := user.GetRelation(ctx, "manager", nil); !errors.Is(err, resource.ErrFindFailed) {
		t.Errorf("expected ErrFindFailed for an empty managerId, got %v", err)
	}
	if n := len(backend.Requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}
