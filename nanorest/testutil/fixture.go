package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/arthur-debert/nanorest/nanorest/resource"
	"github.com/arthur-debert/nanorest/nanorest/schema"
	"github.com/arthur-debert/nanorest/types"
)

// Fixture resources, registered by LoadSchemas
const (
	User    = "user"
	Project = "project"
	Team    = "team"
)

// LoadSchemas returns a registry holding the user, project and team
// schemas from testdata/schemas.json
func LoadSchemas(t testing.TB, config types.Config) *schema.Registry {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to get caller information")
	}
	path := filepath.Join(filepath.Dir(filename), "testdata", "schemas.json")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read schema fixtures: %v", err)
	}

	var defs map[string]any
	if err := json.Unmarshal(data, &defs); err != nil {
		t.Fatalf("failed to parse schema fixtures: %v", err)
	}

	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	registry := schema.NewRegistry(config)
	for _, name := range names {
		if err := registry.AddDefinition(name, defs[name]); err != nil {
			t.Fatalf("failed to register %s: %v", name, err)
		}
	}
	return registry
}

// NewClient returns a client over the fixture schemas and a scripted backend.
// A zero config means the defaults.
func NewClient(t testing.TB, config types.Config, opts ...resource.Option) (*resource.Client, *Backend) {
	t.Helper()
	if config.UpdateMethod == "" && config.ModelIDProperty == "" {
		config = types.DefaultConfig()
	}
	backend := NewBackend(t)
	return resource.NewClient(LoadSchemas(t, config), backend, opts...), backend
}
