package testutil

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/nanorest/nanorest/resource"
	"github.com/arthur-debert/nanorest/types"
)

// AssertState checks the derived state of a model
func AssertState(t testing.TB, m *resource.Model, want types.State) {
	t.Helper()
	if got := m.State(); got != want {
		t.Errorf("expected state %s, got %s", want, got)
	}
}

// AssertDirty checks the exact set of dirty properties, in any order
func AssertDirty(t testing.TB, m *resource.Model, want ...string) {
	t.Helper()
	got := m.DirtyProperties()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	set := make(map[string]bool, len(want))
	for _, w := range want {
		set[w] = true
	}
	if len(got) != len(want) {
		t.Errorf("expected dirty properties %v, got %v", want, got)
		return
	}
	for _, g := range got {
		if !set[g] {
			t.Errorf("expected dirty properties %v, got %v", want, got)
			return
		}
	}
}

// AssertJSON compares a value with a JSON document, as JSON
func AssertJSON(t testing.TB, got any, wantJSON string) {
	t.Helper()
	var want any
	if err := json.Unmarshal([]byte(wantJSON), &want); err != nil {
		t.Fatalf("invalid expected JSON %q: %v", wantJSON, err)
	}
	normalized, err := normalizeJSON(got)
	if err != nil {
		t.Fatalf("cannot encode %T: %v", got, err)
	}
	if diff := cmp.Diff(want, normalized); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

// AssertModelCount checks the number of models in a find result
func AssertModelCount(t testing.TB, r *resource.Result, expected int) {
	t.Helper()
	if got := len(r.Models()); got != expected {
		t.Errorf("expected %d models, got %d", expected, got)
	}
}
