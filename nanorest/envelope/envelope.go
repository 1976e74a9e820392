// Package envelope reads records out of wrapped API responses and wraps
// outgoing payloads the same way.
//
// Paths are dotted ("response.data.users"). Any gjson path is accepted, so
// "data.items.0" or "data.items.#.id" work as well.
package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/arthur-debert/nanorest/types"
)

// Read returns the value at path inside body, decoded into plain Go values
// (maps, slices, float64, string, bool). An empty path selects the whole
// body. A missing segment is not an error: Read returns nil.
func Read(body []byte, path string) (any, error) {
	if len(body) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response body is not valid JSON")
	}

	raw := body
	if path != "" {
		res := gjson.GetBytes(body, path)
		if !res.Exists() {
			return nil, nil
		}
		raw = []byte(res.Raw)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return v, nil
}

// Exists reports whether path is present in body
func Exists(body []byte, path string) bool {
	if path == "" {
		return len(body) > 0
	}
	return gjson.GetBytes(body, path).Exists()
}

// Wrap returns a request formatter that nests the payload under path, so
// Wrap("data.user") sends {"data":{"user":{...}}}. An empty path leaves
// payloads untouched.
func Wrap(path string) types.RequestFormatter {
	return func(payload map[string]any) any {
		if path == "" {
			return nil
		}
		out, err := sjson.SetBytes([]byte("{}"), path, payload)
		if err != nil {
			return nil
		}
		return json.RawMessage(out)
	}
}
