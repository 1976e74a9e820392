package schema

import "github.com/arthur-debert/nanorest/types"

// Direction selects which way NormalizeData renames fields
type Direction int

const (
	// Incoming renames remote API field names to local property names
	Incoming Direction = iota
	// Outgoing renames local property names to remote API field names
	Outgoing
)

func (d Direction) String() string {
	if d == Outgoing {
		return "outgoing"
	}
	return "incoming"
}

// NormalizeData renames the keys of data between local and remote naming
// according to the schema's properties. Keys that belong to no property are
// copied unchanged. The input map is not modified.
//
// Incoming data may already be partially local: a property's remote key wins,
// and its local key is used when the remote key is absent.
func NormalizeData(s types.Schema, data map[string]any, dir Direction) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))

	if dir == Outgoing {
		for k, v := range data {
			if _, isProp := s.Properties[k]; !isProp {
				out[k] = v
			}
		}
		for local, p := range s.Properties {
			if v, ok := data[local]; ok {
				out[p.RemoteName(local)] = v
			}
		}
		return out
	}

	claimed := make(map[string]bool, len(s.Properties)*2)
	for local, p := range s.Properties {
		claimed[local] = true
		claimed[p.RemoteName(local)] = true
	}
	for k, v := range data {
		if !claimed[k] {
			out[k] = v
		}
	}
	for local, p := range s.Properties {
		if v, ok := data[p.RemoteName(local)]; ok {
			out[local] = v
		} else if v, ok := data[local]; ok {
			out[local] = v
		}
	}
	return out
}
