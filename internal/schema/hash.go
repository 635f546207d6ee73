package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Hash returns a deterministic content fingerprint of a fragment.
// Examples are excluded from identity; object keys and the required list
// are sorted before serialization, so structurally identical fragments
// hash identically regardless of insertion order.
func Hash(f *Fragment) string {
	data, _ := json.Marshal(canonical(f))
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func canonical(f *Fragment) map[string]any {
	if f == nil {
		return nil
	}
	out := make(map[string]any, 5)
	if len(f.Type) > 0 {
		out["type"] = []string(f.Type)
	}
	if f.Format != "" {
		out["format"] = f.Format
	}
	if len(f.Properties) > 0 {
		props := make(map[string]any, len(f.Properties))
		for key, child := range f.Properties {
			props[key] = canonical(child)
		}
		// encoding/json already sorts map keys; the map form is enough.
		out["properties"] = props
	}
	if len(f.Required) > 0 {
		required := append([]string{}, f.Required...)
		sort.Strings(required)
		out["required"] = required
	}
	if f.Items != nil {
		out["items"] = canonical(f.Items)
	}
	return out
}
