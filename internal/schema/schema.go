// Package schema infers JSON-schema-like fragments from sampled payload
// values and merges fragments into more general ones.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Dialect selects the object inference variant.
type Dialect string

const (
	// DialectA assumes a single example describes the full shape: every
	// observed key is required.
	DialectA Dialect = "a"
	// DialectB assumes report-by-exception payloads: no key is required
	// and every object carries a synthetic _timestamp property.
	DialectB Dialect = "b"
)

// TimestampProperty is the synthetic property DialectB injects into every
// object fragment.
const TimestampProperty = "_timestamp"

const (
	maxArraySample  = 10
	maxExampleCount = 5
)

// Options controls inference behavior.
type Options struct {
	Dialect         Dialect
	IncludeExamples bool
}

// TypeSet is the type tag of a fragment: a single tag or, after lossy
// merges, a sorted set of tags. It serializes as a bare string when it
// holds one tag and as an array otherwise.
type TypeSet []string

// NewTypeSet returns a sorted, deduplicated TypeSet.
func NewTypeSet(tags ...string) TypeSet {
	seen := make(map[string]struct{}, len(tags))
	out := make(TypeSet, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Union returns the sorted union of both sets.
func (ts TypeSet) Union(other TypeSet) TypeSet {
	return NewTypeSet(append(append([]string{}, ts...), other...)...)
}

// Equal reports whether both sets hold the same tags.
func (ts TypeSet) Equal(other TypeSet) bool {
	if len(ts) != len(other) {
		return false
	}
	for i := range ts {
		if ts[i] != other[i] {
			return false
		}
	}
	return true
}

// Is reports whether the set holds exactly the one given tag.
func (ts TypeSet) Is(tag string) bool {
	return len(ts) == 1 && ts[0] == tag
}

// MarshalJSON emits a string for a single tag and an array for a union.
func (ts TypeSet) MarshalJSON() ([]byte, error) {
	if len(ts) == 1 {
		return json.Marshal(ts[0])
	}
	return json.Marshal([]string(ts))
}

// UnmarshalJSON accepts both a string and an array of strings.
func (ts *TypeSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*ts = TypeSet{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type must be string or string array: %w", err)
	}
	*ts = NewTypeSet(many...)
	return nil
}

// MarshalYAML mirrors the JSON representation.
func (ts TypeSet) MarshalYAML() (any, error) {
	if len(ts) == 1 {
		return ts[0], nil
	}
	return []string(ts), nil
}

// UnmarshalYAML accepts both a string and a sequence of strings.
func (ts *TypeSet) UnmarshalYAML(unmarshal func(any) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*ts = TypeSet{single}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return fmt.Errorf("type must be string or string sequence: %w", err)
	}
	*ts = NewTypeSet(many...)
	return nil
}

// Fragment is one inferred schema node.
type Fragment struct {
	Type       TypeSet              `json:"type,omitempty" yaml:"type,omitempty"`
	Format     string               `json:"format,omitempty" yaml:"format,omitempty"`
	Properties map[string]*Fragment `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required   []string             `json:"required,omitempty" yaml:"required,omitempty"`
	Items      *Fragment            `json:"items,omitempty" yaml:"items,omitempty"`
	Examples   []any                `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// Empty reports whether the fragment carries no information at all.
func (f *Fragment) Empty() bool {
	return f == nil || (len(f.Type) == 0 && len(f.Properties) == 0 && f.Items == nil)
}

// Clone returns a deep copy.
func (f *Fragment) Clone() *Fragment {
	if f == nil {
		return nil
	}
	out := &Fragment{
		Type:   append(TypeSet{}, f.Type...),
		Format: f.Format,
		Items:  f.Items.Clone(),
	}
	if f.Properties != nil {
		out.Properties = make(map[string]*Fragment, len(f.Properties))
		for k, v := range f.Properties {
			out.Properties[k] = v.Clone()
		}
	}
	if f.Required != nil {
		out.Required = append([]string{}, f.Required...)
	}
	if f.Examples != nil {
		out.Examples = append([]any{}, f.Examples...)
	}
	return out
}
