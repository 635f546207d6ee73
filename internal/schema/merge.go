package schema

import "sort"

// Merge combines two fragments into the least-general fragment consistent
// with both. The inputs are never mutated; the result is a fresh fragment.
//
// Fragments with different type tags collapse into a union of the tags,
// losing structural detail. Matching objects merge key-by-key with the
// required list narrowing to the intersection; matching arrays merge their
// item schemas; matching primitives union their examples.
func Merge(a, b *Fragment) *Fragment {
	if a.Empty() {
		return b.Clone()
	}
	if b.Empty() {
		return a.Clone()
	}
	if !a.Type.Equal(b.Type) {
		out := &Fragment{Type: a.Type.Union(b.Type)}
		out.Examples = mergeExamples(a.Examples, b.Examples)
		return out
	}

	switch {
	case a.Type.Is("object"):
		return mergeObjects(a, b)
	case a.Type.Is("array"):
		out := &Fragment{Type: TypeSet{"array"}}
		out.Items = Merge(a.Items, b.Items)
		if out.Items.Empty() {
			out.Items = nil
		}
		return out
	default:
		out := &Fragment{Type: append(TypeSet{}, a.Type...)}
		if a.Format == b.Format {
			out.Format = a.Format
		}
		out.Examples = mergeExamples(a.Examples, b.Examples)
		return out
	}
}

func mergeObjects(a, b *Fragment) *Fragment {
	out := &Fragment{
		Type:       TypeSet{"object"},
		Properties: make(map[string]*Fragment, len(a.Properties)+len(b.Properties)),
	}
	for key, frag := range a.Properties {
		if other, ok := b.Properties[key]; ok {
			out.Properties[key] = Merge(frag, other)
			continue
		}
		out.Properties[key] = frag.Clone()
	}
	for key, frag := range b.Properties {
		if _, ok := a.Properties[key]; !ok {
			out.Properties[key] = frag.Clone()
		}
	}
	// A key is required only if every merged sample required it.
	out.Required = intersect(a.Required, b.Required)
	return out
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(b))
	for _, k := range b {
		set[k] = struct{}{}
	}
	var out []string
	for _, k := range a {
		if _, ok := set[k]; ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func mergeExamples(a, b []any) []any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make([]any, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	if len(out) > maxExampleCount {
		out = out[:maxExampleCount]
	}
	return out
}
