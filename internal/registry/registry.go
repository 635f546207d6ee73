// Package registry deduplicates and names schema fragments across many
// inference calls. A registry instance is owned by its caller; mutations
// must be serialized by a single logical owner.
package registry

import (
	"fmt"
	"sort"

	"github.com/yourorg/asyncdoc/internal/schema"
)

// Policy selects how a name collision with differing content is resolved.
type Policy string

const (
	// PolicyMerge generalizes the existing entry in place and keeps the
	// name stable. This is the primary contract.
	PolicyMerge Policy = "merge"
	// PolicySuffix mints a disambiguated name (name_1, name_2, ...) for
	// colliding content. Kept for consumers that need distinct names.
	PolicySuffix Policy = "suffix"
)

// Entry is one named schema with its usage counter.
type Entry struct {
	Name       string
	Fragment   *schema.Fragment
	UsageCount int
}

// Usage reports how often a schema name was registered.
type Usage struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes registry contents for observability.
type Stats struct {
	Schemas       int     `json:"schemas"`
	Registrations int     `json:"registrations"`
	Top           []Usage `json:"top,omitempty"`
}

// Registry holds deduplicated schema fragments. Not safe for concurrent
// mutation.
type Registry struct {
	policy     Policy
	entries    map[string]*Entry
	hashToName map[string]string
	order      []string
}

// New returns an empty registry using the given collision policy. The
// policy is fixed for the registry's lifetime.
func New(policy Policy) *Registry {
	if policy == "" {
		policy = PolicyMerge
	}
	return &Registry{
		policy:     policy,
		entries:    make(map[string]*Entry),
		hashToName: make(map[string]string),
	}
}

// Register records a fragment under a proposed name and returns the
// canonical name the content ended up under.
//
// An exact content match always wins over the proposed name: the hash's
// existing canonical name is returned even if a different name was
// proposed. A free name creates a new entry. A taken name with differing
// content either generalizes the entry in place (PolicyMerge, name stays
// stable) or mints a suffixed name (PolicySuffix).
func (r *Registry) Register(proposedName string, fragment *schema.Fragment) string {
	hash := schema.Hash(fragment)
	if name, ok := r.hashToName[hash]; ok {
		r.entries[name].UsageCount++
		return name
	}

	if _, taken := r.entries[proposedName]; !taken {
		r.entries[proposedName] = &Entry{Name: proposedName, Fragment: fragment.Clone(), UsageCount: 1}
		r.hashToName[hash] = proposedName
		r.order = append(r.order, proposedName)
		return proposedName
	}

	if r.policy == PolicySuffix {
		name := r.freeName(proposedName)
		r.entries[name] = &Entry{Name: name, Fragment: fragment.Clone(), UsageCount: 1}
		r.hashToName[hash] = name
		r.order = append(r.order, name)
		return name
	}

	entry := r.entries[proposedName]
	staleHash := schema.Hash(entry.Fragment)
	entry.Fragment = schema.Merge(entry.Fragment, fragment)
	entry.UsageCount++
	if r.hashToName[staleHash] == proposedName {
		delete(r.hashToName, staleHash)
	}
	// First mapping wins: if the generalized content now hashes like an
	// earlier entry, that entry keeps serving content lookups.
	mergedHash := schema.Hash(entry.Fragment)
	if _, exists := r.hashToName[mergedHash]; !exists {
		r.hashToName[mergedHash] = proposedName
	}
	return proposedName
}

func (r *Registry) freeName(base string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if _, taken := r.entries[name]; !taken {
			return name
		}
	}
}

// Get returns the entry for a canonical name.
func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Snapshot returns a name-to-fragment mapping of the current contents.
// Fragments are cloned so callers cannot mutate registry state.
func (r *Registry) Snapshot() map[string]*schema.Fragment {
	out := make(map[string]*schema.Fragment, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.Fragment.Clone()
	}
	return out
}

// Names returns canonical names in first-registration order.
func (r *Registry) Names() []string {
	return append([]string{}, r.order...)
}

// Len returns the number of distinct schemas.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Stats returns totals and the top-n entries by usage.
func (r *Registry) Stats(topN int) Stats {
	s := Stats{Schemas: len(r.entries)}
	usages := make([]Usage, 0, len(r.entries))
	for _, e := range r.entries {
		s.Registrations += e.UsageCount
		usages = append(usages, Usage{Name: e.Name, Count: e.UsageCount})
	}
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].Count != usages[j].Count {
			return usages[i].Count > usages[j].Count
		}
		return usages[i].Name < usages[j].Name
	})
	if topN > 0 && topN < len(usages) {
		usages = usages[:topN]
	}
	s.Top = usages
	return s
}

// Clear drops all entries, e.g. on session reset.
func (r *Registry) Clear() {
	r.entries = make(map[string]*Entry)
	r.hashToName = make(map[string]string)
	r.order = nil
}
