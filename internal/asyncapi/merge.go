package asyncapi

import (
	"fmt"
	"strings"

	"github.com/yourorg/asyncdoc/internal/schema"
)

// Merge unions an incoming document into an existing one of the same
// dialect and returns the merged document. The dialect is determined from
// each document's own version marker; a missing or mismatched marker is a
// caller error and fails fast.
//
// Channels and operations union by key with deep-merged parameters and
// deduplicated message references. Schemas and messages union by name with
// the existing side winning on collision; content-based reconciliation
// already happened in the registry.
func Merge(existing, incoming any) (any, error) {
	switch dst := existing.(type) {
	case *DocumentV2:
		src, ok := incoming.(*DocumentV2)
		if !ok {
			return nil, fmt.Errorf("dialect mismatch: existing document is %q, incoming is %T", dst.AsyncAPI, incoming)
		}
		if err := checkVersion(dst.AsyncAPI, "2."); err != nil {
			return nil, err
		}
		if err := checkVersion(src.AsyncAPI, "2."); err != nil {
			return nil, err
		}
		mergeV2(dst, src)
		return dst, nil
	case *DocumentV3:
		src, ok := incoming.(*DocumentV3)
		if !ok {
			return nil, fmt.Errorf("dialect mismatch: existing document is %q, incoming is %T", dst.AsyncAPI, incoming)
		}
		if err := checkVersion(dst.AsyncAPI, "3."); err != nil {
			return nil, err
		}
		if err := checkVersion(src.AsyncAPI, "3."); err != nil {
			return nil, err
		}
		mergeV3(dst, src)
		return dst, nil
	default:
		return nil, fmt.Errorf("unsupported document type %T", existing)
	}
}

func checkVersion(marker, wantPrefix string) error {
	if marker == "" {
		return fmt.Errorf("document has no asyncapi version marker")
	}
	if !strings.HasPrefix(marker, wantPrefix) {
		return fmt.Errorf("asyncapi version %q does not match dialect %sx", marker, wantPrefix)
	}
	return nil
}

func mergeV2(dst, src *DocumentV2) {
	if dst.Channels == nil {
		dst.Channels = make(map[string]ChannelItemV2)
	}
	for key, in := range src.Channels {
		have, ok := dst.Channels[key]
		if !ok {
			dst.Channels[key] = in
			continue
		}
		for name, p := range in.Parameters {
			if have.Parameters == nil {
				have.Parameters = make(map[string]ParameterV2)
			}
			if _, exists := have.Parameters[name]; !exists {
				have.Parameters[name] = p
			}
		}
		have.Subscribe = mergeOperationV2(have.Subscribe, in.Subscribe)
		dst.Channels[key] = have
	}

	for name, srv := range src.Servers {
		if dst.Servers == nil {
			dst.Servers = make(map[string]ServerV2)
		}
		if _, exists := dst.Servers[name]; !exists {
			dst.Servers[name] = srv
		}
	}

	if src.Components == nil {
		return
	}
	if dst.Components == nil {
		dst.Components = &ComponentsV2{}
	}
	for name, frag := range src.Components.Schemas {
		if dst.Components.Schemas == nil {
			dst.Components.Schemas = make(map[string]*schema.Fragment)
		}
		if _, exists := dst.Components.Schemas[name]; !exists {
			dst.Components.Schemas[name] = frag
		}
	}
	for name, msg := range src.Components.Messages {
		if dst.Components.Messages == nil {
			dst.Components.Messages = make(map[string]MessageV2)
		}
		if _, exists := dst.Components.Messages[name]; !exists {
			dst.Components.Messages[name] = msg
		}
	}
}

func mergeOperationV2(have, in *OperationV2) *OperationV2 {
	if have == nil {
		return in
	}
	if in == nil || in.Message == nil {
		return have
	}
	if have.Message == nil {
		have.Message = in.Message
		return have
	}
	refs := refSet(have.Message)
	for _, r := range refList(in.Message) {
		refs = appendRef(refs, r)
	}
	if len(refs) == 1 {
		have.Message = &MessageRef{Ref: refs[0].Ref}
	} else {
		have.Message = &MessageRef{OneOf: refs}
	}
	return have
}

func refSet(m *MessageRef) []Ref {
	return append([]Ref{}, refList(m)...)
}

func refList(m *MessageRef) []Ref {
	if m == nil {
		return nil
	}
	if m.Ref != "" {
		return []Ref{{Ref: m.Ref}}
	}
	return m.OneOf
}

func appendRef(refs []Ref, r Ref) []Ref {
	for _, have := range refs {
		if have.Ref == r.Ref {
			return refs
		}
	}
	return append(refs, r)
}

func mergeV3(dst, src *DocumentV3) {
	if dst.Channels == nil {
		dst.Channels = make(map[string]ChannelV3)
	}
	for key, in := range src.Channels {
		have, ok := dst.Channels[key]
		if !ok {
			dst.Channels[key] = in
			continue
		}
		for name, p := range in.Parameters {
			if have.Parameters == nil {
				have.Parameters = make(map[string]ParameterV3)
			}
			if _, exists := have.Parameters[name]; !exists {
				have.Parameters[name] = p
			}
		}
		for name, ref := range in.Messages {
			if have.Messages == nil {
				have.Messages = make(map[string]Ref)
			}
			if _, exists := have.Messages[name]; !exists {
				have.Messages[name] = ref
			}
		}
		dst.Channels[key] = have
	}

	if dst.Operations == nil {
		dst.Operations = make(map[string]OperationV3)
	}
	for key, in := range src.Operations {
		have, ok := dst.Operations[key]
		if !ok {
			dst.Operations[key] = in
			continue
		}
		for _, r := range in.Messages {
			have.Messages = appendRef(have.Messages, r)
		}
		dst.Operations[key] = have
	}

	for name, srv := range src.Servers {
		if dst.Servers == nil {
			dst.Servers = make(map[string]ServerV3)
		}
		if _, exists := dst.Servers[name]; !exists {
			dst.Servers[name] = srv
		}
	}

	if src.Components == nil {
		return
	}
	if dst.Components == nil {
		dst.Components = &ComponentsV3{}
	}
	for name, frag := range src.Components.Schemas {
		if dst.Components.Schemas == nil {
			dst.Components.Schemas = make(map[string]*schema.Fragment)
		}
		if _, exists := dst.Components.Schemas[name]; !exists {
			dst.Components.Schemas[name] = frag
		}
	}
	for name, msg := range src.Components.Messages {
		if dst.Components.Messages == nil {
			dst.Components.Messages = make(map[string]MessageV3)
		}
		if _, exists := dst.Components.Messages[name]; !exists {
			dst.Components.Messages[name] = msg
		}
	}
}
