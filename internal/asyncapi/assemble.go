package asyncapi

import (
	"fmt"

	"github.com/yourorg/asyncdoc/internal/schema"
	"github.com/yourorg/asyncdoc/internal/topic"
)

// Config controls document assembly.
type Config struct {
	Dialect         schema.Dialect
	Info            Info
	Servers         []Endpoint
	IncludeExamples bool
}

const maxChannelExamples = 3

// Assemble combines channels and a registry snapshot into a document of
// the dialect selected by cfg.
func Assemble(channels []topic.Channel, schemas map[string]*schema.Fragment, cfg Config) (any, error) {
	switch cfg.Dialect {
	case schema.DialectA, "":
		return assembleV2(channels, schemas, cfg), nil
	case schema.DialectB:
		return assembleV3(channels, schemas, cfg), nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", cfg.Dialect)
	}
}

func assembleV2(channels []topic.Channel, schemas map[string]*schema.Fragment, cfg Config) *DocumentV2 {
	doc := &DocumentV2{
		AsyncAPI:   VersionV2,
		Info:       cfg.Info,
		Channels:   make(map[string]ChannelItemV2, len(channels)),
		Components: &ComponentsV2{Schemas: schemas, Messages: make(map[string]MessageV2)},
	}
	for _, ep := range cfg.Servers {
		if doc.Servers == nil {
			doc.Servers = make(map[string]ServerV2)
		}
		doc.Servers[ep.Name] = ServerV2{URL: ep.URL, Protocol: ep.Protocol, Description: ep.Description}
	}

	for _, ch := range channels {
		item := ChannelItemV2{
			Subscribe: &OperationV2{
				OperationID: "receive_" + ch.ID,
				Summary:     fmt.Sprintf("Messages sampled on %s", ch.Topic),
				Message:     messageRef(ch.SchemaNames),
			},
		}
		for name, p := range ch.Parameters {
			if item.Parameters == nil {
				item.Parameters = make(map[string]ParameterV2)
			}
			ps := &ParamSchema{Type: "string"}
			if len(p.Enum) > 0 {
				ps.Enum = append([]string{}, p.Enum...)
			}
			item.Parameters[name] = ParameterV2{Description: p.Description, Schema: ps}
		}
		doc.Channels[ch.Topic] = item
		addMessagesV2(doc.Components.Messages, ch, cfg)
	}
	return doc
}

func messageRef(schemaNames []string) *MessageRef {
	switch len(schemaNames) {
	case 0:
		return nil
	case 1:
		return &MessageRef{Ref: "#/components/messages/" + schemaNames[0]}
	default:
		refs := make([]Ref, 0, len(schemaNames))
		for _, name := range schemaNames {
			refs = append(refs, Ref{Ref: "#/components/messages/" + name})
		}
		return &MessageRef{OneOf: refs}
	}
}

func addMessagesV2(messages map[string]MessageV2, ch topic.Channel, cfg Config) {
	for _, name := range ch.SchemaNames {
		if _, exists := messages[name]; exists {
			continue
		}
		msg := MessageV2{
			Name:    name,
			Title:   name,
			Payload: &Ref{Ref: "#/components/schemas/" + name},
		}
		if cfg.IncludeExamples {
			msg.Examples = channelExamples(ch)
		}
		messages[name] = msg
	}
}

func assembleV3(channels []topic.Channel, schemas map[string]*schema.Fragment, cfg Config) *DocumentV3 {
	doc := &DocumentV3{
		AsyncAPI:   VersionV3,
		Info:       cfg.Info,
		Channels:   make(map[string]ChannelV3, len(channels)),
		Operations: make(map[string]OperationV3, len(channels)),
		Components: &ComponentsV3{Schemas: schemas, Messages: make(map[string]MessageV3)},
	}
	for _, ep := range cfg.Servers {
		if doc.Servers == nil {
			doc.Servers = make(map[string]ServerV3)
		}
		doc.Servers[ep.Name] = ServerV3{Host: ep.URL, Protocol: ep.Protocol, Description: ep.Description}
	}

	for _, ch := range channels {
		entry := ChannelV3{Address: ch.Topic}
		for name, p := range ch.Parameters {
			if entry.Parameters == nil {
				entry.Parameters = make(map[string]ParameterV3)
			}
			pv := ParameterV3{Description: p.Description}
			if len(p.Enum) > 0 {
				pv.Enum = append([]string{}, p.Enum...)
			}
			entry.Parameters[name] = pv
		}
		var opMessages []Ref
		for _, name := range ch.SchemaNames {
			if entry.Messages == nil {
				entry.Messages = make(map[string]Ref)
			}
			entry.Messages[name] = Ref{Ref: "#/components/messages/" + name}
			opMessages = append(opMessages, Ref{Ref: fmt.Sprintf("#/channels/%s/messages/%s", ch.ID, name)})

			if _, exists := doc.Components.Messages[name]; !exists {
				msg := MessageV3{
					Name:    name,
					Title:   name,
					Payload: &Ref{Ref: "#/components/schemas/" + name},
				}
				if cfg.IncludeExamples {
					msg.Examples = channelExamples(ch)
				}
				doc.Components.Messages[name] = msg
			}
		}
		doc.Channels[ch.ID] = entry
		doc.Operations["receive_"+ch.ID] = OperationV3{
			Action:   "receive",
			Channel:  &Ref{Ref: "#/channels/" + ch.ID},
			Messages: opMessages,
		}
	}
	return doc
}

func channelExamples(ch topic.Channel) []Example {
	if len(ch.Examples) == 0 {
		return nil
	}
	limit := len(ch.Examples)
	if limit > maxChannelExamples {
		limit = maxChannelExamples
	}
	out := make([]Example, 0, limit)
	for _, payload := range ch.Examples[:limit] {
		out = append(out, Example{Payload: payload})
	}
	return out
}
