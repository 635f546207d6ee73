// Package asyncapi assembles channel topologies and schema registries into
// AsyncAPI-style documents. Two dialects are supported: the 2.6
// publish/subscribe shape and the 3.0 address + operations shape.
package asyncapi

import "github.com/yourorg/asyncdoc/internal/schema"

const (
	// VersionV2 is the version marker of the publish/subscribe dialect.
	VersionV2 = "2.6.0"
	// VersionV3 is the version marker of the address + operations dialect.
	VersionV3 = "3.0.0"
)

// Info is the document-level metadata block, passed through from
// configuration unchanged.
type Info struct {
	Title       string `json:"title" yaml:"title"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Endpoint is a named transport endpoint from configuration.
type Endpoint struct {
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	Protocol    string `json:"protocol" yaml:"protocol"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Ref is a JSON reference.
type Ref struct {
	Ref string `json:"$ref" yaml:"$ref"`
}

// Example wraps one captured payload.
type Example struct {
	Payload any `json:"payload" yaml:"payload"`
}

// DocumentV2 is the AsyncAPI 2.6 document shape.
type DocumentV2 struct {
	AsyncAPI   string                   `json:"asyncapi" yaml:"asyncapi"`
	Info       Info                     `json:"info" yaml:"info"`
	Servers    map[string]ServerV2      `json:"servers,omitempty" yaml:"servers,omitempty"`
	Channels   map[string]ChannelItemV2 `json:"channels" yaml:"channels"`
	Components *ComponentsV2            `json:"components,omitempty" yaml:"components,omitempty"`
}

// ServerV2 is a server entry in the 2.6 shape.
type ServerV2 struct {
	URL         string `json:"url" yaml:"url"`
	Protocol    string `json:"protocol" yaml:"protocol"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ChannelItemV2 is one channel keyed by its topic.
type ChannelItemV2 struct {
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]ParameterV2 `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Subscribe   *OperationV2           `json:"subscribe,omitempty" yaml:"subscribe,omitempty"`
}

// ParameterV2 is a channel parameter in the 2.6 shape.
type ParameterV2 struct {
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      *ParamSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// ParamSchema is the schema of a channel parameter.
type ParamSchema struct {
	Type string   `json:"type" yaml:"type"`
	Enum []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// OperationV2 describes that subscribers receive data on a channel.
type OperationV2 struct {
	OperationID string      `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Summary     string      `json:"summary,omitempty" yaml:"summary,omitempty"`
	Message     *MessageRef `json:"message,omitempty" yaml:"message,omitempty"`
}

// MessageRef references one message or a oneOf set of messages.
type MessageRef struct {
	Ref   string `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	OneOf []Ref  `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
}

// MessageV2 is a message definition in the 2.6 components block.
type MessageV2 struct {
	Name     string    `json:"name" yaml:"name"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Payload  *Ref      `json:"payload,omitempty" yaml:"payload,omitempty"`
	Examples []Example `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// ComponentsV2 holds reusable schemas and messages.
type ComponentsV2 struct {
	Schemas  map[string]*schema.Fragment `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Messages map[string]MessageV2        `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// DocumentV3 is the AsyncAPI 3.0 document shape.
type DocumentV3 struct {
	AsyncAPI   string                 `json:"asyncapi" yaml:"asyncapi"`
	Info       Info                   `json:"info" yaml:"info"`
	Servers    map[string]ServerV3    `json:"servers,omitempty" yaml:"servers,omitempty"`
	Channels   map[string]ChannelV3   `json:"channels" yaml:"channels"`
	Operations map[string]OperationV3 `json:"operations,omitempty" yaml:"operations,omitempty"`
	Components *ComponentsV3          `json:"components,omitempty" yaml:"components,omitempty"`
}

// ServerV3 is a server entry in the 3.0 shape.
type ServerV3 struct {
	Host        string `json:"host" yaml:"host"`
	Protocol    string `json:"protocol" yaml:"protocol"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ChannelV3 is one channel keyed by channel id, with the topic as address.
type ChannelV3 struct {
	Address     string                 `json:"address" yaml:"address"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters  map[string]ParameterV3 `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Messages    map[string]Ref         `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// ParameterV3 is a channel parameter in the 3.0 shape.
type ParameterV3 struct {
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// OperationV3 binds an action to a channel and its messages.
type OperationV3 struct {
	Action   string   `json:"action" yaml:"action"`
	Channel  *Ref     `json:"channel" yaml:"channel"`
	Messages []Ref    `json:"messages,omitempty" yaml:"messages,omitempty"`
	Reply    *ReplyV3 `json:"reply,omitempty" yaml:"reply,omitempty"`
}

// ReplyV3 describes an operation reply. Sampled pub/sub traffic carries no
// replies, but merged documents may.
type ReplyV3 struct {
	Channel  *Ref  `json:"channel,omitempty" yaml:"channel,omitempty"`
	Messages []Ref `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// MessageV3 is a message definition in the 3.0 components block.
type MessageV3 struct {
	Name     string    `json:"name" yaml:"name"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Payload  *Ref      `json:"payload,omitempty" yaml:"payload,omitempty"`
	Examples []Example `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// ComponentsV3 holds reusable schemas and messages.
type ComponentsV3 struct {
	Schemas  map[string]*schema.Fragment `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Messages map[string]MessageV3        `json:"messages,omitempty" yaml:"messages,omitempty"`
}
