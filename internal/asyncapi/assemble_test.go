package asyncapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/asyncdoc/internal/schema"
	"github.com/yourorg/asyncdoc/internal/topic"
)

func sampleChannels() []topic.Channel {
	return []topic.Channel{
		{
			ID:           "line_lineId_temp",
			Topic:        "line/{lineId}/temp",
			Parameters:   map[string]topic.Parameter{"lineId": {Description: "production line", Enum: []string{"1", "2"}}},
			MessageCount: 4,
			SchemaNames:  []string{"TempReading"},
			Examples:     []any{map[string]any{"v": 21.5}},
		},
		{
			ID:           "line_status",
			Topic:        "line/status",
			MessageCount: 2,
			SchemaNames:  []string{"StatusUp", "StatusDown"},
		},
	}
}

func sampleSchemas() map[string]*schema.Fragment {
	return map[string]*schema.Fragment{
		"TempReading": {Type: schema.TypeSet{"object"}, Properties: map[string]*schema.Fragment{"v": {Type: schema.TypeSet{"number"}}}},
		"StatusUp":    {Type: schema.TypeSet{"string"}},
		"StatusDown":  {Type: schema.TypeSet{"integer"}},
	}
}

func baseConfig(d schema.Dialect) Config {
	return Config{
		Dialect:         d,
		Info:            Info{Title: "Plant Telemetry", Version: "1.0.0"},
		Servers:         []Endpoint{{Name: "plant", URL: "mqtt://broker:1883", Protocol: "mqtt"}},
		IncludeExamples: true,
	}
}

func TestAssembleV2(t *testing.T) {
	out, err := Assemble(sampleChannels(), sampleSchemas(), baseConfig(schema.DialectA))
	require.NoError(t, err)
	doc, ok := out.(*DocumentV2)
	require.True(t, ok)

	assert.Equal(t, VersionV2, doc.AsyncAPI)
	assert.Equal(t, "Plant Telemetry", doc.Info.Title)
	assert.Contains(t, doc.Servers, "plant")

	require.Contains(t, doc.Channels, "line/{lineId}/temp")
	ch := doc.Channels["line/{lineId}/temp"]
	require.Contains(t, ch.Parameters, "lineId")
	assert.Equal(t, []string{"1", "2"}, ch.Parameters["lineId"].Schema.Enum)
	require.NotNil(t, ch.Subscribe)
	assert.Equal(t, "receive_line_lineId_temp", ch.Subscribe.OperationID)
	assert.Equal(t, "#/components/messages/TempReading", ch.Subscribe.Message.Ref)

	// Heterogeneous channel references all its messages via oneOf.
	status := doc.Channels["line/status"]
	require.NotNil(t, status.Subscribe.Message)
	assert.Len(t, status.Subscribe.Message.OneOf, 2)

	require.Contains(t, doc.Components.Messages, "TempReading")
	msg := doc.Components.Messages["TempReading"]
	assert.Equal(t, "#/components/schemas/TempReading", msg.Payload.Ref)
	require.Len(t, msg.Examples, 1)
	assert.Len(t, doc.Components.Schemas, 3)
}

func TestAssembleV3(t *testing.T) {
	out, err := Assemble(sampleChannels(), sampleSchemas(), baseConfig(schema.DialectB))
	require.NoError(t, err)
	doc, ok := out.(*DocumentV3)
	require.True(t, ok)

	assert.Equal(t, VersionV3, doc.AsyncAPI)
	require.Contains(t, doc.Channels, "line_lineId_temp")
	ch := doc.Channels["line_lineId_temp"]
	assert.Equal(t, "line/{lineId}/temp", ch.Address)
	assert.Equal(t, []string{"1", "2"}, ch.Parameters["lineId"].Enum)
	assert.Contains(t, ch.Messages, "TempReading")

	require.Contains(t, doc.Operations, "receive_line_lineId_temp")
	op := doc.Operations["receive_line_lineId_temp"]
	assert.Equal(t, "receive", op.Action)
	assert.Equal(t, "#/channels/line_lineId_temp", op.Channel.Ref)
	require.Len(t, op.Messages, 1)
	assert.Equal(t, "#/channels/line_lineId_temp/messages/TempReading", op.Messages[0].Ref)

	assert.Equal(t, "mqtt://broker:1883", doc.Servers["plant"].Host)
}

func TestAssembleWithoutExamples(t *testing.T) {
	cfg := baseConfig(schema.DialectA)
	cfg.IncludeExamples = false
	out, err := Assemble(sampleChannels(), sampleSchemas(), cfg)
	require.NoError(t, err)
	doc := out.(*DocumentV2)
	assert.Empty(t, doc.Components.Messages["TempReading"].Examples)
}

func TestAssembleUnknownDialect(t *testing.T) {
	_, err := Assemble(nil, nil, Config{Dialect: "z"})
	assert.Error(t, err)
}

func TestDocumentRoundTrip(t *testing.T) {
	out, err := Assemble(sampleChannels(), sampleSchemas(), baseConfig(schema.DialectA))
	require.NoError(t, err)
	doc := out.(*DocumentV2)

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var parsed DocumentV2
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, doc.AsyncAPI, parsed.AsyncAPI)
	assert.Len(t, parsed.Channels, len(doc.Channels))
	for key := range doc.Channels {
		assert.Contains(t, parsed.Channels, key)
	}
	assert.Len(t, parsed.Components.Schemas, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		assert.Contains(t, parsed.Components.Schemas, name)
	}
}
