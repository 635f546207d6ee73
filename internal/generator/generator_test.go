package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/asyncdoc/internal/asyncapi"
	"github.com/yourorg/asyncdoc/internal/config"
	"github.com/yourorg/asyncdoc/internal/schema"
	"github.com/yourorg/asyncdoc/internal/topic"
	"github.com/yourorg/asyncdoc/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Info.Title = "Test"
	return cfg
}

func record(topic string, payload any) types.Record {
	return types.Record{Topic: topic, Payload: payload, Timestamp: time.Now().UTC()}
}

func TestBuildVerbose(t *testing.T) {
	cfg := testConfig(t)
	records := []types.Record{
		record("line/1/temp", map[string]any{"v": 21.5}),
		record("line/2/temp", map[string]any{"v": 22.5}),
	}
	res, err := Build(records, cfg)
	require.NoError(t, err)

	require.Len(t, res.Channels, 2)
	assert.Equal(t, "line_1_temp", res.Channels[0].ID)
	assert.Equal(t, "line_2_temp", res.Channels[1].ID)

	doc, ok := res.Document.(*asyncapi.DocumentV2)
	require.True(t, ok)
	assert.Contains(t, doc.Channels, "line/1/temp")
	assert.Contains(t, doc.Channels, "line/2/temp")

	// Identical payload shapes dedupe to the first channel's schema name.
	assert.Equal(t, 1, res.Stats.Schemas)
	assert.Equal(t, 2, res.Stats.Registrations)
}

func TestBuildParameterized(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generator.ChannelMode = "parameterized"
	cfg.Substitutions = []topic.Rule{{LevelIndex: 1, Parameter: "lineId"}}

	res, err := Build([]types.Record{
		record("line/1/temp", map[string]any{"v": 21.5}),
		record("line/2/temp", map[string]any{"v": 22.0}),
	}, cfg)
	require.NoError(t, err)

	require.Len(t, res.Channels, 1)
	ch := res.Channels[0]
	assert.Equal(t, "line/{lineId}/temp", ch.Topic)
	assert.Equal(t, "line_lineId_temp", ch.ID)
	assert.Contains(t, ch.Parameters, "lineId")
	assert.Equal(t, []string{"1", "2"}, ch.Parameters["lineId"].Enum)
	assert.Equal(t, 2, ch.MessageCount)
}

func TestBuildHeterogeneousPayloadsGeneralize(t *testing.T) {
	cfg := testConfig(t)
	res, err := Build([]types.Record{
		record("dev/state", map[string]any{"a": float64(1)}),
		record("dev/state", map[string]any{"a": "x"}),
	}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Schemas)
	assert.Equal(t, 2, res.Stats.Registrations)
	frag, ok := res.Schemas["dev_statePayload"]
	require.True(t, ok)
	assert.Equal(t, schema.TypeSet{"integer", "string"}, frag.Properties["a"].Type)
}

func TestBuildUsesModelHint(t *testing.T) {
	cfg := testConfig(t)
	rec := record("dev/state", map[string]any{"a": float64(1)})
	rec.ModelHint = "DeviceState"
	res, err := Build([]types.Record{rec}, cfg)
	require.NoError(t, err)
	assert.Contains(t, res.Schemas, "DeviceState")
}

func TestBuildDialectB(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generator.Dialect = "b"
	res, err := Build([]types.Record{record("dev/state", map[string]any{"a": float64(1)})}, cfg)
	require.NoError(t, err)

	doc, ok := res.Document.(*asyncapi.DocumentV3)
	require.True(t, ok)
	assert.Equal(t, asyncapi.VersionV3, doc.AsyncAPI)

	frag := res.Schemas["dev_statePayload"]
	require.NotNil(t, frag)
	assert.Contains(t, frag.Properties, schema.TimestampProperty)
	assert.Empty(t, frag.Required)
}

func TestBuildReportsSkippedRules(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generator.ChannelMode = "parameterized"
	cfg.Substitutions = []topic.Rule{{LevelIndex: 0, Parameter: "bad", Pattern: "(["}}

	res, err := Build([]types.Record{record("a/b", nil)}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "invalid pattern")
}

func TestBuildAppliesFilterAndSanitize(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generator.IncludeExamples = true
	res, err := Build([]types.Record{
		record("$SYS/broker/uptime", map[string]any{"v": 1.0}),
		record("login", map[string]any{"user": "alice", "password": "hunter2"}),
	}, cfg)
	require.NoError(t, err)

	require.Len(t, res.Channels, 1)
	example := res.Channels[0].Examples[0].(map[string]any)
	assert.Equal(t, "***REDACTED***", example["password"])
}

func TestDetectRules(t *testing.T) {
	rules := DetectRules([]types.Record{
		record("line/1/temp", nil),
		record("line/2/temp", nil),
	}, 2)
	require.Len(t, rules, 1)
	assert.Equal(t, 1, rules[0].LevelIndex)
	assert.Equal(t, "id", rules[0].Parameter)
}
