package generator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/asyncdoc/internal/asyncapi"
	"github.com/yourorg/asyncdoc/pkg/types"
)

func TestRenderRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	res, err := Build([]types.Record{
		record("line/1/temp", map[string]any{"v": 21.5}),
		record("line/2/state", map[string]any{"on": true}),
	}, cfg)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, Render(res.Document, dir, []string{"yaml", "json"}))

	jsonData, err := os.ReadFile(filepath.Join(dir, "asyncapi.json"))
	require.NoError(t, err)
	var parsed asyncapi.DocumentV2
	require.NoError(t, json.Unmarshal(jsonData, &parsed))

	original := res.Document.(*asyncapi.DocumentV2)
	assert.Equal(t, original.AsyncAPI, parsed.AsyncAPI)
	require.Len(t, parsed.Channels, len(original.Channels))
	for key := range original.Channels {
		assert.Contains(t, parsed.Channels, key)
	}
	for name := range original.Components.Schemas {
		assert.Contains(t, parsed.Components.Schemas, name)
	}

	yamlData, err := os.ReadFile(filepath.Join(dir, "asyncapi.yaml"))
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(yamlData, &generic))
	assert.Equal(t, asyncapi.VersionV2, generic["asyncapi"])
}

func TestRenderUnknownFormat(t *testing.T) {
	assert.Error(t, Render(map[string]any{}, t.TempDir(), []string{"toml"}))
}
