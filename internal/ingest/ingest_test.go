package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFileArray(t *testing.T) {
	path := writeSample(t, `[
		{"topic": "line/1/temp", "payload": {"v": 21.5}, "modelHint": "TempReading"},
		{"topic": "line/2/temp", "payload": {"v": 22.0}, "timestamp": "2024-06-01T12:00:00Z"}
	]`)
	records, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "line/1/temp", records[0].Topic)
	assert.Equal(t, "TempReading", records[0].ModelHint)
	assert.Equal(t, map[string]any{"v": 21.5}, records[0].Payload)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), records[1].Timestamp)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestParseFileNDJSON(t *testing.T) {
	path := writeSample(t, `{"topic": "a", "payload": 1}

{"topic": "b", "payload": "x"}
`)
	records, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, float64(1), records[0].Payload)
	assert.Equal(t, "x", records[1].Payload)
}

func TestParseFileRejectsMalformed(t *testing.T) {
	path := writeSample(t, `{"topic": "a", "payload": 1}
{not json}
`)
	_, err := ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseFileRejectsMissingTopic(t *testing.T) {
	path := writeSample(t, `[{"payload": 1}]`)
	_, err := ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic")
}

func TestParseFileRejectsMissingPayload(t *testing.T) {
	path := writeSample(t, `[{"topic": "dev/state"}]`)
	_, err := ParseFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload")
	assert.Contains(t, err.Error(), "record 0")
}

func TestParseFileAcceptsExplicitNullPayload(t *testing.T) {
	path := writeSample(t, `[{"topic": "dev/state", "payload": null}]`)
	records, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Payload)
}

func TestParseRecords(t *testing.T) {
	records, err := ParseRecords([]byte(`[{"topic": "a", "payload": 1}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, float64(1), records[0].Payload)

	_, err = ParseRecords(nil)
	assert.Error(t, err)

	_, err = ParseRecords([]byte(`[{"topic": "a"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payload")
}

func TestParseFileEmpty(t *testing.T) {
	path := writeSample(t, "  \n")
	_, err := ParseFile(path)
	assert.Error(t, err)
}

func TestParsePayload(t *testing.T) {
	rec, err := ParsePayload("line/1/temp", []byte(`{"v": 1}`), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "line/1/temp", rec.Topic)
	assert.False(t, rec.Timestamp.IsZero())

	_, err = ParsePayload("line/1/temp", []byte(`{bad`), time.Time{})
	assert.Error(t, err)
}
