package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/asyncdoc/pkg/types"
)

func TestApplyIgnoresTopics(t *testing.T) {
	records := []types.Record{
		{Topic: "$SYS/broker/uptime"},
		{Topic: "line/1/temp"},
		{Topic: "debug/trace"},
	}
	cfg := FilterConfig{
		IgnoreTopics:   []string{"debug/trace"},
		IgnorePrefixes: []string{"$SYS/"},
	}
	out := Apply(records, cfg)
	require.Len(t, out, 1)
	assert.Equal(t, "line/1/temp", out[0].Topic)
}

func TestApplyEmptyConfigKeepsAll(t *testing.T) {
	records := []types.Record{{Topic: "a"}, {Topic: "b"}}
	assert.Len(t, Apply(records, FilterConfig{}), 2)
}

func TestSanitizeRedactsFields(t *testing.T) {
	records := []types.Record{{
		Topic: "device/login",
		Payload: map[string]any{
			"user":     "alice",
			"Password": "hunter2",
			"nested":   map[string]any{"api_key": "xyz", "ok": true},
			"list":     []any{map[string]any{"token": "abc"}},
		},
	}}
	cfg := SanitizeConfig{Fields: []string{"password", "api_key", "token"}, Replacement: "***"}
	out := Sanitize(records, cfg)

	payload := out[0].Payload.(map[string]any)
	assert.Equal(t, "alice", payload["user"])
	assert.Equal(t, "***", payload["Password"])
	assert.Equal(t, "***", payload["nested"].(map[string]any)["api_key"])
	assert.Equal(t, "***", payload["list"].([]any)[0].(map[string]any)["token"])
}

func TestSanitizeKeepsOriginalPayload(t *testing.T) {
	payload := map[string]any{"password": "x"}
	records := []types.Record{{Topic: "t", Payload: payload}}
	_ = Sanitize(records, SanitizeConfig{Fields: []string{"password"}, Replacement: "***"})
	assert.Equal(t, "x", payload["password"])
}
