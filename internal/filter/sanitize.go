package filter

import (
	"strings"

	"github.com/yourorg/asyncdoc/internal/config"
	"github.com/yourorg/asyncdoc/pkg/types"
)

// SanitizeConfig is an alias of config.SanitizeConfig.
type SanitizeConfig = config.SanitizeConfig

// Sanitize redacts configured sensitive fields in record payloads before
// they are stored or surfaced as document examples.
func Sanitize(records []types.Record, cfg SanitizeConfig) []types.Record {
	fieldSet := toLowerSet(cfg.Fields)
	if len(fieldSet) == 0 {
		return records
	}
	out := make([]types.Record, len(records))
	for i, rec := range records {
		out[i] = rec
		out[i].Payload = sanitizeValue(rec.Payload, fieldSet, cfg.Replacement)
	}
	return out
}

func toLowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func sanitizeValue(v any, set map[string]struct{}, replacement string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if _, ok := set[strings.ToLower(k)]; ok {
				out[k] = replacement
				continue
			}
			out[k] = sanitizeValue(v2, set, replacement)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = sanitizeValue(val[i], set, replacement)
		}
		return out
	default:
		return val
	}
}
