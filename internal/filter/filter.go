package filter

import (
	"strings"

	"github.com/yourorg/asyncdoc/internal/config"
	"github.com/yourorg/asyncdoc/pkg/types"
)

// FilterConfig is an alias of config.FilterConfig.
type FilterConfig = config.FilterConfig

// Apply drops records whose topic matches the configured ignore rules.
func Apply(records []types.Record, cfg FilterConfig) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, rec := range records {
		if ignoredTopic(rec.Topic, cfg.IgnoreTopics) {
			continue
		}
		if ignoredPrefix(rec.Topic, cfg.IgnorePrefixes) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func ignoredTopic(topic string, exact []string) bool {
	for _, t := range exact {
		if strings.TrimSpace(t) == topic {
			return true
		}
	}
	return false
}

func ignoredPrefix(topic string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(topic, p) {
			return true
		}
	}
	return false
}
