// Package generator orchestrates the transformation of sampled records
// into an AsyncAPI-style document: filtering, inference, registration,
// channel mapping and assembly.
package generator

import (
	"fmt"

	"github.com/yourorg/asyncdoc/internal/asyncapi"
	"github.com/yourorg/asyncdoc/internal/config"
	"github.com/yourorg/asyncdoc/internal/filter"
	"github.com/yourorg/asyncdoc/internal/metrics"
	"github.com/yourorg/asyncdoc/internal/registry"
	"github.com/yourorg/asyncdoc/internal/schema"
	"github.com/yourorg/asyncdoc/internal/topic"
	"github.com/yourorg/asyncdoc/pkg/types"
)

// Result is one full document build.
type Result struct {
	Document any                         `json:"document"`
	Channels []topic.Channel             `json:"channels"`
	Schemas  map[string]*schema.Fragment `json:"schemas"`
	Stats    registry.Stats              `json:"stats"`
	Warnings []string                    `json:"warnings,omitempty"`
}

// Build runs the full pipeline over a session's records. It is cheap
// enough to re-run on every configuration change; all state lives in the
// returned result.
func Build(records []types.Record, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		cfg = &config.Config{}
		cfg.SetDefaults()
	}

	filtered := filter.Apply(records, cfg.Filter)
	sanitized := filter.Sanitize(filtered, cfg.Sanitize)

	opts := schema.Options{
		Dialect:         schema.Dialect(cfg.Generator.Dialect),
		IncludeExamples: cfg.Generator.IncludeExamples,
	}
	reg := registry.New(registry.Policy(cfg.Generator.CollisionPolicy))
	mapper := topic.NewMapper(topic.Config{
		Mode:  topic.Mode(cfg.Generator.ChannelMode),
		Rules: cfg.Substitutions,
	})
	set := topic.NewSet(mapper, 0)

	var warnings []string
	for _, err := range mapper.Skipped() {
		warnings = append(warnings, err.Error())
	}

	for _, rec := range sanitized {
		fragment := schema.Infer(rec.Payload, opts)
		name := reg.Register(proposedName(rec, mapper), fragment)
		metrics.SchemasRegistered.Inc()
		set.Add(rec, name)
	}

	channels := set.Channels()
	schemas := reg.Snapshot()
	doc, err := asyncapi.Assemble(channels, schemas, asyncapi.Config{
		Dialect:         opts.Dialect,
		Info:            asyncapi.Info(cfg.Info),
		Servers:         endpoints(cfg.Servers),
		IncludeExamples: cfg.Generator.IncludeExamples,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble document: %w", err)
	}
	metrics.DocumentsBuilt.Inc()

	return &Result{
		Document: doc,
		Channels: channels,
		Schemas:  schemas,
		Stats:    reg.Stats(10),
		Warnings: warnings,
	}, nil
}

// DetectRules proposes substitution rules from the topics of a record set.
func DetectRules(records []types.Record, minVariants int) []topic.Rule {
	topics := make([]string, 0, len(records))
	for _, rec := range records {
		topics = append(topics, rec.Topic)
	}
	return topic.DetectParameters(topics, minVariants)
}

func proposedName(rec types.Record, mapper *topic.Mapper) string {
	if rec.ModelHint != "" {
		return rec.ModelHint
	}
	return topic.ChannelID(mapper.Apply(rec.Topic).Topic) + "Payload"
}

func endpoints(servers []config.ServerEndpoint) []asyncapi.Endpoint {
	out := make([]asyncapi.Endpoint, 0, len(servers))
	for _, s := range servers {
		out = append(out, asyncapi.Endpoint{Name: s.Name, URL: s.URL, Protocol: s.Protocol, Description: s.Description})
	}
	return out
}
