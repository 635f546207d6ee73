// Package topic maps raw topic strings onto channels: sanitized channel
// identifiers, rule-based parameterization and auto-detection of candidate
// parameters from topic variability.
package topic

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yourorg/asyncdoc/pkg/types"
)

// Mode selects how topics group into channels.
type Mode string

const (
	// ModeVerbose creates one channel per distinct literal topic.
	ModeVerbose Mode = "verbose"
	// ModeParameterized groups topics after substitution rules replaced
	// variable levels with {parameter} placeholders.
	ModeParameterized Mode = "parameterized"
)

// Rule replaces one slash-delimited topic level with a named parameter.
// A rule matches by explicit value set if Values is given, else by regex
// if Pattern is given, else unconditionally.
type Rule struct {
	LevelIndex  int      `json:"levelIndex" yaml:"level_index"`
	Parameter   string   `json:"parameterName" yaml:"parameter"`
	Values      []string `json:"values,omitempty" yaml:"values,omitempty"`
	Pattern     string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Parameter is a parameter definition attached to a channel.
type Parameter struct {
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Channel is one entry of the channel topology.
type Channel struct {
	ID           string               `json:"id"`
	Topic        string               `json:"topic"`
	Parameters   map[string]Parameter `json:"parameters,omitempty"`
	MessageCount int                  `json:"message_count"`
	SchemaNames  []string             `json:"schema_names,omitempty"`
	Examples     []any                `json:"examples,omitempty"`
}

// Config controls channel construction.
type Config struct {
	Mode        Mode
	Rules       []Rule
	MaxExamples int
}

const defaultMaxExamples = 3

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Mapper applies substitution rules to topics. Build one per session; an
// invalid regex pattern disables its rule and is reported via Skipped.
type Mapper struct {
	mode    Mode
	rules   []compiledRule
	skipped []error
}

// NewMapper compiles the configured rules. Rules with an invalid regex are
// skipped, never failing the whole batch.
func NewMapper(cfg Config) *Mapper {
	m := &Mapper{mode: cfg.Mode}
	if m.mode == "" {
		m.mode = ModeVerbose
	}
	for _, r := range cfg.Rules {
		cr := compiledRule{Rule: r}
		if r.Pattern != "" && len(r.Values) == 0 {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				m.skipped = append(m.skipped, fmt.Errorf("rule %q at level %d: invalid pattern: %w", r.Parameter, r.LevelIndex, err))
				continue
			}
			cr.re = re
		}
		m.rules = append(m.rules, cr)
	}
	return m
}

// Skipped returns errors for rules disabled at compile time.
func (m *Mapper) Skipped() []error {
	return m.skipped
}

// Mapped is the result of applying substitution rules to one topic.
// Captured holds the literal segment each parameter replaced.
type Mapped struct {
	Topic    string
	Params   map[string]Parameter
	Captured map[string]string
}

// Apply rewrites a topic according to the mapper's mode and rules and
// returns the channel grouping key, the parameters actually used and the
// literal value each one matched.
func (m *Mapper) Apply(rawTopic string) Mapped {
	if m.mode != ModeParameterized || len(m.rules) == 0 {
		return Mapped{Topic: rawTopic}
	}
	levels := strings.Split(rawTopic, "/")
	var params map[string]Parameter
	var captured map[string]string
	for _, rule := range m.rules {
		if rule.LevelIndex < 0 || rule.LevelIndex >= len(levels) {
			continue
		}
		segment := levels[rule.LevelIndex]
		if strings.HasPrefix(segment, "{") {
			// Already substituted by an earlier rule.
			continue
		}
		if !rule.matches(segment) {
			continue
		}
		levels[rule.LevelIndex] = "{" + rule.Parameter + "}"
		if params == nil {
			params = make(map[string]Parameter)
			captured = make(map[string]string)
		}
		p := Parameter{Description: rule.Description}
		if len(rule.Values) > 0 {
			p.Enum = append([]string{}, rule.Values...)
		}
		params[rule.Parameter] = p
		captured[rule.Parameter] = segment
	}
	return Mapped{Topic: strings.Join(levels, "/"), Params: params, Captured: captured}
}

func (r compiledRule) matches(segment string) bool {
	if len(r.Values) > 0 {
		for _, v := range r.Values {
			if v == segment {
				return true
			}
		}
		return false
	}
	if r.re != nil {
		return r.re.MatchString(segment)
	}
	return true
}

// Set accumulates records into channels in arrival order.
type Set struct {
	mapper      *Mapper
	maxExamples int
	byTopic     map[string]*Channel
	order       []string
}

// NewSet returns an empty channel set using the given mapper.
func NewSet(m *Mapper, maxExamples int) *Set {
	if maxExamples <= 0 {
		maxExamples = defaultMaxExamples
	}
	return &Set{mapper: m, maxExamples: maxExamples, byTopic: make(map[string]*Channel)}
}

// Add routes one record into its channel, optionally attaching the
// canonical schema name used for its payload.
func (s *Set) Add(rec types.Record, schemaName string) *Channel {
	mapped := s.mapper.Apply(rec.Topic)
	ch, ok := s.byTopic[mapped.Topic]
	if !ok {
		ch = &Channel{ID: ChannelID(mapped.Topic), Topic: mapped.Topic}
		s.byTopic[mapped.Topic] = ch
		s.order = append(s.order, mapped.Topic)
	}
	for name, p := range mapped.Params {
		if ch.Parameters == nil {
			ch.Parameters = make(map[string]Parameter)
		}
		have, exists := ch.Parameters[name]
		if !exists {
			have = p
		}
		// Observed literals accumulate into the enum; rules with an
		// explicit value set already carry their literals.
		if lit := mapped.Captured[name]; lit != "" && !contains(have.Enum, lit) {
			have.Enum = append(have.Enum, lit)
		}
		ch.Parameters[name] = have
	}
	ch.MessageCount++
	if schemaName != "" && !contains(ch.SchemaNames, schemaName) {
		ch.SchemaNames = append(ch.SchemaNames, schemaName)
	}
	if rec.Payload != nil && len(ch.Examples) < s.maxExamples {
		ch.Examples = append(ch.Examples, rec.Payload)
	}
	return ch
}

// Channels returns the accumulated channels in first-seen order.
func (s *Set) Channels() []Channel {
	out := make([]Channel, 0, len(s.order))
	for _, topic := range s.order {
		out = append(out, *s.byTopic[topic])
	}
	return out
}

// Clear drops all accumulated channels.
func (s *Set) Clear() {
	s.byTopic = make(map[string]*Channel)
	s.order = nil
}

// BuildChannels groups records into channels without schema attribution.
func BuildChannels(records []types.Record, cfg Config) []Channel {
	set := NewSet(NewMapper(cfg), cfg.MaxExamples)
	for _, rec := range records {
		set.Add(rec, "")
	}
	return set.Channels()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var underscoreRuns = regexp.MustCompile(`_+`)

// ChannelID derives a deterministic identifier from a topic: braces are
// stripped, slashes, dashes and dots become underscores, and underscore
// runs collapse with leading/trailing underscores trimmed.
func ChannelID(topic string) string {
	replaced := strings.NewReplacer("{", "", "}", "", "/", "_", "-", "_", ".", "_").Replace(topic)
	replaced = underscoreRuns.ReplaceAllString(replaced, "_")
	return strings.Trim(replaced, "_")
}
