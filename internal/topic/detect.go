package topic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultMinVariants is the distinct-segment count at which a topic level
// is proposed as a parameter.
const DefaultMinVariants = 2

// DetectParameters inspects the variability of every topic level across
// the given topics and proposes a substitution rule for each level whose
// distinct-segment count reaches minVariants. Parameter names are a
// heuristic; the description always states the literal level and variant
// count so a human can override the name.
func DetectParameters(topics []string, minVariants int) []Rule {
	if minVariants <= 0 {
		minVariants = DefaultMinVariants
	}
	levels := make(map[int]map[string]struct{})
	maxLevel := 0
	for _, t := range topics {
		for i, seg := range strings.Split(t, "/") {
			if levels[i] == nil {
				levels[i] = make(map[string]struct{})
			}
			levels[i][seg] = struct{}{}
			if i > maxLevel {
				maxLevel = i
			}
		}
	}

	var rules []Rule
	for level := 0; level <= maxLevel; level++ {
		segments := levels[level]
		if len(segments) < minVariants {
			continue
		}
		values := make([]string, 0, len(segments))
		for seg := range segments {
			values = append(values, seg)
		}
		sort.Strings(values)
		rules = append(rules, Rule{
			LevelIndex:  level,
			Parameter:   inferParameterName(values, level),
			Description: fmt.Sprintf("Auto-detected parameter at topic level %d (%d distinct values)", level, len(values)),
		})
	}
	return rules
}

var semanticKeywords = []struct {
	keyword string
	name    string
}{
	{"machine", "machineId"},
	{"area", "areaId"},
	{"line", "lineId"},
}

func inferParameterName(segments []string, level int) string {
	if allMatch(segments, isUUIDSegment) {
		return "uuid"
	}
	if allMatch(segments, isNumericSegment) {
		return "id"
	}
	for _, kw := range semanticKeywords {
		match := func(s string) bool { return strings.Contains(strings.ToLower(s), kw.keyword) }
		if allMatch(segments, match) {
			return kw.name
		}
	}
	return fmt.Sprintf("param%d", level)
}

func allMatch(segments []string, match func(string) bool) bool {
	if len(segments) == 0 {
		return false
	}
	for _, s := range segments {
		if !match(s) {
			return false
		}
	}
	return true
}

func isUUIDSegment(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isNumericSegment(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
