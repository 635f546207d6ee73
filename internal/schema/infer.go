package schema

import (
	"encoding/json"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Infer builds a schema fragment describing one example value. A nil value
// yields a null-typed fragment; every defined value yields a fragment with
// a non-empty type.
func Infer(value any, opts Options) *Fragment {
	switch v := value.(type) {
	case nil:
		return &Fragment{Type: TypeSet{"null"}}
	case bool:
		return scalar("boolean", "", v, opts)
	case string:
		return scalar("string", detectFormat(v), v, opts)
	case float64:
		if math.Trunc(v) == v && !math.IsInf(v, 0) {
			return scalar("integer", "", v, opts)
		}
		return scalar("number", "", v, opts)
	case int:
		return scalar("integer", "", v, opts)
	case int64:
		return scalar("integer", "", v, opts)
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return scalar("integer", "", v, opts)
		}
		return scalar("number", "", v, opts)
	case []any:
		return inferArray(v, opts)
	case map[string]any:
		return inferObject(v, opts)
	default:
		// Unknown Go types are described by their JSON rendering.
		b, err := json.Marshal(v)
		if err != nil {
			return &Fragment{Type: TypeSet{"string"}}
		}
		var decoded any
		if err := json.Unmarshal(b, &decoded); err != nil {
			return &Fragment{Type: TypeSet{"string"}}
		}
		return Infer(decoded, opts)
	}
}

func scalar(tag, format string, value any, opts Options) *Fragment {
	f := &Fragment{Type: TypeSet{tag}, Format: format}
	if opts.IncludeExamples {
		f.Examples = []any{value}
	}
	return f
}

// Item schemas are sampled from the leading elements only; the cost of
// inferring every element of a large array is not worth the precision.
func inferArray(items []any, opts Options) *Fragment {
	f := &Fragment{Type: TypeSet{"array"}}
	if len(items) == 0 {
		return f
	}
	f.Items = Infer(items[0], opts)
	limit := len(items)
	if limit > maxArraySample {
		limit = maxArraySample
	}
	for _, item := range items[1:limit] {
		f.Items = Merge(f.Items, Infer(item, opts))
	}
	return f
}

func inferObject(obj map[string]any, opts Options) *Fragment {
	f := &Fragment{
		Type:       TypeSet{"object"},
		Properties: make(map[string]*Fragment, len(obj)),
	}
	for key, val := range obj {
		f.Properties[key] = Infer(val, opts)
	}
	switch opts.Dialect {
	case DialectB:
		if _, ok := f.Properties[TimestampProperty]; !ok {
			f.Properties[TimestampProperty] = &Fragment{Type: TypeSet{"string"}, Format: "date-time"}
		}
	default:
		required := make([]string, 0, len(obj))
		for key := range obj {
			required = append(required, key)
		}
		sort.Strings(required)
		f.Required = required
	}
	return f
}

// Format detectors in priority order. Date-time-like patterns run before
// looser ones so overlapping inputs resolve deterministically.
var formatDetectors = []struct {
	name  string
	match func(string) bool
}{
	{"date-time", isDateTime},
	{"date", isDate},
	{"date-time", isUSDateTime},
	{"time", isTime},
	{"uuid", isUUID},
	{"email", isEmail},
	{"uri", isURI},
}

func detectFormat(s string) string {
	if s == "" {
		return ""
	}
	for _, d := range formatDetectors {
		if d.match(s) {
			return d.name
		}
	}
	return ""
}

var (
	usDateTimeRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}[ T]\d{1,2}:\d{2}(:\d{2})?( ?[AaPp][Mm])?$`)
	timeRe       = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
	emailRe      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func isDateTime(s string) bool {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	_, err := time.Parse("2006-01-02T15:04:05", s)
	return err == nil
}

func isDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func isUSDateTime(s string) bool {
	return usDateTimeRe.MatchString(s)
}

func isTime(s string) bool {
	return timeRe.MatchString(s)
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isEmail(s string) bool {
	return emailRe.MatchString(s)
}

func isURI(s string) bool {
	if !strings.Contains(s, "://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
