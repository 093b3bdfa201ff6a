package metric

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SafeParseOptions turns any stored options value (JSON string, bytes, parsed
// slice, nil) into a list of strings. Anything unparseable yields an empty list.
func SafeParseOptions(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []interface{}:
		return stringsFrom(t)
	case []byte:
		return parseOptionsJSON(string(t))
	case string:
		return parseOptionsJSON(t)
	case *string:
		if t == nil {
			return []string{}
		}
		return parseOptionsJSON(*t)
	}
	return []string{}
}

// SerializeOptions renders options as a JSON array string, never "null"
func SerializeOptions(options []string) string {
	if len(options) == 0 {
		return "[]"
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func parseOptionsJSON(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return []string{}
	}
	list, ok := parsed.([]interface{})
	if !ok {
		return []string{}
	}
	return stringsFrom(list)
}

func stringsFrom(list []interface{}) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch s := item.(type) {
		case nil:
			continue
		case string:
			out = append(out, s)
		default:
			out = append(out, fmt.Sprint(s))
		}
	}
	return out
}
