package metric

import (
	"encoding/json"
)

// Blob is the normalized metrics payload of an inspection
type Blob struct {
	TemplateID      *uint                  `json:"template_id,omitempty"`
	TemplateVersion *int                   `json:"template_version,omitempty"`
	Values          map[string]interface{} `json:"values"`
}

// NormalizeBlob reads a persisted metrics payload. Accepted shapes:
// {template_id, template_version, values:{...}}, a bare values map, or
// null/malformed data, which yields an empty values map.
func NormalizeBlob(raw []byte) Blob {
	out := Blob{Values: map[string]interface{}{}}
	if len(raw) == 0 {
		return out
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed == nil {
		return out
	}

	out.TemplateID = uintField(parsed["template_id"])
	out.TemplateVersion = intField(parsed["template_version"])

	if inner, ok := parsed["values"]; ok {
		if values, ok := inner.(map[string]interface{}); ok {
			out.Values = values
		}
		return out
	}

	// bare values map
	for k, v := range parsed {
		if k == "template_id" || k == "template_version" {
			continue
		}
		out.Values[k] = v
	}
	return out
}

// Marshal encodes the blob, always with a values object
func (b Blob) Marshal() ([]byte, error) {
	if b.Values == nil {
		b.Values = map[string]interface{}{}
	}
	return json.Marshal(b)
}

func uintField(v interface{}) *uint {
	n, ok := v.(float64)
	if !ok || n < 0 {
		return nil
	}
	u := uint(n)
	return &u
}

func intField(v interface{}) *int {
	n, ok := v.(float64)
	if !ok {
		return nil
	}
	i := int(n)
	return &i
}
