package metric

import (
	"testing"

	"github.com/xelth-com/berrycheck/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestSpecFor(t *testing.T) {
	tests := []struct {
		field models.MetricField
		kind  FieldType
	}{
		{models.MetricField{Key: "quality.dust", FieldType: "number"}, TypeNumber},
		{models.MetricField{Key: "pack.label", FieldType: "SELECT", Options: `["A","B"]`}, TypeSelect},
		{models.MetricField{Key: "notes", FieldType: "text"}, TypeText},
	}
	for _, tt := range tests {
		spec, err := SpecFor(tt.field)
		if err != nil {
			t.Fatalf("SpecFor(%s) failed: %v", tt.field.Key, err)
		}
		if spec.Kind() != tt.kind {
			t.Errorf("%s: expected %s, got %s", tt.field.Key, tt.kind, spec.Kind())
		}
	}

	if _, err := SpecFor(models.MetricField{Key: "x", FieldType: "date"}); err == nil {
		t.Error("Unknown field type should fail")
	}
}

func TestNumberSpecBounds(t *testing.T) {
	spec, _ := SpecFor(models.MetricField{FieldType: "number", MinValue: floatPtr(0), MaxValue: floatPtr(0.3)})

	valid := []interface{}{0.0, 0.1, 0.3, "0,2", 0}
	for _, v := range valid {
		if err := spec.Validate(v); err != nil {
			t.Errorf("Expected %v to be valid, got %v", v, err)
		}
	}

	invalid := []interface{}{-0.01, 0.30000001, "abc", true}
	for _, v := range invalid {
		if err := spec.Validate(v); err == nil {
			t.Errorf("Expected %v to be rejected", v)
		}
	}
}

func TestValidateValues(t *testing.T) {
	fields := []models.MetricField{
		{Key: "quality.dust", FieldType: "number", Required: true, MaxValue: floatPtr(10)},
		{Key: "pack.label", FieldType: "select", Options: `["OK","NOK"]`},
		{Key: "condition.notes", FieldType: "text"},
	}

	problems := ValidateValues(fields, map[string]interface{}{
		"pack.label": "MAYBE",
		"unknown":    123,
	})
	if problems["quality.dust"] != "is required" {
		t.Errorf("Expected required error, got %q", problems["quality.dust"])
	}
	if _, ok := problems["pack.label"]; !ok {
		t.Error("Expected invalid option error")
	}
	if _, ok := problems["unknown"]; ok {
		t.Error("Unknown keys should be ignored")
	}

	problems = ValidateValues(fields, map[string]interface{}{
		"quality.dust":    3.0,
		"pack.label":      "OK",
		"condition.notes": "",
	})
	if len(problems) != 0 {
		t.Errorf("Expected no problems, got %v", problems)
	}
}
