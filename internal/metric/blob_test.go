package metric

import (
	"testing"
)

func TestNormalizeBlob(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantValues int
		wantTplID  bool
	}{
		{"wrapped", `{"template_id":3,"template_version":2,"values":{"quality.dust":1,"pack.ok":"yes"}}`, 2, true},
		{"bare map", `{"quality.dust":1}`, 1, false},
		{"null", `null`, 0, false},
		{"empty", ``, 0, false},
		{"malformed", `{"values":`, 0, false},
		{"array", `[1,2]`, 0, false},
		{"values not object", `{"values":[1],"template_id":1}`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := NormalizeBlob([]byte(tt.raw))
			if blob.Values == nil {
				t.Fatal("Values must never be nil")
			}
			if len(blob.Values) != tt.wantValues {
				t.Errorf("Expected %d values, got %d", tt.wantValues, len(blob.Values))
			}
			if (blob.TemplateID != nil) != tt.wantTplID {
				t.Errorf("TemplateID presence mismatch: %v", blob.TemplateID)
			}
		})
	}
}

func TestNormalizeBlob_WrappedFields(t *testing.T) {
	blob := NormalizeBlob([]byte(`{"template_id":7,"template_version":4,"values":{"a":1}}`))
	if *blob.TemplateID != 7 || *blob.TemplateVersion != 4 {
		t.Errorf("Unexpected template reference: %d/%d", *blob.TemplateID, *blob.TemplateVersion)
	}
}

func TestBlobMarshal_EmptyValues(t *testing.T) {
	data, err := Blob{}.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"values":{}}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
}
