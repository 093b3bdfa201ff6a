package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "true")

	out := sanitizeKVs([]interface{}{"password", "hunter2", "lot", "LOT-7", "inspector_email", "a@b.c", "dangling"})
	want := []interface{}{"password", "[REDACTED]", "lot", "LOT-7", "inspector_email", "[REDACTED]", "dangling"}
	if len(out) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("Item %d: expected %v, got %v", i, want[i], out[i])
		}
	}
}

func TestSanitizeKVs_EmailsVisibleWhenDisabled(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "off")

	out := sanitizeKVs([]interface{}{"email", "a@b.c", "api_token", "x"})
	if out[1] != "a@b.c" {
		t.Errorf("Email should be visible when redaction is off, got %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Errorf("Tokens are always redacted, got %v", out[3])
	}
}
