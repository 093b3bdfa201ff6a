package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSheetSyncStore_DefaultsAndUpdate(t *testing.T) {
	store := LoadSheetSyncConfig(SheetsConfig{})
	cfg := store.Get()
	if cfg.Configured() {
		t.Error("Empty spreadsheet id should not be configured")
	}
	if cfg.SheetName != DefaultSheetName {
		t.Errorf("Expected default sheet name %q, got %q", DefaultSheetName, cfg.SheetName)
	}

	updated, err := store.Update(SheetSyncConfig{SpreadsheetID: " abc123 "})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.SpreadsheetID != "abc123" {
		t.Errorf("Expected trimmed id, got %q", updated.SpreadsheetID)
	}
	if updated.SheetName != DefaultSheetName {
		t.Errorf("Empty sheet name should keep previous value, got %q", updated.SheetName)
	}
}

func TestSheetSyncStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet_sync.json")

	store := LoadSheetSyncConfig(SheetsConfig{SheetName: "Hoja1", SyncConfigPath: path})
	if _, err := store.Update(SheetSyncConfig{SpreadsheetID: "sheet-1"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected config file to be written: %v", err)
	}

	reloaded := LoadSheetSyncConfig(SheetsConfig{SyncConfigPath: path})
	cfg := reloaded.Get()
	if cfg.SpreadsheetID != "sheet-1" || cfg.SheetName != "Hoja1" {
		t.Errorf("Unexpected reloaded config: %+v", cfg)
	}
}
