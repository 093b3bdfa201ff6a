package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// DefaultSheetName is the worksheet holding assignments when none is configured
const DefaultSheetName = "Asignaciones"

// SheetSyncConfig holds the spreadsheet the reconciliation runs against
type SheetSyncConfig struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"`
}

// Configured reports whether a spreadsheet is set
func (c SheetSyncConfig) Configured() bool {
	return strings.TrimSpace(c.SpreadsheetID) != ""
}

// SheetSyncStore keeps the current sheet sync config and persists changes to an
// optional JSON file.
type SheetSyncStore struct {
	mu   sync.RWMutex
	cfg  SheetSyncConfig
	path string
}

// LoadSheetSyncConfig loads sync configuration from file (if present) on top of env defaults
func LoadSheetSyncConfig(sheets SheetsConfig) *SheetSyncStore {
	store := &SheetSyncStore{
		cfg: SheetSyncConfig{
			SpreadsheetID: sheets.SpreadsheetID,
			SheetName:     sheets.SheetName,
		},
		path: sheets.SyncConfigPath,
	}

	if store.path != "" {
		if fileCfg, err := loadSheetSyncConfigFromFile(store.path); err == nil {
			if fileCfg.SpreadsheetID != "" {
				store.cfg.SpreadsheetID = fileCfg.SpreadsheetID
			}
			if fileCfg.SheetName != "" {
				store.cfg.SheetName = fileCfg.SheetName
			}
		}
	}
	if store.cfg.SheetName == "" {
		store.cfg.SheetName = DefaultSheetName
	}
	return store
}

// Get returns a copy of the current config
func (s *SheetSyncStore) Get() SheetSyncConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update replaces non-empty fields and persists the result when a path is configured
func (s *SheetSyncStore) Update(next SheetSyncConfig) (SheetSyncConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v := strings.TrimSpace(next.SpreadsheetID); v != "" {
		s.cfg.SpreadsheetID = v
	}
	if v := strings.TrimSpace(next.SheetName); v != "" {
		s.cfg.SheetName = v
	}

	if s.path == "" {
		return s.cfg, nil
	}
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return s.cfg, err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return s.cfg, fmt.Errorf("failed to persist sheet sync config: %w", err)
	}
	return s.cfg, nil
}

// loadSheetSyncConfigFromFile loads sync config from JSON file
func loadSheetSyncConfigFromFile(path string) (*SheetSyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg SheetSyncConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
