package sheetsync

import (
	"context"

	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/sheetrow"
)

// Spreadsheet is the external sheet capability the engine relies on
type Spreadsheet interface {
	// Read returns all rows of a range; trailing empty cells may be omitted
	Read(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	// Write overwrites a range with raw (non-evaluated) values
	Write(ctx context.Context, spreadsheetID, rng string, values [][]string) error
	// BatchUpdate writes many ranges in a single call
	BatchUpdate(ctx context.Context, spreadsheetID string, updates []sheetrow.CellUpdate) error
	Metadata(ctx context.Context, spreadsheetID string) (*Metadata, error)
	// DeleteRow removes a 1-based row from the named sheet
	DeleteRow(ctx context.Context, spreadsheetID, sheetName string, row int) error
}

// Metadata describes a spreadsheet document
type Metadata struct {
	Title  string      `json:"title"`
	Sheets []SheetInfo `json:"sheets"`
}

// SheetInfo describes one worksheet
type SheetInfo struct {
	SheetID     int64  `json:"sheetId"`
	Title       string `json:"title"`
	RowCount    int64  `json:"rowCount"`
	ColumnCount int64  `json:"columnCount"`
}

// AssignmentRepository is the slice of the assignment store the engine uses
type AssignmentRepository interface {
	// ListPending returns pending assignments with User preloaded, oldest first
	ListPending(ctx context.Context) ([]models.Assignment, error)
	// NaturalKeyIndex maps every stored assignment's natural key to its id (first created wins)
	NaturalKeyIndex(ctx context.Context) (map[models.NaturalKey]uint, error)
	// FindInspectorByEmail returns the active inspector with that email
	FindInspectorByEmail(ctx context.Context, email string) (*models.UserAuth, error)
	CreateImported(ctx context.Context, a *models.Assignment) error
	// MatchCommodity resolves a free-text commodity label to a known code
	MatchCommodity(ctx context.Context, label string) (string, bool, error)
	// CommodityCodes returns commodity codes of the given assignments
	CommodityCodes(ctx context.Context, ids []uint) (map[uint]string, error)
}

// ConfigSource yields the current sheet target
type ConfigSource interface {
	Get() config.SheetSyncConfig
}

// Notifier receives engine events (e.g. the websocket hub)
type Notifier interface {
	Broadcast(event string, payload interface{})
}
