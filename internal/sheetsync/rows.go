package sheetsync

import (
	"context"
	"strconv"
	"strings"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/sheetrow"
)

// RowInput is the body of direct single-row sheet mutations
type RowInput struct {
	Producer       string `json:"producer"`
	Lot            string `json:"lot"`
	Variety        string `json:"variety"`
	Commodity      string `json:"commodity"`
	InspectorEmail string `json:"inspector_email"`
	Status         string `json:"status"`
	AssignmentID   string `json:"assignment_id"`
}

func (in RowInput) validate() error {
	if strings.TrimSpace(in.Producer) == "" || strings.TrimSpace(in.Lot) == "" {
		return apperr.Validation("producer and lot are required")
	}
	return nil
}

func (in RowInput) values() []string {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = StatusPending
	}
	return SheetRow{
		Producer:       strings.TrimSpace(in.Producer),
		Lot:            strings.TrimSpace(in.Lot),
		Variety:        strings.TrimSpace(in.Variety),
		Commodity:      strings.TrimSpace(in.Commodity),
		InspectorEmail: strings.ToLower(strings.TrimSpace(in.InspectorEmail)),
		Status:         status,
		AssignmentID:   strings.TrimSpace(in.AssignmentID),
	}.Values()
}

// LoadedSheet is a read-through view of the sheet
type LoadedSheet struct {
	Headers []string                 `json:"headers"`
	Rows    []map[string]interface{} `json:"rows"`
}

// Load reads the sheet and enriches each row with the commodity code of its
// assignment when the row carries a known assignment id.
func (e *Engine) Load(ctx context.Context) (*LoadedSheet, error) {
	spreadsheetID, sheet, err := e.target()
	if err != nil {
		return nil, err
	}

	raw, err := e.sheets.Read(ctx, spreadsheetID, readRange(sheet))
	if err != nil {
		return nil, apperr.External("failed to read sheet", err)
	}
	table := sheetrow.ParseRows(raw)

	ids := make([]uint, 0, len(table.Records))
	rowIDs := make([]uint, len(table.Records))
	for i, rec := range table.Records {
		idText := FromRecord(rec).AssignmentID
		if id, err := strconv.ParseUint(idText, 10, 64); err == nil && id > 0 {
			rowIDs[i] = uint(id)
			ids = append(ids, uint(id))
		}
	}

	codes := map[uint]string{}
	if len(ids) > 0 {
		codes, err = e.repo.CommodityCodes(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	loaded := &LoadedSheet{
		Headers: table.Headers,
		Rows:    make([]map[string]interface{}, 0, len(table.Records)),
	}
	for i, rec := range table.Records {
		out := make(map[string]interface{}, len(rec.Fields)+2)
		for k, v := range rec.Fields {
			out[k] = v
		}
		out["_rowNumber"] = rec.RowNumber
		var code interface{}
		if c, ok := codes[rowIDs[i]]; ok && c != "" {
			code = c
		}
		out["commodity_code"] = code
		loaded.Rows = append(loaded.Rows, out)
	}
	return loaded, nil
}

// AddRow appends one row after the last used row and returns its row number
func (e *Engine) AddRow(ctx context.Context, in RowInput) (int, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	spreadsheetID, sheet, err := e.target()
	if err != nil {
		return 0, err
	}

	raw, err := e.sheets.Read(ctx, spreadsheetID, readRange(sheet))
	if err != nil {
		return 0, apperr.External("failed to read sheet", err)
	}

	values := [][]string{in.values()}
	row := len(raw) + 1
	start := row
	if len(raw) == 0 {
		values = append([][]string{Header}, values...)
		start = sheetrow.HeaderRow
		row = sheetrow.HeaderRow + 1
	}

	rng := sheetrow.Qualify(sheet, sheetrow.Rows(start, len(values), columnCount))
	if err := e.sheets.Write(ctx, spreadsheetID, rng, values); err != nil {
		return 0, apperr.External("failed to append row", err)
	}
	e.log.Info("sheet row added", "row", row)
	return row, nil
}

// UpdateRow overwrites the positional columns of one data row
func (e *Engine) UpdateRow(ctx context.Context, row int, in RowInput) error {
	if err := checkDataRow(row); err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return err
	}
	spreadsheetID, sheet, err := e.target()
	if err != nil {
		return err
	}

	rng := sheetrow.Qualify(sheet, sheetrow.Rows(row, 1, columnCount))
	if err := e.sheets.Write(ctx, spreadsheetID, rng, [][]string{in.values()}); err != nil {
		return apperr.External("failed to update row", err)
	}
	e.log.Info("sheet row updated", "row", row)
	return nil
}

// DeleteRow removes one data row, shifting the rows below it up
func (e *Engine) DeleteRow(ctx context.Context, row int) error {
	if err := checkDataRow(row); err != nil {
		return err
	}
	spreadsheetID, sheet, err := e.target()
	if err != nil {
		return err
	}
	if err := e.sheets.DeleteRow(ctx, spreadsheetID, sheet, row); err != nil {
		return apperr.External("failed to delete row", err)
	}
	e.log.Info("sheet row deleted", "row", row)
	return nil
}

func checkDataRow(row int) error {
	if row <= sheetrow.HeaderRow {
		return apperr.Validation("row must be 2 or greater")
	}
	return nil
}

// Probe is the result of a connectivity test
type Probe struct {
	OK         bool     `json:"ok"`
	Title      string   `json:"title"`
	SheetName  string   `json:"sheet_name"`
	SheetFound bool     `json:"sheet_found"`
	Sheets     []string `json:"sheets"`
}

// Test checks that the spreadsheet is reachable and holds the configured tab
func (e *Engine) Test(ctx context.Context) (*Probe, error) {
	spreadsheetID, sheet, err := e.target()
	if err != nil {
		return nil, err
	}
	meta, err := e.sheets.Metadata(ctx, spreadsheetID)
	if err != nil {
		return nil, apperr.External("spreadsheet unreachable", err)
	}

	probe := &Probe{OK: true, Title: meta.Title, SheetName: sheet, Sheets: make([]string, 0, len(meta.Sheets))}
	for _, s := range meta.Sheets {
		probe.Sheets = append(probe.Sheets, s.Title)
		if s.Title == sheet {
			probe.SheetFound = true
		}
	}
	return probe, nil
}
