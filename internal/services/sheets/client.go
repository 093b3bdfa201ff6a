// Package sheets implements the spreadsheet capability on the Google Sheets v4 API.
package sheets

import (
	"context"
	"fmt"

	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/sheetrow"
	"github.com/xelth-com/berrycheck/internal/sheetsync"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// valueInput stores values as typed, without formula evaluation
const valueInput = "RAW"

// Client talks to Google Sheets with a service account
type Client struct {
	svc *gsheets.Service
	log *logger.Logger
}

var _ sheetsync.Spreadsheet = (*Client)(nil)

// NewClient creates a client from a service-account credentials file.
// An empty path falls back to Application Default Credentials.
func NewClient(ctx context.Context, credentialsFile string, log *logger.Logger) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc, log: log.With("component", "sheets")}, nil
}

// Read returns the rendered values of a range as strings
func (c *Client) Read(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	c.log.Debug("sheet read", "range", rng, "rows", len(out))
	return out, nil
}

// Write overwrites a range
func (c *Client) Write(ctx context.Context, spreadsheetID, rng string, values [][]string) error {
	_, err := c.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheets.ValueRange{
		Range:  rng,
		Values: toInterfaces(values),
	}).ValueInputOption(valueInput).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	c.log.Debug("sheet written", "range", rng, "rows", len(values))
	return nil
}

// BatchUpdate writes many ranges in one request
func (c *Client) BatchUpdate(ctx context.Context, spreadsheetID string, updates []sheetrow.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]*gsheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &gsheets.ValueRange{Range: u.Range, Values: toInterfaces(u.Values)})
	}
	_, err := c.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInput,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("batch update of %d ranges: %w", len(updates), err)
	}
	c.log.Debug("sheet batch updated", "ranges", len(updates))
	return nil
}

// Metadata returns the document title and its worksheets
func (c *Client) Metadata(ctx context.Context, spreadsheetID string) (*sheetsync.Metadata, error) {
	doc, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("properties.title", "sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}

	meta := &sheetsync.Metadata{Sheets: make([]sheetsync.SheetInfo, 0, len(doc.Sheets))}
	if doc.Properties != nil {
		meta.Title = doc.Properties.Title
	}
	for _, s := range doc.Sheets {
		if s.Properties == nil {
			continue
		}
		info := sheetsync.SheetInfo{SheetID: s.Properties.SheetId, Title: s.Properties.Title}
		if g := s.Properties.GridProperties; g != nil {
			info.RowCount = g.RowCount
			info.ColumnCount = g.ColumnCount
		}
		meta.Sheets = append(meta.Sheets, info)
	}
	return meta, nil
}

// DeleteRow removes a 1-based row from the named worksheet
func (c *Client) DeleteRow(ctx context.Context, spreadsheetID, sheetName string, row int) error {
	meta, err := c.Metadata(ctx, spreadsheetID)
	if err != nil {
		return err
	}
	var sheetID int64 = -1
	for _, s := range meta.Sheets {
		if s.Title == sheetName {
			sheetID = s.SheetID
			break
		}
	}
	if sheetID < 0 {
		return fmt.Errorf("worksheet %q not found", sheetName)
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

func toInterfaces(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
