package sheetsync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/sheetrow"
)

// ImportNote prefixes notes_admin of assignments created from the sheet
const ImportNote = "Importado desde Google Sheets"

// Outcome is the classification of one sheet row in phase 2
type Outcome int

const (
	// OutcomeMalformed rows lack producer or lot and are ignored
	OutcomeMalformed Outcome = iota
	// OutcomeAlreadyImported rows already carry an assignment id
	OutcomeAlreadyImported
	// OutcomeDuplicate rows match an existing assignment by natural key
	OutcomeDuplicate
	// OutcomeImported rows produced a new assignment
	OutcomeImported
	// OutcomeErrored rows failed and were annotated in the sheet
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMalformed:
		return "malformed"
	case OutcomeAlreadyImported:
		return "already_imported"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeImported:
		return "imported"
	case OutcomeErrored:
		return "errored"
	}
	return "unknown"
}

// RowResult records what happened to one sheet row
type RowResult struct {
	Row          int
	Outcome      Outcome
	AssignmentID uint
	Err          error
}

// PullResult is the outcome of phase 2
type PullResult struct {
	Outcomes     []RowResult
	Updates      []sheetrow.CellUpdate
	WriteBackErr error
}

// Tally holds aggregated phase 2 counters
type Tally struct {
	Imported  int
	Skipped   int
	Errored   int
	Malformed int
}

// Tally folds row outcomes into counters
func (p *PullResult) Tally() Tally {
	var t Tally
	for _, r := range p.Outcomes {
		switch r.Outcome {
		case OutcomeImported:
			t.Imported++
		case OutcomeAlreadyImported, OutcomeDuplicate:
			t.Skipped++
		case OutcomeErrored:
			t.Errored++
		default:
			t.Malformed++
		}
	}
	return t
}

// PullRows runs phase 2 on its own
func (e *Engine) PullRows(ctx context.Context) (*PullResult, error) {
	spreadsheetID, sheet, err := e.target()
	if err != nil {
		return nil, err
	}
	return e.pullRows(ctx, spreadsheetID, sheet)
}

// pullRows imports sheet rows unknown to the store, then applies every staged
// cell update in a single batch call.
func (e *Engine) pullRows(ctx context.Context, spreadsheetID, sheet string) (*PullResult, error) {
	raw, err := e.sheets.Read(ctx, spreadsheetID, readRange(sheet))
	if err != nil {
		return nil, apperr.External("failed to read sheet", err)
	}
	table := sheetrow.ParseRows(raw)

	index, err := e.repo.NaturalKeyIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to index assignments: %w", err)
	}

	wb := newWriteBack(sheet, table)
	result := &PullResult{
		Outcomes: make([]RowResult, 0, len(table.Records)),
		Updates:  make([]sheetrow.CellUpdate, 0),
	}

	for _, rec := range table.Records {
		row := FromRecord(rec)
		res, updates := e.reconcileRow(ctx, row, index, wb)
		result.Outcomes = append(result.Outcomes, res)
		result.Updates = append(result.Updates, updates...)
	}

	if len(result.Updates) > 0 {
		if err := e.sheets.BatchUpdate(ctx, spreadsheetID, result.Updates); err != nil {
			result.WriteBackErr = err
			e.log.Error("phase 2 write-back failed", "updates", len(result.Updates), "error", err)
		}
	}
	return result, nil
}

// reconcileRow classifies one row and stages its write-back cells. A panic or
// error while importing is confined to the row.
func (e *Engine) reconcileRow(ctx context.Context, row SheetRow, index map[models.NaturalKey]uint, wb writeBack) (res RowResult, updates []sheetrow.CellUpdate) {
	res.Row = row.RowNumber

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			res = RowResult{Row: row.RowNumber, Outcome: OutcomeErrored, Err: err}
			updates = []sheetrow.CellUpdate{wb.status(row.RowNumber, errorCell(err))}
			e.log.Error("row import panicked", "row", row.RowNumber, "error", err)
		}
	}()

	key := models.NaturalKeyOf(row.Lot, row.Producer)
	if key.Empty() {
		res.Outcome = OutcomeMalformed
		return res, nil
	}

	if row.AssignmentID != "" {
		res.Outcome = OutcomeAlreadyImported
		if id, err := strconv.ParseUint(row.AssignmentID, 10, 64); err == nil {
			res.AssignmentID = uint(id)
			if _, ok := index[key]; !ok {
				index[key] = uint(id)
			}
		}
		return res, nil
	}

	if id, ok := index[key]; ok {
		res.Outcome = OutcomeDuplicate
		res.AssignmentID = id
		return res, []sheetrow.CellUpdate{wb.id(row.RowNumber, id)}
	}

	assignment, err := e.importRow(ctx, row)
	if err != nil {
		res.Outcome = OutcomeErrored
		res.Err = err
		e.log.Warn("row import failed", "row", row.RowNumber, "lot", row.Lot, "producer", row.Producer, "error", err)
		return res, []sheetrow.CellUpdate{wb.status(row.RowNumber, errorCell(err))}
	}

	index[key] = assignment.ID
	res.Outcome = OutcomeImported
	res.AssignmentID = assignment.ID
	return res, []sheetrow.CellUpdate{
		wb.status(row.RowNumber, StatusPending),
		wb.id(row.RowNumber, assignment.ID),
	}
}

// importRow creates the assignment for a new sheet row
func (e *Engine) importRow(ctx context.Context, row SheetRow) (*models.Assignment, error) {
	assignment := &models.Assignment{
		Producer:   strings.TrimSpace(row.Producer),
		Lot:        strings.TrimSpace(row.Lot),
		Variety:    strings.TrimSpace(row.Variety),
		Status:     models.AssignmentPending,
		NotesAdmin: importNotes(row.Commodity),
	}

	if row.InspectorEmail != "" {
		user, err := e.repo.FindInspectorByEmail(ctx, row.InspectorEmail)
		if err != nil {
			return nil, fmt.Errorf("inspector lookup: %w", err)
		}
		if user == nil {
			e.log.Warn("inspector not found, importing unassigned", "row", row.RowNumber, "email", row.InspectorEmail)
		} else {
			assignment.UserID = &user.ID
		}
	}

	if label := strings.TrimSpace(row.Commodity); label != "" {
		code, ok, err := e.repo.MatchCommodity(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("commodity lookup: %w", err)
		}
		if ok {
			assignment.CommodityCode = &code
		}
	}

	if err := e.repo.CreateImported(ctx, assignment); err != nil {
		return nil, err
	}
	if assignment.ID == 0 {
		return nil, errors.New("store returned no assignment id")
	}
	return assignment, nil
}

func importNotes(commodity string) string {
	commodity = strings.TrimSpace(commodity)
	if commodity == "" {
		return ImportNote
	}
	return ImportNote + " | Especie: " + commodity
}

func errorCell(err error) string {
	return "Error: " + err.Error()
}
