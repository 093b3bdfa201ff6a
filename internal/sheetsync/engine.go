// Package sheetsync reconciles the assignments spreadsheet with the assignment store.
//
// A run has two sequential phases. Phase 1 appends pending assignments missing
// from the sheet; phase 2 imports sheet rows missing from the store and writes
// assignment ids back. Rows and assignments are matched only by their natural
// key (lot, producer), so a run can be repeated any number of times.
package sheetsync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/sheetrow"
)

// EventSyncCompleted is broadcast with the Summary after each run
const EventSyncCompleted = "SYNC_COMPLETED"

// Summary reports the counts of one reconciliation run
type Summary struct {
	StoreToSheet   int    `json:"bd_to_sheet"`
	SheetToStore   int    `json:"sheet_to_bd"`
	Created        int    `json:"nuevas"`
	Skipped        int    `json:"skipped"`
	Errors         int    `json:"errores"`
	Total          int    `json:"total"`
	WriteBackError string `json:"write_back_error,omitempty"`
	AppendError    string `json:"append_error,omitempty"`
	DurationMs     int64  `json:"duration_ms"`
}

// Engine runs reconciliation passes. At most one run is expected in flight.
type Engine struct {
	sheets   Spreadsheet
	repo     AssignmentRepository
	cfg      ConfigSource
	log      *logger.Logger
	notifier Notifier
	now      func() time.Time
}

// NewEngine creates a reconciliation engine
func NewEngine(sheets Spreadsheet, repo AssignmentRepository, cfg ConfigSource, log *logger.Logger) *Engine {
	return &Engine{
		sheets: sheets,
		repo:   repo,
		cfg:    cfg,
		log:    log.With("component", "sheetsync"),
		now:    time.Now,
	}
}

// SetNotifier registers a receiver for run events
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// target returns the configured spreadsheet or an ExternalServiceError
func (e *Engine) target() (string, string, error) {
	if e.sheets == nil {
		return "", "", apperr.External("spreadsheet client not initialized", nil)
	}
	cfg := e.cfg.Get()
	if !cfg.Configured() {
		return "", "", apperr.External("spreadsheet not configured", nil)
	}
	return cfg.SpreadsheetID, cfg.SheetName, nil
}

// Run executes phase 1 (store -> sheet) then phase 2 (sheet -> store)
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	started := e.now()
	spreadsheetID, sheet, err := e.target()
	if err != nil {
		return nil, err
	}

	e.log.Info("reconciliation started", "sheet", sheet)

	summary := &Summary{}

	added, err := e.pushPending(ctx, spreadsheetID, sheet)
	if err != nil {
		if !isAppendError(err) {
			return nil, err
		}
		summary.AppendError = err.Error()
		e.log.Error("phase 1 append failed", "error", err)
	}
	summary.StoreToSheet = added

	pull, err := e.pullRows(ctx, spreadsheetID, sheet)
	if err != nil {
		return nil, err
	}
	tally := pull.Tally()
	summary.Created = tally.Imported
	summary.SheetToStore = tally.Imported
	summary.Skipped = tally.Skipped
	summary.Errors = tally.Errored
	summary.Total = len(pull.Outcomes)
	if pull.WriteBackErr != nil {
		summary.WriteBackError = pull.WriteBackErr.Error()
	}
	summary.DurationMs = e.now().Sub(started).Milliseconds()

	e.log.Info("reconciliation finished",
		"bd_to_sheet", summary.StoreToSheet,
		"nuevas", summary.Created,
		"skipped", summary.Skipped,
		"errores", summary.Errors,
		"total", summary.Total,
		"duration_ms", summary.DurationMs,
	)

	if e.notifier != nil {
		e.notifier.Broadcast(EventSyncCompleted, summary)
	}
	return summary, nil
}

// appendError marks a phase 1 write failure, which does not abort the run
type appendError struct{ err error }

func (a *appendError) Error() string { return "failed to append rows: " + a.err.Error() }
func (a *appendError) Unwrap() error { return a.err }

func isAppendError(err error) bool {
	_, ok := err.(*appendError)
	return ok
}

// PushPending runs phase 1 on its own
func (e *Engine) PushPending(ctx context.Context) (int, error) {
	spreadsheetID, sheet, err := e.target()
	if err != nil {
		return 0, err
	}
	return e.pushPending(ctx, spreadsheetID, sheet)
}

// pushPending appends every pending assignment whose natural key is absent from
// the sheet, as one contiguous range write after the last existing row.
func (e *Engine) pushPending(ctx context.Context, spreadsheetID, sheet string) (int, error) {
	pending, err := e.repo.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending assignments: %w", err)
	}

	raw, err := e.sheets.Read(ctx, spreadsheetID, readRange(sheet))
	if err != nil {
		return 0, apperr.External("failed to read sheet", err)
	}
	table := sheetrow.ParseRows(raw)

	present := make(map[models.NaturalKey]bool, len(table.Records))
	for _, rec := range table.Records {
		row := FromRecord(rec)
		present[models.NaturalKeyOf(row.Lot, row.Producer)] = true
	}

	staged := stagePending(pending, present)
	if len(staged) == 0 {
		e.log.Debug("phase 1: sheet already holds every pending assignment", "pending", len(pending))
		return 0, nil
	}

	startRow := len(raw) + 1
	values := staged
	if len(raw) == 0 {
		values = append([][]string{Header}, staged...)
		startRow = sheetrow.HeaderRow
	}

	rng := sheetrow.Qualify(sheet, sheetrow.Rows(startRow, len(values), columnCount))
	if err := e.sheets.Write(ctx, spreadsheetID, rng, values); err != nil {
		return 0, &appendError{err: err}
	}

	e.log.Info("phase 1: appended pending assignments", "rows", len(staged), "range", rng)
	return len(staged), nil
}

// stagePending builds sheet rows for assignments not yet present, keeping source order
func stagePending(pending []models.Assignment, present map[models.NaturalKey]bool) [][]string {
	staged := make([][]string, 0)
	for _, a := range pending {
		key := models.NaturalKeyOf(a.Lot, a.Producer)
		if key.Empty() || present[key] {
			continue
		}
		present[key] = true

		email := ""
		if a.User != nil {
			email = a.User.Email
		}
		staged = append(staged, []string{
			a.Producer,
			a.Lot,
			a.Variety,
			"",
			email,
			StatusPending,
			strconv.FormatUint(uint64(a.ID), 10),
		})
	}
	return staged
}
