package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/sheetsync"
)

// SyncHandler handles spreadsheet reconciliation requests
type SyncHandler struct {
	engine *sheetsync.Engine
	config *config.SheetSyncStore
	log    *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(engine *sheetsync.Engine, cfg *config.SheetSyncStore, log *logger.Logger) *SyncHandler {
	return &SyncHandler{
		engine: engine,
		config: cfg,
		log:    log,
	}
}

// RegisterRoutes registers sync routes on a subrouter mounted at /api/sync
func (sh *SyncHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", sh.Run).Methods("POST")
	r.HandleFunc("/load", sh.Load).Methods("GET")
	r.HandleFunc("/rows", sh.AddRow).Methods("POST")
	r.HandleFunc("/rows/{row:[0-9]+}", sh.UpdateRow).Methods("PUT")
	r.HandleFunc("/rows/{row:[0-9]+}", sh.DeleteRow).Methods("DELETE")
	r.HandleFunc("/test", sh.Test).Methods("GET")
	r.HandleFunc("/config", sh.GetConfig).Methods("GET")
	r.HandleFunc("/config", sh.UpdateConfig).Methods("POST")
}

func (sh *SyncHandler) fail(w http.ResponseWriter, err error) {
	respondAppError(w, sh.log, err)
}

func (sh *SyncHandler) ready(w http.ResponseWriter) bool {
	if sh.engine == nil {
		sh.fail(w, apperr.External("spreadsheet sync not initialized", nil))
		return false
	}
	return true
}

// Run executes a full two-phase reconciliation
func (sh *SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !sh.ready(w) {
		return
	}
	summary, err := sh.engine.Run(r.Context())
	if err != nil {
		sh.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Load returns the current sheet contents
func (sh *SyncHandler) Load(w http.ResponseWriter, r *http.Request) {
	if !sh.ready(w) {
		return
	}
	loaded, err := sh.engine.Load(r.Context())
	if err != nil {
		sh.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loaded)
}

// AddRow appends one row to the sheet
func (sh *SyncHandler) AddRow(w http.ResponseWriter, r *http.Request) {
	if !sh.ready(w) {
		return
	}
	var in sheetsync.RowInput
	if err := decodeJSON(r, &in); err != nil {
		sh.fail(w, err)
		return
	}
	row, err := sh.engine.AddRow(r.Context(), in)
	if err != nil {
		sh.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"row": row})
}

func rowParam(r *http.Request) (int, error) {
	row, err := strconv.Atoi(mux.Vars(r)["row"])
	if err != nil {
		return 0, apperr.Validation("invalid row")
	}
	return row, nil
}

// UpdateRow overwrites one sheet row
func (sh *SyncHandler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	if !sh.ready(w) {
		return
	}
	row, err := rowParam(r)
	if err != nil {
		sh.fail(w, err)
		return
	}
	var in sheetsync.RowInput
	if err := decodeJSON(r, &in); err != nil {
		sh.fail(w, err)
		return
	}
	if err := sh.engine.UpdateRow(r.Context(), row, in); err != nil {
		sh.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"row": row})
}

// DeleteRow removes one sheet row
func (sh *SyncHandler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	if !sh.ready(w) {
		return
	}
	row, err := rowParam(r)
	if err != nil {
		sh.fail(w, err)
		return
	}
	if err := sh.engine.DeleteRow(r.Context(), row); err != nil {
		sh.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deleted": row})
}

// Test probes spreadsheet connectivity
func (sh *SyncHandler) Test(w http.ResponseWriter, r *http.Request) {
	if !sh.ready(w) {
		return
	}
	probe, err := sh.engine.Test(r.Context())
	if err != nil {
		sh.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, probe)
}

type syncConfigResponse struct {
	Configured    bool    `json:"configured"`
	SpreadsheetID string  `json:"spreadsheet_id"`
	SheetName     string  `json:"sheet_name"`
	LastSync      *string `json:"last_sync"`
}

func configResponse(c config.SheetSyncConfig) syncConfigResponse {
	return syncConfigResponse{
		Configured:    c.Configured(),
		SpreadsheetID: c.SpreadsheetID,
		SheetName:     c.SheetName,
	}
}

// GetConfig returns the sync configuration; no sync history is kept
func (sh *SyncHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, configResponse(sh.config.Get()))
}

// UpdateConfig changes the target spreadsheet
func (sh *SyncHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var in config.SheetSyncConfig
	if err := decodeJSON(r, &in); err != nil {
		sh.fail(w, err)
		return
	}
	updated, err := sh.config.Update(in)
	if err != nil {
		sh.fail(w, err)
		return
	}
	sh.log.Info("sheet sync config updated", "sheet", updated.SheetName)
	respondJSON(w, http.StatusOK, configResponse(updated))
}
