package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/services/inspections"
)

// loadOwnInspection fetches an inspection the caller may see. Inspectors only
// reach their own; others look like missing rows.
func (r *Router) loadOwnInspection(w http.ResponseWriter, req *http.Request) (*inspections.View, bool) {
	id, err := pathID(req, "id")
	if err != nil {
		r.respondAppError(w, err)
		return nil, false
	}
	v, err := r.svc.Inspections.Get(req.Context(), id)
	if err != nil {
		r.respondAppError(w, err)
		return nil, false
	}
	who := caller(req)
	if !who.IsAdmin() && v.CreatedByUserID != who.ID {
		r.respondAppError(w, apperr.NotFound("inspection not found"))
		return nil, false
	}
	return v, true
}

// listInspections lists inspections with optional commodity/producer/lot filters
func (r *Router) listInspections(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	f := inspections.Filter{
		CommodityCode: q.Get("commodity"),
		Producer:      q.Get("producer"),
		Lot:           q.Get("lot"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		f.Limit = limit
	}
	if who := caller(req); !who.IsAdmin() {
		f.CreatedBy = &who.ID
	}

	rows, err := r.svc.Inspections.List(req.Context(), f)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// createInspection stores an inspection for the caller
func (r *Router) createInspection(w http.ResponseWriter, req *http.Request) {
	var body inspections.CreateInput
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}
	v, err := r.svc.Inspections.Create(req.Context(), caller(req).ID, body)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

// getInspection returns one inspection with normalized metrics
func (r *Router) getInspection(w http.ResponseWriter, req *http.Request) {
	v, ok := r.loadOwnInspection(w, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, v)
}

// updateInspectionHeader rewrites the header fields
func (r *Router) updateInspectionHeader(w http.ResponseWriter, req *http.Request) {
	v, ok := r.loadOwnInspection(w, req)
	if !ok {
		return
	}
	var body inspections.Header
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}
	updated, err := r.svc.Inspections.UpdateHeader(req.Context(), v.ID, body)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// updateInspectionMetrics replaces the metrics payload. The body is either
// {"metrics": {...}} or the payload itself.
func (r *Router) updateInspectionMetrics(w http.ResponseWriter, req *http.Request) {
	v, ok := r.loadOwnInspection(w, req)
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}
	raw, wrapped := body["metrics"]
	if !wrapped {
		raw, _ = json.Marshal(body)
	}

	updated, err := r.svc.Inspections.UpdateMetrics(req.Context(), v.ID, raw)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// getInspectionPdf returns the report status row
func (r *Router) getInspectionPdf(w http.ResponseWriter, req *http.Request) {
	v, ok := r.loadOwnInspection(w, req)
	if !ok {
		return
	}
	pdf, err := r.svc.Inspections.PdfStatus(req.Context(), v.ID)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pdf)
}

// generateInspectionPdf renders the report synchronously
func (r *Router) generateInspectionPdf(w http.ResponseWriter, req *http.Request) {
	v, ok := r.loadOwnInspection(w, req)
	if !ok {
		return
	}
	pdf, err := r.svc.Reports.Generate(req.Context(), v.ID)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pdf)
}
