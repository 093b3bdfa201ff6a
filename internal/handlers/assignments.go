package handlers

import (
	"net/http"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/services/assignments"
)

// listAssignments returns all assignments to admins and own ones to inspectors
func (r *Router) listAssignments(w http.ResponseWriter, req *http.Request) {
	f := assignments.Filter{Status: models.AssignmentStatus(req.URL.Query().Get("status"))}
	if who := caller(req); !who.IsAdmin() {
		f.UserID = &who.ID
	}
	rows, err := r.svc.Assignments.List(req.Context(), f)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// getAssignment returns one assignment
func (r *Router) getAssignment(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	a, err := r.svc.Assignments.Get(req.Context(), id)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	who := caller(req)
	if !who.IsAdmin() && (a.UserID == nil || *a.UserID != who.ID) {
		r.respondAppError(w, apperr.NotFound("assignment not found"))
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// createAssignment stores a manual assignment
func (r *Router) createAssignment(w http.ResponseWriter, req *http.Request) {
	var body assignments.CreateInput
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}
	a, err := r.svc.Assignments.Create(req.Context(), body)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// updateAssignmentStatus moves an assignment to another state
func (r *Router) updateAssignmentStatus(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	var body struct {
		Status models.AssignmentStatus `json:"status"`
	}
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}
	a, err := r.svc.Assignments.UpdateStatus(req.Context(), id, body.Status)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// cancelAssignment cancels an assignment and records who did it
func (r *Router) cancelAssignment(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	a, err := r.svc.Assignments.Cancel(req.Context(), id, caller(req).Email)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}
