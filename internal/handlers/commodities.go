package handlers

import (
	"net/http"
)

// listCommodities returns selectable commodities; admins may pass ?all=true
func (r *Router) listCommodities(w http.ResponseWriter, req *http.Request) {
	all := req.URL.Query().Get("all") == "true" && caller(req).IsAdmin()
	rows, err := r.svc.Commodities.List(req.Context(), all)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type patchCommodityRequest struct {
	Active *bool `json:"active"`
}

// patchCommodity toggles a commodity's active flag
func (r *Router) patchCommodity(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	var body patchCommodityRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}
	if body.Active == nil {
		respondError(w, http.StatusBadRequest, "active is required")
		return
	}

	c, err := r.svc.Commodities.SetActive(req.Context(), id, *body.Active)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}
