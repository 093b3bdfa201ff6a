package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/services/templates"
)

// createTemplateRequest keeps fields raw so a non-list value is reported as such
type createTemplateRequest struct {
	CommodityCode string          `json:"commodityCode"`
	Name          string          `json:"name"`
	Fields        json.RawMessage `json:"fields"`
}

func parseFields(raw json.RawMessage) ([]templates.FieldInput, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, apperr.Validation("fields must be a list")
	}
	var fields []templates.FieldInput
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperr.Validation("fields must be a list")
	}
	if fields == nil {
		fields = []templates.FieldInput{}
	}
	return fields, nil
}

// getTemplate returns the current template of a commodity code
func (r *Router) getTemplate(w http.ResponseWriter, req *http.Request) {
	d, err := r.svc.Templates.GetActive(req.Context(), mux.Vars(req)["code"])
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// templateVersions lists every template version of a commodity
func (r *Router) templateVersions(w http.ResponseWriter, req *http.Request) {
	versions, err := r.svc.Templates.Versions(req.Context(), mux.Vars(req)["code"])
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}

// createTemplate stores a new template version
func (r *Router) createTemplate(w http.ResponseWriter, req *http.Request) {
	var body createTemplateRequest
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}
	fields, err := parseFields(body.Fields)
	if err != nil {
		r.respondAppError(w, err)
		return
	}

	created, err := r.svc.Templates.Create(req.Context(), templates.CreateInput{
		CommodityCode: body.CommodityCode,
		Name:          body.Name,
		Fields:        fields,
	})
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// replaceFields swaps the full field set of a template
func (r *Router) replaceFields(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	var body struct {
		Fields json.RawMessage `json:"fields"`
	}
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}
	fields, err := parseFields(body.Fields)
	if err != nil {
		r.respondAppError(w, err)
		return
	}

	n, err := r.svc.Templates.ReplaceFields(req.Context(), id, fields)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"templateId": id, "fields": n})
}

// validateTemplate checks captured values against a template
func (r *Router) validateTemplate(w http.ResponseWriter, req *http.Request) {
	id, err := pathID(req, "id")
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	var body struct {
		Values map[string]interface{} `json:"values"`
	}
	if err := decodeJSON(req, &body); err != nil {
		r.respondAppError(w, err)
		return
	}

	problems, err := r.svc.Templates.Validate(req.Context(), id, body.Values)
	if err != nil {
		r.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  len(problems) == 0,
		"errors": problems,
	})
}
