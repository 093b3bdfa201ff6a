package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/database"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/middleware"
	"github.com/xelth-com/berrycheck/internal/services/assignments"
	"github.com/xelth-com/berrycheck/internal/services/commodities"
	"github.com/xelth-com/berrycheck/internal/services/inspections"
	"github.com/xelth-com/berrycheck/internal/services/report"
	"github.com/xelth-com/berrycheck/internal/services/templates"
	"github.com/xelth-com/berrycheck/internal/sheetsync"
	"github.com/xelth-com/berrycheck/internal/websocket"
)

// Services bundles the application services the HTTP layer serves
type Services struct {
	Commodities *commodities.Service
	Templates   *templates.Service
	Inspections *inspections.Service
	Assignments *assignments.Service
	Reports     *report.Service
	Sync        *sheetsync.Engine
	SyncConfig  *config.SheetSyncStore
	Hub         *websocket.Hub
}

// Router wraps the mux router and its dependencies
type Router struct {
	*mux.Router
	db      *database.DB
	cfg     *config.Config
	svc     Services
	log     *logger.Logger
	version string
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, svc Services, log *logger.Logger, version string) *Router {
	r := &Router{
		Router:  mux.NewRouter(),
		db:      db,
		cfg:     cfg,
		svc:     svc,
		log:     log.With("component", "http"),
		version: version,
	}

	r.Use(middleware.RequestLogger(r.log))

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")

	authMW := middleware.AuthMiddleware(cfg.JWTSecret)

	// Realtime events (token may be passed as ?token=)
	r.Handle("/ws", authMW(http.HandlerFunc(r.serveWs))).Methods("GET")

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMW)

	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(h)
	}

	api.HandleFunc("/commodities", r.listCommodities).Methods("GET")
	api.Handle("/commodities/{id}", admin(r.patchCommodity)).Methods("PATCH")

	api.Handle("/templates", admin(r.createTemplate)).Methods("POST")
	api.Handle("/templates/{id:[0-9]+}/fields", admin(r.replaceFields)).Methods("PUT")
	api.HandleFunc("/templates/{id:[0-9]+}/validate", r.validateTemplate).Methods("POST")
	api.HandleFunc("/templates/{code}/versions", r.templateVersions).Methods("GET")
	api.HandleFunc("/templates/{code}", r.getTemplate).Methods("GET")

	api.HandleFunc("/inspections", r.listInspections).Methods("GET")
	api.HandleFunc("/inspections", r.createInspection).Methods("POST")
	api.HandleFunc("/inspections/{id:[0-9]+}", r.getInspection).Methods("GET")
	api.HandleFunc("/inspections/{id:[0-9]+}", r.updateInspectionHeader).Methods("PUT")
	api.HandleFunc("/inspections/{id:[0-9]+}/metrics", r.updateInspectionMetrics).Methods("PUT")
	api.HandleFunc("/inspections/{id:[0-9]+}/pdf", r.getInspectionPdf).Methods("GET")
	api.HandleFunc("/inspections/{id:[0-9]+}/pdf", r.generateInspectionPdf).Methods("POST")

	api.HandleFunc("/assignments", r.listAssignments).Methods("GET")
	api.Handle("/assignments", admin(r.createAssignment)).Methods("POST")
	api.HandleFunc("/assignments/{id:[0-9]+}", r.getAssignment).Methods("GET")
	api.Handle("/assignments/{id:[0-9]+}/status", admin(r.updateAssignmentStatus)).Methods("PATCH")
	api.Handle("/assignments/{id:[0-9]+}/cancel", admin(r.cancelAssignment)).Methods("POST")

	syncRoutes := api.PathPrefix("/sync").Subrouter()
	syncRoutes.Use(middleware.RequireAdmin)
	NewSyncHandler(svc.Sync, svc.SyncConfig, r.log).RegisterRoutes(syncRoutes)

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := "ok"
	code := http.StatusOK
	if sqlDB, err := r.db.DB.DB(); err != nil || sqlDB.PingContext(req.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]string{
		"status":  status,
		"version": r.version,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondAppError maps a service error onto its HTTP status. Unclassified
// errors are logged and hidden behind a generic message.
func (r *Router) respondAppError(w http.ResponseWriter, err error) {
	respondAppError(w, r.log, err)
}

func respondAppError(w http.ResponseWriter, log *logger.Logger, err error) {
	status := apperr.StatusCode(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

// decodeJSON reads a request body into v
func decodeJSON(req *http.Request, v interface{}) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body required")
		}
		return apperr.Validation("Invalid request payload")
	}
	return nil
}

// pathID parses a numeric route variable
func pathID(req *http.Request, name string) (uint, error) {
	n, err := strconv.ParseUint(mux.Vars(req)[name], 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return uint(n), nil
}

// caller returns the authenticated identity; routes under /api always have one
func caller(req *http.Request) middleware.Identity {
	id, _ := middleware.IdentityFrom(req.Context())
	return id
}
