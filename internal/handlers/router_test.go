package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/database/dbtest"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/services/assignments"
	"github.com/xelth-com/berrycheck/internal/services/commodities"
	"github.com/xelth-com/berrycheck/internal/services/inspections"
	"github.com/xelth-com/berrycheck/internal/services/templates"
	"github.com/xelth-com/berrycheck/internal/sheetsync"
	"github.com/xelth-com/berrycheck/internal/utils"
)

const testSecret = "test-secret"

type testServer struct {
	t      *testing.T
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	log := logger.Nop()
	ctx := context.Background()

	commoditySvc := commodities.NewService(db, []string{"MIX"}, log)
	if _, err := commoditySvc.Seed(ctx); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	assignmentSvc := assignments.NewService(db, commoditySvc, log)
	syncStore := config.LoadSheetSyncConfig(config.SheetsConfig{})

	for _, u := range []struct{ name, email, role string }{
		{"admin", "admin@example.com", models.RoleAdmin},
		{"ana", "ana@example.com", models.RoleInspector},
		{"beto", "beto@example.com", models.RoleInspector},
	} {
		hash, err := utils.HashPassword("secret123")
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		user := models.UserAuth{Username: u.name, Email: u.email, Password: hash, Role: u.role, IsActive: true}
		if err := db.Create(&user).Error; err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
	}

	svc := Services{
		Commodities: commoditySvc,
		Templates:   templates.NewService(db, []string{"MIX"}, log),
		Inspections: inspections.NewService(db, commoditySvc, assignmentSvc, log),
		Assignments: assignmentSvc,
		Sync:        sheetsync.NewEngine(nil, assignmentSvc, syncStore, log),
		SyncConfig:  syncStore,
	}
	cfg := &config.Config{JWTSecret: testSecret}
	router := NewRouter(db, cfg, svc, log, "test")

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{t: t, server: srv}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	if err != nil {
		s.t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	status, body := s.do("POST", "/auth/login", "", map[string]string{"email": email, "password": "secret123"})
	if status != http.StatusOK {
		s.t.Fatalf("login %s: expected 200, got %d (%v)", email, status, body)
	}
	tokens, _ := body["tokens"].(map[string]interface{})
	token, _ := tokens["accessToken"].(string)
	if token == "" {
		s.t.Fatalf("login %s: missing access token in %v", email, body)
	}
	return token
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do("POST", "/auth/login", "", map[string]string{"email": "ana@example.com", "password": "nope"})
	if status != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", status)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do("GET", "/api/commodities", "", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", status)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@example.com")
	inspector := s.login("ana@example.com")

	payload := map[string]interface{}{
		"commodityCode": "BLUEBERRY",
		"name":          "Arándano exportación",
		"fields": []map[string]interface{}{
			{"key": "defectos.blandos", "label": "Blandos", "field_type": "number", "unit": "%"},
			{"key": "calidad.color", "label": "Color", "field_type": "select", "options": []string{"Azul", "Rojo"}},
			{"key": "sin_tipo", "label": "Ignorado", "field_type": "matrix"},
		},
	}

	if status, _ := s.do("POST", "/api/templates", inspector, payload); status != http.StatusForbidden {
		t.Fatalf("Expected 403 for inspector, got %d", status)
	}

	status, created := s.do("POST", "/api/templates", admin, payload)
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%v)", status, created)
	}
	if created["version"] != float64(1) {
		t.Errorf("Expected version 1, got %v", created["version"])
	}

	status, detail := s.do("GET", "/api/templates/blueberry", inspector, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%v)", status, detail)
	}
	fields, _ := detail["fields"].([]interface{})
	if len(fields) != 2 {
		t.Errorf("Expected 2 stored fields, got %d", len(fields))
	}

	payload["fields"] = "not a list"
	if status, _ := s.do("POST", "/api/templates", admin, payload); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-list fields, got %d", status)
	}

	if status, _ := s.do("GET", "/api/templates/RASPBERRY", inspector, nil); status != http.StatusNotFound {
		t.Errorf("Expected 404 for commodity without template, got %d", status)
	}
}

func TestInspectionVisibility(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@example.com")
	ana := s.login("ana@example.com")
	beto := s.login("beto@example.com")

	status, created := s.do("POST", "/api/inspections", ana, map[string]interface{}{
		"commodityCode": "BLUEBERRY",
		"producer":      "Agrícola Sur",
		"lot":           "L-100",
		"metrics":       map[string]interface{}{"values": map[string]interface{}{"defectos.blandos": 2.5}},
	})
	if status != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%v)", status, created)
	}
	id := int(created["id"].(float64))
	path := "/api/inspections/" + strconv.Itoa(id)

	status, view := s.do("GET", path, ana, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected owner to read inspection, got %d", status)
	}
	pdf, _ := view["pdf"].(map[string]interface{})
	if pdf["status"] != string(models.PdfStatusPending) {
		t.Errorf("Expected PENDING pdf, got %v", pdf["status"])
	}

	if status, _ := s.do("GET", path, beto, nil); status != http.StatusNotFound {
		t.Errorf("Expected 404 for other inspector, got %d", status)
	}
	if status, _ := s.do("GET", path, admin, nil); status != http.StatusOK {
		t.Errorf("Expected admin to read inspection, got %d", status)
	}

	if status, _ := s.do("POST", "/api/inspections", ana, map[string]interface{}{"commodityCode": "BLUEBERRY", "producer": "X"}); status != http.StatusBadRequest {
		t.Errorf("Expected 400 without lot, got %d", status)
	}
}

func TestSyncConfigAndRun(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@example.com")
	inspector := s.login("ana@example.com")

	if status, _ := s.do("GET", "/api/sync/config", inspector, nil); status != http.StatusForbidden {
		t.Fatalf("Expected 403 for inspector, got %d", status)
	}

	status, cfg := s.do("GET", "/api/sync/config", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	if cfg["configured"] != false || cfg["sheet_name"] != config.DefaultSheetName {
		t.Errorf("Unexpected initial config: %v", cfg)
	}
	if v, ok := cfg["last_sync"]; !ok || v != nil {
		t.Errorf("Expected last_sync null, got %v", v)
	}

	status, cfg = s.do("POST", "/api/sync/config", admin, map[string]string{"spreadsheet_id": "abc123"})
	if status != http.StatusOK || cfg["configured"] != true || cfg["spreadsheet_id"] != "abc123" {
		t.Errorf("Unexpected config after update: %d %v", status, cfg)
	}

	// No spreadsheet client is available in tests
	if status, _ := s.do("POST", "/api/sync", admin, nil); status != http.StatusBadGateway {
		t.Errorf("Expected 502 without sheets client, got %d", status)
	}
}
