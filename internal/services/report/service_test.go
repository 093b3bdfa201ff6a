package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xelth-com/berrycheck/internal/database"
	"github.com/xelth-com/berrycheck/internal/database/dbtest"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/metric"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/services/commodities"
	"github.com/xelth-com/berrycheck/internal/services/inspections"
	"github.com/xelth-com/berrycheck/internal/services/templates"
)

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.objects[key] = data
	return "https://files.example.com/" + key, nil
}

// editingStore changes the inspection while its report is being uploaded
type editingStore struct {
	memStore
	edit func()
}

func (e *editingStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if e.edit != nil {
		e.edit()
		e.edit = nil
	}
	return e.memStore.Put(ctx, key, data, contentType)
}

type events struct{ names []string }

func (e *events) Broadcast(event string, payload interface{}) { e.names = append(e.names, event) }

func setup(t *testing.T) (*database.DB, *inspections.Service, *templates.Service, uint) {
	t.Helper()
	db := dbtest.Open(t)
	if err := db.Create(&models.Commodity{Code: "BLUEBERRY", Name: "Arándano", Active: true}).Error; err != nil {
		t.Fatalf("seed commodity: %v", err)
	}
	tpls := templates.NewService(db, nil, logger.Nop())
	created, err := tpls.Create(context.Background(), templates.CreateInput{CommodityCode: "BLUEBERRY", Name: "Calidad", Fields: []templates.FieldInput{
		{Key: "quality.dust", Label: "Polvo", FieldType: "number", Unit: "%"},
		{Key: "condition.soft", Label: "Blandas", FieldType: "number"},
	}})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	insp := inspections.NewService(db, commodities.NewService(db, nil, logger.Nop()), nil, logger.Nop())
	v, err := insp.Create(context.Background(), 1, inspections.CreateInput{
		Header:        inspections.Header{Producer: "Acme", Lot: "L-1", Notes: "Sin observaciones"},
		CommodityCode: "BLUEBERRY",
		Metrics:       json.RawMessage(`{"template_id": ` + jsonUint(created.TemplateID) + `, "values": {"quality.dust": 1.5, "condition.soft": 2, "extra": "x"}}`),
	})
	if err != nil {
		t.Fatalf("create inspection: %v", err)
	}
	return db, insp, tpls, v.ID
}

func jsonUint(n uint) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestGenerateStoresReport(t *testing.T) {
	db, insp, tpls, id := setup(t)
	store := &memStore{objects: map[string][]byte{}}
	ev := &events{}

	svc := NewService(db, insp, tpls, store, "https://app.example.com/", logger.Nop())
	svc.SetNotifier(ev)

	pdf, err := svc.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if pdf.Status != models.PdfStatusGenerated || pdf.PdfHash == nil || len(*pdf.PdfHash) != 64 {
		t.Fatalf("pdf = %+v", pdf)
	}
	if len(store.objects) != 1 {
		t.Fatalf("stored %d objects", len(store.objects))
	}
	for key, data := range store.objects {
		if !bytes.HasPrefix(data, []byte("%PDF")) {
			t.Errorf("object %s is not a PDF", key)
		}
		if !strings.HasPrefix(*pdf.PdfURL, "https://files.example.com/inspections/") {
			t.Errorf("url = %s", *pdf.PdfURL)
		}
	}

	row, err := insp.PdfStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("PdfStatus() error = %v", err)
	}
	if row.Status != models.PdfStatusGenerated || row.PdfURL == nil {
		t.Errorf("status row = %+v", row)
	}
	if len(ev.names) != 1 || ev.names[0] != EventPdfGenerated {
		t.Errorf("events = %v", ev.names)
	}
}

func TestGenerateWithoutStorageRecordsError(t *testing.T) {
	db, insp, tpls, id := setup(t)
	ev := &events{}
	svc := NewService(db, insp, tpls, nil, "", logger.Nop())
	svc.SetNotifier(ev)

	if _, err := svc.Generate(context.Background(), id); err == nil {
		t.Fatal("expected error without storage")
	}
	row, err := insp.PdfStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("PdfStatus() error = %v", err)
	}
	if row.Status != models.PdfStatusError || row.ErrorMessage == nil || *row.ErrorMessage != "report storage not configured" {
		t.Errorf("status row = %+v", row)
	}
	if len(ev.names) != 1 || ev.names[0] != EventPdfFailed {
		t.Errorf("events = %v", ev.names)
	}
}

func TestGenerateDropsReportOfEditedInspection(t *testing.T) {
	db, insp, tpls, id := setup(t)
	store := &editingStore{memStore: memStore{objects: map[string][]byte{}}}
	store.edit = func() {
		if _, err := insp.UpdateMetrics(context.Background(), id, json.RawMessage(`{"values": {"quality.dust": 99}}`)); err != nil {
			t.Errorf("UpdateMetrics() error = %v", err)
		}
	}
	ev := &events{}
	svc := NewService(db, insp, tpls, store, "", logger.Nop())
	svc.SetNotifier(ev)

	pdf, err := svc.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if pdf.Status != models.PdfStatusPending || pdf.PdfHash != nil {
		t.Errorf("returned row = %+v", pdf)
	}

	row, err := insp.PdfStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("PdfStatus() error = %v", err)
	}
	if row.Status != models.PdfStatusPending || row.PdfURL != nil || row.PdfHash != nil {
		t.Errorf("stale report recorded: %+v", row)
	}
	if len(ev.names) != 0 {
		t.Errorf("events = %v", ev.names)
	}

	// The next render sees the edit and lands
	pdf, err = svc.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if pdf.Status != models.PdfStatusGenerated {
		t.Errorf("second render status = %s", pdf.Status)
	}
}

func TestGenerateFailureDoesNotOverwriteNewerEdit(t *testing.T) {
	db, insp, tpls, id := setup(t)
	svc := NewService(db, insp, tpls, nil, "", logger.Nop())

	rev, err := svc.revision(context.Background(), id)
	if err != nil || rev == nil {
		t.Fatalf("revision() = %v, %v", rev, err)
	}
	if _, err := insp.UpdateHeader(context.Background(), id, inspections.Header{Producer: "Acme", Lot: "L-2"}); err != nil {
		t.Fatalf("UpdateHeader() error = %v", err)
	}
	if err := svc.recordFailure(context.Background(), id, rev, errors.New("boom")); !errors.Is(err, errSuperseded) {
		t.Fatalf("recordFailure() error = %v, want superseded", err)
	}
	row, err := insp.PdfStatus(context.Background(), id)
	if err != nil {
		t.Fatalf("PdfStatus() error = %v", err)
	}
	if row.Status != models.PdfStatusPending || row.ErrorMessage != nil {
		t.Errorf("status row = %+v", row)
	}
}

func TestDocumentUsesTemplateLabels(t *testing.T) {
	db, insp, tpls, id := setup(t)
	svc := NewService(db, insp, tpls, nil, "https://app.example.com", logger.Nop())
	svc.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC) }

	stored, err := insp.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	doc, err := svc.document(context.Background(), stored)
	if err != nil {
		t.Fatalf("document() error = %v", err)
	}

	if doc.TemplateName != "Calidad" || doc.CommodityName != "Arándano" {
		t.Errorf("doc header = %q / %q", doc.TemplateName, doc.CommodityName)
	}
	if doc.LinkURL != "https://app.example.com/inspections/"+jsonUint(id) {
		t.Errorf("link = %s", doc.LinkURL)
	}
	if doc.label("quality.dust") != "Polvo" || doc.label("extra") != "Extra" {
		t.Errorf("labels = %q, %q", doc.label("quality.dust"), doc.label("extra"))
	}

	names := make([]string, 0, len(doc.Groups))
	for _, g := range doc.Groups {
		names = append(names, g.Name)
	}
	if strings.Join(names, ",") != "quality,condition,"+metric.OtherGroup {
		t.Errorf("groups = %v", names)
	}

	data, err := Render(doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("render output is not a PDF")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{1.5, "1.5"},
		{2.0, "2"},
		{true, "Sí"},
		{"ok", "ok"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
