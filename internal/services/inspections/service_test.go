package inspections

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/database"
	"github.com/xelth-com/berrycheck/internal/database/dbtest"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/services/assignments"
	"github.com/xelth-com/berrycheck/internal/services/commodities"
)

type recordingQueue struct{ ids []uint }

func (q *recordingQueue) EnqueueRender(ctx context.Context, id uint) error {
	q.ids = append(q.ids, id)
	return nil
}

func setup(t *testing.T) (*Service, *database.DB, *recordingQueue) {
	t.Helper()
	db := dbtest.Open(t)
	if err := db.Create(&models.Commodity{Code: "BLUEBERRY", Name: "Arandano", Active: true}).Error; err != nil {
		t.Fatalf("seed commodity: %v", err)
	}
	comm := commodities.NewService(db, nil, logger.Nop())
	assign := assignments.NewService(db, comm, logger.Nop())
	svc := NewService(db, comm, assign, logger.Nop())
	q := &recordingQueue{}
	svc.SetRenderQueue(q)
	return svc, db, q
}

func create(t *testing.T, svc *Service, metrics string) *View {
	t.Helper()
	v, err := svc.Create(context.Background(), 7, CreateInput{
		Header:        Header{Producer: "Acme", Lot: "L-1", Variety: "Duke"},
		CommodityCode: "blueberry",
		Metrics:       json.RawMessage(metrics),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return v
}

func TestCreateStoresPendingPdfAndCompletesAssignment(t *testing.T) {
	svc, db, q := setup(t)
	pending := models.Assignment{Producer: "ACME", Lot: "l-1", Status: models.AssignmentPending}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("seed assignment: %v", err)
	}

	v := create(t, svc, `{"template_id": 3, "template_version": 2, "values": {"quality.dust": 1.5}}`)

	if v.Pdf == nil || v.Pdf.Status != models.PdfStatusPending {
		t.Fatalf("pdf = %+v, want PENDING", v.Pdf)
	}
	if v.Metrics.TemplateID == nil || *v.Metrics.TemplateID != 3 || v.Metrics.Values["quality.dust"] != 1.5 {
		t.Errorf("metrics = %+v", v.Metrics)
	}
	if v.Commodity == nil || v.Commodity.Code != "BLUEBERRY" || v.CreatedByUserID != 7 {
		t.Errorf("inspection = %+v", v.Inspection)
	}

	var a models.Assignment
	db.First(&a, pending.ID)
	if a.Status != models.AssignmentCompleted {
		t.Errorf("assignment status = %s, want completada", a.Status)
	}
	if len(q.ids) != 1 || q.ids[0] != v.ID {
		t.Errorf("enqueued = %v", q.ids)
	}
}

func TestCreateRequiresResolvableCommodity(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.Create(context.Background(), 1, CreateInput{Header: Header{Producer: "A", Lot: "1"}, CommodityCode: "KIWI"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown commodity error = %v", err)
	}
	_, err = svc.Create(context.Background(), 1, CreateInput{Header: Header{Producer: "A"}, CommodityCode: "BLUEBERRY"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("missing lot error = %v", err)
	}
}

func TestGetNormalizesLegacyMetrics(t *testing.T) {
	svc, db, _ := setup(t)
	v := create(t, svc, `{}`)

	db.Model(&models.Inspection{}).Where("id = ?", v.ID).Update("metrics", []byte(`{"quality.dust": 2}`))
	got, err := svc.Get(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Metrics.Values["quality.dust"] != float64(2) || got.Metrics.TemplateID != nil {
		t.Errorf("bare map not wrapped: %+v", got.Metrics)
	}

	db.Model(&models.Inspection{}).Where("id = ?", v.ID).Update("metrics", []byte(`not json`))
	got, _ = svc.Get(context.Background(), v.ID)
	if got.Metrics.Values == nil || len(got.Metrics.Values) != 0 {
		t.Errorf("malformed metrics should yield empty values, got %+v", got.Metrics)
	}

	if _, err := svc.Get(context.Background(), 999); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get(999) error = %v", err)
	}
}

func TestUpdateMetricsResetsGeneratedPdf(t *testing.T) {
	svc, db, q := setup(t)
	v := create(t, svc, `{"values": {"quality.dust": 1}}`)

	url, hash := "http://x/report.pdf", "abc"
	db.Model(&models.InspectionPdf{}).Where("inspection_id = ?", v.ID).Updates(map[string]interface{}{
		"status": models.PdfStatusGenerated, "pdf_url": url, "pdf_hash": hash,
	})

	got, err := svc.UpdateMetrics(context.Background(), v.ID, json.RawMessage(`{"values": {"quality.dust": 4}}`))
	if err != nil {
		t.Fatalf("UpdateMetrics() error = %v", err)
	}
	if got.Pdf.Status != models.PdfStatusPending || got.Pdf.PdfURL != nil || got.Pdf.PdfHash != nil {
		t.Errorf("pdf after metrics update = %+v", got.Pdf)
	}
	if got.Metrics.Values["quality.dust"] != float64(4) {
		t.Errorf("metrics = %+v", got.Metrics)
	}
	if len(q.ids) != 2 {
		t.Errorf("expected a render after create and after update, got %v", q.ids)
	}

	if _, err := svc.UpdateMetrics(context.Background(), 999, nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("UpdateMetrics(999) error = %v", err)
	}
}

func TestUpdateHeaderResetsPdf(t *testing.T) {
	svc, db, _ := setup(t)
	v := create(t, svc, `{}`)
	db.Model(&models.InspectionPdf{}).Where("inspection_id = ?", v.ID).Updates(map[string]interface{}{
		"status": models.PdfStatusError, "error_message": "boom",
	})

	weight := 12.5
	got, err := svc.UpdateHeader(context.Background(), v.ID, Header{Producer: "Acme", Lot: "L-2", NetWeight: &weight})
	if err != nil {
		t.Fatalf("UpdateHeader() error = %v", err)
	}
	if got.Lot != "L-2" || got.NetWeight == nil || *got.NetWeight != 12.5 {
		t.Errorf("header = %+v", got.Inspection)
	}
	if got.Pdf.Status != models.PdfStatusPending || got.Pdf.ErrorMessage != nil {
		t.Errorf("pdf = %+v", got.Pdf)
	}
}

func TestListFilters(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	create(t, svc, `{}`)
	if _, err := svc.Create(ctx, 8, CreateInput{Header: Header{Producer: "Berry Co", Lot: "L-9"}, CommodityCode: "BLUEBERRY"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	all, err := svc.List(ctx, Filter{CommodityCode: "blueberry"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(commodity) = %d rows", len(all))
	}

	byProducer, _ := svc.List(ctx, Filter{Producer: "berry"})
	if len(byProducer) != 1 || byProducer[0].Lot != "L-9" {
		t.Errorf("List(producer) = %+v", byProducer)
	}

	uid := uint(7)
	mine, _ := svc.List(ctx, Filter{CreatedBy: &uid, Lot: "l-1"})
	if len(mine) != 1 || mine[0].Producer != "Acme" {
		t.Errorf("List(own) = %+v", mine)
	}
}
