// Package report renders inspection reports and tracks their status row.
package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/database"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/metric"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/services/templates"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Events broadcast after a render attempt
const (
	EventPdfGenerated = "PDF_GENERATED"
	EventPdfFailed    = "PDF_FAILED"
)

const contentType = "application/pdf"

// errSuperseded marks a render whose inspection was edited before it could be recorded
var errSuperseded = errors.New("inspection changed during render")

// InspectionLoader loads a stored inspection with its commodity
type InspectionLoader interface {
	Load(ctx context.Context, id uint) (*models.Inspection, error)
}

// TemplateSource provides the template an inspection was captured with
type TemplateSource interface {
	Get(ctx context.Context, templateID uint) (*templates.Detail, error)
	GetActiveByCommodityID(ctx context.Context, commodityID uint) (*templates.Detail, error)
}

// ObjectStore keeps rendered files and returns their URL
type ObjectStore interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) (string, error)
}

// Notifier receives render events
type Notifier interface {
	Broadcast(event string, payload interface{})
}

// Service renders and publishes inspection reports
type Service struct {
	db          *database.DB
	inspections InspectionLoader
	templates   TemplateSource
	store       ObjectStore
	notifier    Notifier
	log         *logger.Logger
	baseURL     string
	now         func() time.Time
}

// NewService creates a report service. A nil store makes every render fail
// with a configuration error recorded on the status row.
func NewService(db *database.DB, inspections InspectionLoader, tpls TemplateSource, store ObjectStore, baseURL string, log *logger.Logger) *Service {
	return &Service{
		db:          db,
		inspections: inspections,
		templates:   tpls,
		store:       store,
		log:         log.With("component", "report"),
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         time.Now,
	}
}

// SetNotifier registers a receiver for render events
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Result is the outcome of a render
type Result struct {
	InspectionID uint   `json:"inspectionId"`
	Status       string `json:"status"`
	PdfURL       string `json:"pdfUrl,omitempty"`
	PdfHash      string `json:"pdfHash,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Generate renders, uploads and records the report of an inspection.
// Failures after the inspection is loaded are stored as status ERROR. A render
// overtaken by an edit is dropped and the current (PENDING) row is returned.
func (s *Service) Generate(ctx context.Context, inspectionID uint) (*models.InspectionPdf, error) {
	// The revision is read before the inspection so an edit in between is always detected
	rev, err := s.revision(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	insp, err := s.inspections.Load(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	pdf, err := s.publish(ctx, insp, rev)
	if errors.Is(err, errSuperseded) {
		return s.superseded(ctx, inspectionID)
	}
	if err != nil {
		s.log.Error("report generation failed", "inspection_id", inspectionID, "error", err)
		recErr := s.recordFailure(ctx, inspectionID, rev, err)
		if errors.Is(recErr, errSuperseded) {
			return s.superseded(ctx, inspectionID)
		}
		if recErr != nil {
			s.log.Error("failed to record report failure", "inspection_id", inspectionID, "error", recErr)
		}
		s.notify(EventPdfFailed, Result{InspectionID: inspectionID, Status: string(models.PdfStatusError), Error: err.Error()})
		return nil, err
	}

	s.log.Info("report generated", "inspection_id", inspectionID, "hash", *pdf.PdfHash)
	s.notify(EventPdfGenerated, Result{InspectionID: inspectionID, Status: string(pdf.Status), PdfURL: *pdf.PdfURL, PdfHash: *pdf.PdfHash})
	return pdf, nil
}

func (s *Service) superseded(ctx context.Context, inspectionID uint) (*models.InspectionPdf, error) {
	s.log.Info("report superseded by a newer edit", "inspection_id", inspectionID)
	var current models.InspectionPdf
	if err := s.db.WithContext(ctx).Where("inspection_id = ?", inspectionID).First(&current).Error; err != nil {
		return nil, fmt.Errorf("failed to load pdf status: %w", err)
	}
	return &current, nil
}

// revision returns the status row revision, or nil when no row exists yet
func (s *Service) revision(ctx context.Context, inspectionID uint) (*uint, error) {
	var row models.InspectionPdf
	err := s.db.WithContext(ctx).Select("inspection_id", "revision").
		Where("inspection_id = ?", inspectionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pdf status: %w", err)
	}
	return &row.Revision, nil
}

func (s *Service) publish(ctx context.Context, insp *models.Inspection, rev *uint) (*models.InspectionPdf, error) {
	if s.store == nil {
		return nil, apperr.External("report storage not configured", nil)
	}

	doc, err := s.document(ctx, insp)
	if err != nil {
		return nil, err
	}
	data, err := Render(doc)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("inspections/%d/%s.pdf", insp.ID, hash[:16])

	url, err := s.store.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, apperr.External("failed to store report", err)
	}

	pdf := &models.InspectionPdf{
		InspectionID: insp.ID,
		Status:       models.PdfStatusGenerated,
		PdfURL:       &url,
		PdfHash:      &hash,
	}
	if rev != nil {
		pdf.Revision = *rev
	}
	if err := s.save(ctx, pdf, rev); err != nil {
		return nil, err
	}
	return pdf, nil
}

// document assembles the printable view of an inspection
func (s *Service) document(ctx context.Context, insp *models.Inspection) (Document, error) {
	blob := metric.NormalizeBlob(insp.Metrics)

	doc := Document{
		Inspection:  *insp,
		Fields:      map[string]models.MetricField{},
		GeneratedAt: s.now(),
	}
	if insp.Commodity != nil {
		doc.CommodityName = insp.Commodity.Name
	}
	if s.baseURL != "" {
		doc.LinkURL = fmt.Sprintf("%s/inspections/%d", s.baseURL, insp.ID)
	}

	tpl, err := s.templateFor(ctx, insp.CommodityID, blob.TemplateID)
	if err != nil {
		return doc, err
	}
	var fields []models.MetricField
	if tpl != nil {
		doc.TemplateName = tpl.Template.Name
		doc.TemplateVersion = tpl.Template.Version
		fields = tpl.Raw
		for _, f := range fields {
			doc.Fields[f.Key] = f
		}
	}
	doc.Groups = metric.GroupValues(blob.Values, fields)
	return doc, nil
}

// templateFor returns the template referenced by the metrics, falling back to
// the commodity's current one. A missing template is not an error.
func (s *Service) templateFor(ctx context.Context, commodityID uint, templateID *uint) (*templates.Detail, error) {
	if s.templates == nil {
		return nil, nil
	}
	var (
		d   *templates.Detail
		err error
	)
	if templateID != nil {
		d, err = s.templates.Get(ctx, *templateID)
	} else {
		d, err = s.templates.GetActiveByCommodityID(ctx, commodityID)
	}
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

// save records the outcome only if the status row is still at rev. With no
// row at start it inserts one, unless an edit created it meanwhile.
func (s *Service) save(ctx context.Context, pdf *models.InspectionPdf, rev *uint) error {
	if rev == nil {
		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(pdf)
		if res.Error != nil {
			return fmt.Errorf("failed to create pdf status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errSuperseded
		}
		return nil
	}

	res := s.db.WithContext(ctx).Model(&models.InspectionPdf{}).
		Where("inspection_id = ? AND revision = ?", pdf.InspectionID, *rev).
		Updates(map[string]interface{}{
			"status":        pdf.Status,
			"pdf_url":       pdf.PdfURL,
			"pdf_hash":      pdf.PdfHash,
			"error_message": pdf.ErrorMessage,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save pdf status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errSuperseded
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, inspectionID uint, rev *uint, cause error) error {
	msg := cause.Error()
	var appErr *apperr.Error
	if errors.As(cause, &appErr) && appErr.Err == nil {
		msg = appErr.Message
	}
	pdf := &models.InspectionPdf{
		InspectionID: inspectionID,
		Status:       models.PdfStatusError,
		ErrorMessage: &msg,
	}
	if rev != nil {
		pdf.Revision = *rev
	}
	return s.save(ctx, pdf, rev)
}

func (s *Service) notify(event string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(event, payload)
	}
}
