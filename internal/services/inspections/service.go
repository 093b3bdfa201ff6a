// Package inspections stores captured inspections and keeps their report status
// in step with edits.
package inspections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/database"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/metric"
	"github.com/xelth-com/berrycheck/internal/models"
	"gorm.io/gorm"
)

// CommodityResolver finds an active commodity by id or code
type CommodityResolver interface {
	Resolve(ctx context.Context, id *uint, code string) (*models.Commodity, error)
}

// AssignmentCompleter closes the pending assignment matching a natural key
type AssignmentCompleter interface {
	CompleteByNaturalKey(ctx context.Context, lot, producer string) (*models.Assignment, error)
}

// RenderQueue schedules report rendering
type RenderQueue interface {
	EnqueueRender(ctx context.Context, inspectionID uint) error
}

// Header holds the editable header fields of an inspection
type Header struct {
	Producer      string   `json:"producer"`
	Lot           string   `json:"lot"`
	Variety       string   `json:"variety"`
	Caliber       string   `json:"caliber"`
	PackagingCode string   `json:"packagingCode"`
	PackagingType string   `json:"packagingType"`
	PackagingDate string   `json:"packagingDate"`
	NetWeight     *float64 `json:"netWeight"`
	BrixAvg       *float64 `json:"brixAvg"`
	TempWater     *float64 `json:"tempWater"`
	TempAmbient   *float64 `json:"tempAmbient"`
	TempPulp      *float64 `json:"tempPulp"`
	Notes         string   `json:"notes"`
}

func (h Header) validate() error {
	if strings.TrimSpace(h.Producer) == "" || strings.TrimSpace(h.Lot) == "" {
		return apperr.Validation("producer and lot are required")
	}
	return nil
}

func (h Header) columns() map[string]interface{} {
	return map[string]interface{}{
		"producer":       strings.TrimSpace(h.Producer),
		"lot":            strings.TrimSpace(h.Lot),
		"variety":        strings.TrimSpace(h.Variety),
		"caliber":        strings.TrimSpace(h.Caliber),
		"packaging_code": strings.TrimSpace(h.PackagingCode),
		"packaging_type": strings.TrimSpace(h.PackagingType),
		"packaging_date": strings.TrimSpace(h.PackagingDate),
		"net_weight":     h.NetWeight,
		"brix_avg":       h.BrixAvg,
		"temp_water":     h.TempWater,
		"temp_ambient":   h.TempAmbient,
		"temp_pulp":      h.TempPulp,
		"notes":          h.Notes,
	}
}

// CreateInput is the body of an inspection creation
type CreateInput struct {
	Header
	CommodityID   *uint           `json:"commodityId"`
	CommodityCode string          `json:"commodityCode"`
	Metrics       json.RawMessage `json:"metrics"`
}

// Filter narrows an inspection listing
type Filter struct {
	CommodityCode string
	Producer      string
	Lot           string
	CreatedBy     *uint
	Limit         int
}

// View is an inspection as returned to clients, with metrics normalized
type View struct {
	models.Inspection
	Metrics metric.Blob           `json:"metrics"`
	Pdf     *models.InspectionPdf `json:"pdf,omitempty"`
}

// Service manages inspections
type Service struct {
	db          *database.DB
	log         *logger.Logger
	commodities CommodityResolver
	assignments AssignmentCompleter
	queue       RenderQueue
}

// NewService creates an inspection service
func NewService(db *database.DB, commodities CommodityResolver, assignments AssignmentCompleter, log *logger.Logger) *Service {
	return &Service{
		db:          db,
		log:         log.With("component", "inspections"),
		commodities: commodities,
		assignments: assignments,
	}
}

// SetRenderQueue enables background report rendering after writes
func (s *Service) SetRenderQueue(q RenderQueue) {
	s.queue = q
}

// Create stores an inspection together with its PENDING report row, then
// completes the matching assignment and schedules rendering.
func (s *Service) Create(ctx context.Context, userID uint, in CreateInput) (*View, error) {
	if err := in.Header.validate(); err != nil {
		return nil, err
	}
	commodity, err := s.commodities.Resolve(ctx, in.CommodityID, in.CommodityCode)
	if err != nil {
		return nil, err
	}

	blob := metric.NormalizeBlob(in.Metrics)
	metrics, err := blob.Marshal()
	if err != nil {
		return nil, apperr.Validation("metrics are not serializable")
	}

	insp := models.Inspection{
		CommodityID:     commodity.ID,
		CreatedByUserID: userID,
		Metrics:         metrics,
	}
	applyHeader(&insp, in.Header)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Commodity").Create(&insp).Error; err != nil {
			return fmt.Errorf("failed to create inspection: %w", err)
		}
		pdf := models.InspectionPdf{InspectionID: insp.ID, Status: models.PdfStatusPending}
		if err := tx.Create(&pdf).Error; err != nil {
			return fmt.Errorf("failed to create pdf status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("inspection created", "inspection_id", insp.ID, "commodity", commodity.Code, "lot", insp.Lot)

	if s.assignments != nil {
		if _, err := s.assignments.CompleteByNaturalKey(ctx, insp.Lot, insp.Producer); err != nil {
			s.log.Warn("failed to complete assignment", "inspection_id", insp.ID, "error", err)
		}
	}
	s.scheduleRender(ctx, insp.ID)

	return s.Get(ctx, insp.ID)
}

func applyHeader(insp *models.Inspection, h Header) {
	insp.Producer = strings.TrimSpace(h.Producer)
	insp.Lot = strings.TrimSpace(h.Lot)
	insp.Variety = strings.TrimSpace(h.Variety)
	insp.Caliber = strings.TrimSpace(h.Caliber)
	insp.PackagingCode = strings.TrimSpace(h.PackagingCode)
	insp.PackagingType = strings.TrimSpace(h.PackagingType)
	insp.PackagingDate = strings.TrimSpace(h.PackagingDate)
	insp.NetWeight = h.NetWeight
	insp.BrixAvg = h.BrixAvg
	insp.TempWater = h.TempWater
	insp.TempAmbient = h.TempAmbient
	insp.TempPulp = h.TempPulp
	insp.Notes = h.Notes
}

// Load returns the stored inspection with its commodity
func (s *Service) Load(ctx context.Context, id uint) (*models.Inspection, error) {
	var insp models.Inspection
	if err := s.db.WithContext(ctx).Preload("Commodity").First(&insp, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("inspection not found")
		}
		return nil, fmt.Errorf("failed to load inspection: %w", err)
	}
	return &insp, nil
}

// Get returns an inspection with normalized metrics and report status
func (s *Service) Get(ctx context.Context, id uint) (*View, error) {
	insp, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	pdf, err := s.PdfStatus(ctx, id)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	return &View{Inspection: *insp, Metrics: metric.NormalizeBlob(insp.Metrics), Pdf: pdf}, nil
}

// List returns inspections newest first
func (s *Service) List(ctx context.Context, f Filter) ([]View, error) {
	q := s.db.WithContext(ctx).Preload("Commodity").Order("inspections.created_at DESC").Order("inspections.id DESC")
	if code := strings.ToUpper(strings.TrimSpace(f.CommodityCode)); code != "" {
		q = q.Joins("JOIN commodities ON commodities.id = inspections.commodity_id").Where("commodities.code = ?", code)
	}
	if p := strings.TrimSpace(f.Producer); p != "" {
		q = q.Where("LOWER(inspections.producer) LIKE ?", "%"+strings.ToLower(p)+"%")
	}
	if l := strings.TrimSpace(f.Lot); l != "" {
		q = q.Where("LOWER(inspections.lot) = ?", strings.ToLower(l))
	}
	if f.CreatedBy != nil {
		q = q.Where("inspections.created_by_user_id = ?", *f.CreatedBy)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []models.Inspection
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}

	out := make([]View, 0, len(rows))
	for _, insp := range rows {
		out = append(out, View{Inspection: insp, Metrics: metric.NormalizeBlob(insp.Metrics)})
	}
	return out, nil
}

// UpdateHeader rewrites the header fields and invalidates the report
func (s *Service) UpdateHeader(ctx context.Context, id uint, h Header) (*View, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Inspection{}).Where("id = ?", id).Updates(h.columns())
		if res.Error != nil {
			return fmt.Errorf("failed to update inspection: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("inspection not found")
		}
		return resetPdf(tx, id)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("inspection header updated", "inspection_id", id)
	s.scheduleRender(ctx, id)
	return s.Get(ctx, id)
}

// UpdateMetrics replaces the metrics payload and invalidates the report
func (s *Service) UpdateMetrics(ctx context.Context, id uint, raw json.RawMessage) (*View, error) {
	blob := metric.NormalizeBlob(raw)
	metrics, err := blob.Marshal()
	if err != nil {
		return nil, apperr.Validation("metrics are not serializable")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Inspection{}).Where("id = ?", id).Update("metrics", metrics)
		if res.Error != nil {
			return fmt.Errorf("failed to update metrics: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("inspection not found")
		}
		return resetPdf(tx, id)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("inspection metrics updated", "inspection_id", id, "values", len(blob.Values))
	s.scheduleRender(ctx, id)
	return s.Get(ctx, id)
}

// resetPdf puts the report row back to PENDING and drops the stale reference
func resetPdf(tx *gorm.DB, inspectionID uint) error {
	res := tx.Model(&models.InspectionPdf{}).
		Where("inspection_id = ?", inspectionID).
		Updates(map[string]interface{}{
			"status":        models.PdfStatusPending,
			"pdf_url":       nil,
			"pdf_hash":      nil,
			"error_message": nil,
			"revision":      gorm.Expr("revision + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to reset pdf status: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	pdf := models.InspectionPdf{InspectionID: inspectionID, Status: models.PdfStatusPending, Revision: 1}
	if err := tx.Create(&pdf).Error; err != nil {
		return fmt.Errorf("failed to create pdf status: %w", err)
	}
	return nil
}

// PdfStatus returns the report row of an inspection
func (s *Service) PdfStatus(ctx context.Context, inspectionID uint) (*models.InspectionPdf, error) {
	var pdf models.InspectionPdf
	if err := s.db.WithContext(ctx).Where("inspection_id = ?", inspectionID).First(&pdf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("pdf status not found")
		}
		return nil, fmt.Errorf("failed to load pdf status: %w", err)
	}
	return &pdf, nil
}

func (s *Service) scheduleRender(ctx context.Context, inspectionID uint) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueRender(ctx, inspectionID); err != nil {
		s.log.Warn("failed to enqueue pdf render", "inspection_id", inspectionID, "error", err)
	}
}
