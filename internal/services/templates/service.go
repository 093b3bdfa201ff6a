// Package templates stores versioned metric templates per commodity.
package templates

import (
	"context"
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

// FieldInput is one field of a create or replace request
type FieldInput struct {
	Key        string      `json:"key"`
	Label      string      `json:"label"`
	FieldType  string      `json:"field_type"`
	Required   bool        `json:"required"`
	Unit       string      `json:"unit"`
	MinValue   *float64    `json:"min_value"`
	MaxValue   *float64    `json:"max_value"`
	Options    interface{} `json:"options"`
	OrderIndex *int        `json:"order_index"`
}

// complete reports whether the field carries key, label and a known type
func (f FieldInput) complete() bool {
	if strings.TrimSpace(f.Key) == "" || strings.TrimSpace(f.Label) == "" {
		return false
	}
	_, ok := metric.ParseFieldType(f.FieldType)
	return ok
}

func (f FieldInput) toModel(templateID uint, position int) models.MetricField {
	order := position
	if f.OrderIndex != nil {
		order = *f.OrderIndex
	}
	ft, _ := metric.ParseFieldType(f.FieldType)
	return models.MetricField{
		TemplateID: templateID,
		Key:        strings.TrimSpace(f.Key),
		Label:      strings.TrimSpace(f.Label),
		FieldType:  string(ft),
		Required:   f.Required,
		Unit:       strings.TrimSpace(f.Unit),
		MinValue:   f.MinValue,
		MaxValue:   f.MaxValue,
		Options:    metric.SerializeOptions(metric.SafeParseOptions(f.Options)),
		OrderIndex: order,
	}
}

// CreateInput is the body of a template creation
type CreateInput struct {
	CommodityCode string       `json:"commodityCode"`
	Name          string       `json:"name"`
	Fields        []FieldInput `json:"fields"`
}

// Field is the wire shape of a template field, with options parsed
type Field struct {
	ID         uint     `json:"id"`
	Key        string   `json:"key"`
	Label      string   `json:"label"`
	FieldType  string   `json:"field_type"`
	Required   bool     `json:"required"`
	Unit       string   `json:"unit"`
	MinValue   *float64 `json:"min_value"`
	MaxValue   *float64 `json:"max_value"`
	Options    []string `json:"options"`
	OrderIndex int      `json:"order_index"`
}

// Header is the template part of a lookup result
type Header struct {
	ID            uint   `json:"id"`
	CommodityID   uint   `json:"commodityId"`
	CommodityCode string `json:"commodityCode"`
	Name          string `json:"name"`
	Version       int    `json:"version"`
	Active        bool   `json:"active"`
}

// Detail is a template with its ordered fields
type Detail struct {
	Template Header                             `json:"template"`
	Fields   []Field                            `json:"fields"`
	Groups   []metric.Group[models.MetricField] `json:"-"`
	Raw      []models.MetricField               `json:"-"`
}

// Created is returned by Create
type Created struct {
	TemplateID uint `json:"templateId"`
	Version    int  `json:"version"`
}

// Service manages metric templates
type Service struct {
	db       *database.DB
	log      *logger.Logger
	excluded map[string]bool
}

// NewService creates a new template service. Templates cannot be created for excludedCodes.
func NewService(db *database.DB, excludedCodes []string, log *logger.Logger) *Service {
	excluded := make(map[string]bool, len(excludedCodes))
	for _, c := range excludedCodes {
		excluded[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return &Service{db: db, log: log.With("component", "templates"), excluded: excluded}
}

// Create stores a new template version for a commodity and makes it the only
// active one. Fields without key, label or a known type are skipped.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Created, error) {
	code := strings.ToUpper(strings.TrimSpace(in.CommodityCode))
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, apperr.Validation("commodityCode and name are required")
	}
	if in.Fields == nil {
		return nil, apperr.Validation("fields must be a list")
	}
	if s.excluded[code] {
		return nil, apperr.NotFound("commodity not found or inactive: " + code)
	}

	var created Created
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var commodity models.Commodity
		if err := tx.Where("code = ? AND active = ?", code, true).First(&commodity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("commodity not found or inactive: " + code)
			}
			return fmt.Errorf("failed to load commodity: %w", err)
		}

		var maxVersion int
		if err := tx.Model(&models.MetricTemplate{}).
			Where("commodity_id = ?", commodity.ID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return fmt.Errorf("failed to compute next version: %w", err)
		}

		if err := tx.Model(&models.MetricTemplate{}).
			Where("commodity_id = ?", commodity.ID).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate templates: %w", err)
		}

		tpl := models.MetricTemplate{
			CommodityID:   commodity.ID,
			CommodityCode: commodity.Code,
			Name:          name,
			Version:       maxVersion + 1,
			Active:        true,
		}
		if err := tx.Create(&tpl).Error; err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}

		if _, err := insertFields(tx, tpl.ID, in.Fields); err != nil {
			return err
		}

		created = Created{TemplateID: tpl.ID, Version: tpl.Version}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("template created", "commodity", code, "template_id", created.TemplateID, "version", created.Version)
	return &created, nil
}

// ReplaceFields deletes all fields of a template and inserts the given set
func (s *Service) ReplaceFields(ctx context.Context, templateID uint, fields []FieldInput) (int, error) {
	if fields == nil {
		return 0, apperr.Validation("fields must be a list")
	}

	var inserted int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tpl models.MetricTemplate
		if err := tx.First(&tpl, templateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("template not found")
			}
			return fmt.Errorf("failed to load template: %w", err)
		}

		if err := tx.Where("template_id = ?", templateID).Delete(&models.MetricField{}).Error; err != nil {
			return fmt.Errorf("failed to delete fields: %w", err)
		}
		n, err := insertFields(tx, templateID, fields)
		inserted = n
		return err
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("template fields replaced", "template_id", templateID, "fields", inserted, "skipped", len(fields)-inserted)
	return inserted, nil
}

func insertFields(tx *gorm.DB, templateID uint, fields []FieldInput) (int, error) {
	rows := make([]models.MetricField, 0, len(fields))
	for i, f := range fields {
		if !f.complete() {
			continue
		}
		rows = append(rows, f.toModel(templateID, i))
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to insert fields: %w", err)
	}
	return len(rows), nil
}

// latest selects the authoritative template: the highest version wins
func latest(q *gorm.DB) *gorm.DB {
	return q.Order("version DESC").Order("id DESC").Limit(1)
}

// GetActive returns the authoritative template of a commodity code
func (s *Service) GetActive(ctx context.Context, commodityCode string) (*Detail, error) {
	code := strings.ToUpper(strings.TrimSpace(commodityCode))
	if code == "" {
		return nil, apperr.Validation("commodity code is required")
	}
	var tpl models.MetricTemplate
	err := latest(s.db.WithContext(ctx).Where("commodity_code = ?", code)).First(&tpl).Error
	return s.detail(ctx, &tpl, err)
}

// GetActiveByCommodityID returns the authoritative template of a commodity id
func (s *Service) GetActiveByCommodityID(ctx context.Context, commodityID uint) (*Detail, error) {
	var tpl models.MetricTemplate
	err := latest(s.db.WithContext(ctx).Where("commodity_id = ?", commodityID)).First(&tpl).Error
	return s.detail(ctx, &tpl, err)
}

// Get returns one template by id regardless of its version
func (s *Service) Get(ctx context.Context, templateID uint) (*Detail, error) {
	var tpl models.MetricTemplate
	err := s.db.WithContext(ctx).First(&tpl, templateID).Error
	return s.detail(ctx, &tpl, err)
}

func (s *Service) detail(ctx context.Context, tpl *models.MetricTemplate, err error) (*Detail, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("template not found")
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	var fields []models.MetricField
	if err := s.db.WithContext(ctx).
		Where("template_id = ?", tpl.ID).
		Order("order_index ASC").Order("key ASC").Order("id ASC").
		Find(&fields).Error; err != nil {
		return nil, fmt.Errorf("failed to load fields: %w", err)
	}

	d := &Detail{
		Template: Header{
			ID:            tpl.ID,
			CommodityID:   tpl.CommodityID,
			CommodityCode: tpl.CommodityCode,
			Name:          tpl.Name,
			Version:       tpl.Version,
			Active:        tpl.Active,
		},
		Fields: make([]Field, 0, len(fields)),
		Groups: metric.GroupFields(fields),
		Raw:    fields,
	}
	for _, f := range fields {
		d.Fields = append(d.Fields, Field{
			ID:         f.ID,
			Key:        f.Key,
			Label:      f.Label,
			FieldType:  f.FieldType,
			Required:   f.Required,
			Unit:       f.Unit,
			MinValue:   f.MinValue,
			MaxValue:   f.MaxValue,
			Options:    metric.SafeParseOptions(f.Options),
			OrderIndex: f.OrderIndex,
		})
	}
	return d, nil
}

// Versions lists every template of a commodity, newest first
func (s *Service) Versions(ctx context.Context, commodityCode string) ([]Header, error) {
	code := strings.ToUpper(strings.TrimSpace(commodityCode))
	var tpls []models.MetricTemplate
	if err := s.db.WithContext(ctx).
		Where("commodity_code = ?", code).
		Order("version DESC").Order("id DESC").
		Find(&tpls).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if len(tpls) == 0 {
		return nil, apperr.NotFound("no templates for commodity " + code)
	}

	out := make([]Header, 0, len(tpls))
	for _, t := range tpls {
		out = append(out, Header{
			ID:            t.ID,
			CommodityID:   t.CommodityID,
			CommodityCode: t.CommodityCode,
			Name:          t.Name,
			Version:       t.Version,
			Active:        t.Active,
		})
	}
	return out, nil
}

// Validate checks values against a template's fields and returns per-field errors
func (s *Service) Validate(ctx context.Context, templateID uint, values map[string]interface{}) (map[string]string, error) {
	d, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return metric.ValidateValues(d.Raw, values), nil
}
