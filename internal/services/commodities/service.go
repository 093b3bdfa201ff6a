// Package commodities manages the catalogue of inspected produce types.
package commodities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/database"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Defaults are seeded on startup when missing
var Defaults = []models.Commodity{
	{Code: "BLUEBERRY", Name: "Arándano", Active: true},
	{Code: "BLACKBERRY", Name: "Mora", Active: true},
	{Code: "RASPBERRY", Name: "Frambuesa", Active: true},
	{Code: "STRAWBERRY", Name: "Frutilla", Active: true},
	{Code: "RED_CURRANT", Name: "Grosella Roja", Active: true},
}

// Service handles commodity lookups
type Service struct {
	db       *database.DB
	log      *logger.Logger
	excluded map[string]bool
}

// NewService creates a commodity service. Excluded codes are never listed or resolved.
func NewService(db *database.DB, excludedCodes []string, log *logger.Logger) *Service {
	excluded := make(map[string]bool, len(excludedCodes))
	for _, c := range excludedCodes {
		excluded[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return &Service{db: db, log: log.With("component", "commodities"), excluded: excluded}
}

// Seed inserts the default commodities that do not exist yet
func (s *Service) Seed(ctx context.Context) (int, error) {
	rows := make([]models.Commodity, len(Defaults))
	copy(rows, Defaults)

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed commodities: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.log.Info("commodities seeded", "inserted", result.RowsAffected)
	}
	return int(result.RowsAffected), nil
}

// List returns commodities ordered by name, without excluded codes.
// Inactive commodities are included only when all is set.
func (s *Service) List(ctx context.Context, all bool) ([]models.Commodity, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if !all {
		q = q.Where("active = ?", true)
	}
	var rows []models.Commodity
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list commodities: %w", err)
	}

	out := make([]models.Commodity, 0, len(rows))
	for _, c := range rows {
		if !s.excluded[c.Code] {
			out = append(out, c)
		}
	}
	return out, nil
}

// SetActive toggles a commodity's active flag
func (s *Service) SetActive(ctx context.Context, id uint, active bool) (*models.Commodity, error) {
	var c models.Commodity
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("commodity not found")
		}
		return nil, fmt.Errorf("failed to load commodity: %w", err)
	}
	if s.excluded[c.Code] && active {
		return nil, apperr.Validation("commodity " + c.Code + " cannot be activated")
	}
	if err := s.db.WithContext(ctx).Model(&c).Update("active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update commodity: %w", err)
	}
	c.Active = active
	s.log.Info("commodity toggled", "code", c.Code, "active", active)
	return &c, nil
}

// Resolve finds an active commodity by id, or by code when id is nil
func (s *Service) Resolve(ctx context.Context, id *uint, code string) (*models.Commodity, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if id == nil && code == "" {
		return nil, apperr.Validation("commodityId or commodityCode is required")
	}

	q := s.db.WithContext(ctx).Where("active = ?", true)
	if id != nil {
		q = q.Where("id = ?", *id)
	} else {
		q = q.Where("code = ?", code)
	}

	var c models.Commodity
	if err := q.First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("commodity not found or inactive")
		}
		return nil, fmt.Errorf("failed to resolve commodity: %w", err)
	}
	if s.excluded[c.Code] {
		return nil, apperr.NotFound("commodity not found or inactive")
	}
	return &c, nil
}

// Match maps a free-text label (code or name, any case) to a commodity code
func (s *Service) Match(ctx context.Context, label string) (string, bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false, nil
	}
	var c models.Commodity
	err := s.db.WithContext(ctx).
		Where("UPPER(code) = ? OR LOWER(name) = ?", strings.ToUpper(label), strings.ToLower(label)).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to match commodity: %w", err)
	}
	if s.excluded[c.Code] {
		return "", false, nil
	}
	return c.Code, true, nil
}
