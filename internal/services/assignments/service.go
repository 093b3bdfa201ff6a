// Package assignments stores inspection work items and backs the sheet reconciliation.
package assignments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xelth-com/berrycheck/internal/apperr"
	"github.com/xelth-com/berrycheck/internal/database"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/models"
	"gorm.io/gorm"
)

// CommodityMatcher maps free-text commodity labels to catalogue codes
type CommodityMatcher interface {
	Match(ctx context.Context, label string) (string, bool, error)
}

// Filter narrows a listing
type Filter struct {
	UserID *uint
	Status models.AssignmentStatus
}

// CreateInput is the body of a manual assignment
type CreateInput struct {
	UserID         *uint   `json:"userId"`
	InspectorEmail string  `json:"inspectorEmail"`
	Producer       string  `json:"producer"`
	Lot            string  `json:"lot"`
	Variety        string  `json:"variety"`
	CommodityCode  *string `json:"commodityCode"`
	NotesAdmin     string  `json:"notesAdmin"`
}

// Service manages assignments
type Service struct {
	db          *database.DB
	log         *logger.Logger
	commodities CommodityMatcher
	now         func() time.Time
}

// NewService creates an assignment service
func NewService(db *database.DB, commodities CommodityMatcher, log *logger.Logger) *Service {
	return &Service{
		db:          db,
		log:         log.With("component", "assignments"),
		commodities: commodities,
		now:         time.Now,
	}
}

// List returns assignments newest first
func (s *Service) List(ctx context.Context, f Filter) ([]models.Assignment, error) {
	q := s.db.WithContext(ctx).Preload("User").Order("created_at DESC").Order("id DESC")
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, apperr.Validation("unknown status " + string(f.Status))
		}
		q = q.Where("status = ?", f.Status)
	}

	var rows []models.Assignment
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return rows, nil
}

// Get loads one assignment with its inspector
func (s *Service) Get(ctx context.Context, id uint) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.db.WithContext(ctx).Preload("User").First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("assignment not found")
		}
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}
	return &a, nil
}

// Create stores a pending assignment. The inspector may be given by id or email.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Assignment, error) {
	producer := strings.TrimSpace(in.Producer)
	lot := strings.TrimSpace(in.Lot)
	if producer == "" || lot == "" {
		return nil, apperr.Validation("producer and lot are required")
	}

	a := &models.Assignment{
		UserID:     in.UserID,
		Producer:   producer,
		Lot:        lot,
		Variety:    strings.TrimSpace(in.Variety),
		Status:     models.AssignmentPending,
		NotesAdmin: strings.TrimSpace(in.NotesAdmin),
	}

	if a.UserID == nil && strings.TrimSpace(in.InspectorEmail) != "" {
		user, err := s.FindInspectorByEmail(ctx, in.InspectorEmail)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, apperr.NotFound("inspector not found: " + in.InspectorEmail)
		}
		a.UserID = &user.ID
	}

	if in.CommodityCode != nil && strings.TrimSpace(*in.CommodityCode) != "" {
		code, ok, err := s.commodities.Match(ctx, *in.CommodityCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.NotFound("commodity not found: " + *in.CommodityCode)
		}
		a.CommodityCode = &code
	}

	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	s.log.Info("assignment created", "assignment_id", a.ID, "lot", a.Lot)
	return a, nil
}

// UpdateStatus moves an assignment to another lifecycle state
func (s *Service) UpdateStatus(ctx context.Context, id uint, status models.AssignmentStatus) (*models.Assignment, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown status " + string(status))
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(a).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	a.Status = status
	return a, nil
}

// Cancel marks an assignment cancelled and appends an audit marker to its notes
func (s *Service) Cancel(ctx context.Context, id uint, byEmail string) (*models.Assignment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == models.AssignmentCancelled {
		return a, nil
	}

	marker := fmt.Sprintf("[CANCELADA %s por %s]", s.now().UTC().Format(time.RFC3339), byEmail)
	notes := marker
	if a.NotesAdmin != "" {
		notes = a.NotesAdmin + "\n" + marker
	}

	if err := s.db.WithContext(ctx).Model(a).Updates(map[string]interface{}{
		"status":      models.AssignmentCancelled,
		"notes_admin": notes,
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel assignment: %w", err)
	}
	a.Status = models.AssignmentCancelled
	a.NotesAdmin = notes
	s.log.Info("assignment cancelled", "assignment_id", a.ID)
	return a, nil
}

// whereNaturalKey matches rows by normalized (lot, producer)
func whereNaturalKey(q *gorm.DB, key models.NaturalKey) *gorm.DB {
	return q.Where("LOWER(TRIM(lot)) = ? AND LOWER(TRIM(producer)) = ?", key.Lot, key.Producer)
}

// CompleteByNaturalKey marks the oldest pending assignment for (lot, producer)
// completed. It returns nil when there is none.
func (s *Service) CompleteByNaturalKey(ctx context.Context, lot, producer string) (*models.Assignment, error) {
	key := models.NaturalKeyOf(lot, producer)
	if key.Empty() {
		return nil, nil
	}

	var a models.Assignment
	err := whereNaturalKey(s.db.WithContext(ctx), key).
		Where("status = ?", models.AssignmentPending).
		Order("created_at ASC").Order("id ASC").
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find assignment: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&a).Update("status", models.AssignmentCompleted).Error; err != nil {
		return nil, fmt.Errorf("failed to complete assignment: %w", err)
	}
	a.Status = models.AssignmentCompleted
	s.log.Info("assignment completed", "assignment_id", a.ID, "lot", a.Lot)
	return &a, nil
}

// ListPending returns pending assignments with their inspector, oldest first
func (s *Service) ListPending(ctx context.Context) ([]models.Assignment, error) {
	var rows []models.Assignment
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("status = ?", models.AssignmentPending).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending assignments: %w", err)
	}
	return rows, nil
}

// NaturalKeyIndex maps every (lot, producer) in the store to its oldest assignment id
func (s *Service) NaturalKeyIndex(ctx context.Context) (map[models.NaturalKey]uint, error) {
	var rows []models.Assignment
	if err := s.db.WithContext(ctx).
		Select("id", "lot", "producer").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to index assignments: %w", err)
	}

	index := make(map[models.NaturalKey]uint, len(rows))
	for _, a := range rows {
		key := models.NaturalKeyOf(a.Lot, a.Producer)
		if _, ok := index[key]; !ok {
			index[key] = a.ID
		}
	}
	return index, nil
}

// FindInspectorByEmail returns the active inspector with that email, or nil
func (s *Service) FindInspectorByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var u models.UserAuth
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ? AND is_active = ? AND role = ?", email, true, models.RoleInspector).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inspector: %w", err)
	}
	return &u, nil
}

// CreateImported stores an assignment built from a sheet row
func (s *Service) CreateImported(ctx context.Context, a *models.Assignment) error {
	if a.Status == "" {
		a.Status = models.AssignmentPending
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(a).Error; err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

// MatchCommodity maps a sheet commodity label to a catalogue code
func (s *Service) MatchCommodity(ctx context.Context, label string) (string, bool, error) {
	if s.commodities == nil {
		return "", false, nil
	}
	return s.commodities.Match(ctx, label)
}

// CommodityCodes returns the commodity code of each given assignment that has one
func (s *Service) CommodityCodes(ctx context.Context, ids []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Assignment
	if err := s.db.WithContext(ctx).
		Select("id", "commodity_code").
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load commodity codes: %w", err)
	}
	for _, a := range rows {
		if a.CommodityCode != nil && *a.CommodityCode != "" {
			out[a.ID] = *a.CommodityCode
		}
	}
	return out, nil
}
