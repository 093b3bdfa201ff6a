package models

import "time"

// AssignmentStatus is the lifecycle state of an assignment
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pendiente"
	AssignmentCompleted AssignmentStatus = "completada"
	AssignmentCancelled AssignmentStatus = "cancelada"
)

// Valid reports whether s is a known status
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentPending, AssignmentCompleted, AssignmentCancelled:
		return true
	}
	return false
}

// Assignment links an inspector to a producer/lot to inspect.
// It has no foreign key to Inspection; the link is the (lot, producer) natural key.
type Assignment struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UserID        *uint            `gorm:"index" json:"userId"`
	Producer      string           `gorm:"not null;index:idx_assignment_natural_key" json:"producer"`
	Lot           string           `gorm:"not null;index:idx_assignment_natural_key" json:"lot"`
	Variety       string           `json:"variety"`
	CommodityCode *string          `gorm:"type:varchar(32)" json:"commodityCode"`
	Status        AssignmentStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	NotesAdmin    string           `gorm:"type:text" json:"notesAdmin"`
	CreatedAt     time.Time        `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`

	User *UserAuth `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name
func (Assignment) TableName() string {
	return "assignments"
}
