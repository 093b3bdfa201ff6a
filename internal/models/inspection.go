package models

import (
	"time"

	"gorm.io/datatypes"
)

// Inspection is a captured quality inspection of one lot
type Inspection struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	CommodityID     uint     `gorm:"not null;index" json:"commodityId"`
	CreatedByUserID uint     `gorm:"not null;index" json:"createdByUserId"`
	Producer        string   `gorm:"not null;index:idx_inspection_natural_key" json:"producer"`
	Lot             string   `gorm:"not null;index:idx_inspection_natural_key" json:"lot"`
	Variety         string   `json:"variety"`
	Caliber         string   `json:"caliber"`
	PackagingCode   string   `json:"packagingCode"`
	PackagingType   string   `json:"packagingType"`
	PackagingDate   string   `gorm:"type:varchar(10)" json:"packagingDate"`
	NetWeight       *float64 `json:"netWeight"`
	BrixAvg         *float64 `json:"brixAvg"`
	TempWater       *float64 `json:"tempWater"`
	TempAmbient     *float64 `json:"tempAmbient"`
	TempPulp        *float64 `json:"tempPulp"`
	Notes           string   `gorm:"type:text" json:"notes"`
	// Metrics holds {template_id, template_version, values}; read through metric.NormalizeBlob
	Metrics   datatypes.JSON `json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`

	Commodity *Commodity `gorm:"foreignKey:CommodityID" json:"commodity,omitempty"`
}

// TableName specifies the table name
func (Inspection) TableName() string {
	return "inspections"
}

// PdfStatus is the lifecycle state of an inspection report
type PdfStatus string

const (
	PdfStatusPending   PdfStatus = "PENDING"
	PdfStatusGenerated PdfStatus = "GENERATED"
	PdfStatusError     PdfStatus = "ERROR"
)

// InspectionPdf tracks the generated report of an inspection (one row per inspection)
type InspectionPdf struct {
	InspectionID uint      `gorm:"primaryKey;autoIncrement:false" json:"inspectionId"`
	Status       PdfStatus `gorm:"type:varchar(16);not null" json:"status"`
	PdfURL       *string   `json:"pdfUrl"`
	PdfHash      *string   `gorm:"type:varchar(64)" json:"pdfHash"`
	ErrorMessage *string   `gorm:"type:text" json:"errorMessage"`
	// Revision grows on every invalidation; a render only lands on the revision it started from
	Revision  uint      `gorm:"not null;default:0" json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (InspectionPdf) TableName() string {
	return "inspection_pdfs"
}
