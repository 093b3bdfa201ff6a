package models

import "time"

// MetricTemplate is one version of a commodity's inspection schema.
// At most one template per commodity is active; it is always the highest version.
type MetricTemplate struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CommodityID   uint      `gorm:"not null;index:idx_template_commodity_version" json:"commodityId"`
	CommodityCode string    `gorm:"type:varchar(32);not null;index" json:"commodityCode"`
	Name          string    `gorm:"not null" json:"name"`
	Version       int       `gorm:"not null;index:idx_template_commodity_version" json:"version"`
	Active        bool      `gorm:"not null" json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Fields []MetricField `gorm:"foreignKey:TemplateID" json:"fields,omitempty"`
}

// TableName specifies the table name
func (MetricTemplate) TableName() string {
	return "metric_templates"
}

// MetricField is a typed input of a template. Key uses the "<group>.<name>" convention.
type MetricField struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	TemplateID uint     `gorm:"not null;index" json:"templateId"`
	Key        string   `gorm:"type:varchar(128);not null" json:"key"`
	Label      string   `gorm:"not null" json:"label"`
	FieldType  string   `gorm:"type:varchar(16);not null" json:"field_type"`
	Required   bool     `gorm:"not null" json:"required"`
	Unit       string   `json:"unit"`
	MinValue   *float64 `json:"min_value"`
	MaxValue   *float64 `json:"max_value"`
	// Options is a JSON array string, "[]" when empty
	Options    string `gorm:"type:text;not null" json:"-"`
	OrderIndex int    `gorm:"not null;default:0" json:"order_index"`
}

// TableName specifies the table name
func (MetricField) TableName() string {
	return "metric_fields"
}
