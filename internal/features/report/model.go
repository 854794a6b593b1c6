package report

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Export formats.
const (
	FormatExcel = "xlsx"
	FormatCSV   = "csv"
)

// ReportDefinition is a saved query over one source collection.
type ReportDefinition struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Source      string             `bson:"source" json:"source"` // quality_events, capas, compliance_assessments, ...
	Columns     []string           `bson:"columns" json:"columns"`
	Filters     map[string]any     `bson:"filters,omitempty" json:"filters,omitempty"`
	Limit       int64              `bson:"limit,omitempty" json:"limit,omitempty"`
	CreatedBy   string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
