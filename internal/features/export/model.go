package export

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CollectionMapping maps one QMS collection to a warehouse table.
type CollectionMapping struct {
	Collection string            `bson:"collection" json:"collection"`
	Table      string            `bson:"table" json:"table"`
	Mapping    map[string]string `bson:"mapping" json:"mapping"` // QMS field -> warehouse column
}

// ExportSetting describes a regulatory export target. The warehouse is
// Postgres; rows upsert on their id column.
type ExportSetting struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	Collections []CollectionMapping `bson:"collections" json:"collections"`
	Warehouse   map[string]string   `bson:"warehouse" json:"warehouse"` // host, port, user, password, database
	Active      bool                `bson:"active" json:"active"`
	LastRunAt   time.Time           `bson:"last_run_at" json:"last_run_at"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// Run statuses.
const (
	RunInProgress = "in_progress"
	RunSuccess    = "success"
	RunFailed     = "failed"
)

// ExportRun is the per-run log record.
type ExportRun struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SettingID      primitive.ObjectID `bson:"setting_id" json:"setting_id"`
	Status         string             `bson:"status" json:"status"`
	ProcessedCount int                `bson:"processed_count" json:"processed_count"`
	Error          string             `bson:"error,omitempty" json:"error,omitempty"`
	StartedAt      time.Time          `bson:"started_at" json:"started_at"`
	FinishedAt     time.Time          `bson:"finished_at" json:"finished_at"`
}
