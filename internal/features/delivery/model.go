package delivery

import (
	"time"

	"go-qms/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Frequency is the coarse schedule the API accepts. It is translated to
// a cron expression once, at create/update time; the cron entry is the
// single source of truth for the next run afterwards.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyCron      Frequency = "cron" // CronExpr supplied directly
)

// DeliveryStatus tracks one firing of a schedule.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryExecuting DeliveryStatus = "executing"
	DeliveryCompleted DeliveryStatus = "completed"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliverySkipped   DeliveryStatus = "skipped"
)

// DeliveryConditions gate a firing. All configured checks must pass,
// otherwise the delivery is recorded as skipped.
type DeliveryConditions struct {
	BusinessDaysOnly   bool            `bson:"business_days_only" json:"business_days_only"`
	MinComplianceScore *float64        `bson:"min_compliance_score,omitempty" json:"min_compliance_score,omitempty"`
	Condition          *condition.Node `bson:"condition,omitempty" json:"condition,omitempty"`
	Script             string          `bson:"script,omitempty" json:"script,omitempty"` // must assign bool to `deliver`
}

// DeliverySchedule describes a recurring report delivery.
type DeliverySchedule struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Frequency   Frequency          `bson:"frequency" json:"frequency"`
	CronExpr    string             `bson:"cron_expr" json:"cron_expr"`
	ReportName  string             `bson:"report_name" json:"report_name"`
	Format      string             `bson:"format" json:"format"` // xlsx or csv
	Recipients  []string           `bson:"recipients" json:"recipients"`
	Conditions  DeliveryConditions `bson:"conditions" json:"conditions"`
	Active      bool               `bson:"active" json:"active"`
	LastRun     *time.Time         `bson:"last_run,omitempty" json:"last_run,omitempty"`
	NextRun     *time.Time         `bson:"next_run,omitempty" json:"next_run,omitempty"`
	CreatedBy   string             `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// ScheduledDelivery is the persisted record of one firing.
type ScheduledDelivery struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ScheduleID   primitive.ObjectID `bson:"schedule_id" json:"schedule_id"`
	ScheduleName string             `bson:"schedule_name" json:"schedule_name"`
	Status       DeliveryStatus     `bson:"status" json:"status"`
	SkipReason   string             `bson:"skip_reason,omitempty" json:"skip_reason,omitempty"`
	Error        string             `bson:"error,omitempty" json:"error,omitempty"`
	ReportFile   string             `bson:"report_file,omitempty" json:"report_file,omitempty"`
	Recipients   []string           `bson:"recipients,omitempty" json:"recipients,omitempty"`
	StartedAt    time.Time          `bson:"started_at" json:"started_at"`
	FinishedAt   *time.Time         `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}
