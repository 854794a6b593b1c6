package lims

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sample statuses.
const (
	SampleRegistered = "registered"
	SampleInTesting  = "in_testing"
	SampleReleased   = "released"
	SampleRejected   = "rejected"
)

// Sample is a lab sample with its chain of custody embedded. Every
// transfer appends an entry; the chain is never rewritten.
type Sample struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SampleNumber string             `bson:"sample_number" json:"sample_number"`
	Material     string             `bson:"material" json:"material"`
	Batch        string             `bson:"batch,omitempty" json:"batch,omitempty"`
	Status       string             `bson:"status" json:"status"`
	Custody      []CustodyEntry     `bson:"custody" json:"custody"`
	CollectedBy  string             `bson:"collected_by" json:"collected_by"`
	CollectedAt  time.Time          `bson:"collected_at" json:"collected_at"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// CustodyEntry records one hand-off of a sample.
type CustodyEntry struct {
	FromActor string    `bson:"from_actor,omitempty" json:"from_actor,omitempty"`
	ToActor   string    `bson:"to_actor" json:"to_actor"`
	Location  string    `bson:"location,omitempty" json:"location,omitempty"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// Execution statuses.
const (
	ExecutionScheduled = "scheduled"
	ExecutionRunning   = "running"
	ExecutionCompleted = "completed"
)

// TestExecution is one run of a test method against a sample.
type TestExecution struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SampleID  primitive.ObjectID `bson:"sample_id" json:"sample_id"`
	TestName  string             `bson:"test_name" json:"test_name"`
	Method    string             `bson:"method,omitempty" json:"method,omitempty"`
	Analyst   string             `bson:"analyst" json:"analyst"`
	Status    string             `bson:"status" json:"status"`
	Results   []TestResult       `bson:"results" json:"results"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// TestResult is a measured parameter with its specification limits.
// Limits are inclusive; a nil limit means unbounded on that side.
type TestResult struct {
	Parameter  string    `bson:"parameter" json:"parameter"`
	Value      float64   `bson:"value" json:"value"`
	Unit       string    `bson:"unit,omitempty" json:"unit,omitempty"`
	LowerLimit *float64  `bson:"lower_limit,omitempty" json:"lower_limit,omitempty"`
	UpperLimit *float64  `bson:"upper_limit,omitempty" json:"upper_limit,omitempty"`
	InSpec     bool      `bson:"in_spec" json:"in_spec"`
	RecordedBy string    `bson:"recorded_by" json:"recorded_by"`
	RecordedAt time.Time `bson:"recorded_at" json:"recorded_at"`
}

// WithinLimits checks the value against both bounds.
func (r *TestResult) WithinLimits() bool {
	if r.LowerLimit != nil && r.Value < *r.LowerLimit {
		return false
	}
	if r.UpperLimit != nil && r.Value > *r.UpperLimit {
		return false
	}
	return true
}
