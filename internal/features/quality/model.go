package quality

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event severities and statuses.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityMinor    = "minor"

	EventOpen          = "open"
	EventInvestigating = "investigating"
	EventClosed        = "closed"
)

// QualityEvent is a deviation, OOS result, complaint, or audit finding.
type QualityEvent struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Title       string                 `bson:"title" json:"title"`
	Description string                 `bson:"description,omitempty" json:"description,omitempty"`
	Type        string                 `bson:"type" json:"type"` // deviation, oos, complaint, audit_finding
	Severity    string                 `bson:"severity" json:"severity"`
	Status      string                 `bson:"status" json:"status"`
	Source      string                 `bson:"source,omitempty" json:"source,omitempty"` // lims, workflow, manual
	Department  string                 `bson:"department,omitempty" json:"department,omitempty"`
	Details     map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	ReportedBy  string                 `bson:"reported_by" json:"reported_by"`
	ClosedAt    *time.Time             `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time              `bson:"updated_at" json:"updated_at"`
}

// CAPA statuses.
const (
	CAPAOpen       = "open"
	CAPAInProgress = "in_progress"
	CAPACompleted  = "completed"
	CAPAVerified   = "verified"
	CAPAClosed     = "closed"
)

// CAPA is a corrective or preventive action tied to a quality event.
type CAPA struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID            primitive.ObjectID `bson:"event_id,omitempty" json:"event_id,omitempty"`
	Title              string             `bson:"title" json:"title"`
	Type               string             `bson:"type" json:"type"` // corrective, preventive
	Status             string             `bson:"status" json:"status"`
	ActionPlan         string             `bson:"action_plan,omitempty" json:"action_plan,omitempty"`
	Owner              string             `bson:"owner" json:"owner"`
	Department         string             `bson:"department,omitempty" json:"department,omitempty"`
	DueDate            time.Time          `bson:"due_date" json:"due_date"`
	CompletedAt        *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	EffectivenessCheck string             `bson:"effectiveness_check,omitempty" json:"effectiveness_check,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// ControlledDocument is an EDMS record. Effective documents must carry
// a revision and an approver to count as controlled.
type ControlledDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Number     string             `bson:"number" json:"number"` // e.g. SOP-023
	Title      string             `bson:"title" json:"title"`
	Revision   string             `bson:"revision,omitempty" json:"revision,omitempty"`
	Status     string             `bson:"status" json:"status"` // draft, in_review, effective, obsolete
	ApprovedBy string             `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
