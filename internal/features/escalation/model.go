package escalation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExecutionStatus tracks a running escalation workflow.
type ExecutionStatus string

const (
	StatusPending         ExecutionStatus = "pending"
	StatusInProgress      ExecutionStatus = "in_progress"
	StatusWaitingApproval ExecutionStatus = "waiting_approval"
	StatusApproved        ExecutionStatus = "approved"
	StatusRejected        ExecutionStatus = "rejected"
	StatusEscalated       ExecutionStatus = "escalated"
	StatusExpired         ExecutionStatus = "expired"
	StatusCompleted       ExecutionStatus = "completed"
	StatusCancelled       ExecutionStatus = "cancelled"
)

// EscalationWorkflow defines an ordered chain of approval steps for a
// trigger such as a critical quality event or an overdue CAPA.
type EscalationWorkflow struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	TriggerType string             `bson:"trigger_type" json:"trigger_type"` // quality_event, capa_overdue, compliance_breach, manual
	Active      bool               `bson:"active" json:"active"`
	Steps       []EscalationStep   `bson:"steps" json:"steps"`
	CreatedBy   string             `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// EscalationStep is one rung of the ladder. Approvers are symbolic
// recipient specs ("role:quality_manager", "dept:manufacturing:manager").
type EscalationStep struct {
	ID                string        `bson:"id" json:"id"`
	Name              string        `bson:"name" json:"name"`
	Order             int           `bson:"order" json:"order"`
	Approvers         []string      `bson:"approvers" json:"approvers"`
	RequiredApprovals int           `bson:"required_approvals" json:"required_approvals"` // zero means one
	Timeout           time.Duration `bson:"timeout" json:"timeout"`                       // zero means no deadline
	AutoApprove       bool          `bson:"auto_approve" json:"auto_approve"`
	NotifyOnEnter     bool          `bson:"notify_on_enter" json:"notify_on_enter"`
	EscalateOnMiss    bool          `bson:"escalate_on_miss" json:"escalate_on_miss"` // advance on timeout instead of expiring
}

// WorkflowExecution is the persisted state of one run of a workflow
// against a subject record.
type WorkflowExecution struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkflowID    primitive.ObjectID `bson:"workflow_id" json:"workflow_id"`
	WorkflowName  string             `bson:"workflow_name" json:"workflow_name"`
	SubjectModule string             `bson:"subject_module" json:"subject_module"`
	SubjectID     string             `bson:"subject_id" json:"subject_id"`
	Status        ExecutionStatus    `bson:"status" json:"status"`
	CurrentStep   int                `bson:"current_step" json:"current_step"`
	StepDeadline  *time.Time         `bson:"step_deadline,omitempty" json:"step_deadline,omitempty"`
	History       []StepHistory      `bson:"history" json:"history"`
	StartedBy     string             `bson:"started_by" json:"started_by"`
	StartedAt     time.Time          `bson:"started_at" json:"started_at"`
	CompletedAt   *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// StepHistory records a decision taken on a step.
type StepHistory struct {
	StepID    string    `bson:"step_id" json:"step_id"`
	StepName  string    `bson:"step_name" json:"step_name"`
	Action    string    `bson:"action" json:"action"` // approved, rejected, escalated, expired, auto_approved, cancelled
	ActorID   string    `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Comment   string    `bson:"comment,omitempty" json:"comment,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ApprovalRequest is the pending-work view handed to approvers.
type ApprovalRequest struct {
	ExecutionID   string     `json:"execution_id"`
	WorkflowName  string     `json:"workflow_name"`
	SubjectModule string     `json:"subject_module"`
	SubjectID     string     `json:"subject_id"`
	StepName      string     `json:"step_name"`
	Approvers     []string   `json:"approvers"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	RequestedAt   time.Time  `json:"requested_at"`
}
