package workflow

import (
	"time"

	"go-qms/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActionType enumerates the built-in workflow actions.
type ActionType string

const (
	ActionComplianceCheck    ActionType = "compliance_check"
	ActionGenerateReport     ActionType = "generate_report"
	ActionSendNotification   ActionType = "send_notification"
	ActionSendEmail          ActionType = "send_email"
	ActionCreateQualityEvent ActionType = "create_quality_event"
	ActionRunScript          ActionType = "run_script"
	ActionEscalate           ActionType = "escalate"
	ActionUpdateRecord       ActionType = "update_record"
)

// RunStatus tracks a workflow run end to end.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// ActionStatus tracks one action within a run.
type ActionStatus string

const (
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
	ActionSkipped   ActionStatus = "skipped"
)

// WorkflowDefinition is an ordered set of actions executed together,
// typically kicked off by a schedule or a compliance breach.
type WorkflowDefinition struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Active      bool               `bson:"active" json:"active"`
	Actions     []WorkflowAction   `bson:"actions" json:"actions"`
	CreatedBy   string             `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// WorkflowAction is one unit of work. DependsOn names action IDs that
// must have completed first; Condition, when set, gates execution
// against the run's evaluation context.
type WorkflowAction struct {
	ID         string                 `bson:"id" json:"id"`
	Name       string                 `bson:"name" json:"name"`
	Type       ActionType             `bson:"type" json:"type"`
	Order      int                    `bson:"order" json:"order"`
	Config     map[string]interface{} `bson:"config,omitempty" json:"config,omitempty"`
	DependsOn  []string               `bson:"depends_on,omitempty" json:"depends_on,omitempty"`
	Condition  *condition.Node        `bson:"condition,omitempty" json:"condition,omitempty"`
	Required   bool                   `bson:"required" json:"required"`
	MaxRetries int                    `bson:"max_retries" json:"max_retries"`
	Timeout    time.Duration          `bson:"timeout" json:"timeout"` // per attempt; zero means 30s
}

// WorkflowRun is the persisted execution state of one run.
type WorkflowRun struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkflowID     primitive.ObjectID `bson:"workflow_id" json:"workflow_id"`
	WorkflowName   string             `bson:"workflow_name" json:"workflow_name"`
	Status         RunStatus          `bson:"status" json:"status"`
	TriggeredBy    string             `bson:"triggered_by" json:"triggered_by"`
	StepsCompleted []string           `bson:"steps_completed" json:"steps_completed"`
	Results        []ActionResult     `bson:"results" json:"results"`
	Error          string             `bson:"error,omitempty" json:"error,omitempty"`
	StartedAt      time.Time          `bson:"started_at" json:"started_at"`
	FinishedAt     *time.Time         `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}

// ActionResult records the outcome of one action attempt series.
type ActionResult struct {
	ActionID   string                 `bson:"action_id" json:"action_id"`
	ActionName string                 `bson:"action_name" json:"action_name"`
	Status     ActionStatus           `bson:"status" json:"status"`
	Attempts   int                    `bson:"attempts" json:"attempts"`
	Error      string                 `bson:"error,omitempty" json:"error,omitempty"`
	Output     map[string]interface{} `bson:"output,omitempty" json:"output,omitempty"`
	StartedAt  time.Time              `bson:"started_at" json:"started_at"`
	FinishedAt time.Time              `bson:"finished_at" json:"finished_at"`
}
