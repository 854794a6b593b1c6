package escalation

import (
	"context"
	"fmt"
	"sort"
	"time"

	common_models "go-qms/internal/common/models"
	emails "go-qms/internal/email"
	"go-qms/internal/features/audit"
	"go-qms/pkg/condition"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// RecipientResolver expands symbolic approver specs into addresses.
type RecipientResolver interface {
	Resolve(ctx context.Context, specs []string, ectx *condition.Context) []string
}

type EscalationService interface {
	CreateWorkflow(ctx context.Context, workflow *EscalationWorkflow) error
	GetWorkflow(ctx context.Context, id string) (*EscalationWorkflow, error)
	ListWorkflows(ctx context.Context) ([]EscalationWorkflow, error)
	UpdateWorkflow(ctx context.Context, id string, workflow *EscalationWorkflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	// StartExecution begins a run of the named workflow against a
	// subject record. Steps marked AutoApprove are advanced through
	// immediately, so a fully automatic workflow completes before
	// StartExecution returns.
	StartExecution(ctx context.Context, workflowID, subjectModule, subjectID, startedBy string) (*WorkflowExecution, error)
	StartByTrigger(ctx context.Context, triggerType, subjectModule, subjectID, startedBy string) (*WorkflowExecution, error)

	Approve(ctx context.Context, executionID, actorID, comment string) (*WorkflowExecution, error)
	Reject(ctx context.Context, executionID, actorID, comment string) (*WorkflowExecution, error)
	Cancel(ctx context.Context, executionID, actorID, comment string) (*WorkflowExecution, error)

	GetExecution(ctx context.Context, id string) (*WorkflowExecution, error)
	ListExecutions(ctx context.Context, status string) ([]WorkflowExecution, error)
	PendingApprovals(ctx context.Context) ([]ApprovalRequest, error)

	// ProcessTimeouts sweeps executions whose step deadline has passed,
	// either advancing them (EscalateOnMiss) or expiring them.
	ProcessTimeouts(ctx context.Context) (int, error)

	// SignatureStats counts recorded approval decisions and how many of
	// them carry an identified actor.
	SignatureStats(ctx context.Context) (signed, total int64, err error)
}

type EscalationServiceImpl struct {
	Workflows  WorkflowRepository
	Executions ExecutionRepository
	Resolver   RecipientResolver
	Email      emails.EmailService
	Audit      audit.AuditService
	Logger     *zap.Logger
}

func NewEscalationService(
	workflows WorkflowRepository,
	executions ExecutionRepository,
	resolver RecipientResolver,
	email emails.EmailService,
	auditService audit.AuditService,
	logger *zap.Logger,
) EscalationService {
	return &EscalationServiceImpl{
		Workflows:  workflows,
		Executions: executions,
		Resolver:   resolver,
		Email:      email,
		Audit:      auditService,
		Logger:     logger,
	}
}

func (s *EscalationServiceImpl) CreateWorkflow(ctx context.Context, workflow *EscalationWorkflow) error {
	if err := validateWorkflow(workflow); err != nil {
		return err
	}
	for i := range workflow.Steps {
		if workflow.Steps[i].ID == "" {
			workflow.Steps[i].ID = uuid.NewString()
		}
	}
	sortSteps(workflow)
	return s.Workflows.Create(ctx, workflow)
}

func (s *EscalationServiceImpl) GetWorkflow(ctx context.Context, id string) (*EscalationWorkflow, error) {
	return s.Workflows.GetByID(ctx, id)
}

func (s *EscalationServiceImpl) ListWorkflows(ctx context.Context) ([]EscalationWorkflow, error) {
	return s.Workflows.List(ctx)
}

func (s *EscalationServiceImpl) UpdateWorkflow(ctx context.Context, id string, workflow *EscalationWorkflow) error {
	if err := validateWorkflow(workflow); err != nil {
		return err
	}
	for i := range workflow.Steps {
		if workflow.Steps[i].ID == "" {
			workflow.Steps[i].ID = uuid.NewString()
		}
	}
	sortSteps(workflow)
	return s.Workflows.Update(ctx, id, workflow)
}

func (s *EscalationServiceImpl) DeleteWorkflow(ctx context.Context, id string) error {
	return s.Workflows.Delete(ctx, id)
}

func validateWorkflow(workflow *EscalationWorkflow) error {
	if workflow.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(workflow.Steps) == 0 {
		return fmt.Errorf("workflow needs at least one step")
	}
	for _, step := range workflow.Steps {
		if !step.AutoApprove && len(step.Approvers) == 0 {
			return fmt.Errorf("step %q has no approvers and is not auto-approving", step.Name)
		}
	}
	return nil
}

func sortSteps(workflow *EscalationWorkflow) {
	sort.SliceStable(workflow.Steps, func(i, j int) bool {
		return workflow.Steps[i].Order < workflow.Steps[j].Order
	})
}

func (s *EscalationServiceImpl) StartExecution(ctx context.Context, workflowID, subjectModule, subjectID, startedBy string) (*WorkflowExecution, error) {
	workflow, err := s.Workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, workflow, subjectModule, subjectID, startedBy)
}

func (s *EscalationServiceImpl) StartByTrigger(ctx context.Context, triggerType, subjectModule, subjectID, startedBy string) (*WorkflowExecution, error) {
	workflow, err := s.Workflows.GetByTrigger(ctx, triggerType)
	if err != nil {
		return nil, err
	}
	if workflow == nil {
		return nil, nil // no workflow bound to this trigger
	}
	return s.start(ctx, workflow, subjectModule, subjectID, startedBy)
}

func (s *EscalationServiceImpl) start(ctx context.Context, workflow *EscalationWorkflow, subjectModule, subjectID, startedBy string) (*WorkflowExecution, error) {
	if !workflow.Active {
		return nil, fmt.Errorf("workflow %q is inactive", workflow.Name)
	}

	execution := &WorkflowExecution{
		WorkflowID:    workflow.ID,
		WorkflowName:  workflow.Name,
		SubjectModule: subjectModule,
		SubjectID:     subjectID,
		Status:        StatusPending,
		CurrentStep:   0,
		StartedBy:     startedBy,
	}
	if err := s.Executions.Create(ctx, execution); err != nil {
		return nil, err
	}

	execution.Status = StatusInProgress
	if err := s.Executions.Update(ctx, execution); err != nil {
		return nil, err
	}

	if err := s.enterStep(ctx, execution, workflow); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionEscalation, execution.SubjectModule, execution.SubjectID, map[string]common_models.Change{
		"escalation": {New: fmt.Sprintf("workflow %q started", workflow.Name)},
	})
	return execution, nil
}

// enterStep moves the execution into its current step, chaining through
// consecutive auto-approve steps. CurrentStep only ever grows.
func (s *EscalationServiceImpl) enterStep(ctx context.Context, execution *WorkflowExecution, workflow *EscalationWorkflow) error {
	for {
		if execution.CurrentStep >= len(workflow.Steps) {
			return s.complete(ctx, execution)
		}

		step := workflow.Steps[execution.CurrentStep]
		if step.AutoApprove {
			execution.History = append(execution.History, StepHistory{
				StepID:    step.ID,
				StepName:  step.Name,
				Action:    "auto_approved",
				Timestamp: time.Now(),
			})
			execution.CurrentStep++
			continue
		}

		execution.Status = StatusWaitingApproval
		execution.StepDeadline = nil
		if step.Timeout > 0 {
			deadline := time.Now().Add(step.Timeout)
			execution.StepDeadline = &deadline
		}
		if err := s.Executions.Update(ctx, execution); err != nil {
			return err
		}
		if step.NotifyOnEnter {
			s.notifyApprovers(ctx, execution, step)
		}
		return nil
	}
}

func (s *EscalationServiceImpl) complete(ctx context.Context, execution *WorkflowExecution) error {
	now := time.Now()
	execution.Status = StatusCompleted
	execution.CompletedAt = &now
	execution.StepDeadline = nil
	return s.Executions.Update(ctx, execution)
}

func (s *EscalationServiceImpl) Approve(ctx context.Context, executionID, actorID, comment string) (*WorkflowExecution, error) {
	execution, workflow, step, err := s.loadForDecision(ctx, executionID)
	if err != nil {
		return nil, err
	}

	for _, entry := range execution.History {
		if entry.StepID == step.ID && entry.Action == "approved" && entry.ActorID == actorID {
			return nil, fmt.Errorf("actor %s already approved this step", actorID)
		}
	}

	execution.History = append(execution.History, StepHistory{
		StepID:    step.ID,
		StepName:  step.Name,
		Action:    "approved",
		ActorID:   actorID,
		Comment:   comment,
		Timestamp: time.Now(),
	})

	required := step.RequiredApprovals
	if required < 1 {
		required = 1
	}
	approvals := 0
	for _, entry := range execution.History {
		if entry.StepID == step.ID && entry.Action == "approved" {
			approvals++
		}
	}
	if approvals < required {
		if err := s.Executions.Update(ctx, execution); err != nil {
			return nil, err
		}
	} else {
		execution.CurrentStep++
		execution.Status = StatusApproved
		if err := s.enterStep(ctx, execution, workflow); err != nil {
			return nil, err
		}
	}

	s.Audit.LogChange(ctx, common_models.AuditActionApproval, execution.SubjectModule, execution.SubjectID, map[string]common_models.Change{
		"step": {Old: step.Name, New: "approved"},
	})
	return execution, nil
}

func (s *EscalationServiceImpl) Reject(ctx context.Context, executionID, actorID, comment string) (*WorkflowExecution, error) {
	execution, _, step, err := s.loadForDecision(ctx, executionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	execution.History = append(execution.History, StepHistory{
		StepID:    step.ID,
		StepName:  step.Name,
		Action:    "rejected",
		ActorID:   actorID,
		Comment:   comment,
		Timestamp: now,
	})
	execution.Status = StatusRejected
	execution.CompletedAt = &now
	execution.StepDeadline = nil
	if err := s.Executions.Update(ctx, execution); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionApproval, execution.SubjectModule, execution.SubjectID, map[string]common_models.Change{
		"step": {Old: step.Name, New: "rejected"},
	})
	return execution, nil
}

func (s *EscalationServiceImpl) Cancel(ctx context.Context, executionID, actorID, comment string) (*WorkflowExecution, error) {
	execution, err := s.Executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if isTerminal(execution.Status) {
		return nil, fmt.Errorf("execution already %s", execution.Status)
	}

	now := time.Now()
	execution.History = append(execution.History, StepHistory{
		Action:    "cancelled",
		ActorID:   actorID,
		Comment:   comment,
		Timestamp: now,
	})
	execution.Status = StatusCancelled
	execution.CompletedAt = &now
	execution.StepDeadline = nil
	if err := s.Executions.Update(ctx, execution); err != nil {
		return nil, err
	}
	return execution, nil
}

func (s *EscalationServiceImpl) loadForDecision(ctx context.Context, executionID string) (*WorkflowExecution, *EscalationWorkflow, *EscalationStep, error) {
	execution, err := s.Executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, nil, nil, err
	}
	if execution.Status != StatusWaitingApproval {
		return nil, nil, nil, fmt.Errorf("execution is %s, not awaiting approval", execution.Status)
	}

	workflow, err := s.Workflows.GetByID(ctx, execution.WorkflowID.Hex())
	if err != nil {
		return nil, nil, nil, err
	}
	if execution.CurrentStep >= len(workflow.Steps) {
		return nil, nil, nil, fmt.Errorf("execution step index out of range")
	}
	step := workflow.Steps[execution.CurrentStep]
	return execution, workflow, &step, nil
}

func (s *EscalationServiceImpl) GetExecution(ctx context.Context, id string) (*WorkflowExecution, error) {
	return s.Executions.GetByID(ctx, id)
}

func (s *EscalationServiceImpl) ListExecutions(ctx context.Context, status string) ([]WorkflowExecution, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.Executions.List(ctx, filter)
}

func (s *EscalationServiceImpl) SignatureStats(ctx context.Context) (int64, int64, error) {
	executions, err := s.Executions.List(ctx, bson.M{})
	if err != nil {
		return 0, 0, err
	}
	var signed, total int64
	for _, execution := range executions {
		for _, entry := range execution.History {
			switch entry.Action {
			case "approved", "rejected":
				total++
				if entry.ActorID != "" && entry.ActorID != "system" {
					signed++
				}
			}
		}
	}
	return signed, total, nil
}

func (s *EscalationServiceImpl) PendingApprovals(ctx context.Context) ([]ApprovalRequest, error) {
	executions, err := s.Executions.List(ctx, bson.M{"status": StatusWaitingApproval})
	if err != nil {
		return nil, err
	}

	requests := make([]ApprovalRequest, 0, len(executions))
	for _, execution := range executions {
		workflow, err := s.Workflows.GetByID(ctx, execution.WorkflowID.Hex())
		if err != nil || execution.CurrentStep >= len(workflow.Steps) {
			continue
		}
		step := workflow.Steps[execution.CurrentStep]
		requests = append(requests, ApprovalRequest{
			ExecutionID:   execution.ID.Hex(),
			WorkflowName:  execution.WorkflowName,
			SubjectModule: execution.SubjectModule,
			SubjectID:     execution.SubjectID,
			StepName:      step.Name,
			Approvers:     step.Approvers,
			Deadline:      execution.StepDeadline,
			RequestedAt:   execution.UpdatedAt,
		})
	}
	return requests, nil
}

func (s *EscalationServiceImpl) ProcessTimeouts(ctx context.Context) (int, error) {
	executions, err := s.Executions.ListPastDeadline(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range executions {
		execution := &executions[i]
		workflow, err := s.Workflows.GetByID(ctx, execution.WorkflowID.Hex())
		if err != nil {
			s.Logger.Error("timeout sweep: workflow lookup failed",
				zap.String("execution_id", execution.ID.Hex()),
				zap.Error(err),
			)
			continue
		}
		if execution.CurrentStep >= len(workflow.Steps) {
			continue
		}
		step := workflow.Steps[execution.CurrentStep]

		// A missed deadline only escalates when a later step can take
		// over; the last step expires instead of completing unapproved.
		if step.EscalateOnMiss && execution.CurrentStep+1 < len(workflow.Steps) {
			execution.History = append(execution.History, StepHistory{
				StepID:    step.ID,
				StepName:  step.Name,
				Action:    "escalated",
				Timestamp: time.Now(),
			})
			execution.CurrentStep++
			execution.Status = StatusEscalated
			if err := s.enterStep(ctx, execution, workflow); err != nil {
				s.Logger.Error("timeout sweep: escalation advance failed",
					zap.String("execution_id", execution.ID.Hex()),
					zap.Error(err),
				)
				continue
			}
		} else {
			now := time.Now()
			execution.History = append(execution.History, StepHistory{
				StepID:    step.ID,
				StepName:  step.Name,
				Action:    "expired",
				Timestamp: now,
			})
			execution.Status = StatusExpired
			execution.CompletedAt = &now
			execution.StepDeadline = nil
			if err := s.Executions.Update(ctx, execution); err != nil {
				continue
			}
		}
		processed++
	}
	return processed, nil
}

func (s *EscalationServiceImpl) notifyApprovers(ctx context.Context, execution *WorkflowExecution, step EscalationStep) {
	addrs := s.Resolver.Resolve(ctx, step.Approvers, nil)
	if len(addrs) == 0 {
		s.Logger.Warn("no approvers resolved for step",
			zap.String("execution_id", execution.ID.Hex()),
			zap.String("step", step.Name),
		)
		return
	}

	rows := [][2]string{
		{"Workflow", execution.WorkflowName},
		{"Record", fmt.Sprintf("%s / %s", execution.SubjectModule, execution.SubjectID)},
		{"Step", step.Name},
	}
	if execution.StepDeadline != nil {
		rows = append(rows, [2]string{"Respond by", execution.StepDeadline.Format(time.RFC1123)})
	}
	body, err := emails.RenderBody("Approval required", emails.RenderTable(rows))
	if err != nil {
		s.Logger.Error("render approval email", zap.Error(err))
		return
	}

	if err := s.Email.Send(ctx, &emails.Email{
		To:         addrs,
		Subject:    fmt.Sprintf("Approval required: %s", execution.WorkflowName),
		HtmlBody:   body,
		EntityType: "workflow_execution",
		EntityID:   execution.ID.Hex(),
	}); err != nil {
		s.Logger.Error("queue approval email", zap.Error(err))
	}
}

func isTerminal(status ExecutionStatus) bool {
	switch status {
	case StatusApproved, StatusRejected, StatusExpired, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
