package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/features/audit"
	"go-qms/pkg/condition"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultActionTimeout = 30 * time.Second

type WorkflowService interface {
	CreateDefinition(ctx context.Context, definition *WorkflowDefinition) error
	GetDefinition(ctx context.Context, id string) (*WorkflowDefinition, error)
	ListDefinitions(ctx context.Context) ([]WorkflowDefinition, error)
	UpdateDefinition(ctx context.Context, id string, definition *WorkflowDefinition) error
	DeleteDefinition(ctx context.Context, id string) error

	// Run executes a workflow synchronously and returns the persisted
	// run record. A failed required action aborts the remaining
	// actions and marks the run failed.
	Run(ctx context.Context, workflowID, triggeredBy string, ectx *condition.Context) (*WorkflowRun, error)
	RunByName(ctx context.Context, name, triggeredBy string, ectx *condition.Context) (*WorkflowRun, error)

	GetRun(ctx context.Context, id string) (*WorkflowRun, error)
	ListRuns(ctx context.Context, workflowID string, limit int64) ([]WorkflowRun, error)
}

type WorkflowServiceImpl struct {
	Definitions DefinitionRepository
	Runs        RunRepository
	Executor    ActionExecutor
	Audit       audit.AuditService
	Logger      *zap.Logger
}

func NewWorkflowService(
	definitions DefinitionRepository,
	runs RunRepository,
	executor ActionExecutor,
	auditService audit.AuditService,
	logger *zap.Logger,
) WorkflowService {
	return &WorkflowServiceImpl{
		Definitions: definitions,
		Runs:        runs,
		Executor:    executor,
		Audit:       auditService,
		Logger:      logger,
	}
}

func (s *WorkflowServiceImpl) CreateDefinition(ctx context.Context, definition *WorkflowDefinition) error {
	if err := s.validate(definition); err != nil {
		return err
	}
	return s.Definitions.Create(ctx, definition)
}

func (s *WorkflowServiceImpl) GetDefinition(ctx context.Context, id string) (*WorkflowDefinition, error) {
	return s.Definitions.GetByID(ctx, id)
}

func (s *WorkflowServiceImpl) ListDefinitions(ctx context.Context) ([]WorkflowDefinition, error) {
	return s.Definitions.List(ctx)
}

func (s *WorkflowServiceImpl) UpdateDefinition(ctx context.Context, id string, definition *WorkflowDefinition) error {
	if err := s.validate(definition); err != nil {
		return err
	}
	return s.Definitions.Update(ctx, id, definition)
}

func (s *WorkflowServiceImpl) DeleteDefinition(ctx context.Context, id string) error {
	return s.Definitions.Delete(ctx, id)
}

// validate assigns missing action IDs, orders the actions, and rejects
// dependencies on unknown or later actions.
func (s *WorkflowServiceImpl) validate(definition *WorkflowDefinition) error {
	if definition.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(definition.Actions) == 0 {
		return fmt.Errorf("workflow needs at least one action")
	}

	for i := range definition.Actions {
		if definition.Actions[i].ID == "" {
			definition.Actions[i].ID = uuid.NewString()
		}
	}
	sort.SliceStable(definition.Actions, func(i, j int) bool {
		return definition.Actions[i].Order < definition.Actions[j].Order
	})

	seen := map[string]bool{}
	for _, action := range definition.Actions {
		for _, dep := range action.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("action %q depends on %q which is not an earlier action", action.Name, dep)
			}
		}
		seen[action.ID] = true
	}
	return nil
}

func (s *WorkflowServiceImpl) Run(ctx context.Context, workflowID, triggeredBy string, ectx *condition.Context) (*WorkflowRun, error) {
	definition, err := s.Definitions.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, definition, triggeredBy, ectx)
}

func (s *WorkflowServiceImpl) RunByName(ctx context.Context, name, triggeredBy string, ectx *condition.Context) (*WorkflowRun, error) {
	definition, err := s.Definitions.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, definition, triggeredBy, ectx)
}

func (s *WorkflowServiceImpl) run(ctx context.Context, definition *WorkflowDefinition, triggeredBy string, ectx *condition.Context) (*WorkflowRun, error) {
	if !definition.Active {
		return nil, fmt.Errorf("workflow %q is inactive", definition.Name)
	}
	if ectx == nil {
		ectx = condition.NewContext()
	}

	run := &WorkflowRun{
		WorkflowID:     definition.ID,
		WorkflowName:   definition.Name,
		Status:         RunRunning,
		TriggeredBy:    triggeredBy,
		StepsCompleted: []string{},
	}
	if err := s.Runs.Create(ctx, run); err != nil {
		return nil, err
	}

	completed := map[string]bool{}
	aborted := false

	for _, action := range definition.Actions {
		if aborted {
			break
		}

		if !s.dependenciesMet(action, completed) {
			run.Results = append(run.Results, failedResult(action, "unmet dependencies"))
			if action.Required {
				run.Error = fmt.Sprintf("required action %q failed: unmet dependencies", action.Name)
				aborted = true
			}
			continue
		}
		if action.Condition != nil && !condition.Evaluate(action.Condition, ectx) {
			run.Results = append(run.Results, skippedResult(action, "condition not met"))
			continue
		}

		result := s.executeWithRetries(ctx, action, ectx)
		run.Results = append(run.Results, result)

		if result.Status == ActionCompleted {
			completed[action.ID] = true
			run.StepsCompleted = append(run.StepsCompleted, action.ID)
			continue
		}

		s.Logger.Warn("workflow action failed",
			zap.String("workflow", definition.Name),
			zap.String("action", action.Name),
			zap.Int("attempts", result.Attempts),
			zap.String("error", result.Error),
		)
		if action.Required {
			run.Error = fmt.Sprintf("required action %q failed: %s", action.Name, result.Error)
			aborted = true
		}
	}

	now := time.Now()
	run.FinishedAt = &now
	if aborted {
		run.Status = RunFailed
	} else {
		run.Status = RunCompleted
	}
	if err := s.Runs.Update(ctx, run); err != nil {
		return nil, err
	}

	s.Audit.LogChange(ctx, common_models.AuditActionWorkflow, "workflows", run.ID.Hex(), map[string]common_models.Change{
		"run": {New: fmt.Sprintf("%s finished with status %s", definition.Name, run.Status)},
	})
	return run, nil
}

func (s *WorkflowServiceImpl) dependenciesMet(action WorkflowAction, completed map[string]bool) bool {
	for _, dep := range action.DependsOn {
		if !completed[dep] {
			return false
		}
	}
	return true
}

func (s *WorkflowServiceImpl) executeWithRetries(ctx context.Context, action WorkflowAction, ectx *condition.Context) ActionResult {
	result := ActionResult{
		ActionID:   action.ID,
		ActionName: action.Name,
		StartedAt:  time.Now(),
	}

	timeout := action.Timeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}

	var lastErr error
	for attempt := 0; attempt <= action.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		output, err := s.Executor.Execute(attemptCtx, action, ectx)
		cancel()

		if err == nil {
			result.Status = ActionCompleted
			result.Output = output
			result.FinishedAt = time.Now()
			return result
		}
		lastErr = err

		if ctx.Err() != nil {
			break // the run itself was cancelled, stop retrying
		}
	}

	result.Status = ActionFailed
	result.Error = lastErr.Error()
	result.FinishedAt = time.Now()
	return result
}

func skippedResult(action WorkflowAction, reason string) ActionResult {
	now := time.Now()
	return ActionResult{
		ActionID:   action.ID,
		ActionName: action.Name,
		Status:     ActionSkipped,
		Error:      reason,
		StartedAt:  now,
		FinishedAt: now,
	}
}

func failedResult(action WorkflowAction, reason string) ActionResult {
	now := time.Now()
	return ActionResult{
		ActionID:   action.ID,
		ActionName: action.Name,
		Status:     ActionFailed,
		Error:      reason,
		StartedAt:  now,
		FinishedAt: now,
	}
}

func (s *WorkflowServiceImpl) GetRun(ctx context.Context, id string) (*WorkflowRun, error) {
	return s.Runs.GetByID(ctx, id)
}

func (s *WorkflowServiceImpl) ListRuns(ctx context.Context, workflowID string, limit int64) ([]WorkflowRun, error) {
	return s.Runs.ListByWorkflow(ctx, workflowID, limit)
}
