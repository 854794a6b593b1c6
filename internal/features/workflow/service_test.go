package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memDefinitionRepo struct {
	definitions map[string]*WorkflowDefinition
}

func (m *memDefinitionRepo) Create(_ context.Context, d *WorkflowDefinition) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	m.definitions[d.ID.Hex()] = d
	return nil
}

func (m *memDefinitionRepo) GetByID(_ context.Context, id string) (*WorkflowDefinition, error) {
	if d, ok := m.definitions[id]; ok {
		return d, nil
	}
	return nil, errors.New("not found")
}

func (m *memDefinitionRepo) GetByName(_ context.Context, name string) (*WorkflowDefinition, error) {
	for _, d := range m.definitions {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memDefinitionRepo) List(_ context.Context) ([]WorkflowDefinition, error) { return nil, nil }
func (m *memDefinitionRepo) Update(_ context.Context, id string, d *WorkflowDefinition) error {
	m.definitions[id] = d
	return nil
}
func (m *memDefinitionRepo) Delete(_ context.Context, id string) error {
	delete(m.definitions, id)
	return nil
}

type memRunRepo struct {
	runs map[string]*WorkflowRun
}

func (m *memRunRepo) Create(_ context.Context, run *WorkflowRun) error {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	run.StartedAt = time.Now()
	m.runs[run.ID.Hex()] = run
	return nil
}

func (m *memRunRepo) GetByID(_ context.Context, id string) (*WorkflowRun, error) {
	if run, ok := m.runs[id]; ok {
		return run, nil
	}
	return nil, errors.New("not found")
}

func (m *memRunRepo) ListByWorkflow(_ context.Context, _ string, _ int64) ([]WorkflowRun, error) {
	return nil, nil
}

func (m *memRunRepo) Update(_ context.Context, run *WorkflowRun) error {
	m.runs[run.ID.Hex()] = run
	return nil
}

// scriptedExecutor fails an action a configured number of times before
// succeeding, and records every attempt.
type scriptedExecutor struct {
	failuresLeft map[string]int
	calls        map[string]int
}

func (e *scriptedExecutor) Execute(_ context.Context, action WorkflowAction, _ *condition.Context) (map[string]interface{}, error) {
	e.calls[action.Name]++
	if left := e.failuresLeft[action.Name]; left > 0 {
		e.failuresLeft[action.Name] = left - 1
		return nil, errors.New("transient failure")
	}
	return map[string]interface{}{"ok": true}, nil
}

type noopAudit struct{}

func (noopAudit) LogChange(_ context.Context, _ common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	return nil
}
func (noopAudit) ListLogs(_ context.Context, _ map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestEngine(executor ActionExecutor) (*WorkflowServiceImpl, *memDefinitionRepo, *memRunRepo) {
	definitions := &memDefinitionRepo{definitions: map[string]*WorkflowDefinition{}}
	runs := &memRunRepo{runs: map[string]*WorkflowRun{}}
	svc := &WorkflowServiceImpl{
		Definitions: definitions,
		Runs:        runs,
		Executor:    executor,
		Audit:       noopAudit{},
		Logger:      zap.NewNop(),
	}
	return svc, definitions, runs
}

func action(name string, order int, opts ...func(*WorkflowAction)) WorkflowAction {
	a := WorkflowAction{
		ID:    name,
		Name:  name,
		Type:  ActionRunScript,
		Order: order,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func required(a *WorkflowAction)           { a.Required = true }
func retries(n int) func(*WorkflowAction)  { return func(a *WorkflowAction) { a.MaxRetries = n } }
func dependsOn(ids ...string) func(*WorkflowAction) {
	return func(a *WorkflowAction) { a.DependsOn = ids }
}
func gated(node *condition.Node) func(*WorkflowAction) {
	return func(a *WorkflowAction) { a.Condition = node }
}

func resultFor(t *testing.T, run *WorkflowRun, name string) ActionResult {
	t.Helper()
	for _, r := range run.Results {
		if r.ActionName == name {
			return r
		}
	}
	t.Fatalf("no result recorded for action %q", name)
	return ActionResult{}
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	executor := &scriptedExecutor{
		failuresLeft: map[string]int{"flaky": 2},
		calls:        map[string]int{},
	}
	svc, _, _ := newTestEngine(executor)
	ctx := context.Background()

	definition := &WorkflowDefinition{
		Name:    "retry-workflow",
		Active:  true,
		Actions: []WorkflowAction{action("flaky", 0, retries(3), required)},
	}
	if err := svc.CreateDefinition(ctx, definition); err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}

	run, err := svc.Run(ctx, definition.ID.Hex(), "tester", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Status != RunCompleted {
		t.Errorf("run status = %s, want %s", run.Status, RunCompleted)
	}

	result := resultFor(t, run, "flaky")
	if result.Status != ActionCompleted {
		t.Errorf("action status = %s, want %s", result.Status, ActionCompleted)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3 (two failures then success)", result.Attempts)
	}
}

func TestRunRequiredActionAborts(t *testing.T) {
	executor := &scriptedExecutor{
		failuresLeft: map[string]int{"gatekeeper": 10},
		calls:        map[string]int{},
	}
	svc, _, _ := newTestEngine(executor)
	ctx := context.Background()

	definition := &WorkflowDefinition{
		Name:   "abort-workflow",
		Active: true,
		Actions: []WorkflowAction{
			action("gatekeeper", 0, required, retries(1)),
			action("after", 1),
		},
	}
	if err := svc.CreateDefinition(ctx, definition); err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}

	run, err := svc.Run(ctx, definition.ID.Hex(), "tester", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Status != RunFailed {
		t.Errorf("run status = %s, want %s", run.Status, RunFailed)
	}
	if run.Error == "" {
		t.Error("failed run should carry an error message")
	}
	if executor.calls["after"] != 0 {
		t.Errorf("action after a failed required action ran %d times, want 0", executor.calls["after"])
	}

	result := resultFor(t, run, "gatekeeper")
	if result.Attempts != 2 {
		t.Errorf("attempts = %d, want 2 (initial try plus one retry)", result.Attempts)
	}
}

func TestRunOptionalFailureContinues(t *testing.T) {
	executor := &scriptedExecutor{
		failuresLeft: map[string]int{"best-effort": 10},
		calls:        map[string]int{},
	}
	svc, _, _ := newTestEngine(executor)
	ctx := context.Background()

	definition := &WorkflowDefinition{
		Name:   "optional-workflow",
		Active: true,
		Actions: []WorkflowAction{
			action("best-effort", 0),
			action("after", 1),
		},
	}
	if err := svc.CreateDefinition(ctx, definition); err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}

	run, err := svc.Run(ctx, definition.ID.Hex(), "tester", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Status != RunCompleted {
		t.Errorf("run status = %s, want %s", run.Status, RunCompleted)
	}
	if executor.calls["after"] != 1 {
		t.Errorf("subsequent action ran %d times, want 1", executor.calls["after"])
	}
}

func TestRunDependencyGating(t *testing.T) {
	executor := &scriptedExecutor{
		failuresLeft: map[string]int{"base": 10},
		calls:        map[string]int{},
	}
	svc, _, _ := newTestEngine(executor)
	ctx := context.Background()

	definition := &WorkflowDefinition{
		Name:   "dependency-workflow",
		Active: true,
		Actions: []WorkflowAction{
			action("base", 0),
			action("dependent", 1, dependsOn("base")),
			action("independent", 2),
		},
	}
	if err := svc.CreateDefinition(ctx, definition); err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}

	run, err := svc.Run(ctx, definition.ID.Hex(), "tester", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := resultFor(t, run, "dependent").Status; got != ActionFailed {
		t.Errorf("dependent action status = %s, want %s", got, ActionFailed)
	}
	if executor.calls["dependent"] != 0 {
		t.Errorf("dependent action executed %d times, want 0", executor.calls["dependent"])
	}
	if got := resultFor(t, run, "independent").Status; got != ActionCompleted {
		t.Errorf("independent action status = %s, want %s", got, ActionCompleted)
	}
	if run.Status != RunCompleted {
		t.Errorf("run status = %s, want %s (dependent action was optional)", run.Status, RunCompleted)
	}
}

func TestRunRequiredUnmetDependencyFailsRun(t *testing.T) {
	executor := &scriptedExecutor{
		failuresLeft: map[string]int{"base": 10},
		calls:        map[string]int{},
	}
	svc, _, _ := newTestEngine(executor)
	ctx := context.Background()

	definition := &WorkflowDefinition{
		Name:   "mandatory-chain",
		Active: true,
		Actions: []WorkflowAction{
			action("base", 0),
			action("mandatory", 1, dependsOn("base"), required),
			action("after", 2),
		},
	}
	if err := svc.CreateDefinition(ctx, definition); err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}

	run, err := svc.Run(ctx, definition.ID.Hex(), "tester", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.Status != RunFailed {
		t.Errorf("run status = %s, want %s (mandatory action never executed)", run.Status, RunFailed)
	}
	if run.Error == "" {
		t.Error("run error should name the failed required action")
	}
	if got := resultFor(t, run, "mandatory").Status; got != ActionFailed {
		t.Errorf("mandatory action status = %s, want %s", got, ActionFailed)
	}
	if executor.calls["mandatory"] != 0 {
		t.Errorf("mandatory action executed %d times, want 0", executor.calls["mandatory"])
	}
	if executor.calls["after"] != 0 {
		t.Errorf("action after the abort executed %d times, want 0", executor.calls["after"])
	}
}

func TestRunConditionGating(t *testing.T) {
	executor := &scriptedExecutor{failuresLeft: map[string]int{}, calls: map[string]int{}}
	svc, _, _ := newTestEngine(executor)
	ctx := context.Background()

	lowScore := &condition.Node{
		Field:    "compliance.overall_score",
		Operator: condition.OpLt,
		Value:    90.0,
	}
	definition := &WorkflowDefinition{
		Name:   "conditional-workflow",
		Active: true,
		Actions: []WorkflowAction{
			action("always", 0),
			action("on-low-score", 1, gated(lowScore)),
		},
	}
	if err := svc.CreateDefinition(ctx, definition); err != nil {
		t.Fatalf("CreateDefinition() error = %v", err)
	}

	ectx := condition.NewContext()
	ectx.Compliance["overall_score"] = 95.0

	run, err := svc.Run(ctx, definition.ID.Hex(), "tester", ectx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := resultFor(t, run, "on-low-score").Status; got != ActionSkipped {
		t.Errorf("gated action status = %s, want %s", got, ActionSkipped)
	}
	if run.Status != RunCompleted {
		t.Errorf("run status = %s, want %s", run.Status, RunCompleted)
	}
}

func TestValidateRejectsForwardDependency(t *testing.T) {
	svc, _, _ := newTestEngine(&scriptedExecutor{failuresLeft: map[string]int{}, calls: map[string]int{}})

	definition := &WorkflowDefinition{
		Name:   "bad-deps",
		Active: true,
		Actions: []WorkflowAction{
			action("first", 0, dependsOn("second")),
			action("second", 1),
		},
	}
	if err := svc.CreateDefinition(context.Background(), definition); err == nil {
		t.Error("CreateDefinition() should reject a dependency on a later action")
	}
}
