package training

import (
	"context"
	"fmt"
	"testing"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memTrainingRepo struct {
	assignments map[string]TrainingAssignment
}

func newMemTrainingRepo() *memTrainingRepo {
	return &memTrainingRepo{assignments: map[string]TrainingAssignment{}}
}

func (r *memTrainingRepo) Create(_ context.Context, a *TrainingAssignment) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	r.assignments[a.ID.Hex()] = *a
	return nil
}

func (r *memTrainingRepo) GetByID(_ context.Context, id string) (*TrainingAssignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %s not found", id)
	}
	return &a, nil
}

func (r *memTrainingRepo) List(_ context.Context, filter bson.M) ([]TrainingAssignment, error) {
	var out []TrainingAssignment
	for _, a := range r.assignments {
		if userID, ok := filter["user_id"].(string); ok && a.UserID != userID {
			continue
		}
		if dept, ok := filter["department"].(string); ok && a.Department != dept {
			continue
		}
		if status, ok := filter["status"].(string); ok && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *memTrainingRepo) Update(_ context.Context, a *TrainingAssignment) error {
	r.assignments[a.ID.Hex()] = *a
	return nil
}

func (r *memTrainingRepo) Count(ctx context.Context, filter bson.M) (int64, error) {
	out, err := r.List(ctx, filter)
	return int64(len(out)), err
}

type noopAudit struct{}

func (noopAudit) LogChange(_ context.Context, _ common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	return nil
}
func (noopAudit) ListLogs(_ context.Context, _ map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestService() (*TrainingServiceImpl, *memTrainingRepo) {
	repo := newMemTrainingRepo()
	return &TrainingServiceImpl{Repo: repo, Audit: noopAudit{}, Logger: zap.NewNop()}, repo
}

func seed(t *testing.T, repo *memTrainingRepo) {
	t.Helper()
	ctx := context.Background()
	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(7 * 24 * time.Hour)
	done := time.Now().Add(-time.Hour)

	repo.Create(ctx, &TrainingAssignment{UserID: "u1", Department: "qa", CourseName: "GMP Basics", Status: AssignmentCompleted, DueDate: past, CompletedAt: &done})
	repo.Create(ctx, &TrainingAssignment{UserID: "u2", Department: "qa", CourseName: "GMP Basics", Status: AssignmentAssigned, DueDate: past})
	repo.Create(ctx, &TrainingAssignment{UserID: "u3", Department: "mfg", CourseName: "Aseptic Technique", Status: AssignmentAssigned, DueDate: future})
	repo.Create(ctx, &TrainingAssignment{UserID: "u4", Department: "mfg", CourseName: "Aseptic Technique", Status: AssignmentWaived, DueDate: past})
}

func TestSummaryAggregates(t *testing.T) {
	svc, repo := newTestService()
	seed(t, repo)

	summary, err := svc.Summary(context.Background(), "")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Total != 3 {
		t.Errorf("total = %d, want 3 (waived excluded)", summary.Total)
	}
	if summary.Completed != 1 {
		t.Errorf("completed = %d, want 1", summary.Completed)
	}
	if summary.Overdue != 1 {
		t.Errorf("overdue = %d, want 1", summary.Overdue)
	}
	want := 100.0 / 3.0
	if diff := summary.CompletionRate - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("completion rate = %.2f, want %.2f", summary.CompletionRate, want)
	}
}

func TestSummaryDepartmentScope(t *testing.T) {
	svc, repo := newTestService()
	seed(t, repo)

	summary, err := svc.Summary(context.Background(), "mfg")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.Total != 1 || summary.Overdue != 0 {
		t.Errorf("mfg summary = %+v, want total 1 overdue 0", summary)
	}
}

func TestSummaryEmptyIsFullyCompliant(t *testing.T) {
	svc, _ := newTestService()

	summary, err := svc.Summary(context.Background(), "")
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.CompletionRate != 100 {
		t.Errorf("completion rate = %.2f, want 100 for empty population", summary.CompletionRate)
	}
}

func TestStatsCountsCurrentAssignments(t *testing.T) {
	svc, repo := newTestService()
	seed(t, repo)

	current, total, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if current != 2 {
		t.Errorf("current = %d, want 2", current)
	}
}

func TestCompleteTransitions(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	assignment := &TrainingAssignment{UserID: "u1", CourseName: "GMP Basics", DueDate: time.Now().Add(time.Hour)}
	if err := svc.Assign(ctx, assignment); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	score := 92.5
	completed, err := svc.Complete(ctx, assignment.ID.Hex(), &score)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if completed.Status != AssignmentCompleted || completed.CompletedAt == nil {
		t.Errorf("unexpected completion state: %+v", completed)
	}

	if _, err := svc.Complete(ctx, assignment.ID.Hex(), nil); err == nil {
		t.Fatal("expected error completing an already-completed assignment")
	}

	stored, _ := repo.GetByID(ctx, assignment.ID.Hex())
	if stored.Score == nil || *stored.Score != 92.5 {
		t.Errorf("score not persisted: %+v", stored.Score)
	}
}

func TestFillScope(t *testing.T) {
	svc, repo := newTestService()
	seed(t, repo)

	ectx := condition.NewContext()
	if err := svc.FillScope(context.Background(), ectx); err != nil {
		t.Fatalf("FillScope() error = %v", err)
	}
	if ectx.Training["overdue_count"].(int64) != 1 {
		t.Errorf("overdue_count = %v, want 1", ectx.Training["overdue_count"])
	}
	if _, ok := ectx.Training["completion_rate"].(float64); !ok {
		t.Errorf("completion_rate missing or wrong type: %v", ectx.Training["completion_rate"])
	}
}
