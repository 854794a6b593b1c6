package organization

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	common_models "go-qms/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memDepartmentRepo struct {
	departments map[string]Department
}

func newMemDepartmentRepo() *memDepartmentRepo {
	return &memDepartmentRepo{departments: map[string]Department{}}
}

func (r *memDepartmentRepo) Create(_ context.Context, d *Department) error {
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	r.departments[d.ID.Hex()] = *d
	return nil
}

func (r *memDepartmentRepo) GetByID(_ context.Context, id string) (*Department, error) {
	d, ok := r.departments[id]
	if !ok {
		return nil, fmt.Errorf("department %s not found", id)
	}
	return &d, nil
}

func (r *memDepartmentRepo) GetByName(_ context.Context, name string) (*Department, error) {
	for _, d := range r.departments {
		if d.Name == name {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("department %s not found", name)
}

func (r *memDepartmentRepo) List(_ context.Context) ([]Department, error) {
	var out []Department
	for _, d := range r.departments {
		out = append(out, d)
	}
	return out, nil
}

func (r *memDepartmentRepo) ListChildren(_ context.Context, parentID string) ([]Department, error) {
	var out []Department
	for _, d := range r.departments {
		if d.ParentID != nil && d.ParentID.Hex() == parentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memDepartmentRepo) Update(_ context.Context, d *Department) error {
	r.departments[d.ID.Hex()] = *d
	return nil
}

func (r *memDepartmentRepo) Delete(_ context.Context, id string) error {
	delete(r.departments, id)
	return nil
}

type fixedMembers struct{ count int64 }

func (f fixedMembers) CountByDepartment(_ context.Context, _ string) (int64, error) {
	return f.count, nil
}

type fixedTraining struct {
	rate    float64
	overdue int64
	err     error
}

func (f fixedTraining) DepartmentTraining(_ context.Context, _ string) (float64, int64, error) {
	return f.rate, f.overdue, f.err
}

type fixedQuality struct{ events, capas int64 }

func (f fixedQuality) OpenEventCounts(_ context.Context, _ string) (int64, int64, error) {
	return f.events, f.capas, nil
}

type fixedTrend struct{ points []TrendPoint }

func (f fixedTrend) Trend(_ context.Context, _ int64) ([]TrendPoint, error) {
	return f.points, nil
}

type noopAudit struct{}

func (noopAudit) LogChange(_ context.Context, _ common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	return nil
}
func (noopAudit) ListLogs(_ context.Context, _ map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestService(repo DepartmentRepository) *OrganizationServiceImpl {
	return &OrganizationServiceImpl{
		Repo:    repo,
		Members: fixedMembers{count: 14},
		Training: fixedTraining{
			rate:    87.5,
			overdue: 3,
		},
		Quality: fixedQuality{events: 2, capas: 1},
		Trend: fixedTrend{points: []TrendPoint{
			{Score: 91, Status: "compliant", Timestamp: time.Now()},
		}},
		Audit:  noopAudit{},
		Logger: zap.NewNop(),
	}
}

func TestAnalyticsAggregatesSources(t *testing.T) {
	repo := newMemDepartmentRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	department := &Department{Name: "quality_assurance", ManagerID: "u-qa-lead"}
	if err := svc.CreateDepartment(ctx, department); err != nil {
		t.Fatalf("CreateDepartment() error = %v", err)
	}

	analytics, err := svc.Analytics(ctx, department.ID.Hex())
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if analytics.MemberCount != 14 {
		t.Errorf("member count = %d, want 14", analytics.MemberCount)
	}
	if analytics.TrainingCompletionRate != 87.5 || analytics.TrainingOverdue != 3 {
		t.Errorf("training figures = %.1f/%d, want 87.5/3", analytics.TrainingCompletionRate, analytics.TrainingOverdue)
	}
	if analytics.OpenQualityEvents != 2 || analytics.OpenCAPAs != 1 {
		t.Errorf("quality figures = %d/%d, want 2/1", analytics.OpenQualityEvents, analytics.OpenCAPAs)
	}
	if len(analytics.ComplianceTrend) != 1 {
		t.Errorf("trend length = %d, want 1", len(analytics.ComplianceTrend))
	}
}

func TestAnalyticsSurvivesSourceFailure(t *testing.T) {
	repo := newMemDepartmentRepo()
	svc := newTestService(repo)
	svc.Training = fixedTraining{err: errors.New("training store down")}
	ctx := context.Background()

	department := &Department{Name: "manufacturing"}
	if err := svc.CreateDepartment(ctx, department); err != nil {
		t.Fatalf("CreateDepartment() error = %v", err)
	}

	analytics, err := svc.Analytics(ctx, department.ID.Hex())
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if analytics.TrainingCompletionRate != 0 || analytics.TrainingOverdue != 0 {
		t.Errorf("failed source should contribute zeros, got %+v", analytics)
	}
	if analytics.MemberCount != 14 {
		t.Errorf("healthy sources should still populate, got %+v", analytics)
	}
}

func TestCreateDepartmentValidatesParent(t *testing.T) {
	repo := newMemDepartmentRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	missing := primitive.NewObjectID()
	err := svc.CreateDepartment(ctx, &Department{Name: "micro-lab", ParentID: &missing})
	if err == nil {
		t.Fatal("expected error for unknown parent")
	}

	parent := &Department{Name: "laboratories"}
	if err := svc.CreateDepartment(ctx, parent); err != nil {
		t.Fatalf("CreateDepartment(parent) error = %v", err)
	}
	pid := parent.ID
	if err := svc.CreateDepartment(ctx, &Department{Name: "micro-lab", ParentID: &pid}); err != nil {
		t.Fatalf("CreateDepartment(child) error = %v", err)
	}
}

func TestDeleteDepartmentRejectsParentsWithChildren(t *testing.T) {
	repo := newMemDepartmentRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	parent := &Department{Name: "site"}
	if err := svc.CreateDepartment(ctx, parent); err != nil {
		t.Fatalf("CreateDepartment() error = %v", err)
	}
	pid := parent.ID
	child := &Department{Name: "packaging", ParentID: &pid}
	if err := svc.CreateDepartment(ctx, child); err != nil {
		t.Fatalf("CreateDepartment(child) error = %v", err)
	}

	if err := svc.DeleteDepartment(ctx, parent.ID.Hex()); err == nil {
		t.Fatal("expected error deleting a department with children")
	}
	if err := svc.DeleteDepartment(ctx, child.ID.Hex()); err != nil {
		t.Fatalf("DeleteDepartment(child) error = %v", err)
	}
	if err := svc.DeleteDepartment(ctx, parent.ID.Hex()); err != nil {
		t.Fatalf("DeleteDepartment(parent) error = %v", err)
	}
}
