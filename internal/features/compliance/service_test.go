package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "go-qms/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memAssessmentRepo struct {
	assessments []*Assessment
	createErr   error
}

func (m *memAssessmentRepo) Create(_ context.Context, a *Assessment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.GeneratedAt = time.Now()
	m.assessments = append(m.assessments, a)
	return nil
}

func (m *memAssessmentRepo) Latest(_ context.Context) (*Assessment, error) {
	if len(m.assessments) == 0 {
		return nil, nil
	}
	return m.assessments[len(m.assessments)-1], nil
}

func (m *memAssessmentRepo) List(_ context.Context, _ int64) ([]Assessment, error) {
	return nil, nil
}

// fakeSource reports perfect ratios except where overridden.
type fakeSource struct {
	auditCount  int64
	auditErr    error
	trainingErr error
	capaOnTime  int64
	capaTotal   int64
}

func (f *fakeSource) AuditCountSince(_ context.Context, _ time.Time) (int64, error) {
	return f.auditCount, f.auditErr
}
func (f *fakeSource) SignatureStats(_ context.Context) (int64, int64, error) { return 10, 10, nil }
func (f *fakeSource) TrainingStats(_ context.Context) (int64, int64, error) {
	if f.trainingErr != nil {
		return 0, 0, f.trainingErr
	}
	return 8, 8, nil
}
func (f *fakeSource) DocumentStats(_ context.Context) (int64, int64, error) { return 5, 5, nil }
func (f *fakeSource) CAPAStats(_ context.Context) (int64, int64, error) {
	return f.capaOnTime, f.capaTotal, nil
}
func (f *fakeSource) CustodyStats(_ context.Context) (int64, int64, error) { return 3, 3, nil }

type noopAudit struct{}

func (noopAudit) LogChange(_ context.Context, _ common_models.AuditAction, _ string, _ string, _ map[string]common_models.Change) error {
	return nil
}
func (noopAudit) ListLogs(_ context.Context, _ map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestCompliance(source DataSource) (*ComplianceServiceImpl, *memAssessmentRepo) {
	repo := &memAssessmentRepo{}
	svc := &ComplianceServiceImpl{
		Assessments: repo,
		Source:      source,
		Audit:       noopAudit{},
		Logger:      zap.NewNop(),
	}
	return svc, repo
}

func TestRunAssessmentAllHealthy(t *testing.T) {
	svc, repo := newTestCompliance(&fakeSource{auditCount: 25, capaOnTime: 4, capaTotal: 4})

	assessment, err := svc.RunAssessment(context.Background(), nil, "tester")
	if err != nil {
		t.Fatalf("RunAssessment() error = %v", err)
	}
	if assessment.OverallScore != 100 {
		t.Errorf("overall score = %.1f, want 100", assessment.OverallScore)
	}
	if assessment.Status != "compliant" {
		t.Errorf("status = %q, want compliant", assessment.Status)
	}
	if assessment.Degraded {
		t.Error("healthy assessment should not be degraded")
	}
	if assessment.ComplianceGaps == nil {
		t.Error("compliance_gaps must always be a list, even when empty")
	}
	if len(assessment.Results) != len(catalog) {
		t.Errorf("results = %d, want one per catalog rule (%d)", len(assessment.Results), len(catalog))
	}
	if len(repo.assessments) != 1 {
		t.Errorf("persisted assessments = %d, want 1", len(repo.assessments))
	}
}

func TestRunAssessmentSurvivesPersistenceFailure(t *testing.T) {
	svc, repo := newTestCompliance(&fakeSource{auditCount: 25, capaOnTime: 4, capaTotal: 4})
	repo.createErr = errors.New("write concern failed")

	assessment, err := svc.RunAssessment(context.Background(), nil, "tester")
	if err != nil {
		t.Fatalf("RunAssessment() error = %v", err)
	}
	if !assessment.Degraded {
		t.Error("unpersisted assessment should be flagged degraded")
	}
	if assessment.OverallScore != 100 {
		t.Errorf("overall score = %.1f, want 100 (source data was healthy)", assessment.OverallScore)
	}
	if assessment.ComplianceGaps == nil {
		t.Error("compliance_gaps must remain a list on the persistence-failure path")
	}
}

func TestRunAssessmentModuleFilter(t *testing.T) {
	svc, _ := newTestCompliance(&fakeSource{auditCount: 25, capaOnTime: 4, capaTotal: 4})

	assessment, err := svc.RunAssessment(context.Background(), []string{"training"}, "tester")
	if err != nil {
		t.Fatalf("RunAssessment() error = %v", err)
	}
	if len(assessment.Results) != 1 {
		t.Fatalf("results = %d, want only the training rule", len(assessment.Results))
	}
	if assessment.Results[0].RuleID != "training_currency" {
		t.Errorf("rule = %q, want training_currency", assessment.Results[0].RuleID)
	}
}

func TestRunAssessmentFallbackOnSourceError(t *testing.T) {
	svc, _ := newTestCompliance(&fakeSource{
		auditCount:  25,
		trainingErr: errors.New("training store down"),
		capaOnTime:  4,
		capaTotal:   4,
	})

	assessment, err := svc.RunAssessment(context.Background(), nil, "tester")
	if err != nil {
		t.Fatalf("RunAssessment() error = %v", err)
	}
	if !assessment.Degraded {
		t.Error("assessment with a failed data source should be marked degraded")
	}
	if assessment.ComplianceGaps == nil {
		t.Error("compliance_gaps must survive the fallback path")
	}

	var trainingResult *CheckResult
	for i := range assessment.Results {
		if assessment.Results[i].RuleID == "training_currency" {
			trainingResult = &assessment.Results[i]
		}
	}
	if trainingResult == nil {
		t.Fatal("no result for training_currency")
	}
	if trainingResult.Score != fallbackScore {
		t.Errorf("fallback score = %.1f, want %.1f", trainingResult.Score, fallbackScore)
	}
	if assessment.OverallScore >= 100 {
		t.Errorf("overall score = %.1f, should reflect the fallback", assessment.OverallScore)
	}
}

func TestRunAssessmentFlagsOverdueCAPAs(t *testing.T) {
	svc, _ := newTestCompliance(&fakeSource{auditCount: 25, capaOnTime: 1, capaTotal: 4})

	assessment, err := svc.RunAssessment(context.Background(), nil, "tester")
	if err != nil {
		t.Fatalf("RunAssessment() error = %v", err)
	}

	for _, result := range assessment.Results {
		if result.RuleID != "capa_timeliness" {
			continue
		}
		if result.Score != 25 {
			t.Errorf("capa score = %.1f, want 25 (1 of 4 on time)", result.Score)
		}
		if result.Status != "fail" {
			t.Errorf("capa status = %q, want fail", result.Status)
		}
		if len(result.Violations) == 0 {
			t.Error("capa check should report violations")
		}
		if len(result.Recommendations) == 0 {
			t.Error("failing check should carry its recommendation")
		}
	}
	if len(assessment.ComplianceGaps) == 0 {
		t.Error("violations should surface in compliance_gaps")
	}
}

func TestCheckRulesSubsetAndUnknown(t *testing.T) {
	svc, _ := newTestCompliance(&fakeSource{auditCount: 25, capaOnTime: 4, capaTotal: 4})
	ctx := context.Background()

	score, violations, err := svc.CheckRules(ctx, []string{"audit_trail_integrity", "electronic_signatures"})
	if err != nil {
		t.Fatalf("CheckRules() error = %v", err)
	}
	if score != 100 {
		t.Errorf("subset score = %.1f, want 100", score)
	}
	if len(violations) != 0 {
		t.Errorf("violations = %v, want none", violations)
	}

	if _, _, err := svc.CheckRules(ctx, []string{"no_such_rule"}); err == nil {
		t.Error("CheckRules() should reject unknown rule IDs")
	}
}

func TestOverallScoreRunsAssessmentWhenEmpty(t *testing.T) {
	svc, repo := newTestCompliance(&fakeSource{auditCount: 25, capaOnTime: 4, capaTotal: 4})

	score, err := svc.OverallScore(context.Background())
	if err != nil {
		t.Fatalf("OverallScore() error = %v", err)
	}
	if score != 100 {
		t.Errorf("score = %.1f, want 100", score)
	}
	if len(repo.assessments) != 1 {
		t.Errorf("OverallScore() should persist the implicit assessment, got %d", len(repo.assessments))
	}
}

func TestStatusThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "compliant"},
		{90, "compliant"},
		{89.9, "at_risk"},
		{75, "at_risk"},
		{74.9, "non_compliant"},
	}
	for _, tt := range tests {
		if got := statusFor(tt.score); got != tt.want {
			t.Errorf("statusFor(%.1f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
