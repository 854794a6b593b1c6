package compliance

import (
	"context"
	"fmt"
	"time"

	common_models "go-qms/internal/common/models"
	"go-qms/internal/features/audit"
	"go-qms/pkg/condition"

	"go.uber.org/zap"
)

type ComplianceService interface {
	// RunAssessment evaluates the catalog rules for the requested
	// modules (all when empty) and persists the snapshot. A rule whose
	// data source fails contributes the fallback score and marks the
	// assessment degraded; the response shape survives failure.
	RunAssessment(ctx context.Context, modules []string, generatedBy string) (*Assessment, error)
	LatestAssessment(ctx context.Context) (*Assessment, error)
	ListAssessments(ctx context.Context, limit int64) ([]Assessment, error)
	ListRules() []ComplianceRule

	// CheckRules evaluates a subset of rules without persisting;
	// empty ruleIDs means the whole catalog.
	CheckRules(ctx context.Context, ruleIDs []string) (float64, []string, error)

	// OverallScore returns the latest persisted score, running a fresh
	// assessment when none exists yet.
	OverallScore(ctx context.Context) (float64, error)

	// Validate evaluates a condition tree against a caller-supplied
	// context, the primitive behind ad-hoc compliance probes.
	Validate(node *condition.Node, ectx *condition.Context) bool
}

type ComplianceServiceImpl struct {
	Assessments AssessmentRepository
	Source      DataSource
	Audit       audit.AuditService
	Logger      *zap.Logger
}

func NewComplianceService(
	assessments AssessmentRepository,
	source DataSource,
	auditService audit.AuditService,
	logger *zap.Logger,
) ComplianceService {
	return &ComplianceServiceImpl{
		Assessments: assessments,
		Source:      source,
		Audit:       auditService,
		Logger:      logger,
	}
}

func (s *ComplianceServiceImpl) RunAssessment(ctx context.Context, modules []string, generatedBy string) (*Assessment, error) {
	selected := rulesForModules(modules)
	results, overall, degraded := s.evaluate(ctx, selected)

	gaps := []string{}
	for _, result := range results {
		gaps = append(gaps, result.Violations...)
	}

	assessment := &Assessment{
		Modules:        modules,
		OverallScore:   overall,
		Status:         statusFor(overall),
		ComplianceGaps: gaps,
		Degraded:       degraded,
		Results:        results,
		GeneratedBy:    generatedBy,
	}
	// The response shape survives a persistence failure; the caller
	// still gets the computed score and gaps, flagged degraded.
	if err := s.Assessments.Create(ctx, assessment); err != nil {
		s.Logger.Warn("assessment not persisted", zap.Error(err))
		assessment.Degraded = true
		return assessment, nil
	}

	s.Audit.LogChange(ctx, common_models.AuditActionCompliance, "compliance_assessments", assessment.ID.Hex(), map[string]common_models.Change{
		"assessment": {New: fmt.Sprintf("score %.1f (%s)", overall, assessment.Status)},
	})
	return assessment, nil
}

func rulesForModules(modules []string) []rule {
	if len(modules) == 0 {
		return catalog
	}
	wanted := map[string]bool{}
	for _, m := range modules {
		wanted[m] = true
	}
	var selected []rule
	for _, r := range catalog {
		if wanted[r.Module] {
			selected = append(selected, r)
		}
	}
	return selected
}

func (s *ComplianceServiceImpl) evaluate(ctx context.Context, rules []rule) ([]CheckResult, float64, bool) {
	results := make([]CheckResult, 0, len(rules))
	var weightedSum, totalWeight float64
	degraded := false

	for i := range rules {
		r := &rules[i]
		score, violations, err := r.check(ctx, s.Source)
		if err != nil {
			s.Logger.Warn("compliance check data source failed",
				zap.String("rule", r.ID),
				zap.Error(err),
			)
			score = fallbackScore
			violations = nil
			degraded = true
		}

		now := time.Now()
		markChecked(r.ID, now)

		result := CheckResult{
			RuleID:     r.ID,
			RuleName:   r.Name,
			Status:     resultStatus(score),
			Score:      score,
			Violations: violations,
		}
		if len(violations) > 0 && r.recommendation != "" {
			result.Recommendations = []string{r.recommendation}
		}
		results = append(results, result)
		weightedSum += score * r.Weight
		totalWeight += r.Weight
	}

	if totalWeight == 0 {
		return results, fallbackScore, degraded
	}
	return results, weightedSum / totalWeight, degraded
}

// markChecked mutates the catalog entry's last-checked timestamp.
func markChecked(ruleID string, t time.Time) {
	for i := range catalog {
		if catalog[i].ID == ruleID {
			catalog[i].LastChecked = &t
			return
		}
	}
}

func (s *ComplianceServiceImpl) LatestAssessment(ctx context.Context) (*Assessment, error) {
	return s.Assessments.Latest(ctx)
}

func (s *ComplianceServiceImpl) ListAssessments(ctx context.Context, limit int64) ([]Assessment, error) {
	return s.Assessments.List(ctx, limit)
}

func (s *ComplianceServiceImpl) ListRules() []ComplianceRule {
	return Catalog()
}

func (s *ComplianceServiceImpl) CheckRules(ctx context.Context, ruleIDs []string) (float64, []string, error) {
	selected := catalog
	if len(ruleIDs) > 0 {
		selected = nil
		wanted := map[string]bool{}
		for _, id := range ruleIDs {
			wanted[id] = true
		}
		for _, r := range catalog {
			if wanted[r.ID] {
				selected = append(selected, r)
				delete(wanted, r.ID)
			}
		}
		for id := range wanted {
			return 0, nil, fmt.Errorf("unknown compliance rule %q", id)
		}
	}

	results, overall, _ := s.evaluate(ctx, selected)
	var violations []string
	for _, result := range results {
		violations = append(violations, result.Violations...)
	}
	return overall, violations, nil
}

func (s *ComplianceServiceImpl) OverallScore(ctx context.Context) (float64, error) {
	latest, err := s.Assessments.Latest(ctx)
	if err != nil {
		return 0, err
	}
	if latest != nil {
		return latest.OverallScore, nil
	}

	assessment, err := s.RunAssessment(ctx, nil, "system")
	if err != nil {
		return 0, err
	}
	return assessment.OverallScore, nil
}

func (s *ComplianceServiceImpl) Validate(node *condition.Node, ectx *condition.Context) bool {
	return condition.Evaluate(node, ectx)
}
