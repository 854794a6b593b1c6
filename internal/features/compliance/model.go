package compliance

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplianceRule is one entry of the static rule catalog. Rules are
// compiled in; assessments reference them by ID. LastChecked mutates in
// place when the rule is evaluated.
type ComplianceRule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Regulation  string     `json:"regulation"` // CFR11, ISO13485, ALCOA+
	Module      string     `json:"module"`     // audit, edms, lims, training, quality
	Severity    string     `json:"severity"`   // critical, major, minor
	Frequency   string     `json:"frequency"`  // continuous, daily, weekly
	Weight      float64    `json:"weight"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// CheckResult is the outcome of evaluating one rule.
type CheckResult struct {
	RuleID          string   `bson:"rule_id" json:"rule_id"`
	RuleName        string   `bson:"rule_name" json:"rule_name"`
	Status          string   `bson:"status" json:"status"` // pass, warn, fail
	Score           float64  `bson:"score" json:"score"`
	Violations      []string `bson:"violations,omitempty" json:"violations,omitempty"`
	Recommendations []string `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
}

// Assessment is a compliance snapshot. OverallScore and ComplianceGaps
// are always present, including on the degraded fallback path.
type Assessment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Modules        []string           `bson:"modules,omitempty" json:"modules,omitempty"`
	OverallScore   float64            `bson:"overall_score" json:"overall_score"`
	Status         string             `bson:"status" json:"status"` // compliant, at_risk, non_compliant
	ComplianceGaps []string           `bson:"compliance_gaps" json:"compliance_gaps"`
	Degraded       bool               `bson:"degraded" json:"degraded"`
	Results        []CheckResult      `bson:"results" json:"results"`
	GeneratedBy    string             `bson:"generated_by" json:"generated_by"`
	GeneratedAt    time.Time          `bson:"generated_at" json:"generated_at"`
}

// Status thresholds for the overall score.
const (
	compliantThreshold = 90.0
	atRiskThreshold    = 75.0
)

func statusFor(score float64) string {
	switch {
	case score >= compliantThreshold:
		return "compliant"
	case score >= atRiskThreshold:
		return "at_risk"
	default:
		return "non_compliant"
	}
}

func resultStatus(score float64) string {
	switch {
	case score >= compliantThreshold:
		return "pass"
	case score >= atRiskThreshold:
		return "warn"
	default:
		return "fail"
	}
}
