package condition

import (
	"testing"
	"time"
)

func testContext() *Context {
	ctx := NewContext()
	ctx.User = map[string]interface{}{
		"department": "quality_assurance",
		"roles":      []interface{}{"analyst", "reviewer"},
		"email":      "jane.doe@example.com",
	}
	ctx.Compliance = map[string]interface{}{
		"overall_score": 92.5,
		"open_gaps":     3,
	}
	ctx.Training = map[string]interface{}{
		"completion_rate": 0.8,
		"overdue_count":   0,
	}
	ctx.System = map[string]interface{}{
		"environment": "production",
		"now":         time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	return ctx
}

func TestEvaluateLeafOperators(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name string
		node Node
		want bool
	}{
		{
			name: "eq string",
			node: Node{Field: "user.department", Operator: OpEq, Value: "quality_assurance"},
			want: true,
		},
		{
			name: "eq numeric coercion int vs float",
			node: Node{Field: "compliance.open_gaps", Operator: OpEq, Value: 3.0},
			want: true,
		},
		{
			name: "ne",
			node: Node{Field: "system.environment", Operator: OpNe, Value: "development"},
			want: true,
		},
		{
			name: "gt",
			node: Node{Field: "compliance.overall_score", Operator: OpGt, Value: 90},
			want: true,
		},
		{
			name: "gte boundary",
			node: Node{Field: "compliance.overall_score", Operator: OpGte, Value: 92.5},
			want: true,
		},
		{
			name: "lt false",
			node: Node{Field: "compliance.overall_score", Operator: OpLt, Value: 90},
			want: false,
		},
		{
			name: "lte",
			node: Node{Field: "training.completion_rate", Operator: OpLte, Value: 0.8},
			want: true,
		},
		{
			name: "contains string",
			node: Node{Field: "user.email", Operator: OpContains, Value: "@example.com"},
			want: true,
		},
		{
			name: "not_contains list",
			node: Node{Field: "user.roles", Operator: OpNotContains, Value: "admin"},
			want: true,
		},
		{
			name: "in",
			node: Node{Field: "user.department", Operator: OpIn, Value: []interface{}{"quality_assurance", "manufacturing"}},
			want: true,
		},
		{
			name: "not_in",
			node: Node{Field: "user.department", Operator: OpNotIn, Value: []interface{}{"manufacturing"}},
			want: true,
		},
		{
			name: "regex",
			node: Node{Field: "user.email", Operator: OpRegex, Value: `^[a-z.]+@example\.com$`},
			want: true,
		},
		{
			name: "invalid regex is false not panic",
			node: Node{Field: "user.email", Operator: OpRegex, Value: `([`},
			want: false,
		},
		{
			name: "is_null on missing field",
			node: Node{Field: "custom.not_set", Operator: OpIsNull},
			want: true,
		},
		{
			name: "is_not_null",
			node: Node{Field: "compliance.overall_score", Operator: OpIsNotNull},
			want: true,
		},
		{
			name: "missing field on comparison is false",
			node: Node{Field: "quality.open_events", Operator: OpGt, Value: 0},
			want: false,
		},
		{
			name: "unknown scope is false",
			node: Node{Field: "payroll.salary", Operator: OpGt, Value: 0},
			want: false,
		},
		{
			name: "unknown operator is false",
			node: Node{Field: "user.department", Operator: "matches", Value: "x"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(&tt.node, ctx); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBetweenInclusiveBounds(t *testing.T) {
	ctx := NewContext()

	tests := []struct {
		name  string
		score interface{}
		node  Node
		want  bool
	}{
		{
			name:  "inside range",
			score: 85.0,
			node:  Node{Field: "compliance.overall_score", Operator: OpBetween, Value: []interface{}{80, 90}},
			want:  true,
		},
		{
			name:  "lower bound inclusive",
			score: 80.0,
			node:  Node{Field: "compliance.overall_score", Operator: OpBetween, Value: []interface{}{80, 90}},
			want:  true,
		},
		{
			name:  "upper bound inclusive",
			score: 90.0,
			node:  Node{Field: "compliance.overall_score", Operator: OpBetween, Value: []interface{}{80, 90}},
			want:  true,
		},
		{
			name:  "outside range",
			score: 79.9,
			node:  Node{Field: "compliance.overall_score", Operator: OpBetween, Value: []interface{}{80, 90}},
			want:  false,
		},
		{
			name:  "not_between excludes bound",
			score: 90.0,
			node:  Node{Field: "compliance.overall_score", Operator: OpNotBetween, Value: []interface{}{80, 90}},
			want:  false,
		},
		{
			name:  "not_between outside",
			score: 95.0,
			node:  Node{Field: "compliance.overall_score", Operator: OpNotBetween, Value: []interface{}{80, 90}},
			want:  true,
		},
		{
			name:  "malformed bounds is false",
			score: 85.0,
			node:  Node{Field: "compliance.overall_score", Operator: OpBetween, Value: []interface{}{80}},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx.Compliance["overall_score"] = tt.score
			if got := Evaluate(&tt.node, ctx); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateCompoundTruthTables(t *testing.T) {
	ctx := NewContext()
	ctx.System["flag_true"] = true
	ctx.System["flag_false"] = false

	leafTrue := Node{Field: "system.flag_true", Operator: OpEq, Value: true}
	leafFalse := Node{Field: "system.flag_false", Operator: OpEq, Value: true}

	tests := []struct {
		name string
		node Node
		want bool
	}{
		{"AND true true", Node{Logic: LogicAnd, Children: []Node{leafTrue, leafTrue}}, true},
		{"AND true false", Node{Logic: LogicAnd, Children: []Node{leafTrue, leafFalse}}, false},
		{"AND false false", Node{Logic: LogicAnd, Children: []Node{leafFalse, leafFalse}}, false},
		{"OR true false", Node{Logic: LogicOr, Children: []Node{leafTrue, leafFalse}}, true},
		{"OR false true", Node{Logic: LogicOr, Children: []Node{leafFalse, leafTrue}}, true},
		{"OR false false", Node{Logic: LogicOr, Children: []Node{leafFalse, leafFalse}}, false},
		{"NOT true", Node{Logic: LogicNot, Children: []Node{leafTrue}}, false},
		{"NOT false", Node{Logic: LogicNot, Children: []Node{leafFalse}}, true},
		{"NOT without child is false", Node{Logic: LogicNot}, false},
		{"empty AND is false", Node{Logic: LogicAnd}, false},
		{
			name: "nested (true AND (false OR true))",
			node: Node{Logic: LogicAnd, Children: []Node{
				leafTrue,
				{Logic: LogicOr, Children: []Node{leafFalse, leafTrue}},
			}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(&tt.node, ctx); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateTimeComparison(t *testing.T) {
	ctx := testContext()

	node := Node{
		Field:    "system.now",
		Operator: OpGt,
		Value:    "2026-01-01T00:00:00Z",
	}
	if !Evaluate(&node, ctx) {
		t.Error("expected time comparison against RFC3339 string to hold")
	}
}

func TestEvaluateNilInputs(t *testing.T) {
	if Evaluate(nil, NewContext()) {
		t.Error("nil node must evaluate false")
	}
	if Evaluate(&Node{Field: "user.x", Operator: OpEq, Value: 1}, nil) {
		t.Error("nil context must evaluate false")
	}
}
