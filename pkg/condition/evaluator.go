package condition

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type Operator string

const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpRegex       Operator = "regex"
	OpIsNull      Operator = "is_null"
	OpIsNotNull   Operator = "is_not_null"
	OpBetween     Operator = "between"
	OpNotBetween  Operator = "not_between"
)

type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
	LogicNot Logic = "NOT"
)

// Node is one node of a condition tree. A leaf carries Field/Operator/
// Value; a compound carries Logic and Children.
type Node struct {
	Field    string      `bson:"field,omitempty" json:"field,omitempty"`
	Operator Operator    `bson:"operator,omitempty" json:"operator,omitempty"`
	Value    interface{} `bson:"value,omitempty" json:"value,omitempty"`

	Logic    Logic  `bson:"logic,omitempty" json:"logic,omitempty"`
	Children []Node `bson:"children,omitempty" json:"children,omitempty"`
}

func (n *Node) isCompound() bool {
	return n.Logic != ""
}

// Evaluate interprets a condition tree against a context. Any failure
// during evaluation (unknown operator, missing field on a comparison,
// type mismatch, invalid regex) yields false; there is no partial-failure
// signal.
func Evaluate(node *Node, ctx *Context) bool {
	if node == nil || ctx == nil {
		return false
	}

	if node.isCompound() {
		return evaluateCompound(node, ctx)
	}
	return evaluateLeaf(node, ctx)
}

func evaluateCompound(node *Node, ctx *Context) bool {
	switch node.Logic {
	case LogicAnd:
		if len(node.Children) == 0 {
			return false
		}
		for i := range node.Children {
			if !Evaluate(&node.Children[i], ctx) {
				return false
			}
		}
		return true
	case LogicOr:
		for i := range node.Children {
			if Evaluate(&node.Children[i], ctx) {
				return true
			}
		}
		return false
	case LogicNot:
		if len(node.Children) == 0 {
			return false
		}
		return !Evaluate(&node.Children[0], ctx)
	default:
		return false
	}
}

func evaluateLeaf(node *Node, ctx *Context) bool {
	val, found := ctx.Lookup(node.Field)

	switch node.Operator {
	case OpIsNull:
		return !found || val == nil
	case OpIsNotNull:
		return found && val != nil
	}

	if !found {
		return false
	}

	switch node.Operator {
	case OpEq:
		return compareEq(val, node.Value)
	case OpNe:
		return !compareEq(val, node.Value)
	case OpGt:
		cmp, err := compareOrder(val, node.Value)
		return err == nil && cmp > 0
	case OpGte:
		cmp, err := compareOrder(val, node.Value)
		return err == nil && cmp >= 0
	case OpLt:
		cmp, err := compareOrder(val, node.Value)
		return err == nil && cmp < 0
	case OpLte:
		cmp, err := compareOrder(val, node.Value)
		return err == nil && cmp <= 0
	case OpContains:
		return contains(val, node.Value)
	case OpNotContains:
		return !contains(val, node.Value)
	case OpIn:
		return inList(val, node.Value)
	case OpNotIn:
		return !inList(val, node.Value)
	case OpRegex:
		pattern, ok := node.Value.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(fmt.Sprintf("%v", val))
	case OpBetween:
		in, err := between(val, node.Value)
		return err == nil && in
	case OpNotBetween:
		in, err := between(val, node.Value)
		return err == nil && !in
	default:
		return false
	}
}

func compareEq(a, b interface{}) bool {
	if fa, fb, ok := asFloats(a, b); ok {
		return fa == fb
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// compareOrder returns -1/0/1 for a<b, a==b, a>b. Numbers compare
// numerically, times chronologically, everything else lexically.
func compareOrder(a, b interface{}) (int, error) {
	if fa, fb, ok := asFloats(a, b); ok {
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		default:
			return 0, nil
		}
	}

	if ta, tb, ok := asTimes(a, b); ok {
		switch {
		case ta.Before(tb):
			return -1, nil
		case ta.After(tb):
			return 1, nil
		default:
			return 0, nil
		}
	}

	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), nil
	}

	return 0, fmt.Errorf("values are not comparable: %T vs %T", a, b)
}

func asFloats(a, b interface{}) (float64, float64, bool) {
	fa, aok := asFloat(a)
	fb, bok := asFloat(b)
	return fa, fb, aok && bok
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asTimes(a, b interface{}) (time.Time, time.Time, bool) {
	ta, aok := asTime(a)
	tb, bok := asTime(b)
	return ta, tb, aok && bok
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func contains(val, target interface{}) bool {
	switch v := val.(type) {
	case string:
		t, ok := target.(string)
		return ok && strings.Contains(v, t)
	case []interface{}:
		for _, item := range v {
			if compareEq(item, target) {
				return true
			}
		}
		return false
	case []string:
		t := fmt.Sprintf("%v", target)
		for _, item := range v {
			if item == t {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func inList(val, list interface{}) bool {
	switch l := list.(type) {
	case []interface{}:
		for _, item := range l {
			if compareEq(val, item) {
				return true
			}
		}
	case []string:
		s := fmt.Sprintf("%v", val)
		for _, item := range l {
			if item == s {
				return true
			}
		}
	}
	return false
}

// between expects bounds as a two-element list; both bounds are inclusive.
func between(val, bounds interface{}) (bool, error) {
	list, ok := bounds.([]interface{})
	if !ok || len(list) != 2 {
		return false, fmt.Errorf("between requires a [low, high] pair")
	}

	low, err := compareOrder(val, list[0])
	if err != nil {
		return false, err
	}
	high, err := compareOrder(val, list[1])
	if err != nil {
		return false, err
	}

	return low >= 0 && high <= 0, nil
}
