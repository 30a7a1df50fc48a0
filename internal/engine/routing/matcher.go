package routing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyValue           = errors.New("condition value is empty")
	ErrUnknownField         = errors.New("unknown condition field")
	ErrUnknownOperator      = errors.New("unknown condition operator")
	ErrIncompatibleOperator = errors.New("operator not supported for field")
	ErrEmptyList            = errors.New("in list has no values")
)

// Predicate is a compiled condition. The only implementations are
// AttributePredicate and TimeWindowPredicate, built by CompileCondition.
type Predicate interface {
	Match(ctx VisitorContext) bool
	predicate()
}

// AttributePredicate tests a string attribute for membership in Values.
// eq compiles to a single value, in to several, neq to a negated single value.
type AttributePredicate struct {
	Field  Field
	Values []string
	Negate bool
}

func (p AttributePredicate) predicate() {}

func (p AttributePredicate) Match(ctx VisitorContext) bool {
	v := ctx.Get(p.Field)
	if v == "" {
		return false
	}
	hit := false
	for _, want := range p.Values {
		if v == want {
			hit = true
			break
		}
	}
	if p.Negate {
		return !hit
	}
	return hit
}

// TimeWindowPredicate tests the visitor's local clock against a window.
type TimeWindowPredicate struct {
	Window TimeRange
}

func (p TimeWindowPredicate) predicate() {}

func (p TimeWindowPredicate) Match(ctx VisitorContext) bool {
	if ctx.LocalTime == "" {
		return false
	}
	m, err := ParseClock(ctx.LocalTime)
	if err != nil {
		return false
	}
	return p.Window.Contains(m)
}

// CompileCondition turns a wire condition into a Predicate, rejecting any
// condition that could not match meaningfully.
func CompileCondition(c Condition) (Predicate, error) {
	if c.Value == "" {
		return nil, ErrEmptyValue
	}
	if _, ok := fieldOperators[c.Field]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, c.Field)
	}
	switch c.Operator {
	case OpEq, OpNeq, OpIn, OpBetween:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, c.Operator)
	}
	if !Compatible(c.Field, c.Operator) {
		return nil, fmt.Errorf("%w: %s does not support %s", ErrIncompatibleOperator, c.Field, c.Operator)
	}

	switch c.Operator {
	case OpEq:
		return AttributePredicate{Field: c.Field, Values: []string{c.Value}}, nil
	case OpNeq:
		return AttributePredicate{Field: c.Field, Values: []string{c.Value}, Negate: true}, nil
	case OpIn:
		values := SplitList(c.Value)
		if len(values) == 0 {
			return nil, ErrEmptyList
		}
		return AttributePredicate{Field: c.Field, Values: values}, nil
	default:
		window, err := ParseTimeRange(c.Value)
		if err != nil {
			return nil, err
		}
		if window.Start == window.End {
			return nil, fmt.Errorf("%w: window %s is empty", ErrInvalidTimeRange, c.Value)
		}
		return TimeWindowPredicate{Window: window}, nil
	}
}

// SplitList splits an in-list on commas, trimming items and dropping empty ones.
func SplitList(value string) []string {
	var out []string
	for _, piece := range strings.Split(value, ",") {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// Matches evaluates a single condition against ctx. Malformed conditions never match.
func Matches(c Condition, ctx VisitorContext) bool {
	p, err := CompileCondition(c)
	if err != nil {
		return false
	}
	return p.Match(ctx)
}
