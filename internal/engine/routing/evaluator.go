package routing

import "sort"

// Result reports which destination a visitor was routed to.
type Result struct {
	Destination string `json:"destination"`
	RuleID      RuleID `json:"matchedRuleId,omitempty"`
	Matched     bool   `json:"matched"`
}

type compiledRule struct {
	id          RuleID
	destination string
	predicates  []Predicate
}

// RuleSet is an immutable, pre-compiled and ordered rule list. It is safe for
// concurrent use.
type RuleSet struct {
	rules []compiledRule
}

// NewRuleSet compiles rules, dropping invalid ones, and orders them by
// ascending priority with list order breaking ties.
func NewRuleSet(rules []Rule) *RuleSet {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	rs := &RuleSet{rules: make([]compiledRule, 0, len(ordered))}
	for _, r := range ordered {
		if !Validate(r).Valid {
			continue
		}
		cr := compiledRule{id: r.ID, destination: r.Destination}
		for _, c := range r.Conditions {
			p, _ := CompileCondition(c)
			cr.predicates = append(cr.predicates, p)
		}
		rs.rules = append(rs.rules, cr)
	}
	return rs
}

// Len returns the number of rules that survived compilation.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Evaluate returns the destination of the first rule whose conditions all
// match ctx, or defaultDestination when none does.
func (rs *RuleSet) Evaluate(ctx VisitorContext, defaultDestination string) Result {
	if rs != nil {
	next:
		for _, r := range rs.rules {
			for _, p := range r.predicates {
				if !p.Match(ctx) {
					continue next
				}
			}
			return Result{Destination: r.destination, RuleID: r.id, Matched: true}
		}
	}
	return Result{Destination: defaultDestination}
}

// Evaluate resolves the destination for ctx using first-match-wins semantics.
func Evaluate(rules []Rule, ctx VisitorContext, defaultDestination string) string {
	return EvaluateDetailed(rules, ctx, defaultDestination).Destination
}

// EvaluateDetailed is Evaluate but also reports the matching rule.
func EvaluateDetailed(rules []Rule, ctx VisitorContext, defaultDestination string) Result {
	if len(rules) == 0 {
		return Result{Destination: defaultDestination}
	}
	return NewRuleSet(rules).Evaluate(ctx, defaultDestination)
}
