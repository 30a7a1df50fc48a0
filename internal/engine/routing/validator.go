package routing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxRules bounds the number of rules one link may carry.
const MaxRules = 50

var ErrInvalidRule = errors.New("invalid routing rule")

var validate = validator.New()

// ValidationResult is the outcome of checking one rule.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons,omitempty"`
}

// Validate checks a rule's shape. It is the authoritative check applied
// before rules are persisted.
func Validate(rule Rule) ValidationResult {
	var reasons []string

	switch {
	case strings.TrimSpace(rule.Destination) == "":
		reasons = append(reasons, "destination is required")
	case validate.Var(rule.Destination, "http_url") != nil:
		reasons = append(reasons, "destination must be an absolute http(s) URL")
	}

	for i, c := range rule.Conditions {
		if _, err := CompileCondition(c); err != nil {
			reasons = append(reasons, fmt.Sprintf("condition %d: %s", i+1, conditionReason(err)))
		}
	}

	return ValidationResult{Valid: len(reasons) == 0, Reasons: reasons}
}

func conditionReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyValue):
		return "value is required"
	case errors.Is(err, ErrEmptyList):
		return "in list needs at least one value"
	}
	return err.Error()
}

// RuleIssue describes why one rule in a list was rejected.
type RuleIssue struct {
	Index   int      `json:"index"`
	ID      RuleID   `json:"id,omitempty"`
	Reasons []string `json:"reasons"`
}

// RulesError lists every invalid rule in a submitted set.
type RulesError struct {
	Issues []RuleIssue
}

func (e *RulesError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, fmt.Sprintf("rule %d: %s", is.Index+1, strings.Join(is.Reasons, "; ")))
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRule, strings.Join(parts, " | "))
}

func (e *RulesError) Unwrap() error { return ErrInvalidRule }

// ValidateRules validates a whole rule list and returns a *RulesError when any
// rule is invalid.
func ValidateRules(rules []Rule) error {
	if len(rules) > MaxRules {
		return &RulesError{Issues: []RuleIssue{{
			Index:   MaxRules,
			Reasons: []string{fmt.Sprintf("at most %d rules are allowed", MaxRules)},
		}}}
	}
	var issues []RuleIssue
	for i, r := range rules {
		if res := Validate(r); !res.Valid {
			issues = append(issues, RuleIssue{Index: i, ID: r.ID, Reasons: res.Reasons})
		}
	}
	if len(issues) > 0 {
		return &RulesError{Issues: issues}
	}
	return nil
}
