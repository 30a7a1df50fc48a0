package routing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() Rule {
	return Rule{
		ID:          "rule_1",
		Destination: "https://jp.example.com/landing?x=1",
		Conditions: []Condition{
			{FieldCountry, OpEq, "Japan"},
			{FieldTime, OpBetween, "06:00-12:00"},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	res := Validate(validRule())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Reasons)
}

func TestValidate_NoConditionsIsCatchAll(t *testing.T) {
	r := validRule()
	r.Conditions = nil
	res := Validate(r)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Reasons)

	r.Conditions = []Condition{}
	assert.True(t, Validate(r).Valid)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rule)
		reason string
	}{
		{"missing destination", func(r *Rule) { r.Destination = "" }, "destination is required"},
		{"blank destination", func(r *Rule) { r.Destination = "   " }, "destination is required"},
		{"relative destination", func(r *Rule) { r.Destination = "/landing" }, "destination must be an absolute http(s) URL"},
		{"non http scheme", func(r *Rule) { r.Destination = "javascript:alert(1)" }, "destination must be an absolute http(s) URL"},
		{"empty value", func(r *Rule) { r.Conditions[0].Value = "" }, "condition 1: value is required"},
		{"empty in list", func(r *Rule) { r.Conditions[0] = Condition{FieldOS, OpIn, " , "} }, "condition 1: in list needs at least one value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)
			res := Validate(r)
			assert.False(t, res.Valid)
			assert.Contains(t, res.Reasons, tt.reason)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	r := Rule{
		Destination: "",
		Conditions: []Condition{
			{FieldTime, OpEq, "09:00"},
			{"city", OpEq, "Paris"},
			{FieldOS, OpEq, ""},
		},
	}
	res := Validate(r)
	require.False(t, res.Valid)
	assert.Len(t, res.Reasons, 4)
}

func TestValidateRules(t *testing.T) {
	assert.NoError(t, ValidateRules(nil))
	assert.NoError(t, ValidateRules([]Rule{validRule()}))

	bad := validRule()
	bad.ID = "rule_bad"
	bad.Destination = ""
	err := ValidateRules([]Rule{validRule(), bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRule))

	var rerr *RulesError
	require.True(t, errors.As(err, &rerr))
	require.Len(t, rerr.Issues, 1)
	assert.Equal(t, 1, rerr.Issues[0].Index)
	assert.Equal(t, RuleID("rule_bad"), rerr.Issues[0].ID)
}

func TestValidateRules_TooMany(t *testing.T) {
	rules := make([]Rule, MaxRules+1)
	for i := range rules {
		rules[i] = validRule()
	}
	assert.ErrorIs(t, ValidateRules(rules), ErrInvalidRule)
}

func TestOperatorsFor(t *testing.T) {
	assert.Equal(t, []Operator{OpBetween}, OperatorsFor(FieldTime))
	assert.Equal(t, []Operator{OpEq, OpNeq, OpIn}, OperatorsFor(FieldOS))
	assert.Nil(t, OperatorsFor("planet"))
	assert.Len(t, Fields(), 6)
}
