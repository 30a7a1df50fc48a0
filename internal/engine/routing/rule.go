package routing

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// Field names a visitor attribute a condition can test.
type Field string

const (
	FieldCountry  Field = "country"
	FieldLanguage Field = "language"
	FieldOS       Field = "os"
	FieldDevice   Field = "device"
	FieldBrowser  Field = "browser"
	FieldTime     Field = "time"
)

// Operator is the comparison applied between a visitor attribute and a condition value.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpIn      Operator = "in"
	OpBetween Operator = "between"
)

var fieldOperators = map[Field][]Operator{
	FieldCountry:  {OpEq, OpNeq, OpIn},
	FieldLanguage: {OpEq, OpNeq, OpIn},
	FieldOS:       {OpEq, OpNeq, OpIn},
	FieldDevice:   {OpEq, OpNeq, OpIn},
	FieldBrowser:  {OpEq, OpNeq, OpIn},
	FieldTime:     {OpBetween},
}

// Fields returns the supported fields in display order.
func Fields() []Field {
	return []Field{FieldCountry, FieldLanguage, FieldOS, FieldDevice, FieldBrowser, FieldTime}
}

// OperatorsFor returns the operators allowed on f, or nil for an unknown field.
func OperatorsFor(f Field) []Operator {
	ops, ok := fieldOperators[f]
	if !ok {
		return nil
	}
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// Compatible reports whether op may be used with f.
func Compatible(f Field, op Operator) bool {
	for _, allowed := range fieldOperators[f] {
		if allowed == op {
			return true
		}
	}
	return false
}

// Closed option sets offered to link owners and produced by the visitor extractor.
var (
	OSOptions      = []string{"Windows", "macOS", "Linux", "Android", "iOS", "Windows Phone", "Chrome OS"}
	DeviceOptions  = []string{"desktop", "mobile", "tablet", "bot", "tv", "console"}
	BrowserOptions = []string{"Chrome", "Firefox", "Safari", "Edge", "Opera", "Samsung Internet", "Internet Explorer", "Brave", "Vivaldi", "UC Browser"}
)

// Condition is a single predicate over one visitor attribute.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// RuleID accepts both the numeric ids generated by browsers and durable string ids.
type RuleID string

func (id *RuleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RuleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("rule id must be a string or a number")
	}
	if i, err := n.Int64(); err == nil {
		*id = RuleID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = RuleID(n.String())
	return nil
}

// Rule routes matching visitors to Destination. Conditions are AND-ed.
type Rule struct {
	ID          RuleID      `json:"id"`
	Destination string      `json:"destination"`
	Priority    int         `json:"priority"`
	Conditions  []Condition `json:"conditions"`
}
