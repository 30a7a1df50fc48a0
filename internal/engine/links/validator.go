package links

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"linkroute/internal/engine/routing"
)

var validate = validator.New()

// ValidationError carries the individual problems found on a link.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidLink, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidLink }

// ValidateLink checks a fully-populated link before it is persisted. Invalid
// routing rules are reported as a *routing.RulesError.
func ValidateLink(link *Link) error {
	var problems []string

	if err := validate.Struct(link); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	switch link.Kind {
	case KindURL, KindQR:
		if link.LongURL == "" {
			problems = append(problems, "longUrl is required")
		}
	case KindText:
		if strings.TrimSpace(link.TextContent) == "" {
			problems = append(problems, "textContent is required for text links")
		}
		if len(link.MultipleDestinationRules) > 0 {
			problems = append(problems, "text links cannot carry destination rules")
		}
	}

	if s := link.ScheduledRedirect; s != nil && s.Enabled {
		if s.StartDate == nil && s.EndDate == nil {
			problems = append(problems, "scheduledRedirect needs a startDate or an endDate")
		}
		if s.StartDate != nil && s.EndDate != nil && !s.StartDate.Before(*s.EndDate) {
			problems = append(problems, "scheduledRedirect startDate must be before endDate")
		}
	}

	if e := link.Expiration; e != nil && e.Enabled && e.ExpireAt == nil {
		problems = append(problems, "expiration.expireAt is required when expiration is enabled")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return routing.ValidateRules(link.MultipleDestinationRules)
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "http_url":
		return fmt.Sprintf("%s must be an absolute http(s) URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
