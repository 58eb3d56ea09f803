// Package validate implements declarative, schema-less validation of request
// payloads. Rules are pure input->report checks with no side effects; the
// full list of field errors is reported at once rather than failing on the
// first.
package validate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"

	"github.com/google/uuid"

	"github.com/pitstopcrm/gateway/internal/model"
)

// Type tags a rule's expected value shape. JSON numbers arrive as float64;
// the Number tag accepts integral and fractional values alike.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
	TypeEmail   Type = "email"
	TypeUUID    Type = "uuid"
)

// Rule describes the constraints on one payload field. Zero-valued bounds
// are not enforced; nil Pattern and Check are skipped.
type Rule struct {
	Field    string
	Type     Type
	Required bool
	MinLen   int // strings and arrays
	MaxLen   int
	Min      *float64 // numbers
	Max      *float64
	Pattern  *regexp.Regexp
	Check    func(value any) error // custom predicate, nil error means pass
}

// FieldError names one failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the full validation report for a payload.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Validate applies every rule to the payload and reports all failures.
func Validate(payload map[string]any, rules []Rule) Result {
	var errs []FieldError
	for _, rule := range rules {
		errs = append(errs, applyRule(payload, rule)...)
	}
	return Result{Valid: len(errs) == 0, Errors: errs}
}

func applyRule(payload map[string]any, rule Rule) []FieldError {
	value, present := payload[rule.Field]
	if !present || value == nil {
		if rule.Required {
			return []FieldError{{Field: rule.Field, Message: "field is required"}}
		}
		return nil
	}

	var errs []FieldError
	fail := func(format string, args ...any) {
		errs = append(errs, FieldError{Field: rule.Field, Message: fmt.Sprintf(format, args...)})
	}

	switch rule.Type {
	case TypeString, TypeEmail, TypeUUID, "":
		s, ok := value.(string)
		if !ok {
			fail("must be a string")
			return errs
		}
		if rule.Type == TypeEmail {
			if _, err := mail.ParseAddress(s); err != nil {
				fail("must be a valid email address")
			}
		}
		if rule.Type == TypeUUID {
			if uuid.Validate(s) != nil {
				fail("must be a valid UUID")
			}
		}
		if rule.MinLen > 0 && len(s) < rule.MinLen {
			fail("must be at least %d characters", rule.MinLen)
		}
		if rule.MaxLen > 0 && len(s) > rule.MaxLen {
			fail("must be at most %d characters", rule.MaxLen)
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(s) {
			fail("does not match required pattern")
		}

	case TypeNumber:
		n, ok := toFloat(value)
		if !ok {
			fail("must be a number")
			return errs
		}
		if rule.Min != nil && n < *rule.Min {
			fail("must be >= %v", *rule.Min)
		}
		if rule.Max != nil && n > *rule.Max {
			fail("must be <= %v", *rule.Max)
		}

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			fail("must be a boolean")
			return errs
		}

	case TypeArray:
		arr, ok := value.([]any)
		if !ok {
			fail("must be an array")
			return errs
		}
		if rule.MinLen > 0 && len(arr) < rule.MinLen {
			fail("must have at least %d items", rule.MinLen)
		}
		if rule.MaxLen > 0 && len(arr) > rule.MaxLen {
			fail("must have at most %d items", rule.MaxLen)
		}

	case TypeObject:
		if _, ok := value.(map[string]any); !ok {
			fail("must be an object")
			return errs
		}
	}

	if rule.Check != nil {
		if err := rule.Check(value); err != nil {
			fail("%s", err.Error())
		}
	}
	return errs
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ParseAndValidate decodes the request body as a JSON object and validates
// it against the rules. A malformed body yields BAD_REQUEST; any failed rule
// yields VALIDATION_ERROR carrying the full field-error list in Details.
func ParseAndValidate(r *http.Request, rules []Rule) (map[string]any, *model.APIError) {
	defer r.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil, model.ErrBadRequest("request body must be a JSON object")
	}

	if result := Validate(payload, rules); !result.Valid {
		return nil, model.ErrValidation(result.Errors)
	}
	return payload, nil
}
