package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Type selects the coercion applied before the generic checks run.
type Type string

const (
	TypeString Type = "string"
	TypeNumber Type = "number"
	TypeEmail  Type = "email"
	TypeURL    Type = "url"
	TypeUUID   Type = "uuid"
	TypePhone  Type = "phone"
	TypeDate   Type = "date"
)

const maxEmailLength = 254

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	phoneStrip   = regexp.MustCompile(`[^\d+]`)

	fieldValidator = validator.New()

	dateLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
		time.RFC1123Z,
		time.RFC1123,
	}
)

// Matcher is satisfied by *regexp.Regexp and by [MatchFunc].
type Matcher interface {
	MatchString(s string) bool
}

// MatchFunc adapts a predicate to [Matcher] for patterns RE2 cannot express.
type MatchFunc func(string) bool

func (f MatchFunc) MatchString(s string) bool { return f(s) }

// Rule declares how a single field is checked and normalized.
type Rule struct {
	Required  bool
	Type      Type
	MinLength int
	MaxLength int
	Min       *float64
	Max       *float64
	Pattern   Matcher
	Allowed   []any
	Custom    func(any) bool
	Sanitize  bool
}

// Result is the outcome of [ValidateInput]. SanitizedValue is nil unless IsValid.
type Result struct {
	IsValid        bool     `json:"isValid"`
	Errors         []string `json:"errors"`
	SanitizedValue any      `json:"sanitizedValue,omitempty"`
}

// Float is a convenience for the Min/Max bounds.
func Float(v float64) *float64 {
	return &v
}

// ValidateInput checks value against rule. Type failures and every later
// check append their own message; only a missing required value short-circuits.
func ValidateInput(value any, rule Rule) Result {
	if isMissing(value) {
		if rule.Required {
			return Result{IsValid: false, Errors: []string{"This field is required"}}
		}
		return Result{IsValid: true, Errors: []string{}, SanitizedValue: value}
	}

	errs := make([]string, 0, 2)
	sanitized := value

	switch rule.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			errs = append(errs, "Must be a string")
			break
		}
		if rule.Sanitize {
			sanitized = SanitizeString(s)
		}
	case TypeNumber:
		n, ok := toNumber(value)
		if !ok {
			errs = append(errs, "Must be a valid number")
			break
		}
		sanitized = n
	case TypeEmail:
		s, ok := value.(string)
		if !ok || !validEmail(s) {
			errs = append(errs, "Must be a valid email address")
			break
		}
		sanitized = strings.TrimSpace(strings.ToLower(s))
	case TypeURL:
		s, ok := value.(string)
		if !ok || fieldValidator.Var(strings.TrimSpace(s), "url") != nil {
			errs = append(errs, "Must be a valid URL")
			break
		}
		sanitized = strings.TrimSpace(s)
	case TypeUUID:
		s, ok := value.(string)
		if !ok || !validUUID(s) {
			errs = append(errs, "Must be a valid UUID")
		}
	case TypePhone:
		s, ok := value.(string)
		if !ok {
			errs = append(errs, "Must be a valid phone number")
			break
		}
		phone := phoneStrip.ReplaceAllString(s, "")
		if !phonePattern.MatchString(phone) {
			errs = append(errs, "Must be a valid phone number")
			break
		}
		sanitized = phone
	case TypeDate:
		t, ok := toTime(value)
		if !ok {
			errs = append(errs, "Must be a valid date")
			break
		}
		sanitized = t.UTC().Format("2006-01-02T15:04:05.000Z")
	}

	if s, ok := sanitized.(string); ok {
		length := utf8.RuneCountInString(s)
		if rule.MinLength > 0 && length < rule.MinLength {
			errs = append(errs, fmt.Sprintf("Must be at least %d characters", rule.MinLength))
		}
		if rule.MaxLength > 0 && length > rule.MaxLength {
			errs = append(errs, fmt.Sprintf("Must be no more than %d characters", rule.MaxLength))
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(s) {
			errs = append(errs, "Invalid format")
		}
	}

	if n, ok := sanitized.(float64); ok {
		if rule.Min != nil && n < *rule.Min {
			errs = append(errs, "Must be at least "+formatNumber(*rule.Min))
		}
		if rule.Max != nil && n > *rule.Max {
			errs = append(errs, "Must be no more than "+formatNumber(*rule.Max))
		}
	}

	if len(rule.Allowed) > 0 && !containsValue(rule.Allowed, sanitized) {
		parts := make([]string, 0, len(rule.Allowed))
		for _, v := range rule.Allowed {
			parts = append(parts, fmt.Sprint(v))
		}
		errs = append(errs, "Must be one of: "+strings.Join(parts, ", "))
	}

	if rule.Custom != nil && !rule.Custom(sanitized) {
		errs = append(errs, "Invalid value")
	}

	if len(errs) > 0 {
		return Result{IsValid: false, Errors: errs}
	}
	return Result{IsValid: true, Errors: errs, SanitizedValue: sanitized}
}

func isMissing(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

func validEmail(s string) bool {
	return len(s) <= maxEmailLength && emailPattern.MatchString(s)
}

// validUUID accepts the canonical 8-4-4-4-12 form with version 1-5 and the
// RFC 4122 variant, in either case.
func validUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	v := id.Version()
	return v >= 1 && v <= 5 && id.Variant() == uuid.RFC4122
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		ms, ok := toNumber(value)
		if !ok {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)), true
	}
}

func containsValue(allowed []any, v any) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
