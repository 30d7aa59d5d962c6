// Package schema provides declarative request schemas. Each API operation
// declares one schema; validation runs before any side effect and reports
// every violation at once, not just the first.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/devportal/internal/core/domain"
)

// =============================================================================
// Field Types
// =============================================================================

type FieldType int

const (
	TypeString FieldType = iota
	TypeBool
	TypeInt
	TypeStringList
)

// Field defines one accepted key in a request body.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	MinLen   int
	MaxLen   int
	Pattern  *regexp.Regexp
	Hint     string // appended to pattern violations, e.g. password rules
	Enum     []string
}

// =============================================================================
// Field builder helpers
// =============================================================================

func String(name string) Field     { return Field{Name: name, Type: TypeString} }
func Bool(name string) Field       { return Field{Name: name, Type: TypeBool} }
func Int(name string) Field        { return Field{Name: name, Type: TypeInt} }
func StringList(name string) Field { return Field{Name: name, Type: TypeStringList} }

func (f Field) WithRequired() Field     { f.Required = true; return f }
func (f Field) WithMinLen(n int) Field  { f.MinLen = n; return f }
func (f Field) WithMaxLen(n int) Field  { f.MaxLen = n; return f }
func (f Field) WithEnum(v ...string) Field { f.Enum = v; return f }

func (f Field) WithPattern(pattern, hint string) Field {
	f.Pattern = regexp.MustCompile(pattern)
	f.Hint = hint
	return f
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// WithEmail constrains the field to an email address.
func (f Field) WithEmail() Field {
	f.Pattern = emailPattern
	f.Hint = "must be an email address"
	return f
}

// =============================================================================
// Schema
// =============================================================================

// Schema is the declarative shape of one operation's request body.
type Schema struct {
	Fields []Field
}

func New(fields ...Field) Schema {
	return Schema{Fields: fields}
}

func (s Schema) field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Validate checks data against the schema and returns a single
// ValidationError listing every violation, or nil.
func (s Schema) Validate(data map[string]any) error {
	var problems []string

	// Unknown keys are rejected, matching the strict request schemas of the
	// public API.
	var unknown []string
	for key := range data {
		if s.field(key) == nil {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		problems = append(problems, fmt.Sprintf("unexpected parameter %s", key))
	}

	for _, f := range s.Fields {
		v, exists := data[f.Name]
		if !exists {
			if f.Required {
				problems = append(problems, fmt.Sprintf("parameter %s is required", f.Name))
			}
			continue
		}
		// An explicit JSON null is never a valid value.
		if v == nil {
			if f.Required {
				problems = append(problems, fmt.Sprintf("parameter %s is required", f.Name))
			} else {
				problems = append(problems, fmt.Sprintf("parameter %s must not be null", f.Name))
			}
			continue
		}
		problems = append(problems, f.check(v)...)
	}

	if len(problems) > 0 {
		return domain.NewValidationError("%s", strings.Join(problems, "; "))
	}
	return nil
}

func (f Field) check(v any) []string {
	var problems []string
	switch f.Type {
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return []string{fmt.Sprintf("parameter %s must be a string", f.Name)}
		}
		if f.Required && str == "" {
			problems = append(problems, fmt.Sprintf("parameter %s is required", f.Name))
		}
		if f.MinLen > 0 && str != "" && len(str) < f.MinLen {
			problems = append(problems, fmt.Sprintf("parameter %s must be at least %d characters", f.Name, f.MinLen))
		}
		if f.MaxLen > 0 && len(str) > f.MaxLen {
			problems = append(problems, fmt.Sprintf("parameter %s must be at most %d characters", f.Name, f.MaxLen))
		}
		if f.Pattern != nil && str != "" && !f.Pattern.MatchString(str) {
			hint := f.Hint
			if hint == "" {
				hint = "has invalid format"
			}
			problems = append(problems, fmt.Sprintf("parameter %s %s", f.Name, hint))
		}
		if len(f.Enum) > 0 && str != "" {
			found := false
			for _, e := range f.Enum {
				if e == str {
					found = true
					break
				}
			}
			if !found {
				problems = append(problems, fmt.Sprintf("parameter %s must be one of: %s", f.Name, strings.Join(f.Enum, ", ")))
			}
		}
	case TypeBool:
		if _, ok := v.(bool); !ok {
			problems = append(problems, fmt.Sprintf("parameter %s must be a boolean", f.Name))
		}
	case TypeInt:
		// JSON numbers decode as float64.
		switch n := v.(type) {
		case float64:
			if n != float64(int64(n)) {
				problems = append(problems, fmt.Sprintf("parameter %s must be an integer", f.Name))
			}
		case int, int64:
		default:
			problems = append(problems, fmt.Sprintf("parameter %s must be an integer", f.Name))
		}
	case TypeStringList:
		list, ok := v.([]any)
		if !ok {
			if _, ok := v.([]string); ok {
				break
			}
			problems = append(problems, fmt.Sprintf("parameter %s must be a list of strings", f.Name))
			break
		}
		for _, item := range list {
			if _, ok := item.(string); !ok {
				problems = append(problems, fmt.Sprintf("parameter %s must be a list of strings", f.Name))
				break
			}
		}
	}
	return problems
}

// =============================================================================
// Query parameter helpers
// =============================================================================

// ParsePage parses offset/limit query values. Empty strings yield the
// defaults 0/100; anything that is not a non-negative integer fails.
func ParsePage(offsetStr, limitStr string) (offset, limit int, err error) {
	offset, limit = 0, 100
	if offsetStr != "" {
		n, convErr := strconv.Atoi(offsetStr)
		if convErr != nil || n < 0 {
			return 0, 0, domain.NewValidationError("parameter offset must be a non-negative integer")
		}
		offset = n
	}
	if limitStr != "" {
		n, convErr := strconv.Atoi(limitStr)
		if convErr != nil || n < 0 {
			return 0, 0, domain.NewValidationError("parameter limit must be a non-negative integer")
		}
		limit = n
	}
	return offset, limit, nil
}

// ParseDate parses an optional YYYY-MM-DD query value. The zero time means
// the bound was not supplied.
func ParseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, domain.NewValidationError("parameter %s must be a date in format YYYY-MM-DD", name)
	}
	return t, nil
}

// =============================================================================
// Operation Schemas
// =============================================================================

const idPatternStr = `^[a-zA-Z0-9-_]+$`

// CreateApp is the vendor-facing app creation schema.
func CreateApp() Schema {
	return New(
		String("id").WithRequired().WithMinLen(3).WithMaxLen(50).
			WithPattern(idPatternStr, "can only contain alphanumeric characters, dashes and underscores"),
		String("name").WithRequired().WithMaxLen(128),
		String("type").WithRequired().WithEnum("extractor", "writer", "application"),
		String("imageUrl"),
		String("imageTag"),
		String("shortDescription"),
		String("longDescription"),
		String("licenseUrl"),
		String("documentationUrl"),
		String("repositoryUrl"),
		StringList("uiOptions"),
	)
}

// UpdateApp is the vendor-facing app update schema: pre-approval content
// fields only.
func UpdateApp() Schema {
	return New(
		String("name").WithMaxLen(128),
		String("type").WithEnum("extractor", "writer", "application"),
		String("imageUrl"),
		String("imageTag"),
		String("shortDescription"),
		String("longDescription"),
		String("licenseUrl"),
		String("documentationUrl"),
		String("repositoryUrl"),
		StringList("uiOptions"),
	)
}

// AdminUpdateApp extends UpdateApp with the administrative-only fields.
func AdminUpdateApp() Schema {
	s := UpdateApp()
	s.Fields = append(s.Fields,
		String("status").WithEnum(
			string(domain.StatusDraft),
			string(domain.StatusInReview),
			string(domain.StatusApproved),
			string(domain.StatusRejected),
		),
		Bool("isPublic"),
	)
	return s
}

// CreateVendor validates new vendor registrations.
func CreateVendor() Schema {
	return New(
		String("name").WithRequired().WithMaxLen(128),
		String("address").WithRequired(),
		String("email").WithRequired().WithEmail(),
		Bool("isPublic"),
	)
}

// ApproveVendor validates the admin approval body.
func ApproveVendor() Schema {
	return New(
		String("newId").WithMaxLen(32).
			WithPattern(idPatternStr, "can only contain alphanumeric characters, dashes and underscores"),
	)
}

// PasswordHint documents the password policy for error messages.
const PasswordHint = "must have at least 8 characters and contain at least one lowercase letter, one uppercase letter and one number"

// PasswordOK checks the password policy. Go's regexp has no lookahead, so the
// policy is checked directly.
func PasswordOK(password string) bool {
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}

// Login validates credential submissions.
func Login() Schema {
	return New(
		String("email").WithRequired().WithEmail(),
		String("password").WithRequired(),
	)
}

// Signup validates account registrations.
func Signup() Schema {
	return New(
		String("name").WithRequired(),
		String("email").WithRequired().WithEmail(),
		String("password").WithRequired(),
		String("vendor").WithRequired(),
	)
}

// ForgotConfirm validates the password reset confirmation.
func ForgotConfirm() Schema {
	return New(
		String("email").WithRequired().WithEmail(),
		String("password").WithRequired(),
		String("code").WithRequired(),
	)
}
