package landing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-gmarup-admin/components/console"
	"github.com/goliatone/go-gmarup-admin/pkg/backend"
)

// Form field names, matching the registration payload.
const (
	FieldFullName     = "fullName"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldEmailConsent = "emailConsent"
)

// DefaultStudyLevel is sent when the visitor leaves the level blank.
const DefaultStudyLevel = "לא צוין"

var (
	namePattern  = regexp.MustCompile(`^[\p{Hebrew}a-zA-Z\s]+$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^(\+972(5[0-9]|2|3|4|8|9)\d{7}|0(5[0-9]|2|3|4|8|9)\d{7})$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "")
)

// RegistrationForm is what a visitor typed into the signup form.
type RegistrationForm struct {
	FullName     string
	Email        string
	Phone        string
	StudyLevel   string
	EmailConsent bool
}

// ValidationError lists per-field problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "landing: invalid registration: " + strings.Join(parts, "; ")
}

// NormalizePhone strips spaces and dashes.
func NormalizePhone(phone string) string {
	return phoneNoise.Replace(strings.TrimSpace(phone))
}

// ValidateRegistration checks every field and reports all failures at once.
func ValidateRegistration(form RegistrationForm) error {
	fields := map[string]string{}
	name := strings.TrimSpace(form.FullName)
	if utf8.RuneCountInString(name) < 2 || !namePattern.MatchString(name) {
		fields[FieldFullName] = "שם חייב להכיל לפחות 2 תווים (עברית או אנגלית)"
	}
	if !emailPattern.MatchString(strings.TrimSpace(form.Email)) {
		fields[FieldEmail] = "כתובת אימייל לא תקינה"
	}
	if !phonePattern.MatchString(NormalizePhone(form.Phone)) {
		fields[FieldPhone] = "מספר טלפון ישראלי לא תקין"
	}
	if !form.EmailConsent {
		fields[FieldEmailConsent] = "חובה לאשר קבלת עדכונים באימייל"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// RegistrationSchema is the JSON schema of the signup body.
var RegistrationSchema = map[string]any{
	"type":     "object",
	"required": []any{FieldFullName, FieldEmail, FieldPhone, FieldEmailConsent},
	"properties": map[string]any{
		FieldFullName:     map[string]any{"type": "string", "minLength": 2, "maxLength": 120},
		FieldEmail:        map[string]any{"type": "string", "minLength": 5, "maxLength": 254},
		FieldPhone:        map[string]any{"type": "string", "minLength": 9, "maxLength": 13},
		FieldEmailConsent: map[string]any{"const": true},
		"studyLevel":      map[string]any{"type": "string", "maxLength": 60},
		"source":          map[string]any{"type": "string", "maxLength": 200},
	},
}

var payloadValidator = func() *console.JSONSchemaValidator {
	v := console.NewJSONSchemaValidator()
	v.Register("registration", RegistrationSchema)
	return v
}()

// ValidatePayload checks the wire body before it is sent.
func ValidatePayload(req backend.RegistrationRequest) error {
	if err := payloadValidator.Validate("registration", req); err != nil {
		return fmt.Errorf("landing: %w", err)
	}
	return nil
}
