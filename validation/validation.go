// Package validation accumulates per-field input errors so that a single
// response can report every rule a request violated.
package validation

import (
	"sort"
	"strings"
)

// FieldError is a single violated rule. Message is the rule text without the
// field name, e.g. "can't be blank".
type FieldError struct {
	Field   string
	Message string
}

// FullMessage prefixes the message with the humanized field name:
// "password_confirmation" becomes "Password confirmation doesn't match Password".
func (e FieldError) FullMessage() string {
	return Humanize(e.Field) + " " + e.Message
}

// Errors is the list of violated rules of one request, in the order they were
// found.
type Errors []FieldError

// Add records a violation.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Err returns nil when nothing was recorded, so callers can write
// `return errs.Err()`.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	messages := make([]string, 0, len(e))
	for _, fe := range e {
		messages = append(messages, fe.FullMessage())
	}
	return "Validation failed: " + strings.Join(messages, ", ")
}

// Fields groups messages by field name.
func (e Errors) Fields() map[string][]string {
	fields := make(map[string][]string, len(e))
	for _, fe := range e {
		fields[fe.Field] = append(fields[fe.Field], fe.Message)
	}
	return fields
}

// FromFields rebuilds Errors from its Fields form, ordered by field name.
func FromFields(fields map[string][]string) Errors {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs Errors
	for _, name := range names {
		for _, message := range fields[name] {
			errs.Add(name, message)
		}
	}
	return errs
}

// Humanize turns a snake_case field name into a sentence-case label.
func Humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Blank reports whether s is empty or whitespace only.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
