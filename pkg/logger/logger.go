// Package logger defines the structured logging contract of the PD-MEWS risk service.
// The production implementation is the zap adapter in internal/infrastructure/monitoring;
// tests use NewNoopLogger.
package logger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger passed to every component.
type Logger interface {
	Debug(ctx context.Context, message string, fields ...Field)
	Info(ctx context.Context, message string, fields ...Field)
	Warn(ctx context.Context, message string, fields ...Field)
	Error(ctx context.Context, message string, err error, fields ...Field)

	// Fatal logs and exits the process.
	Fatal(ctx context.Context, message string, err error, fields ...Field)

	WithFields(fields ...Field) Logger
	WithComponent(component string) Logger
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key string, value string) Field {
	return Field{Key: key, Value: value}
}

// ID logs an identifier (uuid.UUID and friends) in its canonical text form.
func ID(key string, id fmt.Stringer) Field {
	return Field{Key: key, Value: id.String()}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Error creates the "error" field. A nil error yields a nil value.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field rendered as text, e.g. "1.5s".
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Any creates a field with any type
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// ================================================================================
// Redaction
// ================================================================================

// credentialKeys never reach the output, not even partially.
var credentialKeys = map[string]struct{}{
	"api_key":       {},
	"hibp-api-key":  {},
	"password":      {},
	"secret":        {},
	"token":         {},
	"authorization": {},
	"vault_token":   {},
}

// personalKeys carry raw contact identifiers (GDPR personal data).
// 原始邮箱/手机号只保留可辨认的最小片段。
var personalKeys = map[string]struct{}{
	"identifier": {},
	"account":    {},
	"email":      {},
	"phone":      {},
}

const redacted = "***REDACTED***"

// SanitizeValue applies the redaction policy for key. Every Logger implementation
// must run field values through it.
func SanitizeValue(key string, value interface{}) interface{} {
	k := strings.ToLower(key)
	if _, ok := credentialKeys[k]; ok {
		return redacted
	}
	if _, ok := personalKeys[k]; ok {
		s, isString := value.(string)
		if !isString {
			return redacted
		}
		return maskContact(s)
	}
	return value
}

// maskContact keeps the first character and domain of an email, and the last
// two digits of anything else.
func maskContact(s string) string {
	s = strings.TrimSpace(s)
	if at := strings.LastIndex(s, "@"); at > 0 {
		return s[:1] + "***" + s[at:]
	}
	if len(s) <= 4 {
		return "***"
	}
	return "***" + s[len(s)-2:]
}
