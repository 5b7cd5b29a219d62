package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/pdmews/pkg/constants"
)

// EventType classifies an observed abuse.
type EventType string

const (
	EventTypeSpamCall        EventType = "SPAM_CALL"
	EventTypeSpamSMS         EventType = "SPAM_SMS"
	EventTypeSpamEmail       EventType = "SPAM_EMAIL"
	EventTypePhishingAttempt EventType = "PHISHING_ATTEMPT"
	EventTypeDataLeak        EventType = "DATA_LEAK"
	EventTypeUnknown         EventType = "UNKNOWN"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeSpamCall, EventTypeSpamSMS, EventTypeSpamEmail,
		EventTypePhishingAttempt, EventTypeDataLeak, EventTypeUnknown:
		return true
	}
	return false
}

// Severity is the reported seriousness of a misuse event.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// EventMetadata carries typed annotations of a misuse event.
type EventMetadata map[string]string

// BreachedApp returns the breached service tag, if any.
func (m EventMetadata) BreachedApp() string {
	if m == nil {
		return ""
	}
	return m[constants.MetadataBreachedApp]
}

// BreachSource returns where the breach finding came from ("hibp" or "simulated").
func (m EventMetadata) BreachSource() string {
	if m == nil {
		return ""
	}
	return m[constants.MetadataBreachSource]
}

// MisuseEvent is an observed abuse against one of a user's identifiers.
type MisuseEvent struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	IdentifierID *uuid.UUID    `json:"identifier_id,omitempty"`
	Type         EventType     `json:"type"`
	Timestamp    time.Time     `json:"timestamp"`
	Severity     Severity      `json:"severity"`
	Description  string        `json:"description,omitempty"`
	Metadata     EventMetadata `json:"metadata,omitempty"`
}

// NewMisuseEvent creates a misuse event observed at ts.
func NewMisuseEvent(userID uuid.UUID, eventType EventType, ts time.Time, severity Severity, description string) *MisuseEvent {
	return &MisuseEvent{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        eventType,
		Timestamp:   ts.UTC(),
		Severity:    severity,
		Description: description,
		Metadata:    EventMetadata{},
	}
}

// IsDataLeak reports whether the event is a breach finding.
func (e *MisuseEvent) IsDataLeak() bool {
	return e.Type == EventTypeDataLeak
}
