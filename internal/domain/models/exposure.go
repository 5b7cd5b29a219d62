package models

import (
	"time"

	"github.com/google/uuid"
)

// ExposureStatus is the lifecycle state of a declared signup.
type ExposureStatus string

const (
	ExposureStatusActive   ExposureStatus = "ACTIVE"
	ExposureStatusInactive ExposureStatus = "INACTIVE"
	ExposureStatusDeleted  ExposureStatus = "DELETED"
)

// Valid reports whether s is a known exposure status.
func (s ExposureStatus) Valid() bool {
	switch s {
	case ExposureStatusActive, ExposureStatusInactive, ExposureStatusDeleted:
		return true
	}
	return false
}

// AppExposure is a user's declared signup to a named service, the candidate
// source of observed misuse. The risk engine never mutates it.
type AppExposure struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	// AppName is matched verbatim against breach tags and registry entries.
	AppName string `json:"app_name"`
	// SignupDate is a calendar date stored as midnight UTC.
	SignupDate time.Time      `json:"signup_date"`
	Category   string         `json:"category,omitempty"`
	Status     ExposureStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewAppExposure creates an active exposure signed up on the calendar day of signup.
func NewAppExposure(userID uuid.UUID, appName string, signup time.Time, category string) *AppExposure {
	return &AppExposure{
		ID:         uuid.New(),
		UserID:     userID,
		AppName:    appName,
		SignupDate: StartOfDay(signup),
		Category:   category,
		Status:     ExposureStatusActive,
		CreatedAt:  time.Now().UTC(),
	}
}

// SignupStart returns the first instant of the signup day.
func (e *AppExposure) SignupStart() time.Time {
	return StartOfDay(e.SignupDate)
}

// StartOfDay truncates t to midnight UTC of its calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
