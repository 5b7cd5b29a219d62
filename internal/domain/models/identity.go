package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the owner of exposures, misuse events and assessments.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a new user instance.
func NewUser(username string) *User {
	return &User{
		ID:        uuid.New(),
		Username:  strings.TrimSpace(username),
		CreatedAt: time.Now().UTC(),
	}
}

// ContactType classifies a monitored identifier.
type ContactType string

const (
	ContactTypeEmail ContactType = "EMAIL"
	ContactTypePhone ContactType = "PHONE"
)

// Valid reports whether t is a known contact type.
func (t ContactType) Valid() bool {
	return t == ContactTypeEmail || t == ContactTypePhone
}

// Identifier is a monitored contact point (email or phone). Only the hash of the
// raw value is stored.
type Identifier struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	Type           ContactType `json:"type"`
	IdentifierHash string      `json:"identifier_hash"`
	Label          string      `json:"label,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewIdentifier creates an identifier for raw, storing its SHA-256 hash only.
func NewIdentifier(userID uuid.UUID, contactType ContactType, raw, label string) *Identifier {
	return &Identifier{
		ID:             uuid.New(),
		UserID:         userID,
		Type:           contactType,
		IdentifierHash: HashIdentifier(raw),
		Label:          label,
		CreatedAt:      time.Now().UTC(),
	}
}

// HashIdentifier returns the lowercase hex SHA-256 of raw.
func HashIdentifier(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
