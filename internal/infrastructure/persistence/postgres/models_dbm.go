package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/pdmews/internal/domain/models"
)

// userDBM is the database model for the users table.
type userDBM struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	Username  string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time
}

func (userDBM) TableName() string { return "users" }

func (dbm *userDBM) toDomain() *models.User {
	return &models.User{ID: dbm.ID, Username: dbm.Username, CreatedAt: dbm.CreatedAt}
}

func userFromDomain(u *models.User) *userDBM {
	return &userDBM{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

// identifierDBM is the database model for the identifiers table.
type identifierDBM struct {
	ID             uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	UserID         uuid.UUID `gorm:"type:varchar(36);index;not null"`
	Type           string    `gorm:"type:varchar(16);not null"`
	IdentifierHash string    `gorm:"type:varchar(64);index;not null"`
	Label          string
	CreatedAt      time.Time
}

func (identifierDBM) TableName() string { return "identifiers" }

func (dbm *identifierDBM) toDomain() *models.Identifier {
	return &models.Identifier{
		ID:             dbm.ID,
		UserID:         dbm.UserID,
		Type:           models.ContactType(dbm.Type),
		IdentifierHash: dbm.IdentifierHash,
		Label:          dbm.Label,
		CreatedAt:      dbm.CreatedAt,
	}
}

func identifierFromDomain(i *models.Identifier) *identifierDBM {
	return &identifierDBM{
		ID:             i.ID,
		UserID:         i.UserID,
		Type:           string(i.Type),
		IdentifierHash: i.IdentifierHash,
		Label:          i.Label,
		CreatedAt:      i.CreatedAt,
	}
}

// exposureDBM is the database model for the app_exposures table.
type exposureDBM struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	UserID     uuid.UUID `gorm:"type:varchar(36);index;not null"`
	AppName    string    `gorm:"type:varchar(255);not null"`
	SignupDate time.Time `gorm:"not null"`
	Category   string    `gorm:"type:varchar(64)"`
	Status     string    `gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time
}

func (exposureDBM) TableName() string { return "app_exposures" }

func (dbm *exposureDBM) toDomain() *models.AppExposure {
	return &models.AppExposure{
		ID:         dbm.ID,
		UserID:     dbm.UserID,
		AppName:    dbm.AppName,
		SignupDate: models.StartOfDay(dbm.SignupDate.UTC()),
		Category:   dbm.Category,
		Status:     models.ExposureStatus(dbm.Status),
		CreatedAt:  dbm.CreatedAt,
	}
}

func exposureFromDomain(e *models.AppExposure) *exposureDBM {
	return &exposureDBM{
		ID:         e.ID,
		UserID:     e.UserID,
		AppName:    e.AppName,
		SignupDate: models.StartOfDay(e.SignupDate),
		Category:   e.Category,
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt,
	}
}

// misuseEventDBM is the database model for the misuse_events table.
type misuseEventDBM struct {
	ID           uuid.UUID  `gorm:"type:varchar(36);primaryKey"`
	UserID       uuid.UUID  `gorm:"type:varchar(36);index;not null"`
	IdentifierID *uuid.UUID `gorm:"type:varchar(36)"`
	Type         string     `gorm:"type:varchar(32);not null"`
	Timestamp    time.Time  `gorm:"index;not null"`
	Severity     string     `gorm:"type:varchar(16)"`
	Description  string
	Metadata     map[string]string `gorm:"type:text;serializer:json"`
}

func (misuseEventDBM) TableName() string { return "misuse_events" }

func (dbm *misuseEventDBM) toDomain() *models.MisuseEvent {
	md := models.EventMetadata{}
	for k, v := range dbm.Metadata {
		md[k] = v
	}
	return &models.MisuseEvent{
		ID:           dbm.ID,
		UserID:       dbm.UserID,
		IdentifierID: dbm.IdentifierID,
		Type:         models.EventType(dbm.Type),
		Timestamp:    dbm.Timestamp.UTC(),
		Severity:     models.Severity(dbm.Severity),
		Description:  dbm.Description,
		Metadata:     md,
	}
}

func misuseEventFromDomain(e *models.MisuseEvent) *misuseEventDBM {
	return &misuseEventDBM{
		ID:           e.ID,
		UserID:       e.UserID,
		IdentifierID: e.IdentifierID,
		Type:         string(e.Type),
		Timestamp:    e.Timestamp.UTC(),
		Severity:     string(e.Severity),
		Description:  e.Description,
		Metadata:     map[string]string(e.Metadata),
	}
}

// assessmentDBM is the database model for the risk_assessments table.
// The exposure snapshot is denormalized so breach-only findings need no exposure row.
type assessmentDBM struct {
	ID         uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	ExposureID uuid.UUID `gorm:"type:varchar(36);index"`
	UserID     uuid.UUID `gorm:"type:varchar(36);index;not null"`
	AppName    string    `gorm:"type:varchar(255);not null"`
	Category   string    `gorm:"type:varchar(64)"`
	RiskScore  float64
	RiskLevel  string `gorm:"type:varchar(16)"`
	Reasoning  string
	Factors    map[string]float64 `gorm:"type:text;serializer:json"`
	AssessedAt time.Time          `gorm:"index"`
}

func (assessmentDBM) TableName() string { return "risk_assessments" }

func (dbm *assessmentDBM) toDomain() *models.RiskAssessment {
	factors := models.RiskFactors{}
	for k, v := range dbm.Factors {
		factors[k] = v
	}
	return &models.RiskAssessment{
		ID:         dbm.ID,
		ExposureID: dbm.ExposureID,
		Exposure: models.ExposureSnapshot{
			UserID:   dbm.UserID,
			AppName:  dbm.AppName,
			Category: dbm.Category,
		},
		UserID:     dbm.UserID,
		RiskScore:  dbm.RiskScore,
		RiskLevel:  models.RiskLevel(dbm.RiskLevel),
		Reasoning:  dbm.Reasoning,
		Factors:    factors,
		AssessedAt: dbm.AssessedAt.UTC(),
	}
}

func assessmentFromDomain(a *models.RiskAssessment) *assessmentDBM {
	return &assessmentDBM{
		ID:         a.ID,
		ExposureID: a.ExposureID,
		UserID:     a.UserID,
		AppName:    a.Exposure.AppName,
		Category:   a.Exposure.Category,
		RiskScore:  a.RiskScore,
		RiskLevel:  string(a.RiskLevel),
		Reasoning:  a.Reasoning,
		Factors:    map[string]float64(a.Factors),
		AssessedAt: a.AssessedAt.UTC(),
	}
}

// alertDBM is the database model for the alerts table.
type alertDBM struct {
	ID           uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	UserID       uuid.UUID `gorm:"type:varchar(36);index;not null"`
	AssessmentID uuid.UUID `gorm:"type:varchar(36);index"`
	Title        string
	Message      string
	Severity     string `gorm:"type:varchar(16)"`
	CreatedAt    time.Time
}

func (alertDBM) TableName() string { return "alerts" }

func (dbm *alertDBM) toDomain() *models.Alert {
	return &models.Alert{
		ID:           dbm.ID,
		UserID:       dbm.UserID,
		AssessmentID: dbm.AssessmentID,
		Title:        dbm.Title,
		Message:      dbm.Message,
		Severity:     models.RiskLevel(dbm.Severity),
		CreatedAt:    dbm.CreatedAt.UTC(),
	}
}

func alertFromDomain(a *models.Alert) *alertDBM {
	return &alertDBM{
		ID:           a.ID,
		UserID:       a.UserID,
		AssessmentID: a.AssessmentID,
		Title:        a.Title,
		Message:      a.Message,
		Severity:     string(a.Severity),
		CreatedAt:    a.CreatedAt,
	}
}

// evidenceDBM is the database model for the evidence_records table.
type evidenceDBM struct {
	ID              uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	AssessmentID    uuid.UUID `gorm:"type:varchar(36);uniqueIndex;not null"`
	ContentHash     string    `gorm:"type:varchar(64);not null"`
	LegalNoticeText string
	PreservedAt     time.Time
}

func (evidenceDBM) TableName() string { return "evidence_records" }

func (dbm *evidenceDBM) toDomain() *models.EvidenceRecord {
	return &models.EvidenceRecord{
		ID:              dbm.ID,
		AssessmentID:    dbm.AssessmentID,
		ContentHash:     dbm.ContentHash,
		LegalNoticeText: dbm.LegalNoticeText,
		PreservedAt:     dbm.PreservedAt.UTC(),
	}
}

func evidenceFromDomain(r *models.EvidenceRecord) *evidenceDBM {
	return &evidenceDBM{
		ID:              r.ID,
		AssessmentID:    r.AssessmentID,
		ContentHash:     r.ContentHash,
		LegalNoticeText: r.LegalNoticeText,
		PreservedAt:     r.PreservedAt,
	}
}
