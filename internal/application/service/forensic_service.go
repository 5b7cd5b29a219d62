package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	domainservice "github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
	"github.com/turtacn/pdmews/pkg/utils"
)

// legalNoticeTemplate is filled with app, user id, score, detection date and hash.
const legalNoticeTemplate = `NOTICE OF DATA MISUSE / GDPR ARTICLE 21 OBJECTION

To the Data Protection Officer of: %s

I am a user of your service. My internal user reference is: %s.

I have detected a high correlation of personal data misuse originating from your platform.

EVIDENCE SUMMARY:
- Risk Score: %.2f / 100
- Detection Date: %s
- Digital Forensic Hash: %s

This record is cryptographically frozen.

Pursuant to GDPR Article 17 (Right to Erasure) and Article 21 (Right to Object),
I hereby demand immediate deletion of all my personal data.

Failure to comply may result in a formal complaint to the relevant Data Protection Authority.
`

// ForensicService freezes assessments into tamper-evident evidence records.
// ForensicService 将评估结果固化为带 SHA-256 指纹的证据记录，每个评估至多一条。
type ForensicService interface {
	// PreserveEvidence creates the evidence record for an assessment, or returns the existing one.
	PreserveEvidence(ctx context.Context, assessmentID uuid.UUID) (*models.EvidenceRecord, error)

	// VerifyEvidence recomputes the hash of the stored assessment and compares it with the record.
	VerifyEvidence(ctx context.Context, assessmentID uuid.UUID) (bool, error)
}

type forensicServiceImpl struct {
	assessments repository.AssessmentRepository
	evidence    repository.EvidenceRepository
	locks       *keyedMutex
	metrics     domainservice.Metrics
	log         logger.Logger
}

// NewForensicService creates a new ForensicService.
func NewForensicService(assessments repository.AssessmentRepository, evidence repository.EvidenceRepository, metrics domainservice.Metrics, log logger.Logger) ForensicService {
	if metrics == nil {
		metrics = domainservice.NoopMetrics{}
	}
	return &forensicServiceImpl{
		assessments: assessments,
		evidence:    evidence,
		locks:       newKeyedMutex(),
		metrics:     metrics,
		log:         log.WithComponent("forensic"),
	}
}

// PreserveEvidence implements ForensicService.
func (s *forensicServiceImpl) PreserveEvidence(ctx context.Context, assessmentID uuid.UUID) (*models.EvidenceRecord, error) {
	unlock := s.locks.Lock(assessmentID)
	defer unlock()

	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.evidence.FindByAssessmentID(ctx, assessmentID)
	switch {
	case err == nil:
		s.metrics.RecordEvidence(false)
		return existing, nil
	case !errors.IsNotFound(err):
		return nil, err
	}

	hash, err := ContentHash(EvidenceSnapshot(assessment))
	if err != nil {
		return nil, err
	}
	record := models.NewEvidenceRecord(assessmentID, hash, LegalNotice(assessment, hash))

	// another replica may win the insert; the stored record is authoritative
	stored, created, err := s.evidence.CreateIfAbsent(ctx, record)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordEvidence(created)
	if created {
		s.log.Info(ctx, "Evidence preserved",
			logger.ID("assessment_id", assessmentID),
			logger.String("content_hash", stored.ContentHash))
	}
	return stored, nil
}

// VerifyEvidence implements ForensicService.
func (s *forensicServiceImpl) VerifyEvidence(ctx context.Context, assessmentID uuid.UUID) (bool, error) {
	record, err := s.evidence.FindByAssessmentID(ctx, assessmentID)
	if err != nil {
		return false, err
	}
	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return false, err
	}
	hash, err := ContentHash(EvidenceSnapshot(assessment))
	if err != nil {
		return false, err
	}

	valid := hash == record.ContentHash
	if !valid {
		s.log.Warn(ctx, "Evidence hash mismatch",
			logger.ID("assessment_id", assessmentID),
			logger.String("stored_hash", record.ContentHash),
			logger.String("computed_hash", hash))
	}
	return valid, nil
}

// EvidenceSnapshot renders the frozen content of an assessment.
func EvidenceSnapshot(a *models.RiskAssessment) string {
	var b strings.Builder
	b.WriteString("UserID:")
	b.WriteString(a.Exposure.UserID.String())
	b.WriteString("|App:")
	b.WriteString(a.Exposure.AppName)
	b.WriteString("|Risk:")
	b.WriteString(domainservice.FormatDecimal(a.RiskScore))
	b.WriteString("|Reason:")
	b.WriteString(a.Reasoning)
	b.WriteString("|Date:")
	b.WriteString(utils.FormatLocalDateTime(a.AssessedAt))
	return b.String()
}

// ContentHash returns the lowercase hex SHA-256 of snapshot.
func ContentHash(snapshot string) (string, error) {
	h := sha256.New()
	if _, err := h.Write([]byte(snapshot)); err != nil {
		return "", errors.ErrIntegrity("failed to hash evidence snapshot").WithCause(err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LegalNotice renders the GDPR erasure and objection notice for an assessment.
func LegalNotice(a *models.RiskAssessment, hash string) string {
	return fmt.Sprintf(legalNoticeTemplate,
		a.Exposure.AppName,
		a.Exposure.UserID,
		a.RiskScore,
		utils.FormatLocalDateTime(a.AssessedAt),
		hash)
}

// keyedMutex serializes work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*keyedLock)}
}

// Lock acquires the lock for key and returns its release function.
func (k *keyedMutex) Lock(key uuid.UUID) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
