package postgres

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

type RepositorySuite struct {
	suite.Suite
	db  *gorm.DB
	ctx context.Context
}

func (s *RepositorySuite) SetupTest() {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(s.T().Name())
	db, err := OpenSQLiteMemory(name + uuid.NewString())
	s.Require().NoError(err)
	s.db = db
	s.ctx = context.Background()
}

func (s *RepositorySuite) TearDownTest() {
	sqlDB, _ := s.db.DB()
	_ = sqlDB.Close()
}

func (s *RepositorySuite) TestUserRepository() {
	repo := NewUserRepository(s.db, logger.NewNoopLogger())
	u := models.NewUser("alice")
	s.Require().NoError(repo.Create(s.ctx, u))

	got, err := repo.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("alice", got.Username)

	err = repo.Create(s.ctx, models.NewUser("alice"))
	s.True(errors.HasCode(err, errors.CodeConflict))

	_, err = repo.FindByID(s.ctx, uuid.New())
	s.True(errors.IsNotFound(err))

	ids, err := repo.ListIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{u.ID}, ids)
}

func (s *RepositorySuite) TestIdentifierRepository() {
	repo := NewIdentifierRepository(s.db, logger.NewNoopLogger())
	uid := uuid.New()
	s.Require().NoError(repo.Create(s.ctx, models.NewIdentifier(uid, models.ContactTypeEmail, "a@b.c", "work")))

	list, err := repo.ListByUser(s.ctx, uid)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(models.HashIdentifier("a@b.c"), list[0].IdentifierHash)
	s.Equal(models.ContactTypeEmail, list[0].Type)
}

func (s *RepositorySuite) TestExposureAndEventRepositories() {
	exposures := NewExposureRepository(s.db, logger.NewNoopLogger())
	events := NewMisuseEventRepository(s.db, logger.NewNoopLogger())
	uid := uuid.New()

	later := models.NewAppExposure(uid, "Later", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "SOCIAL")
	earlier := models.NewAppExposure(uid, "Earlier", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "")
	s.Require().NoError(exposures.Create(s.ctx, later))
	s.Require().NoError(exposures.Create(s.ctx, earlier))

	list, err := exposures.ListByUser(s.ctx, uid)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Earlier", list[0].AppName)
	s.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), list[0].SignupDate)

	got, err := exposures.FindByID(s.ctx, later.ID)
	s.Require().NoError(err)
	s.Equal("SOCIAL", got.Category)
	s.Equal(models.ExposureStatusActive, got.Status)

	leak := models.NewMisuseEvent(uid, models.EventTypeDataLeak, time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC), models.SeverityHigh, "leak")
	leak.Metadata["breached_app"] = "Earlier"
	identifierID := uuid.New()
	leak.IdentifierID = &identifierID
	s.Require().NoError(events.Create(s.ctx, leak))
	s.Require().NoError(events.Create(s.ctx, models.NewMisuseEvent(uid, models.EventTypeSpamCall, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), models.SeverityLow, "")))

	evs, err := events.ListByUser(s.ctx, uid)
	s.Require().NoError(err)
	s.Require().Len(evs, 2)
	s.Equal(models.EventTypeSpamCall, evs[0].Type)
	s.Equal("Earlier", evs[1].Metadata.BreachedApp())
	s.Require().NotNil(evs[1].IdentifierID)
	s.Equal(identifierID, *evs[1].IdentifierID)
	s.Nil(evs[0].IdentifierID)
}

func (s *RepositorySuite) TestAssessmentAndAlertRepositories() {
	assessments := NewAssessmentRepository(s.db, logger.NewNoopLogger())
	alerts := NewAlertRepository(s.db, logger.NewNoopLogger())
	uid := uuid.New()

	exp := models.NewAppExposure(uid, "FitnessPal", time.Now(), "")
	a := models.NewRiskAssessment(exp, 72.5, "reason", models.RiskFactors{models.FactorFinalScore: 72.5})
	s.Require().NoError(assessments.Save(s.ctx, a))

	got, err := assessments.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.RiskScore, got.RiskScore)
	s.Equal(a.Exposure, got.Exposure)
	s.Equal(72.5, got.Factors[models.FactorFinalScore])
	s.True(a.AssessedAt.Equal(got.AssessedAt))

	_, err = assessments.FindByID(s.ctx, uuid.New())
	s.True(errors.IsNotFound(err))

	list, err := assessments.ListByUser(s.ctx, uid)
	s.Require().NoError(err)
	s.Len(list, 1)

	s.Require().NoError(alerts.Create(s.ctx, models.NewAlertForAssessment(a)))
	al, err := alerts.ListByUser(s.ctx, uid)
	s.Require().NoError(err)
	s.Require().Len(al, 1)
	s.Equal("Early Warning: FitnessPal", al[0].Title)
	s.Equal(models.RiskLevelHigh, al[0].Severity)
}

func (s *RepositorySuite) TestEvidenceCreateIfAbsent() {
	repo := NewEvidenceRepository(s.db, logger.NewNoopLogger())
	assessmentID := uuid.New()

	first := models.NewEvidenceRecord(assessmentID, strings.Repeat("a", 64), "notice")
	stored, created, err := repo.CreateIfAbsent(s.ctx, first)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(first.ID, stored.ID)

	second := models.NewEvidenceRecord(assessmentID, strings.Repeat("b", 64), "other")
	stored, created, err = repo.CreateIfAbsent(s.ctx, second)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, stored.ID)
	s.Equal(strings.Repeat("a", 64), stored.ContentHash)

	var count int64
	s.Require().NoError(s.db.Model(&evidenceDBM{}).Where("assessment_id = ?", assessmentID).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *RepositorySuite) TestEvidenceConcurrentCreate() {
	repo := NewEvidenceRepository(s.db, logger.NewNoopLogger())
	assessmentID := uuid.New()

	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, _, err := repo.CreateIfAbsent(s.ctx, models.NewEvidenceRecord(assessmentID, strings.Repeat("c", 64), ""))
			s.NoError(err)
			if rec != nil {
				ids <- rec.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[uuid.UUID]bool{}
	for id := range ids {
		seen[id] = true
	}
	s.Len(seen, 1)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.False(t, isUniqueViolation(gorm.ErrRecordNotFound))
}

func TestDBConnection_Health(t *testing.T) {
	db, err := OpenSQLiteMemory("health" + uuid.NewString())
	require.NoError(t, err)
	conn := NewDBConnectionFromDB(db, "sqlite", logger.NewNoopLogger())

	health, err := conn.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])
	require.NoError(t, conn.Close())
	assert.Error(t, conn.Ping(context.Background()))
}
