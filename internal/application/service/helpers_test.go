package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	"github.com/turtacn/pdmews/internal/infrastructure/crowd"
	"github.com/turtacn/pdmews/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/pdmews/internal/infrastructure/trust"
	"github.com/turtacn/pdmews/pkg/logger"
)

// testEnv wires real repositories over an in-memory sqlite database.
type testEnv struct {
	db          *gorm.DB
	users       repository.UserRepository
	identifiers repository.IdentifierRepository
	exposures   repository.ExposureRepository
	events      repository.MisuseEventRepository
	assessments repository.AssessmentRepository
	alerts      repository.AlertRepository
	evidence    repository.EvidenceRepository
	trust       *trust.Registry
	crowd       *crowd.MemoryCache
	publisher   *recordingPublisher
	log         logger.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := postgres.OpenSQLiteMemory(name + uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	log := logger.NewNoopLogger()
	return &testEnv{
		db:          db,
		users:       postgres.NewUserRepository(db, log),
		identifiers: postgres.NewIdentifierRepository(db, log),
		exposures:   postgres.NewExposureRepository(db, log),
		events:      postgres.NewMisuseEventRepository(db, log),
		assessments: postgres.NewAssessmentRepository(db, log),
		alerts:      postgres.NewAlertRepository(db, log),
		evidence:    postgres.NewEvidenceRepository(db, log),
		trust:       trust.NewRegistry(nil),
		crowd:       crowd.NewMemoryCache(),
		publisher:   &recordingPublisher{},
		log:         log,
	}
}

func (e *testEnv) engine() RiskEngineService {
	return NewRiskEngineService(RiskEngineDeps{
		Users:       e.users,
		Exposures:   e.exposures,
		Events:      e.events,
		Assessments: e.assessments,
		Alerts:      e.alerts,
		Trust:       e.trust,
		Crowd:       e.crowd,
		Publisher:   e.publisher,
	}, e.log)
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := models.NewUser(name)
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) exposure(t *testing.T, userID uuid.UUID, app string, signup time.Time, category string) *models.AppExposure {
	t.Helper()
	exp := models.NewAppExposure(userID, app, signup, category)
	require.NoError(t, e.exposures.Create(context.Background(), exp))
	return exp
}

func (e *testEnv) event(t *testing.T, userID uuid.UUID, eventType models.EventType, ts time.Time, md models.EventMetadata) *models.MisuseEvent {
	t.Helper()
	ev := models.NewMisuseEvent(userID, eventType, ts, models.SeverityHigh, string(eventType)+" observed")
	for k, v := range md {
		ev.Metadata[k] = v
	}
	require.NoError(t, e.events.Create(context.Background(), ev))
	return ev
}

type recordingPublisher struct {
	mu     sync.Mutex
	alerts []*models.Alert
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, alert *models.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
