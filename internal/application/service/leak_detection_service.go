package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/internal/domain/repository"
	domainservice "github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
	"github.com/turtacn/pdmews/pkg/utils"
)

// LeakDetectionService turns breach findings for an identifier into DATA_LEAK events.
// LeakDetectionService 查询泄露库，将命中结果记录为 DATA_LEAK 事件；无 API Key 时使用模拟数据。
type LeakDetectionService interface {
	// CheckIdentity looks raw up and records one event per breach. Failures are logged, never returned.
	CheckIdentity(ctx context.Context, raw string, user *models.User, identifierID *uuid.UUID)
}

type leakDetectionServiceImpl struct {
	lookup  domainservice.BreachLookup
	events  repository.MisuseEventRepository
	metrics domainservice.Metrics
	nowFn   func() time.Time
	daysFn  func() int
	log     logger.Logger
}

// NewLeakDetectionService creates a new LeakDetectionService.
// A nil lookup selects the offline fallback, which records simulated findings.
func NewLeakDetectionService(lookup domainservice.BreachLookup, events repository.MisuseEventRepository, metrics domainservice.Metrics, log logger.Logger) LeakDetectionService {
	if metrics == nil {
		metrics = domainservice.NoopMetrics{}
	}
	return &leakDetectionServiceImpl{
		lookup:  lookup,
		events:  events,
		metrics: metrics,
		nowFn:   func() time.Time { return time.Now().UTC() },
		daysFn:  func() int { return rand.IntN(constants.SimulatedBreachWindowDays) },
		log:     log.WithComponent("leak_detection"),
	}
}

// CheckIdentity implements LeakDetectionService.
func (s *leakDetectionServiceImpl) CheckIdentity(ctx context.Context, raw string, user *models.User, identifierID *uuid.UUID) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		s.log.Warn(ctx, "Skipping leak check: identifier is blank")
		return
	}
	if !utils.IsEmailLike(raw) && !utils.IsPhoneLike(raw) {
		s.log.Info(ctx, "Skipping leak check: identifier is neither an email nor a phone number",
			logger.String("identifier_hash", models.HashIdentifier(raw)))
		return
	}

	if s.lookup == nil {
		s.recordSimulated(ctx, user, identifierID)
		return
	}
	s.recordLive(ctx, raw, user, identifierID)
}

func (s *leakDetectionServiceImpl) recordSimulated(ctx context.Context, user *models.User, identifierID *uuid.UUID) {
	s.log.Warn(ctx, "Breach API key missing, recording simulated breaches",
		logger.String("breach_source", constants.BreachSourceSimulated),
		logger.ID("user_id", user.ID))
	s.metrics.RecordBreachLookup(constants.BreachSourceSimulated, 0)

	for _, app := range constants.SimulatedBreachSources {
		ts := s.nowFn().AddDate(0, 0, -s.daysFn())
		event := newLeakEvent(user.ID, identifierID, app, ts, "Identity found in "+app+" data breach.")
		event.Metadata[constants.MetadataBreachSource] = constants.BreachSourceSimulated
		if err := s.events.Create(ctx, event); err != nil {
			s.log.Error(ctx, "Failed to record simulated breach", err, logger.String("breached_app", app))
		}
	}
}

func (s *leakDetectionServiceImpl) recordLive(ctx context.Context, raw string, user *models.User, identifierID *uuid.UUID) {
	start := time.Now()
	entries, err := s.lookup.Lookup(ctx, raw)
	switch {
	case errors.Is(err, domainservice.ErrBreachNotFound):
		s.metrics.RecordBreachLookup("not_found", time.Since(start))
		s.log.Info(ctx, "No breaches found for identifier", logger.ID("user_id", user.ID))
		return
	case errors.Is(err, domainservice.ErrBreachUnauthorized):
		s.metrics.RecordBreachLookup("unauthorized", time.Since(start))
		s.log.Error(ctx, "Breach API key is invalid or expired",
			errors.ErrConfiguration("breach lookup rejected the api key").WithCause(err))
		return
	case err != nil:
		s.metrics.RecordBreachLookup("error", time.Since(start))
		s.log.Error(ctx, "Breach lookup failed", err, logger.ID("user_id", user.ID))
		return
	}
	s.metrics.RecordBreachLookup("found", time.Since(start))
	s.log.Info(ctx, "Breaches found for identifier",
		logger.Int("breaches", len(entries)),
		logger.ID("user_id", user.ID))

	now := s.nowFn()
	for _, entry := range entries {
		if strings.TrimSpace(entry.Name) == "" {
			s.log.Warn(ctx, "Skipping breach entry without a name")
			continue
		}
		event := newLeakEvent(user.ID, identifierID, entry.Name, now,
			fmt.Sprintf("Identity found in %s data breach (via HIBP).", entry.Name))
		event.Metadata[constants.MetadataBreachSource] = constants.BreachSourceHIBP
		if entry.BreachDate != "" {
			event.Metadata[constants.MetadataBreachDate] = entry.BreachDate
		}
		if err := s.events.Create(ctx, event); err != nil {
			s.log.Error(ctx, "Failed to record breach", err, logger.String("breached_app", entry.Name))
		}
	}
}

func newLeakEvent(userID uuid.UUID, identifierID *uuid.UUID, app string, ts time.Time, description string) *models.MisuseEvent {
	event := models.NewMisuseEvent(userID, models.EventTypeDataLeak, ts, models.SeverityHigh, description)
	event.IdentifierID = identifierID
	event.Metadata[constants.MetadataBreachedApp] = app
	return event
}

// ResolveBreachAPIKey returns the configured breach API key, falling back to the
// Vault secret at vaultPath. An empty result selects the offline fallback.
func ResolveBreachAPIKey(ctx context.Context, cfg config.BreachConfig, vaultPath string, secrets domainservice.SecretProvider, log logger.Logger) string {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key
	}
	if secrets == nil || vaultPath == "" {
		log.Warn(ctx, "Breach API key is not configured; leak detection runs in simulated mode")
		return ""
	}
	key, err := secrets.GetSecret(ctx, vaultPath, "api_key")
	if err != nil || strings.TrimSpace(key) == "" {
		if err == nil {
			err = errors.New("empty api_key field")
		}
		log.Error(ctx, "Failed to resolve breach API key from Vault; leak detection runs in simulated mode",
			errors.ErrConfiguration("breach api key unavailable").WithCause(err),
			logger.String("path", vaultPath))
		return ""
	}
	return strings.TrimSpace(key)
}
