// Package bootstrap wires configuration into the running object graph shared
// by the API server and the admin CLI.
package bootstrap

import (
	"context"
	"errors"

	appservice "github.com/turtacn/pdmews/internal/application/service"
	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/domain/repository"
	domainservice "github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/internal/infrastructure/breach"
	"github.com/turtacn/pdmews/internal/infrastructure/crowd"
	"github.com/turtacn/pdmews/internal/infrastructure/kms"
	"github.com/turtacn/pdmews/internal/infrastructure/messaging"
	"github.com/turtacn/pdmews/internal/infrastructure/monitoring"
	"github.com/turtacn/pdmews/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/pdmews/internal/infrastructure/persistence/redis"
	"github.com/turtacn/pdmews/internal/infrastructure/ratelimit"
	"github.com/turtacn/pdmews/internal/infrastructure/trust"
	"github.com/turtacn/pdmews/internal/interfaces/http/handlers"
	"github.com/turtacn/pdmews/internal/interfaces/http/router"
	"github.com/turtacn/pdmews/pkg/logger"
)

// Repositories groups every persistence port.
type Repositories struct {
	Users       repository.UserRepository
	Identifiers repository.IdentifierRepository
	Exposures   repository.ExposureRepository
	Events      repository.MisuseEventRepository
	Assessments repository.AssessmentRepository
	Alerts      repository.AlertRepository
	Evidence    repository.EvidenceRepository
}

// Container holds the constructed components.
// Container 持有启动后的全部组件；Close 按依赖的逆序释放资源。
type Container struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *monitoring.Metrics
	Tracing *monitoring.TracingManager

	DB        *postgres.DBConnection
	Redis     *redis.RedisConnection
	Publisher domainservice.AlertPublisher
	Trust     *trust.Registry
	Crowd     domainservice.CrowdCorrelator
	Limiter   domainservice.RateLimiter
	Repos     Repositories

	Identity  appservice.IdentityService
	Exposures appservice.ExposureService
	Events    appservice.MisuseEventService
	Engine    appservice.RiskEngineService
	Forensic  appservice.ForensicService
	Insights  appservice.InsightService
	Job       *appservice.RiskReevaluationJob

	pingers map[string]handlers.Pinger
	closers []func() error
}

// Build constructs the container from cfg. On error every resource opened so far is released.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *Container, err error) {
	c := &Container{
		Config:  cfg,
		Logger:  log,
		Metrics: monitoring.NewMetrics(),
		pingers: map[string]handlers.Pinger{},
	}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.Tracing, err = monitoring.NewTracingManager(cfg, log)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, func() error { return c.Tracing.Shutdown(context.Background()) })

	c.DB, err = postgres.NewDBConnection(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, c.DB.Close)
	c.pingers["database"] = c.DB

	db := c.DB.DB()
	c.Repos = Repositories{
		Users:       postgres.NewUserRepository(db, log),
		Identifiers: postgres.NewIdentifierRepository(db, log),
		Exposures:   postgres.NewExposureRepository(db, log),
		Events:      postgres.NewMisuseEventRepository(db, log),
		Assessments: postgres.NewAssessmentRepository(db, log),
		Alerts:      postgres.NewAlertRepository(db, log),
		Evidence:    postgres.NewEvidenceRepository(db, log),
	}

	if cfg.Redis.Enabled {
		c.Redis = redis.NewRedisConnection(cfg.Redis, log)
		if err = c.Redis.Connect(ctx); err != nil {
			return nil, err
		}
		c.closers = append(c.closers, c.Redis.Close)
		c.pingers["redis"] = c.Redis
		c.Crowd = crowd.NewRedisCache(c.Redis.Client(), log)
	} else {
		c.Crowd = crowd.NewMemoryCache()
	}

	if cfg.RateLimit.Enabled {
		if c.Redis != nil {
			if c.Limiter, err = ratelimit.NewRedisRateLimiter(c.Redis.Client(), cfg.RateLimit, log); err != nil {
				return nil, err
			}
		} else {
			c.Limiter = ratelimit.NewLocalRateLimiter(cfg.RateLimit)
		}
	}

	if cfg.Trust.SeedFile != "" {
		c.Trust, err = trust.LoadRegistry(cfg.Trust.SeedFile)
		if err != nil {
			return nil, err
		}
	} else {
		c.Trust = trust.NewRegistry(nil)
	}

	if cfg.Kafka.Enabled {
		c.Publisher = messaging.NewKafkaAlertPublisher(cfg.Kafka, log)
	} else {
		c.Publisher = messaging.NoopAlertPublisher{}
	}
	c.closers = append(c.closers, c.Publisher.Close)

	leaks := appservice.NewLeakDetectionService(c.breachLookup(ctx), c.Repos.Events, c.Metrics, log)

	c.Identity = appservice.NewIdentityService(c.Repos.Users, c.Repos.Identifiers, leaks, log)
	c.Exposures = appservice.NewExposureService(c.Repos.Users, c.Repos.Exposures, log)
	c.Events = appservice.NewMisuseEventService(c.Repos.Users, c.Repos.Events, log)
	c.Engine = appservice.NewRiskEngineService(appservice.RiskEngineDeps{
		Users:       c.Repos.Users,
		Exposures:   c.Repos.Exposures,
		Events:      c.Repos.Events,
		Assessments: c.Repos.Assessments,
		Alerts:      c.Repos.Alerts,
		Trust:       c.Trust,
		Crowd:       c.Crowd,
		Publisher:   c.Publisher,
		Metrics:     c.Metrics,
		Tracer:      c.Tracing.Tracer(),
	}, log)
	c.Forensic = appservice.NewForensicService(c.Repos.Assessments, c.Repos.Evidence, c.Metrics, log)
	c.Insights = appservice.NewInsightService(c.Repos.Users, c.Repos.Alerts, c.Repos.Assessments, c.Crowd, c.Trust)
	c.Job = appservice.NewRiskReevaluationJob(c.Engine, c.Repos.Users,
		cfg.Risk.ReevaluationInterval, cfg.Risk.ReevaluationWorkers, c.Metrics, log)

	return c, nil
}

// breachLookup returns the guarded live lookup, or nil for the offline fallback.
func (c *Container) breachLookup(ctx context.Context) domainservice.BreachLookup {
	cfg := c.Config

	var secrets domainservice.SecretProvider
	if cfg.Vault.Address != "" {
		client, err := kms.NewVaultClient(cfg.Vault)
		if err != nil {
			c.Logger.Error(ctx, "Failed to create Vault client", err)
		} else {
			secrets = kms.NewVaultSecretProvider(client, cfg.Vault.MountPath, c.Logger)
		}
	}

	apiKey := appservice.ResolveBreachAPIKey(ctx, cfg.Breach, cfg.Vault.BreachKeyPath, secrets, c.Logger)
	if apiKey == "" {
		return nil
	}
	client := breach.NewHIBPClient(cfg.Breach.BaseURL, apiKey, cfg.Breach.UserAgent, cfg.Breach.Timeout, c.Logger)
	traced := breach.NewTracedLookup(client, c.Tracing, "hibp")
	breaker := breach.NewCircuitBreaker(cfg.Breach.FailureThreshold, cfg.Breach.CoolDown)
	return breach.NewResilientLookup(traced, cfg.Breach.Timeout, cfg.Breach.CacheTTL, breaker, c.Metrics)
}

// Router assembles the HTTP surface over the container's services.
func (c *Container) Router() *router.Router {
	h := router.Handlers{
		Health:   handlers.NewHealthHandler(c.pingers),
		Identity: handlers.NewIdentityHandler(c.Identity),
		Signals:  handlers.NewSignalHandler(c.Exposures, c.Events),
		Risk:     handlers.NewRiskHandler(c.Engine, c.Insights, c.Logger),
		Legal:    handlers.NewLegalHandler(c.Forensic),
		Metrics:  c.Metrics.Handler(),
		Limiter:  c.Limiter,
	}
	return router.NewRouter(c.Config.Server, h, c.Tracing.Tracer(), c.Metrics, c.Logger)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
