package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/pdmews/internal/domain/repository"
	domainservice "github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/logger"
)

// SweepResult summarizes one re-evaluation sweep.
type SweepResult struct {
	Users    int
	Failures int
	Duration time.Duration
}

// RiskReevaluationJob periodically re-analyzes every user.
// RiskReevaluationJob 定时对所有用户重新执行风险分析，单个用户失败不影响其他用户。
type RiskReevaluationJob struct {
	engine   RiskEngineService
	users    repository.UserRepository
	interval time.Duration
	workers  int
	running  atomic.Bool
	sweeps   sync.WaitGroup
	metrics  domainservice.Metrics
	log      logger.Logger
}

// NewRiskReevaluationJob creates the job. Non-positive interval or workers fall back to the defaults.
func NewRiskReevaluationJob(engine RiskEngineService, users repository.UserRepository, interval time.Duration, workers int, metrics domainservice.Metrics, log logger.Logger) *RiskReevaluationJob {
	if interval <= 0 {
		interval = constants.DefaultReevaluationInterval
	}
	if workers <= 0 {
		workers = constants.DefaultReevaluationWorkers
	}
	if metrics == nil {
		metrics = domainservice.NoopMetrics{}
	}
	return &RiskReevaluationJob{
		engine:   engine,
		users:    users,
		interval: interval,
		workers:  workers,
		metrics:  metrics,
		log:      log.WithComponent("reevaluation_job"),
	}
}

// Run sweeps on every tick until ctx is done. It returns only after the
// in-flight sweep has finished, so callers may release storage afterwards.
func (j *RiskReevaluationJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	defer j.sweeps.Wait()

	j.log.Info(ctx, "Risk re-evaluation job started", logger.Duration("interval", j.interval), logger.Int("workers", j.workers))
	for {
		select {
		case <-ctx.Done():
			j.log.Info(ctx, "Risk re-evaluation job stopped")
			return
		case <-ticker.C:
			j.sweeps.Add(1)
			go func() {
				defer j.sweeps.Done()
				j.tick(ctx)
			}()
		}
	}
}

// tick starts a sweep unless the previous one is still running.
func (j *RiskReevaluationJob) tick(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn(ctx, "Previous re-evaluation sweep still running, skipping tick")
		return
	}
	defer j.running.Store(false)

	if _, err := j.ReevaluateAllUsers(ctx); err != nil {
		j.log.Error(ctx, "Re-evaluation sweep failed", err)
	}
}

// ReevaluateAllUsers analyzes every user with bounded parallelism.
// Per-user errors and panics are logged and counted; only a failure to list users is returned.
func (j *RiskReevaluationJob) ReevaluateAllUsers(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	j.log.Info(ctx, "Starting background risk re-evaluation")

	ids, err := j.users.ListIDs(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.workers)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := j.analyzeOne(gctx, id); err != nil {
				failures.Add(1)
				j.log.Error(gctx, "Failed to re-evaluate risk for user", err, logger.ID("user_id", id))
			}
			return nil
		})
	}
	_ = g.Wait()

	res := SweepResult{Users: len(ids), Failures: int(failures.Load()), Duration: time.Since(start)}
	j.metrics.RecordReevaluation(res.Users, res.Failures, res.Duration)
	j.log.Info(ctx, "Background risk re-evaluation complete",
		logger.Int("users", res.Users),
		logger.Int("failures", res.Failures),
		logger.Duration("duration", res.Duration))
	return res, nil
}

func (j *RiskReevaluationJob) analyzeOne(ctx context.Context, id uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during analysis: %v", r)
		}
	}()
	_, err = j.engine.AnalyzeUserRisk(ctx, id)
	return err
}
