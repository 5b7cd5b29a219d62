package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/pkg/logger"
)

type scriptedEngine struct {
	mu      sync.Mutex
	calls   []uuid.UUID
	fail    map[uuid.UUID]bool
	panicOn map[uuid.UUID]bool
	block   chan struct{}
}

func (e *scriptedEngine) AnalyzeUserRisk(_ context.Context, userID uuid.UUID) ([]*models.RiskAssessment, error) {
	if e.block != nil {
		<-e.block
	}
	e.mu.Lock()
	e.calls = append(e.calls, userID)
	e.mu.Unlock()
	if e.panicOn[userID] {
		panic("boom")
	}
	if e.fail[userID] {
		return nil, assert.AnError
	}
	return nil, nil
}

func (e *scriptedEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func TestReevaluateAllUsers_IsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	ok := env.user(t, "ok")
	failing := env.user(t, "failing")
	panicking := env.user(t, "panicking")

	engine := &scriptedEngine{
		fail:    map[uuid.UUID]bool{failing.ID: true},
		panicOn: map[uuid.UUID]bool{panicking.ID: true},
	}
	job := NewRiskReevaluationJob(engine, env.users, time.Hour, 2, nil, logger.NewNoopLogger())

	res, err := job.ReevaluateAllUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Users)
	assert.Equal(t, 2, res.Failures)
	assert.ElementsMatch(t, []uuid.UUID{ok.ID, failing.ID, panicking.ID}, engine.calls)
}

func TestReevaluationJob_SkipsOverlappingTicks(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "slow")

	engine := &scriptedEngine{block: make(chan struct{})}
	job := NewRiskReevaluationJob(engine, env.users, time.Hour, 1, nil, logger.NewNoopLogger())

	done := make(chan struct{})
	go func() {
		job.tick(context.Background())
		close(done)
	}()
	require.Eventually(t, job.running.Load, time.Second, 5*time.Millisecond)

	// second tick while the first sweep is blocked
	job.tick(context.Background())

	close(engine.block)
	<-done
	assert.Equal(t, 1, engine.callCount())
	assert.False(t, job.running.Load())
}

func TestReevaluationJob_RunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "someone")
	engine := &scriptedEngine{}
	job := NewRiskReevaluationJob(engine, env.users, 10*time.Millisecond, 1, nil, logger.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return engine.callCount() > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}

func TestReevaluationJob_RunWaitsForInFlightSweep(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "slow")
	engine := &scriptedEngine{block: make(chan struct{})}
	job := NewRiskReevaluationJob(engine, env.users, 10*time.Millisecond, 1, nil, logger.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		job.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, job.running.Load, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-stopped:
		t.Fatal("Run returned while a sweep was still analyzing")
	case <-time.After(50 * time.Millisecond):
	}

	close(engine.block)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("job did not stop after the sweep finished")
	}
	assert.False(t, job.running.Load())
	assert.Equal(t, 1, engine.callCount())
}

func TestNewRiskReevaluationJob_Defaults(t *testing.T) {
	job := NewRiskReevaluationJob(&scriptedEngine{}, nil, 0, 0, nil, logger.NewNoopLogger())
	assert.Equal(t, time.Hour, job.interval)
	assert.Equal(t, 4, job.workers)
}
