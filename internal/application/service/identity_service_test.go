package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/pdmews/internal/application/dto"
	"github.com/turtacn/pdmews/internal/domain/models"
	"github.com/turtacn/pdmews/pkg/errors"
)

type recordingLeaks struct {
	raw          []string
	identifierID *uuid.UUID
}

func (r *recordingLeaks) CheckIdentity(_ context.Context, raw string, _ *models.User, identifierID *uuid.UUID) {
	r.raw = append(r.raw, raw)
	r.identifierID = identifierID
}

func TestIdentityService_CreateUser(t *testing.T) {
	env := newTestEnv(t)
	svc := NewIdentityService(env.users, env.identifiers, nil, env.log)

	u, err := svc.CreateUser(context.Background(), &dto.CreateUserRequest{Username: "kate"})
	require.NoError(t, err)
	assert.Equal(t, "kate", u.Username)

	_, err = svc.CreateUser(context.Background(), &dto.CreateUserRequest{Username: "kate"})
	assert.True(t, errors.HasCode(err, errors.CodeConflict))

	_, err = svc.CreateUser(context.Background(), &dto.CreateUserRequest{Username: "   "})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRequest))
}

func TestIdentityService_AddIdentifier(t *testing.T) {
	env := newTestEnv(t)
	leaks := &recordingLeaks{}
	svc := NewIdentityService(env.users, env.identifiers, leaks, env.log)
	u := env.user(t, "liam")

	id, err := svc.AddIdentifier(context.Background(), &dto.AddIdentifierRequest{
		UserID: u.ID.String(), Type: "EMAIL", Value: "alice@example.com", Label: "work",
	})
	require.NoError(t, err)
	assert.Equal(t, models.HashIdentifier("alice@example.com"), id.IdentifierHash)
	assert.Equal(t, []string{"alice@example.com"}, leaks.raw)
	require.NotNil(t, leaks.identifierID)
	assert.Equal(t, id.ID, *leaks.identifierID)

	stored, err := env.identifiers.ListByUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotContains(t, stored[0].IdentifierHash, "@")
}

func TestIdentityService_AddIdentifierErrors(t *testing.T) {
	env := newTestEnv(t)
	svc := NewIdentityService(env.users, env.identifiers, &recordingLeaks{}, env.log)

	_, err := svc.AddIdentifier(context.Background(), &dto.AddIdentifierRequest{
		UserID: uuid.NewString(), Type: "EMAIL", Value: "a@b.c",
	})
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.AddIdentifier(context.Background(), &dto.AddIdentifierRequest{
		UserID: "nope", Type: "FAX", Value: "a@b.c",
	})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRequest))
}

func TestSignalServices(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "mia")
	exposures := NewExposureService(env.users, env.exposures, env.log)
	events := NewMisuseEventService(env.users, env.events, env.log)
	ctx := context.Background()

	exp, err := exposures.AddExposure(ctx, &dto.AddExposureRequest{
		UserID: u.ID.String(), AppName: "FitnessPal", SignupDate: "2024-01-01", Category: "FITNESS",
	})
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), exp.SignupDate)

	_, err = exposures.AddExposure(ctx, &dto.AddExposureRequest{
		UserID: u.ID.String(), AppName: "FitnessPal", SignupDate: "01/01/2024",
	})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRequest))

	ev, err := events.ReportEvent(ctx, &dto.ReportEventRequest{
		UserID:    u.ID.String(),
		Type:      "SPAM_SMS",
		Timestamp: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		Severity:  "MEDIUM",
		Metadata:  map[string]string{"carrier": "acme"},
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", ev.Metadata["carrier"])

	listedExp, err := exposures.ListExposures(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, listedExp, 1)
	listedEv, err := events.ListEvents(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, listedEv, 1)
	assert.Equal(t, models.EventTypeSpamSMS, listedEv[0].Type)

	_, err = events.ListEvents(ctx, uuid.New())
	assert.True(t, errors.IsNotFound(err))
}

func TestInsightService(t *testing.T) {
	env := newTestEnv(t)
	svc := NewInsightService(env.users, env.alerts, env.assessments, env.crowd, env.trust)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, env.crowd.ReportHighRisk(ctx, "ShadyApp"))
	}
	standing, err := svc.CrowdStanding(ctx, "ShadyApp")
	require.NoError(t, err)
	assert.Equal(t, 3, standing.Reports)
	assert.InDelta(t, 1.12, standing.Multiplier, 1e-9)

	assert.Equal(t, 95, svc.TrustScore("Google").TrustScore)
	assert.Equal(t, 50, svc.TrustScore("Nobody").TrustScore)

	_, err = svc.ListAlerts(ctx, uuid.New())
	assert.True(t, errors.IsNotFound(err))
}
