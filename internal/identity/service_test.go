package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/errors"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/testutil"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/risk"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mock := testutil.NewMockRedis(zap.NewNop())
	require.NoError(t, mock.Setup())
	t.Cleanup(func() { _ = mock.Shutdown() })
	return NewService(store.NewRedisStore(mock.Client()), zap.NewNop())
}

func TestRegisterAndLookup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)

	byEmail, err := svc.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ALICE@example.com", "different-password")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorCode(err, apperrors.ErrUserAlreadyExists))
	assert.Equal(t, 409, apperrors.GetStatusCode(err))
}

func TestGetUnknownUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestUpdateLastLoginFeedsLastKnown(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Nil(t, user.LastKnown())

	loc := &risk.Location{Country: "GB", City: "London", Latitude: 51.5, Longitude: -0.12}
	at := time.Now()
	require.NoError(t, svc.UpdateLastLogin(ctx, user, "1.2.3.4", loc, at))

	reloaded, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	lastKnown := reloaded.LastKnown()
	require.NotNil(t, lastKnown)
	assert.Equal(t, "London", lastKnown.Location.City)
	assert.WithinDuration(t, at, lastKnown.LastLogin, time.Second)
}

func TestAPIKeyLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	key, err := svc.CreateAPIKey(ctx, "u1", "ci-deploy")
	require.NoError(t, err)
	assert.NotEmpty(t, key.Key)
	assert.Contains(t, key.Key, "ak_")

	resolved, err := svc.LookupAPIKey(ctx, key.Key)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "u1", resolved.UserID)

	keys, err := svc.ListAPIKeys(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "ci-deploy", keys[0].Name)
	// Listing never exposes key material
	assert.Empty(t, keys[0].Key)
}
