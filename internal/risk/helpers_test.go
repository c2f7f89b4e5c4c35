package risk

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/testutil"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

func newRiskStore(t *testing.T) store.Store {
	t.Helper()
	mock := testutil.NewMockRedis(zap.NewNop())
	require.NoError(t, mock.Setup())
	t.Cleanup(func() { _ = mock.Shutdown() })
	return store.NewRedisStore(mock.Client())
}
