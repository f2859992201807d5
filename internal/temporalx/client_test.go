package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("TEMPORAL_TASK_QUEUE", "")
	cfg := LoadConfig()
	assert.False(t, cfg.Enabled())
	assert.Equal(t, DefaultNamespace, cfg.Namespace)
	assert.Equal(t, DefaultTaskQueue, cfg.TaskQueue)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	c, err := NewClient(logger.NewNop(), Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestLoadTLSConfigRequiresPair(t *testing.T) {
	_, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TEMPORAL_CLIENT_KEY_PATH")
}

func TestClampBackoff(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, clampBackoff(0, time.Second, 1))
	assert.Equal(t, 500*time.Millisecond, clampBackoff(250*time.Millisecond, time.Second, 2))
	assert.Equal(t, time.Second, clampBackoff(250*time.Millisecond, time.Second, 6))
}

func TestIsRetryableRPC(t *testing.T) {
	assert.True(t, isRetryableRPC(status.Error(codes.Unavailable, "down")))
	assert.False(t, isRetryableRPC(status.Error(codes.PermissionDenied, "no")))
	assert.True(t, isRetryableRPC(context.DeadlineExceeded))
	assert.False(t, isRetryableRPC(errors.New("plain")))
	assert.False(t, isRetryableRPC(nil))
}
