package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"narrative-workers/internal/common/config"
	"narrative-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"broken pipe", true},
		{"NOT_FOUND: expected to find job", false},
		{"invalid argument", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	err := mapZeebeError(stderrors.New("deadline exceeded"), "complete-job", 2)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCode("TIMEOUT_ERROR"), stdErr.Code)
	assert.Contains(t, stdErr.Details, "after 2 attempts")

	err = mapZeebeError(stderrors.New("NOT_FOUND: job 1"), "complete-job", 0)
	stdErr, ok = errors.AsStandardError(err)
	require.True(t, ok)
	assert.False(t, stdErr.Retryable)

	err = mapZeebeError(stderrors.New("something odd"), "publish", 0)
	stdErr, ok = errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorCode("EXTERNAL_SERVICE_ERROR"), stdErr.Code)
}

func TestClient_ExecuteWithRetry(t *testing.T) {
	c := &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}}

	calls := 0
	res, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, stderrors.New("zeebe health check failed: rpc error: code = Unavailable")
		}
		return "topology", nil
	}, "topology")
	require.NoError(t, err)
	assert.Equal(t, "topology", res)
	assert.Equal(t, 2, calls)

	calls = 0
	_, err = c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("connection refused")
	}, "topology")
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		res, err := executeWithRetry(context.Background(), rc, func(context.Context) (interface{}, error) {
			calls++
			if calls < 3 {
				return nil, stderrors.New("unavailable")
			}
			return "ok", nil
		}, "topology")
		require.NoError(t, err)
		assert.Equal(t, "ok", res)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		_, err := executeWithRetry(context.Background(), rc, func(context.Context) (interface{}, error) {
			calls++
			return nil, stderrors.New("invalid argument")
		}, "deploy")
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}
		_, err := executeWithRetry(ctx, slow, func(context.Context) (interface{}, error) {
			return nil, stderrors.New("connection reset")
		}, "publish")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestConfigFrom(t *testing.T) {
	cc := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 1500})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.Equal(t, 1500*time.Millisecond, cc.RequestTimeout)
	assert.True(t, cc.UsePlaintextConnection)
}
