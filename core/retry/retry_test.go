package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	cfg := Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, ExponentialBase: 2}
	calls := 0
	stats, err := Do(context.Background(), cfg, nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return agentpayerrors.UpstreamUnavailable("rpc", nil)
		}
		return nil
	})
	require.NoError(t, err)
	require.True(t, stats.Succeeded)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	cfg := Config{
		MaxRetries: 5, BaseDelay: time.Millisecond,
		NonRetryable: []agentpayerrors.Code{agentpayerrors.CodePolicyDenied},
	}
	calls := 0
	_, err := Do(context.Background(), cfg, nil, func(ctx context.Context) error {
		calls++
		return agentpayerrors.PolicyDenied("merchant_denied")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	var exhausted *Exhausted
	require.True(t, errors.As(err, &exhausted))
}

func TestDoExhaustsRetries(t *testing.T) {
	cfg := Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	calls := 0
	_, err := Do(context.Background(), cfg, nil, func(ctx context.Context) error {
		calls++
		return agentpayerrors.TransactionFailed("base", "rpc down")
	})
	require.Error(t, err)
	require.Equal(t, 3, calls) // initial + 2 retries
}

func TestDelayRespectsMaxDelay(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 2 * time.Second, ExponentialBase: 10}
	d := cfg.delay(5)
	require.LessOrEqual(t, d, 2*time.Second)
}
