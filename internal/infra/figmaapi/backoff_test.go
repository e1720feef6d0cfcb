package figmaapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesUpToMax(t *testing.T) {
	b := newBackoff(time.Millisecond, 3*time.Millisecond)
	require.True(t, b.Sleep(context.Background()))
	require.Equal(t, 2*time.Millisecond, b.current)
	require.True(t, b.Sleep(context.Background()))
	require.Equal(t, 3*time.Millisecond, b.current)
}

func TestBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.False(t, newBackoff(time.Hour, time.Hour).Sleep(ctx))
}

func TestRetryableStatus(t *testing.T) {
	require.True(t, retryableStatus(http.StatusTooManyRequests))
	require.True(t, retryableStatus(http.StatusServiceUnavailable))
	require.False(t, retryableStatus(http.StatusNotFound))
	require.False(t, retryableStatus(http.StatusOK))
}
