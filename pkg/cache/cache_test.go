package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientIsNoop(t *testing.T) {
	ctx := context.Background()
	c := NewService(nil)

	assert.False(t, c.IsAvailable())
	assert.Error(t, c.Ping(ctx))

	require.NoError(t, c.SetSubscription(ctx, "biz-1", map[string]string{"plan": "pro"}))

	var dest map[string]string
	assert.ErrorIs(t, c.GetSubscription(ctx, "biz-1", &dest), ErrCacheMiss)
	assert.NoError(t, c.InvalidateSubscription(ctx, "biz-1"))

	exists, err := c.Exists(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, exists)

	release, err := c.AcquireLock(ctx, "ipn:1", TTLLock)
	require.NoError(t, err)
	release()
}
