package veneer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEnabledDefault(t *testing.T) {
	m := &Mock{}
	assert.True(t, m.enabled())

	t.Setenv(envProduction, "production")
	assert.False(t, m.enabled())
}

func TestMockEnabledOverride(t *testing.T) {
	t.Setenv(envProduction, "production")
	m := &Mock{Enabled: func() bool { return true }}
	assert.True(t, m.enabled())
}

func TestMockStatusDefaults(t *testing.T) {
	assert.Equal(t, 200, (&Mock{}).status())
	assert.Equal(t, 418, (&Mock{Status: 418}).status())
}

func TestMockDelayHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &Mock{Data: "x", Delay: time.Minute}
	_, err := m.payload(ctx, nil)
	require.Error(t, err)
	assert.Equal(t, CodeCanceled, CodeOf(err))
}

func TestMockDelayElapses(t *testing.T) {
	m := &Mock{Data: "x", Delay: time.Millisecond}
	start := time.Now()
	data, err := m.payload(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "x", data)
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}
