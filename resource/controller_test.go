package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.ReserveMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.ReserveMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	err := c.ReserveMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimit)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.ReserveMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.ReserveMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())

	// Non-positive sizes are ignored.
	require.NoError(t, c.ReserveMemory(0))
	c.ReleaseMemory(-1)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.ReserveMemory(1<<40))
	c.ReleaseMemory(1)
	assert.Zero(t, c.MemoryUsage())
	require.NoError(t, c.AcquireWorker(context.Background()))
	c.ReleaseWorker()
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
	assert.Equal(t, Config{}, c.Config())
}

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	require.NoError(t, c.AcquireWorker(context.Background()))
	require.NoError(t, c.AcquireWorker(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireWorker(ctx), context.DeadlineExceeded)

	c.ReleaseWorker()
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	require.NoError(t, c.AcquireWorker(ctx2))
}

func TestController_DefaultWorkers(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, int64(1), c.Config().MaxWorkers)
}

func TestAcquireIO_LargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// A single request larger than the burst must not fail outright.
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20+10))
}

func TestAcquireIO_Canceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.AcquireIO(ctx, 100))
}

func TestRateLimitedIO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	ctx := context.Background()

	var buf bytes.Buffer
	w := NewRateLimitedWriter(ctx, &buf, c)
	_, err := io.Copy(w, strings.NewReader("hello world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", buf.String())

	r := NewRateLimitedReader(ctx, &buf, c)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}
