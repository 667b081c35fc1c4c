package reload

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/testutil"
	"github.com/specialistvlad/livebag/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingContext struct {
	current  atomic.Int32
	fences   atomic.Int32
	released atomic.Int32
	failMake bool
}

func (c *countingContext) MakeCurrent() error {
	if c.failMake {
		return errors.New("no display")
	}
	c.current.Add(1)
	return nil
}

func (c *countingContext) Fence(context.Context) error {
	c.fences.Add(1)
	return nil
}

func (c *countingContext) Release() { c.released.Add(1) }

func waitApplied(t *testing.T, w *Worker) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.ApplyPending(context.Background()) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no snapshot was applied")
}

func TestWorker_CoalescesRequests(t *testing.T) {
	logger, logs := testutil.NewLogger(t)
	dir := testutil.WriteFiles(t, map[string]string{
		"p1.json": `{"disk": {"radius": "1"}}`,
		"p2.json": `{"disk": {"radius": "2"}}`,
	})
	p1 := filepath.Join(dir, "p1.json")
	p2 := filepath.Join(dir, "p2.json")

	reg := registry.New(registry.WithLogger(logger))
	radius := value.NewFloat(reg, "radius", "disk", 0)

	exec := &countingContext{}
	w := New(reg, WithExecContext(exec), WithIdle(time.Millisecond), WithLogger(logger))

	w.Request(p1)
	w.Request(p2)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Close() })

	waitApplied(t, w)

	assert.Equal(t, 2.0, radius.Get())
	assert.Equal(t, int32(1), exec.current.Load())
	assert.Equal(t, int32(1), exec.fences.Load(), "only the latest request is staged")
	assert.Contains(t, logs.String(), "Pending reload request replaced")
	assert.NotContains(t, logs.String(), `msg="Staged document." path=`+p1)
	assert.Contains(t, logs.String(), `msg="Staged document." path=`+p2)
}

func TestWorker_StagingDoesNotTouchLiveValues(t *testing.T) {
	logger, _ := testutil.NewLogger(t)
	dir := testutil.WriteFiles(t, map[string]string{
		"params.json": `{"disk": {"radius": "5"}}`,
	})

	reg := registry.New(registry.WithLogger(logger))
	radius := value.NewFloat(reg, "radius", "disk", 1)

	var notified atomic.Int32
	radius.Subscribe(func() { notified.Add(1) }, false)

	exec := &countingContext{}
	w := New(reg, WithExecContext(exec), WithIdle(time.Millisecond), WithLogger(logger))
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Close() })

	w.Request(filepath.Join(dir, "params.json"))
	require.Eventually(t, func() bool { return exec.fences.Load() == 1 }, 2*time.Second, time.Millisecond)

	assert.Equal(t, 1.0, radius.Get())
	assert.Equal(t, int32(0), notified.Load())

	require.True(t, w.ApplyPending(context.Background()))
	assert.Equal(t, 5.0, radius.Get())
	assert.Equal(t, int32(1), notified.Load())
	assert.False(t, w.ApplyPending(context.Background()), "a snapshot is applied once")
}

func TestWorker_MissingDocumentIsSkipped(t *testing.T) {
	logger, logs := testutil.NewLogger(t)
	reg := registry.New(registry.WithLogger(logger))

	exec := &countingContext{}
	w := New(reg, WithExecContext(exec), WithIdle(time.Millisecond), WithLogger(logger))
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Close() })

	w.Request(filepath.Join(t.TempDir(), "absent.json"))
	require.Eventually(t, func() bool {
		return logs.Count("Reload skipped, document does not exist") == 1
	}, 2*time.Second, time.Millisecond)
	assert.False(t, w.ApplyPending(context.Background()))
	assert.Zero(t, exec.fences.Load())
}

func TestWorker_StartAndClose(t *testing.T) {
	exec := &countingContext{}
	w := New(registry.New(), WithExecContext(exec))

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrStarted)

	require.NoError(t, w.Close())
	assert.Equal(t, int32(1), exec.released.Load())

	// Requests after Close are dropped.
	w.Request("ignored.json")
	assert.False(t, w.ApplyPending(context.Background()))
}

func TestWorker_StartFailsWithoutContext(t *testing.T) {
	w := New(registry.New(), WithExecContext(&countingContext{failMake: true}))
	err := w.Start(context.Background())
	assert.Error(t, err)
	require.NoError(t, w.Close())
}

func TestWorker_CloseBeforeStart(t *testing.T) {
	w := New(registry.New())
	assert.NoError(t, w.Close())
}
