package demo

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/testutil"
	"github.com/specialistvlad/livebag/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneDoc = `{
  "__dynamics__": {
    "emitters": [
      {"type": "spark", "name": "left"},
      {"type": "smoke", "name": "right"}
    ]
  },
  "camera": {"focus": "right"},
  "default": {"friction": "0.9", "springk": "0.01"},
  "disk": {"color": {"r": "1", "g": "0", "b": "0"}, "radius": "40"},
  "perlin": {"amplitude": "0", "scale": "0.002", "speed": "1"},
  "version": 1
}`

func newScene(t *testing.T) (*Scene, *registry.Registry, *testutil.SafeBuffer) {
	t.Helper()
	logger, logs := testutil.NewLogger(t)
	reg := registry.New(registry.WithLogger(logger))
	s, err := NewScene(reg, logger, 800, 600)
	require.NoError(t, err)
	return s, reg, logs
}

func TestScene_LoadsDocument(t *testing.T) {
	s, reg, logs := newScene(t)
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, map[string]string{"params.json": sceneDoc})

	require.NoError(t, reg.Load(ctx, filepath.Join(dir, "params.json")))

	assert.Equal(t, 40.0, s.Disk.Radius.Get())
	assert.Equal(t, value.Color{R: 1}, s.Disk.Color.Get())
	assert.Equal(t, 0.9, s.Friction.Get())
	assert.Equal(t, 2, s.Emitters.Len())
	assert.Contains(t, logs.String(), "Updated disk radius!")

	focus, ok := s.Focus.Get()
	require.True(t, ok)
	assert.Equal(t, "smoke", focus.Kind)
	assert.Equal(t, 15.0, focus.Rate)
}

func TestScene_SpringPullsTowardCenter(t *testing.T) {
	s, _, _ := newScene(t)
	s.Amplitude.Set(0)
	s.Disk.Pos = value.Vec2{X: 500, Y: 300}

	start := math.Abs(s.Disk.Pos.X - s.Center.X)
	for i := 0; i < 200; i++ {
		s.Update(16 * time.Millisecond)
	}
	assert.Less(t, math.Abs(s.Disk.Pos.X-s.Center.X), start)
	assert.InDelta(t, s.Center.Y, s.Disk.Pos.Y, 1e-9)

	s.Reset()
	assert.Equal(t, s.Center, s.Disk.Pos)
	assert.Equal(t, value.Vec2{}, s.Disk.Vel)
}

func TestScene_Close(t *testing.T) {
	s, reg, _ := newScene(t)
	ctx, _ := testutil.Context(t)
	dir := testutil.WriteFiles(t, map[string]string{"params.json": sceneDoc})
	require.NoError(t, reg.Load(ctx, filepath.Join(dir, "params.json")))

	left, ok := s.Emitters.Get("left")
	require.True(t, ok)

	require.NoError(t, s.Close())
	assert.Empty(t, reg.Groups())
	assert.Zero(t, s.Emitters.Len())
	assert.True(t, left.Closed)
}
