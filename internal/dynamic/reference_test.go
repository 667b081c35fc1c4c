package dynamic

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference_ResolvesOnCreateAndClearsOnDestroy(t *testing.T) {
	ctx := context.Background()
	c := newEmitters()

	ref := NewReference(c, "n")
	t.Cleanup(func() { _ = ref.Close() })

	var changes int
	ref.Subscribe(func() { changes++ }, false)

	_, ok := ref.Get()
	assert.False(t, ok, "unresolved before the object exists")
	assert.True(t, ref.Handle().IsZero())

	c.Reconcile(ctx, keys("spark", "other"))
	_, ok = ref.Get()
	assert.False(t, ok)
	assert.Equal(t, 0, changes)

	c.Reconcile(ctx, keys("spark", "other", "spark", "n"))
	obj, ok := ref.Get()
	require.True(t, ok)
	assert.Equal(t, "n", obj.name)
	assert.Equal(t, 1, changes)

	c.Reconcile(ctx, keys("spark", "other"))
	_, ok = ref.Get()
	assert.False(t, ok)
	assert.True(t, ref.Handle().IsZero())
	assert.Equal(t, 2, changes)

	// Same name reappears.
	c.Reconcile(ctx, keys("smoke", "n"))
	obj, ok = ref.Get()
	require.True(t, ok)
	assert.Equal(t, "smoke", obj.kind)
}

func TestReference_FollowsRedefinition(t *testing.T) {
	ctx := context.Background()
	c := newEmitters()
	c.Reconcile(ctx, keys("foo", "x"))

	ref := NewReference(c, "x")
	t.Cleanup(func() { _ = ref.Close() })
	first, ok := ref.Get()
	require.True(t, ok)

	c.Reconcile(ctx, keys("bar", "x"))
	second, ok := ref.Get()
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Equal(t, "bar", second.kind)
}

func TestReference_SetObjectName(t *testing.T) {
	ctx := context.Background()
	c := newEmitters()
	c.Reconcile(ctx, keys("spark", "a", "spark", "b"))

	ref := NewReference(c, "a")
	t.Cleanup(func() { _ = ref.Close() })

	ref.SetObjectName("b")
	obj, ok := ref.Get()
	require.True(t, ok)
	assert.Equal(t, "b", obj.name)
	assert.Equal(t, "b", ref.Target())

	ref.SetObjectName("missing")
	_, ok = ref.Get()
	assert.False(t, ok)
}

func TestReference_SetObjectNameNotifiesOnUnresolvedRetarget(t *testing.T) {
	ref := NewReference(newEmitters(), "a")
	t.Cleanup(func() { _ = ref.Close() })

	calls := 0
	ref.Subscribe(func() { calls++ }, false)

	ref.SetObjectName("b")
	assert.Equal(t, 1, calls, "target changed although neither object exists")
	assert.Equal(t, "b", ref.Target())

	ref.SetObjectName("b")
	assert.Equal(t, 1, calls, "same target does not notify")
}

func TestReference_CloseStopsTracking(t *testing.T) {
	c := newEmitters()
	ref := NewReference(c, "n")
	require.NoError(t, ref.Close())

	c.Reconcile(context.Background(), keys("spark", "n"))
	_, ok := ref.Get()
	assert.False(t, ok)
}

func TestReference_SavedAndLoadedThroughRegistry(t *testing.T) {
	ctx, _ := testutil.Context(t)
	logger, _ := testutil.NewLogger(t)
	reg := registry.New(registry.WithLogger(logger))

	c := newEmitters()
	reg.AddContainer("emitters", c)
	c.Reconcile(ctx, keys("spark", "left", "smoke", "right"))

	focus := NewReference(c, "left")
	require.NoError(t, focus.Bind(reg, "focus", ""))
	t.Cleanup(func() { _ = focus.Close() })

	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, reg.SaveAs(ctx, path))
	saved := testutil.ReadFile(t, path)
	assert.Contains(t, saved, `"focus": "left"`)
	assert.Contains(t, saved, `"__dynamics__"`)

	dir := testutil.WriteFiles(t, map[string]string{
		"next.json": `{
			"__dynamics__": {"emitters": [{"type": "smoke", "name": "right"}, {"type": "spark", "name": "third"}]},
			"default": {"focus": "third"}
		}`,
	})
	require.NoError(t, reg.Load(ctx, filepath.Join(dir, "next.json")))

	obj, ok := focus.Get()
	require.True(t, ok)
	assert.Equal(t, "third", obj.name)
	assert.Equal(t, 2, c.Len())
}
