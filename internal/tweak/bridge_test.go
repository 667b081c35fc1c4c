package tweak

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/dynamic"
	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/testutil"
	"github.com/specialistvlad/livebag/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type fixture struct {
	reg    *registry.Registry
	bridge *Bridge
	path   string
	logs   *testutil.SafeBuffer
	radius *value.Value[float64]
	color  *value.Value[value.Color]
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger, logs := testutil.NewLogger(t)
	dir := testutil.WriteFiles(t, map[string]string{"params.json": `{}`})

	reg := registry.New(registry.WithLogger(logger))
	reg.SetPath(filepath.Join(dir, "params.json"))

	f := &fixture{
		reg:    reg,
		bridge: New(reg, append([]Option{WithLogger(logger)}, opts...)...),
		path:   filepath.Join(dir, "params.json"),
		logs:   logs,
		radius: value.NewFloat(reg, "radius", "disk", 0.5, value.WithBounds(0, 10)),
		color:  value.NewColor(reg, "color", "disk", value.Color{R: 1}),
	}
	return f
}

func TestBridge_Items(t *testing.T) {
	f := newFixture(t)
	c := dynamic.NewSimple(func(name string) string { return name })
	c.Reconcile(context.Background(), []config.ObjectKey{{Type: "spark", Name: "a"}})
	f.reg.AddContainer("emitters", c)

	snap := f.bridge.Items()

	want := []Item{
		{Group: "disk", Name: "color", Kind: "color", Value: map[string]any{"r": "1", "g": "0", "b": "0"}, Min: 0, Max: 1},
		{Group: "disk", Name: "radius", Kind: "float", Value: "0.5", Min: 0, Max: 10},
	}
	if diff := cmp.Diff(want, snap.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []config.ObjectKey{{Type: "spark", Name: "a"}}, snap.Containers["emitters"])

	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"containers":{"emitters":[{"type":"spark","name":"a"}]}`)
}

func TestBridge_ApplyCommitsAndSavesOnce(t *testing.T) {
	f := newFixture(t)

	var notified int
	f.radius.Subscribe(func() { notified++ }, false)

	require.NoError(t, f.bridge.Edit("disk", "radius", 2.0))
	require.NoError(t, f.bridge.Edit("disk", "radius", "3"))
	require.NoError(t, f.bridge.Edit("disk", "color", map[string]any{"r": 0.0, "g": 1.0, "b": "0.5"}))

	assert.Equal(t, 0.5, f.radius.Get(), "edits wait for Apply")

	n := f.bridge.Apply(context.Background())
	assert.Equal(t, 2, n)
	assert.Equal(t, 3.0, f.radius.Get(), "the latest edit wins")
	assert.Equal(t, 1, notified)
	assert.Equal(t, value.Color{R: 0, G: 1, B: 0.5}, f.color.Get())

	saved := testutil.ReadFile(t, f.path)
	assert.Contains(t, saved, `"radius": "3"`)
	assert.Equal(t, 1, f.logs.Count("Document saved"))

	assert.Zero(t, f.bridge.Apply(context.Background()))
	assert.Equal(t, 1, f.logs.Count("Document saved"), "nothing modified, nothing saved")
}

func TestBridge_RejectedEdits(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.bridge.Edit("disk", "missing", 1.0), ErrUnknownValue)
	assert.Error(t, f.bridge.Edit("disk", "radius", struct{}{}))

	require.NoError(t, f.bridge.Edit("disk", "color", "not a color"))
	assert.Zero(t, f.bridge.Apply(context.Background()))
	assert.Contains(t, f.logs.String(), "Rejected edit")
	assert.Equal(t, 0, f.logs.Count("Document saved"))
}

func TestBridge_EditOfClosedValueIsDropped(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bridge.Edit("disk", "radius", 4.0))
	require.NoError(t, f.radius.Close())

	assert.Zero(t, f.bridge.Apply(context.Background()))
	assert.Contains(t, f.logs.String(), "Edited value is gone")
}

func TestBridge_SaveAndReloadRequests(t *testing.T) {
	var reloads int
	f := newFixture(t, WithReload(func() { reloads++ }))

	f.bridge.RequestSave()
	f.bridge.onSet(f.bridge.logger, map[string]any{"group": "disk", "name": "radius", "value": "7"})
	f.bridge.onSet(f.bridge.logger, "garbage")
	f.bridge.mu.Lock()
	f.bridge.reloadAsked = true
	f.bridge.mu.Unlock()

	assert.Equal(t, 1, f.bridge.Apply(context.Background()))
	assert.Equal(t, 1, reloads)
	assert.Equal(t, 7.0, f.radius.Get())
	assert.Equal(t, 1, f.logs.Count("Document saved"))
	assert.Contains(t, f.logs.String(), "Malformed set event")
}

func TestWireConversion(t *testing.T) {
	leaf := cty.ObjectVal(map[string]cty.Value{
		"x":    cty.StringVal("1"),
		"list": cty.TupleVal([]cty.Value{cty.NumberIntVal(2), cty.True}),
	})

	w, err := toWire(leaf)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "1", "list": []any{2.0, true}}, w)

	back, err := fromWire(w)
	require.NoError(t, err)
	assert.True(t, back.GetAttr("x").RawEquals(cty.StringVal("1")))

	_, err = fromWire(make(chan int))
	assert.Error(t, err)
}
