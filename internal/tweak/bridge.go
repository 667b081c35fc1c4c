// Package tweak connects the registry to a remote debug UI over socket.io.
//
// The UI receives a "values" event listing every registered value and
// container, and sends "set", "save" and "reload" events back. Edits are
// queued from the socket goroutines and committed by Apply on the main
// thread, which then saves the document once if anything changed.
package tweak

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/specialistvlad/livebag/internal/config"
	"github.com/specialistvlad/livebag/internal/ctxlog"
	"github.com/specialistvlad/livebag/internal/registry"
	"github.com/specialistvlad/livebag/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names exchanged with the UI.
const (
	EventValues = "values"
	EventSet    = "set"
	EventSave   = "save"
	EventReload = "reload"
)

const connectTimeout = 15 * time.Second

// ErrUnknownValue is returned when an edit names an unregistered value.
var ErrUnknownValue = errors.New("unknown value")

// Item describes one value for the UI.
type Item struct {
	Group string  `json:"group"`
	Name  string  `json:"name"`
	Kind  string  `json:"kind"`
	Value any     `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Snapshot is the payload of the "values" event.
type Snapshot struct {
	Items      []Item                        `json:"items"`
	Containers map[string][]config.ObjectKey `json:"containers"`
}

type kinded interface {
	Kind() value.Kind
}

type bounded interface {
	Bounds() (min, max float64)
}

type editKey struct {
	group, name string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithReload sets the function run when the UI asks for a reload.
func WithReload(fn func()) Option {
	return func(b *Bridge) {
		b.reload = fn
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() Option {
	return func(b *Bridge) {
		b.insecure = true
	}
}

// Bridge mediates between the registry and a debug UI.
type Bridge struct {
	reg      *registry.Registry
	logger   *slog.Logger
	reload   func()
	insecure bool

	mu          sync.Mutex
	edits       map[editKey]cty.Value
	order       []editKey
	saveWanted  bool
	reloadAsked bool
	io          *socket.Socket
}

// New creates a bridge for reg.
func New(reg *registry.Registry, opts ...Option) *Bridge {
	b := &Bridge{
		reg:    reg,
		logger: slog.Default(),
		edits:  make(map[editKey]cty.Value),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Items lists every registered value and the content of every container.
func (b *Bridge) Items() Snapshot {
	snap := Snapshot{Containers: make(map[string][]config.ObjectKey)}

	for _, it := range b.reg.Items() {
		item := Item{Group: it.Group, Name: it.Name}
		if k, ok := it.Entry.(kinded); ok {
			item.Kind = k.Kind().String()
		}
		if bd, ok := it.Entry.(bounded); ok {
			item.Min, item.Max = bd.Bounds()
		}
		v, err := toWire(it.Entry.Encode())
		if err != nil {
			b.logger.Warn("Cannot publish value.", "group", it.Group, "name", it.Name, "error", err)
			continue
		}
		item.Value = v
		snap.Items = append(snap.Items, item)
	}

	for name, c := range b.reg.Containers() {
		snap.Containers[name] = c.Content()
	}
	return snap
}

// Edit queues a new value for group/name. It may be called from any
// goroutine; the value takes effect on the next Apply. A later edit of the
// same value replaces an earlier one.
func (b *Bridge) Edit(group, name string, raw any) error {
	if _, ok := b.reg.Lookup(group, name); !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownValue, group, name)
	}
	leaf, err := fromWire(raw)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := editKey{group, name}
	if _, queued := b.edits[key]; !queued {
		b.order = append(b.order, key)
	}
	b.edits[key] = leaf
	return nil
}

// RequestSave asks the next Apply to save even if nothing was edited.
func (b *Bridge) RequestSave() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveWanted = true
}

// Apply commits queued edits and returns how many values were modified. If
// any were, or a save was requested, the document is saved once. It must be
// called from the main thread.
func (b *Bridge) Apply(ctx context.Context) int {
	logger := ctxlog.FromContextOr(ctx, b.logger)

	b.mu.Lock()
	order, edits := b.order, b.edits
	saveWanted, reload := b.saveWanted, b.reloadAsked
	b.order, b.edits = nil, make(map[editKey]cty.Value)
	b.saveWanted, b.reloadAsked = false, false
	b.mu.Unlock()

	if reload && b.reload != nil {
		b.reload()
	}

	modified := 0
	for _, key := range order {
		entry, ok := b.reg.Lookup(key.group, key.name)
		if !ok {
			logger.Warn("Edited value is gone, dropping edit.", "group", key.group, "name", key.name)
			continue
		}
		staged, err := entry.Prepare(edits[key])
		if err != nil {
			logger.Warn("Rejected edit.", "group", key.group, "name", key.name, "error", err)
			continue
		}
		entry.Commit(staged)
		modified++
	}

	if modified > 0 || saveWanted {
		if err := b.reg.Save(ctx); err != nil {
			logger.Error("Failed to save after edits.", "error", err)
		}
	}
	if modified > 0 {
		b.Publish()
	}
	return modified
}

// Connect dials the UI at rawURL and waits for the connection.
func (b *Bridge) Connect(ctx context.Context, rawURL string) error {
	logger := ctxlog.FromContextOr(ctx, b.logger).With("url", rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" {
		opts.SetPath(parsed.Path)
	}
	if b.insecure {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	connected := make(chan error, 1)
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := firstArg(errs).(error)
		if err == nil {
			err = errors.New("connect_error")
		}
		select {
		case connected <- err:
		default:
		}
	})
	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Debug UI connected.", "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
		io.Emit(EventValues, b.Items())
	})
	io.On(types.EventName(EventSet), func(args ...any) {
		b.onSet(logger, firstArg(args))
	})
	io.On(types.EventName(EventSave), func(...any) {
		b.RequestSave()
	})
	io.On(types.EventName(EventReload), func(...any) {
		b.mu.Lock()
		b.reloadAsked = true
		b.mu.Unlock()
	})

	b.mu.Lock()
	b.io = io
	b.mu.Unlock()

	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			b.drop(io)
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		b.drop(io)
		return fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		b.drop(io)
		return fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}
	return nil
}

// drop disconnects io and forgets it if it is still the current socket.
func (b *Bridge) drop(io *socket.Socket) {
	io.Disconnect()
	b.mu.Lock()
	if b.io == io {
		b.io = nil
	}
	b.mu.Unlock()
}

// Publish sends the current values to the UI, if connected.
func (b *Bridge) Publish() {
	b.mu.Lock()
	io := b.io
	b.mu.Unlock()

	if io == nil || !io.Connected() {
		return
	}
	io.Emit(EventValues, b.Items())
}

// Close disconnects from the UI.
func (b *Bridge) Close() error {
	b.mu.Lock()
	io := b.io
	b.io = nil
	b.mu.Unlock()

	if io != nil {
		io.Disconnect()
	}
	return nil
}

func (b *Bridge) onSet(logger *slog.Logger, payload any) {
	msg, ok := payload.(map[string]any)
	if !ok {
		logger.Warn("Malformed set event.", "payload", payload)
		return
	}
	group, _ := msg["group"].(string)
	name, _ := msg["name"].(string)
	if group == "" {
		group = value.DefaultGroup
	}
	if err := b.Edit(group, name, msg["value"]); err != nil {
		logger.Warn("Rejected edit from debug UI.", "group", group, "name", name, "error", err)
	}
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
