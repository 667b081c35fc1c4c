package reload

import "context"

// ExecContext is the execution context value decoding may need, such as a
// rendering context that owns GPU resources. The worker makes it current on
// its own locked OS thread before staging anything.
type ExecContext interface {
	// MakeCurrent binds the context to the calling OS thread.
	MakeCurrent() error
	// Fence blocks until work issued by staging is visible to other
	// contexts.
	Fence(ctx context.Context) error
	// Release unbinds the context from the calling thread.
	Release()
}

// NopContext is an ExecContext for values that need no execution context.
type NopContext struct{}

func (NopContext) MakeCurrent() error { return nil }

func (NopContext) Fence(context.Context) error { return nil }

func (NopContext) Release() {}
