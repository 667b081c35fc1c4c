package reload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_LastWriteWins(t *testing.T) {
	s := NewSlot[string]()

	assert.False(t, s.Push("a"))
	assert.True(t, s.Push("b"))

	v, ok := s.TryPop()
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = s.TryPop()
	assert.False(t, ok)
}

func TestSlot_PopWakesOnPush(t *testing.T) {
	s := NewSlot[int]()
	got := make(chan int, 1)

	go func() {
		v, err := s.Pop(context.Background())
		if err == nil {
			got <- v
		}
	}()

	time.Sleep(5 * time.Millisecond)
	s.Push(7)

	select {
	case v := <-got:
		assert.Equal(t, 7, v)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not wake")
	}
}

func TestSlot_PopUnblocksOnCloseAndCancel(t *testing.T) {
	s := NewSlot[int]()
	s.Close()
	_, err := s.Pop(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, s.Push(1), "push after close is dropped")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSlot[int]().Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
