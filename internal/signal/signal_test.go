package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignal_EmitInConnectionOrder(t *testing.T) {
	var s Signal[int]
	var got []string

	s.Connect(func(v int) { got = append(got, "first") })
	s.Connect(func(v int) { got = append(got, "second") })
	s.Connect(func(v int) { got = append(got, "third") })

	s.Emit(1)

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestSignal_Disconnect(t *testing.T) {
	var s Signal[string]
	calls := 0

	conn := s.Connect(func(string) { calls++ })
	s.Emit("a")
	conn.Disconnect()
	conn.Disconnect()
	s.Emit("b")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Len())
}

func TestSignal_SlotMayDisconnectItselfDuringEmit(t *testing.T) {
	var s Signal[struct{}]
	calls := 0

	var conn *Connection
	conn = s.Connect(func(struct{}) {
		calls++
		conn.Disconnect()
	})
	other := 0
	s.Connect(func(struct{}) { other++ })

	s.Emit(struct{}{})
	s.Emit(struct{}{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}

func TestConnection_NilIsSafe(t *testing.T) {
	var c *Connection
	assert.NotPanics(t, func() { c.Disconnect() })
}
