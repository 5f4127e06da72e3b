package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	s := &fakeSession{}

	id := r.Register(s)
	require.NotEmpty(t, id)
	assert.True(t, r.Registered(id))
	assert.Empty(t, r.Username(id))

	room, ok := r.Room(id)
	assert.True(t, ok)
	assert.Empty(t, room)

	r.BindIdentity(id, "alice")
	assert.Equal(t, "alice", r.Username(id))

	got, ok := r.session(id)
	require.True(t, ok)
	assert.Same(t, s, got.(*fakeSession))

	r.Unregister(id)
	assert.False(t, r.Registered(id))
	// A second unregister must be a silent no-op; disconnects race leaves.
	r.Unregister(id)

	_, ok = r.Room(id)
	assert.False(t, ok)
}

func TestRegistryDistinctIdentifiers(t *testing.T) {
	r := NewRegistry()
	a := r.Register(&fakeSession{})
	b := r.Register(&fakeSession{})
	assert.NotEqual(t, a, b)
}

func TestRegistryRoomPointer(t *testing.T) {
	r := NewRegistry()
	id := r.Register(&fakeSession{})

	r.setRoom(id, "general")
	room, _ := r.Room(id)
	assert.Equal(t, "general", room)

	// Clearing against a stale room name must not clobber the pointer.
	r.clearRoom(id, "tech")
	room, _ = r.Room(id)
	assert.Equal(t, "general", room)

	r.clearRoom(id, "general")
	room, _ = r.Room(id)
	assert.Empty(t, room)
}
