package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Session is the outbound half of one live transport connection. Deliver
// must not block; it reports false when the event could not be queued, for
// example because the connection's send buffer is full.
type Session interface {
	Deliver(ev Event) bool
}

type connection struct {
	session  Session
	username string
	room     string
}

// Registry is the single source of truth for live connections and the
// identity bound to each. Room membership lives in the room coordinators;
// they reference connections only by identifier and keep the current-room
// pointer here in sync with their member sets.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*connection)}
}

// Register adds a live connection and returns its generated identifier.
func (r *Registry) Register(s Session) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.conns[id] = &connection{session: s}
	r.mu.Unlock()
	return id
}

// Unregister removes a connection. It is idempotent: disconnects can race
// with explicit leaves, and losing that race is not an error.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.conns, id)
	r.mu.Unlock()
}

// Registered reports whether the identifier belongs to a live connection.
func (r *Registry) Registered(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// BindIdentity records the username chosen by the connection.
func (r *Registry) BindIdentity(id, username string) {
	r.mu.Lock()
	if c, ok := r.conns[id]; ok {
		c.username = username
	}
	r.mu.Unlock()
}

// Username returns the identity bound to the connection, if any.
func (r *Registry) Username(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.conns[id]; ok {
		return c.username
	}
	return ""
}

// Room returns the connection's current room ("" when unseated) and whether
// the connection is registered at all.
func (r *Registry) Room(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok {
		return "", false
	}
	return c.room, true
}

func (r *Registry) session(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return c.session, true
}

// setRoom is called only by the room coordinator that just seated the
// connection, so the pointer and the member set change under one
// serialization.
func (r *Registry) setRoom(id, room string) {
	r.mu.Lock()
	if c, ok := r.conns[id]; ok {
		c.room = room
	}
	r.mu.Unlock()
}

// clearRoom resets the pointer only if it still names the given room; a
// concurrent seat in another room must not be clobbered.
func (r *Registry) clearRoom(id, room string) {
	r.mu.Lock()
	if c, ok := r.conns[id]; ok && c.room == room {
		c.room = ""
	}
	r.mu.Unlock()
}
