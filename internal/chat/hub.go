package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Default coordination parameters. TypingTimeout mirrors the client's
// keystroke debounce window.
const (
	DefaultTypingTimeout = 1000 * time.Millisecond
	DefaultRoomIdleTTL   = 5 * time.Minute
)

// Options configures a Hub. Zero values fall back to the defaults above and
// to slog.Default for logging.
type Options struct {
	Logger        *slog.Logger
	TypingTimeout time.Duration
	MaxMessageLen int
	RoomIdleTTL   time.Duration

	// OnMessage, when set, observes every successfully relayed message. The
	// server wires the room directory here to keep per-room stats live.
	OnMessage func(room string, msg Message)
}

// Hub routes transport events to per-room coordinators. Rooms are created
// implicitly on first join and retired after sitting empty past the idle
// TTL; retirement never breaks join/leave sequencing because membership only
// changes on the owning coordinator's goroutine.
type Hub struct {
	log      *slog.Logger
	registry *Registry
	presence *Presence
	router   *MessageRouter

	typingTimeout time.Duration
	roomIdleTTL   time.Duration
	onMessage     func(string, Message)

	mu     sync.RWMutex
	rooms  map[string]*Coordinator
	closed bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewHub creates a hub and starts its room janitor.
func NewHub(opts Options) *Hub {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	typingTimeout := opts.TypingTimeout
	if typingTimeout <= 0 {
		typingTimeout = DefaultTypingTimeout
	}
	idleTTL := opts.RoomIdleTTL
	if idleTTL <= 0 {
		idleTTL = DefaultRoomIdleTTL
	}

	h := &Hub{
		log:           log,
		registry:      NewRegistry(),
		presence:      NewPresence(log),
		router:        NewMessageRouter(opts.MaxMessageLen),
		typingTimeout: typingTimeout,
		roomIdleTTL:   idleTTL,
		onMessage:     opts.OnMessage,
		rooms:         make(map[string]*Coordinator),
		stopCh:        make(chan struct{}),
	}

	h.wg.Add(1)
	go h.janitor()
	return h
}

// Connect registers a new transport session and returns its connection
// identifier.
func (h *Hub) Connect(s Session) string {
	id := h.registry.Register(s)
	h.log.Debug("connection registered", "conn_id", id)
	return id
}

// Disconnect tears a connection down through the same serialized room path
// as an explicit leave, then drops it from the registry. It is idempotent.
func (h *Hub) Disconnect(id string) {
	if room, ok := h.registry.Room(id); ok && room != "" {
		_ = h.withRoom(room, func(c *Coordinator) error { return c.leave(id) })
	}
	h.registry.Unregister(id)
	h.log.Debug("connection unregistered", "conn_id", id)
}

// Join binds the identity and seats the connection in the room. A connection
// already seated anywhere must use SwitchRoom instead.
func (h *Hub) Join(id, username, room string) error {
	username = strings.TrimSpace(username)
	room = strings.TrimSpace(room)
	if username == "" || room == "" {
		return invalidInputf("join requires a username and a room")
	}

	current, registered := h.registry.Room(id)
	if !registered {
		return invalidInputf("unknown connection")
	}
	if current != "" {
		return alreadySeatedf("already in room %q; use switch-room", current)
	}

	s, ok := h.registry.session(id)
	if !ok {
		return invalidInputf("unknown connection")
	}
	h.registry.BindIdentity(id, username)

	return h.withRoom(room, func(c *Coordinator) error {
		return c.join(id, username, s)
	})
}

// SwitchRoom atomically moves a seated connection: the leave runs to
// completion on the old room's serialization, then the join on the new
// room's, so the old room observes user-left before the new room observes
// user-joined and the connection is never seated twice.
func (h *Hub) SwitchRoom(id, newRoom string) error {
	newRoom = strings.TrimSpace(newRoom)
	if newRoom == "" {
		return invalidInputf("switch-room requires a room")
	}

	current, registered := h.registry.Room(id)
	if !registered || current == "" {
		return notAMemberf("not currently in a room")
	}
	if current == newRoom {
		return nil
	}

	username := h.registry.Username(id)
	s, ok := h.registry.session(id)
	if !ok {
		return notAMemberf("not currently in a room")
	}

	if err := h.withRoom(current, func(c *Coordinator) error { return c.leave(id) }); err != nil {
		return err
	}
	return h.withRoom(newRoom, func(c *Coordinator) error {
		return c.join(id, username, s)
	})
}

// SendMessage relays content to the connection's current room, including the
// sender itself, and returns the stamped message.
func (h *Hub) SendMessage(id, content string) (Message, error) {
	room, registered := h.registry.Room(id)
	if !registered || room == "" {
		return Message{}, notAMemberf("not currently in a room")
	}

	var msg Message
	err := h.withRoom(room, func(c *Coordinator) error {
		var opErr error
		msg, opErr = c.sendMessage(id, content)
		return opErr
	})
	return msg, err
}

// Typing records a typing signal for the connection's current room.
func (h *Hub) Typing(id string) error {
	room, registered := h.registry.Room(id)
	if !registered || room == "" {
		return notAMemberf("not currently in a room")
	}
	return h.withRoom(room, func(c *Coordinator) error { return c.typingSignal(id) })
}

// StopTyping records an explicit stop-typing signal.
func (h *Hub) StopTyping(id string) error {
	room, registered := h.registry.Room(id)
	if !registered || room == "" {
		return notAMemberf("not currently in a room")
	}
	return h.withRoom(room, func(c *Coordinator) error { return c.stopTypingSignal(id) })
}

// Occupancy reports how many connections are seated in the room right now.
func (h *Hub) Occupancy(room string) int {
	h.mu.RLock()
	c := h.rooms[room]
	h.mu.RUnlock()
	if c == nil {
		return 0
	}
	return c.Occupancy()
}

// Shutdown stops the janitor and all room coordinators, waiting up to
// timeout for their goroutines to finish.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	close(h.stopCh)

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}

// withRoom runs fn on the room's coordinator, transparently retrying when it
// lands on one that retired between lookup and dispatch.
func (h *Hub) withRoom(room string, fn func(*Coordinator) error) error {
	for {
		c, err := h.coordinator(room)
		if err != nil {
			return err
		}
		if err := c.do(fn); err != errRetired {
			return err
		}
	}
}

// coordinator returns the live coordinator for the room, creating and
// starting one on first use.
func (h *Hub) coordinator(room string) (*Coordinator, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrShuttingDown
	}
	c := h.rooms[room]
	if c == nil {
		c = newCoordinator(h, room)
		h.rooms[room] = c
		h.wg.Add(1)
		go c.run()
		h.log.Debug("room created", "room", room)
	}
	return c, nil
}

// removeRoom deletes the map entry if it still points at c; called only from
// c's own goroutine during retirement.
func (h *Hub) removeRoom(room string, c *Coordinator) {
	h.mu.Lock()
	if h.rooms[room] == c {
		delete(h.rooms, room)
	}
	h.mu.Unlock()
}

func (h *Hub) notifyMessage(room string, msg Message) {
	if h.onMessage != nil {
		h.onMessage(room, msg)
	}
}

// janitor periodically asks empty rooms to retire themselves. The check and
// the removal both run on each room's own goroutine, keeping garbage
// collection of idle rooms out of the join/leave critical path.
func (h *Hub) janitor() {
	defer h.wg.Done()

	interval := h.roomIdleTTL / 2
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.mu.RLock()
			coords := make([]*Coordinator, 0, len(h.rooms))
			for _, c := range h.rooms {
				coords = append(coords, c)
			}
			h.mu.RUnlock()

			for _, c := range coords {
				c.post(func(c *Coordinator) error { return c.retireIfIdle(h.roomIdleTTL) })
			}
		}
	}
}
