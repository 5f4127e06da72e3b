package chat

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// errRetired signals that an operation landed on a coordinator that has
// already removed itself from the hub; the hub retries against a fresh one.
var errRetired = errors.New("room coordinator retired")

// opMailboxSize bounds how many operations can queue per room before
// senders block. Room traffic is modest; this only absorbs bursts.
const opMailboxSize = 64

type op struct {
	fn    func(*Coordinator) error
	reply chan error
}

// member is one seated connection as the room sees it.
type member struct {
	username string
	session  Session
	seq      uint64
}

// Coordinator serializes every mutation and broadcast for one room. All
// state below the ops channel is owned by the run goroutine; other
// goroutines interact only through do.
type Coordinator struct {
	room string
	hub  *Hub
	log  *slog.Logger

	ops  chan op
	done chan struct{}

	members    map[string]*member
	typing     *typingTracker
	nextSeq    uint64
	emptySince time.Time
	retiring   bool

	// occupancy mirrors len(members) for lock-free reads by the directory.
	occupancy atomic.Int64
}

func newCoordinator(hub *Hub, room string) *Coordinator {
	c := &Coordinator{
		room:    room,
		hub:     hub,
		log:     hub.log.With("room", room),
		ops:     make(chan op, opMailboxSize),
		done:    make(chan struct{}),
		members: make(map[string]*member),
	}
	c.typing = newTypingTracker(hub.typingTimeout, c.postExpiry)
	c.emptySince = time.Now()
	return c
}

// run is the room's event loop. Operations execute one at a time and every
// broadcast a given operation triggers is fully enqueued before the next
// operation for this room is taken.
func (c *Coordinator) run() {
	defer c.hub.wg.Done()
	defer close(c.done)

	for {
		select {
		case o := <-c.ops:
			err := o.fn(c)
			if o.reply != nil {
				o.reply <- err
			}
			if c.retiring {
				return
			}
		case <-c.hub.stopCh:
			return
		}
	}
}

// do runs fn on the coordinator goroutine and waits for its result.
func (c *Coordinator) do(fn func(*Coordinator) error) error {
	o := op{fn: fn, reply: make(chan error, 1)}
	select {
	case c.ops <- o:
	case <-c.done:
		return errRetired
	}
	select {
	case err := <-o.reply:
		return err
	case <-c.done:
		// The loop may have answered just before exiting.
		select {
		case err := <-o.reply:
			return err
		default:
			return errRetired
		}
	}
}

// post enqueues fn without waiting. Used by timers; a drop is fine because a
// retired room has no members whose typing could expire.
func (c *Coordinator) post(fn func(*Coordinator) error) {
	o := op{fn: fn}
	select {
	case c.ops <- o:
	case <-c.done:
	}
}

// postExpiry is invoked on the timer goroutine when a typing window elapses.
func (c *Coordinator) postExpiry(connID string, gen uint64) {
	c.post(func(c *Coordinator) error {
		if !c.typing.expired(connID, gen) {
			return nil
		}
		m, ok := c.members[connID]
		if !ok {
			return nil
		}
		c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.TypingStopped(m.username), connID)
		return nil
	})
}

// join seats the connection, then announces it: the join notice first, then
// a roster refresh to every member including the newcomer.
func (c *Coordinator) join(connID, username string, s Session) error {
	if _, ok := c.members[connID]; ok {
		return alreadySeatedf("already in room %q", c.room)
	}

	c.nextSeq++
	c.members[connID] = &member{username: username, session: s, seq: c.nextSeq}
	c.occupancy.Store(int64(len(c.members)))
	c.hub.registry.setRoom(connID, c.room)

	c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.JoinedNotice(username), "")
	c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.RosterEvent(c.members), "")

	c.log.Info("user joined", "conn_id", connID, "username", username, "occupancy", len(c.members))
	return nil
}

// leave unseats the connection. A stop-typing notice goes out first when the
// user was mid-typing so no observer strands a typing indicator, then the
// leave notice and a roster refresh reach the remaining members. Leaving a
// room one is not in is a no-op, not an error.
func (c *Coordinator) leave(connID string) error {
	m, ok := c.members[connID]
	if !ok {
		return nil
	}

	if c.typing.stop(connID) {
		c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.TypingStopped(m.username), connID)
	}
	c.typing.clear(connID)

	delete(c.members, connID)
	c.occupancy.Store(int64(len(c.members)))
	c.hub.registry.clearRoom(connID, c.room)

	c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.LeftNotice(m.username), "")
	c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.RosterEvent(c.members), "")

	if len(c.members) == 0 {
		c.emptySince = time.Now()
	}
	c.log.Info("user left", "conn_id", connID, "username", m.username, "occupancy", len(c.members))
	return nil
}

// sendMessage validates, stamps, and relays a chat message to every member
// including the sender, then ends the sender's typing indication.
func (c *Coordinator) sendMessage(connID, content string) (Message, error) {
	m, ok := c.members[connID]
	if !ok {
		return Message{}, notAMemberf("not a member of room %q", c.room)
	}

	msg, err := c.hub.router.Compose(c.room, m.username, content)
	if err != nil {
		return Message{}, err
	}

	c.hub.presence.Broadcast(c.room, c.members, Event{Event: EventReceiveMessage, Data: msg}, "")
	if c.typing.stop(connID) {
		c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.TypingStopped(m.username), connID)
	}
	c.hub.notifyMessage(c.room, msg)
	return msg, nil
}

// typingSignal handles an inbound typing event; only the Idle-to-Typing
// transition is announced, repeated keystrokes just re-arm the expiry.
func (c *Coordinator) typingSignal(connID string) error {
	m, ok := c.members[connID]
	if !ok {
		return notAMemberf("not a member of room %q", c.room)
	}
	if c.typing.touch(connID) {
		c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.TypingStarted(m.username), connID)
	}
	return nil
}

// stopTypingSignal handles an explicit stop. The notice goes out regardless
// of current state, which keeps the operation idempotent for clients.
func (c *Coordinator) stopTypingSignal(connID string) error {
	m, ok := c.members[connID]
	if !ok {
		return notAMemberf("not a member of room %q", c.room)
	}
	c.typing.stop(connID)
	c.hub.presence.Broadcast(c.room, c.members, c.hub.presence.TypingStopped(m.username), connID)
	return nil
}

// retireIfIdle removes the room from the hub when it has been empty past the
// TTL. Membership and the map entry change under this coordinator's own
// serialization, so a join racing the sweep either lands first and cancels
// retirement or gets retried against a fresh coordinator.
func (c *Coordinator) retireIfIdle(ttl time.Duration) error {
	if len(c.members) != 0 || time.Since(c.emptySince) < ttl {
		return nil
	}
	c.hub.removeRoom(c.room, c)
	c.retiring = true
	c.log.Debug("room retired")
	return nil
}

// Occupancy reports the current member count without touching the mailbox.
func (c *Coordinator) Occupancy() int {
	return int(c.occupancy.Load())
}
