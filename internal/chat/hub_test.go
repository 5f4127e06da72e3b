package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterNames(t *testing.T, ev Event) []string {
	t.Helper()
	users, ok := ev.Data.([]RoomUser)
	require.True(t, ok, "room-users payload has wrong type %T", ev.Data)
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names
}

func TestJoinBroadcastsNoticeThenRoster(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	join(t, h, alice, "alice", "lobby")

	events := alice.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, EventUserJoined, events[0].Event)
	notice := events[0].Data.(SystemNotice)
	assert.Equal(t, "alice", notice.Username)
	assert.Equal(t, "alice joined the room", notice.Message)
	assert.Equal(t, EventRoomUsers, events[1].Event)
	assert.Equal(t, []string{"alice"}, rosterNames(t, events[1]))

	alice.clear()
	join(t, h, bob, "bob", "lobby")

	// The sitting member and the newcomer both observe the join notice
	// followed by the refreshed roster.
	for _, s := range []*fakeSession{alice, bob} {
		events := s.snapshot()
		require.Len(t, events, 2)
		assert.Equal(t, EventUserJoined, events[0].Event)
		assert.Equal(t, "bob", events[0].Data.(SystemNotice).Username)
		assert.Equal(t, []string{"alice", "bob"}, rosterNames(t, events[1]))
	}

	assert.Equal(t, 2, h.Occupancy("lobby"))
}

func TestJoinValidation(t *testing.T) {
	h := newTestHub(t)
	s := &fakeSession{}
	id := h.Connect(s)

	assert.Equal(t, KindInvalidInput, KindOf(h.Join(id, "", "lobby")))
	assert.Equal(t, KindInvalidInput, KindOf(h.Join(id, "alice", "  ")))
	assert.Equal(t, KindInvalidInput, KindOf(h.Join("no-such-connection", "alice", "lobby")))

	// Rejected joins must not leak any broadcast.
	assert.Empty(t, s.snapshot())
	assert.Equal(t, 0, h.Occupancy("lobby"))
}

func TestJoinWhileSeatedIsRejected(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	aliceID := join(t, h, alice, "alice", "lobby")
	join(t, h, bob, "bob", "lobby")
	alice.clear()
	bob.clear()

	err := h.Join(aliceID, "alice", "tech")
	assert.Equal(t, KindAlreadySeated, KindOf(err))

	// Neither room observed anything and the seat did not move.
	assert.Empty(t, alice.snapshot())
	assert.Empty(t, bob.snapshot())
	room, _ := h.registry.Room(aliceID)
	assert.Equal(t, "lobby", room)
	assert.Equal(t, 0, h.Occupancy("tech"))
}

func TestDisconnectRunsLeaveExactlyOnce(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	join(t, h, alice, "alice", "lobby")
	bobID := join(t, h, bob, "bob", "lobby")
	alice.clear()

	h.Disconnect(bobID)
	h.Disconnect(bobID)

	events := alice.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, EventUserLeft, events[0].Event)
	assert.Equal(t, "bob left the room", events[0].Data.(SystemNotice).Message)
	assert.Equal(t, []string{"alice"}, rosterNames(t, events[1]))
	assert.Equal(t, 1, h.Occupancy("lobby"))
}

func TestRosterTracksMembershipExactly(t *testing.T) {
	h := newTestHub(t)
	observer := &fakeSession{}
	join(t, h, observer, "observer", "lobby")

	ids := make([]string, 0, 3)
	for _, name := range []string{"a", "b", "c"} {
		ids = append(ids, join(t, h, &fakeSession{}, name, "lobby"))
	}
	h.Disconnect(ids[1])

	events := observer.snapshot()
	last := events[len(events)-1]
	require.Equal(t, EventRoomUsers, last.Event)
	assert.Equal(t, []string{"observer", "a", "c"}, rosterNames(t, last))
}

func TestSendMessageFanOutIncludesSender(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	aliceID := join(t, h, alice, "alice", "lobby")
	join(t, h, bob, "bob", "lobby")
	alice.clear()
	bob.clear()

	sent, err := h.SendMessage(aliceID, "  hello  ")
	require.NoError(t, err)
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, "hello", sent.Content)
	assert.WithinDuration(t, time.Now().UTC(), sent.Timestamp, time.Second)

	for _, s := range []*fakeSession{alice, bob} {
		events := s.snapshot()
		require.Len(t, events, 1)
		require.Equal(t, EventReceiveMessage, events[0].Event)
		msg := events[0].Data.(Message)
		assert.Equal(t, sent.ID, msg.ID)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, "lobby", msg.Room)
	}
}

func TestSendMessageRejections(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	aliceID := join(t, h, alice, "alice", "lobby")
	join(t, h, bob, "bob", "lobby")
	bob.clear()

	_, err := h.SendMessage(aliceID, "   ")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	unseated := h.Connect(&fakeSession{})
	_, err = h.SendMessage(unseated, "hello")
	assert.Equal(t, KindNotAMember, KindOf(err))

	// Rejections relay nothing.
	assert.Empty(t, bob.snapshot())
}

func TestMessageCallbackObservesRelay(t *testing.T) {
	type relayed struct {
		room string
		msg  Message
	}
	var seen []relayed
	h := NewHub(Options{
		TypingTimeout: testTypingTimeout,
		OnMessage:     func(room string, msg Message) { seen = append(seen, relayed{room, msg}) },
	})
	t.Cleanup(func() { _ = h.Shutdown(2 * time.Second) })

	id := join(t, h, &fakeSession{}, "alice", "lobby")
	sent, err := h.SendMessage(id, "hi")
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, "lobby", seen[0].room)
	assert.Equal(t, sent.ID, seen[0].msg.ID)
}

func TestSwitchRoomOrderingAndAtomicity(t *testing.T) {
	h := newTestHub(t)
	mover := &fakeSession{}
	oldMate := &fakeSession{}
	newMate := &fakeSession{}

	moverID := join(t, h, mover, "mover", "old")
	join(t, h, oldMate, "oldmate", "old")
	join(t, h, newMate, "newmate", "new")
	oldMate.clear()
	newMate.clear()
	mover.clear()

	require.NoError(t, h.SwitchRoom(moverID, "new"))

	// The old room sees the departure, then a roster without the mover.
	events := oldMate.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, EventUserLeft, events[0].Event)
	assert.Equal(t, "mover", events[0].Data.(SystemNotice).Username)
	assert.Equal(t, []string{"oldmate"}, rosterNames(t, events[1]))

	// The new room sees the arrival, then a roster with the mover.
	events = newMate.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, EventUserJoined, events[0].Event)
	assert.Equal(t, "mover", events[0].Data.(SystemNotice).Username)
	assert.Equal(t, []string{"newmate", "mover"}, rosterNames(t, events[1]))

	room, _ := h.registry.Room(moverID)
	assert.Equal(t, "new", room)
	assert.Equal(t, 1, h.Occupancy("old"))
	assert.Equal(t, 2, h.Occupancy("new"))
}

func TestSwitchRoomEdgeCases(t *testing.T) {
	h := newTestHub(t)
	s := &fakeSession{}
	id := join(t, h, s, "alice", "lobby")
	s.clear()

	// Switching to the current room changes nothing.
	require.NoError(t, h.SwitchRoom(id, "lobby"))
	assert.Empty(t, s.snapshot())

	assert.Equal(t, KindInvalidInput, KindOf(h.SwitchRoom(id, " ")))

	unseated := h.Connect(&fakeSession{})
	assert.Equal(t, KindNotAMember, KindOf(h.SwitchRoom(unseated, "lobby")))
}

func TestTypingDebounceThroughHub(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	join(t, h, alice, "alice", "lobby")
	bobID := join(t, h, bob, "bob", "lobby")
	alice.clear()
	bob.clear()

	// Three quick signals announce the start exactly once.
	for range 3 {
		require.NoError(t, h.Typing(bobID))
		time.Sleep(testTypingTimeout / 5)
	}
	assert.Equal(t, 1, alice.count(EventUserTyping))
	assert.Equal(t, 0, alice.count(EventUserStopTyping))

	// After the window elapses the derived stop arrives exactly once.
	require.Eventually(t, func() bool {
		return alice.count(EventUserStopTyping) == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(2 * testTypingTimeout)
	assert.Equal(t, 1, alice.count(EventUserStopTyping))
	assert.Equal(t, 1, alice.count(EventUserTyping))

	// The originator never hears its own typing notices.
	assert.Equal(t, 0, bob.count(EventUserTyping))
	assert.Equal(t, 0, bob.count(EventUserStopTyping))
}

func TestExplicitStopTyping(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	join(t, h, alice, "alice", "lobby")
	bobID := join(t, h, bob, "bob", "lobby")
	alice.clear()

	require.NoError(t, h.Typing(bobID))
	require.NoError(t, h.StopTyping(bobID))
	assert.Equal(t, []EventType{EventUserTyping, EventUserStopTyping}, alice.types())

	// The explicit stop is idempotent and still announced.
	require.NoError(t, h.StopTyping(bobID))
	assert.Equal(t, 2, alice.count(EventUserStopTyping))

	// The cancelled timer must not add a third stop later.
	time.Sleep(2 * testTypingTimeout)
	assert.Equal(t, 2, alice.count(EventUserStopTyping))
}

func TestSendingMessageEndsTyping(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	join(t, h, alice, "alice", "lobby")
	bobID := join(t, h, bob, "bob", "lobby")
	alice.clear()

	require.NoError(t, h.Typing(bobID))
	_, err := h.SendMessage(bobID, "done typing")
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventUserTyping, EventReceiveMessage, EventUserStopTyping}, alice.types())

	// No further stop arrives from the stale timer.
	time.Sleep(2 * testTypingTimeout)
	assert.Equal(t, 1, alice.count(EventUserStopTyping))
}

func TestTypingRequiresMembership(t *testing.T) {
	h := newTestHub(t)
	unseated := h.Connect(&fakeSession{})
	assert.Equal(t, KindNotAMember, KindOf(h.Typing(unseated)))
	assert.Equal(t, KindNotAMember, KindOf(h.StopTyping(unseated)))
}

func TestDisconnectMidTypingClearsIndicator(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeSession{}
	bob := &fakeSession{}

	join(t, h, alice, "alice", "lobby")
	bobID := join(t, h, bob, "bob", "lobby")
	alice.clear()

	require.NoError(t, h.Typing(bobID))
	h.Disconnect(bobID)

	// Observers see the stop before the departure, so no indicator strands.
	assert.Equal(t, []EventType{
		EventUserTyping,
		EventUserStopTyping,
		EventUserLeft,
		EventRoomUsers,
	}, alice.types())

	time.Sleep(2 * testTypingTimeout)
	assert.Equal(t, 1, alice.count(EventUserStopTyping))
}

func TestEmptyRoomRetiresAndStaysJoinable(t *testing.T) {
	h := newTestHub(t)
	s := &fakeSession{}
	id := join(t, h, s, "alice", "ephemeral")
	h.Disconnect(id)

	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, exists := h.rooms["ephemeral"]
		return !exists
	}, 2*time.Second, 20*time.Millisecond, "empty room was never retired")

	// A fresh join recreates the room transparently.
	again := &fakeSession{}
	join(t, h, again, "bob", "ephemeral")
	assert.Equal(t, 1, h.Occupancy("ephemeral"))
}

func TestRoomsCoordinateIndependently(t *testing.T) {
	h := newTestHub(t)
	a := &fakeSession{}
	b := &fakeSession{}

	aID := join(t, h, a, "alice", "room-a")
	bID := join(t, h, b, "bob", "room-b")
	a.clear()
	b.clear()

	_, err := h.SendMessage(aID, "to a")
	require.NoError(t, err)
	_, err = h.SendMessage(bID, "to b")
	require.NoError(t, err)

	require.Len(t, a.snapshot(), 1)
	require.Len(t, b.snapshot(), 1)
	assert.Equal(t, "to a", a.snapshot()[0].Data.(Message).Content)
	assert.Equal(t, "to b", b.snapshot()[0].Data.(Message).Content)
}

func TestHubShutdownRejectsNewWork(t *testing.T) {
	h := NewHub(Options{TypingTimeout: testTypingTimeout})
	id := join(t, h, &fakeSession{}, "alice", "lobby")

	require.NoError(t, h.Shutdown(2*time.Second))
	require.NoError(t, h.Shutdown(2*time.Second), "shutdown is idempotent")

	err := h.Join(h.Connect(&fakeSession{}), "bob", "lobby")
	assert.ErrorIs(t, err, ErrShuttingDown)
	_, err = h.SendMessage(id, "late")
	assert.ErrorIs(t, err, ErrShuttingDown)
}

// Two users in "general": a message both receive, then a debounced typing
// exchange, end to end through the hub.
func TestGeneralRoomScenario(t *testing.T) {
	h := newTestHub(t)
	x := &fakeSession{}
	y := &fakeSession{}

	xID := join(t, h, x, "xavier", "general")
	yID := join(t, h, y, "yvonne", "general")
	x.clear()
	y.clear()

	_, err := h.SendMessage(xID, "hello")
	require.NoError(t, err)
	for _, s := range []*fakeSession{x, y} {
		events := s.snapshot()
		require.Len(t, events, 1)
		msg := events[0].Data.(Message)
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, "xavier", msg.Username)
	}
	x.clear()
	y.clear()

	for range 3 {
		require.NoError(t, h.Typing(yID))
		time.Sleep(testTypingTimeout / 5)
	}
	assert.Equal(t, 1, x.count(EventUserTyping))
	assert.Equal(t, "yvonne", x.snapshot()[0].Data.(TypingNotice).Username)

	require.Eventually(t, func() bool {
		return x.count(EventUserStopTyping) == 1
	}, time.Second, 10*time.Millisecond)
}
