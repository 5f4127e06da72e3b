package chat

import "time"

// typingSlot is the per-connection debounce state inside one room: Idle
// (active == false) or Typing, with a pending auto-expiry timer. The
// generation counter invalidates a timer that fires after it was re-armed or
// cancelled; at most one timer per slot is ever live.
type typingSlot struct {
	active bool
	gen    uint64
	timer  *time.Timer
}

// typingTracker owns the typing slots of a single room. All of its methods
// run on the room coordinator goroutine; the expiry timer only posts an
// operation back to the coordinator, never touches state itself.
type typingTracker struct {
	timeout time.Duration
	slots   map[string]*typingSlot
	expire  func(connID string, gen uint64)
}

func newTypingTracker(timeout time.Duration, expire func(connID string, gen uint64)) *typingTracker {
	return &typingTracker{
		timeout: timeout,
		slots:   make(map[string]*typingSlot),
		expire:  expire,
	}
}

// touch records a typing signal. It reports true when the slot moved from
// Idle to Typing, meaning a user-typing notice is due; repeated signals only
// re-arm the expiry timer.
func (t *typingTracker) touch(connID string) bool {
	s := t.slots[connID]
	if s == nil {
		s = &typingSlot{}
		t.slots[connID] = s
	}
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	gen := s.gen
	s.timer = time.AfterFunc(t.timeout, func() { t.expire(connID, gen) })

	if s.active {
		return false
	}
	s.active = true
	return true
}

// stop cancels any pending timer and returns the slot to Idle. It reports
// whether the connection was actually typing.
func (t *typingTracker) stop(connID string) bool {
	s := t.slots[connID]
	if s == nil {
		return false
	}
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	wasTyping := s.active
	s.active = false
	return wasTyping
}

// expired applies a timer firing. Stale generations are timers that lost the
// race with a re-arm or cancel and must be ignored.
func (t *typingTracker) expired(connID string, gen uint64) bool {
	s := t.slots[connID]
	if s == nil || s.gen != gen || !s.active {
		return false
	}
	s.active = false
	s.timer = nil
	return true
}

// clear drops the slot entirely, cancelling any timer. Used on leave and
// disconnect after the stop notice has gone out.
func (t *typingTracker) clear(connID string) {
	t.stop(connID)
	delete(t.slots, connID)
}
