package chat

import (
	"log/slog"
	"sort"
)

// Presence builds and fans out the derived-state events of a room: join and
// leave system notices, roster refreshes, and typing notices. It never
// mutates membership; the owning coordinator calls it after each change so
// every member observes updates in the same order.
type Presence struct {
	log *slog.Logger
}

// NewPresence creates a presence broadcaster logging through the given logger.
func NewPresence(log *slog.Logger) *Presence {
	return &Presence{log: log}
}

// JoinedNotice is the system notice sent when a user enters a room.
func (p *Presence) JoinedNotice(username string) Event {
	return Event{
		Event: EventUserJoined,
		Data:  SystemNotice{Username: username, Message: username + " joined the room"},
	}
}

// LeftNotice is the system notice sent when a user leaves a room.
func (p *Presence) LeftNotice(username string) Event {
	return Event{
		Event: EventUserLeft,
		Data:  SystemNotice{Username: username, Message: username + " left the room"},
	}
}

// RosterEvent snapshots current membership into a room-users refresh. The
// order is by seating sequence, so one broadcast is always a complete,
// consistently ordered list.
func (p *Presence) RosterEvent(members map[string]*member) Event {
	users := make([]RoomUser, 0, len(members))
	seqs := make(map[string]uint64, len(members))
	for id, m := range members {
		users = append(users, RoomUser{ID: id, Username: m.username})
		seqs[id] = m.seq
	}
	sort.Slice(users, func(i, j int) bool {
		return seqs[users[i].ID] < seqs[users[j].ID]
	})
	return Event{Event: EventRoomUsers, Data: users}
}

// TypingStarted is the notice that a user began typing.
func (p *Presence) TypingStarted(username string) Event {
	return Event{Event: EventUserTyping, Data: TypingNotice{Username: username}}
}

// TypingStopped is the notice that a user stopped typing, whether explicit,
// implicit via a sent message, or derived from the inactivity timeout.
func (p *Presence) TypingStopped(username string) Event {
	return Event{Event: EventUserStopTyping, Data: TypingNotice{Username: username}}
}

// Broadcast enqueues the event for every member except exceptID ("" to
// include everyone). Slow consumers are skipped rather than blocking the
// room; their transport will tear them down on its own.
func (p *Presence) Broadcast(room string, members map[string]*member, ev Event, exceptID string) {
	for id, m := range members {
		if id == exceptID {
			continue
		}
		if !m.session.Deliver(ev) {
			p.log.Warn("dropping event for slow connection",
				"room", room,
				"conn_id", id,
				"event", string(ev.Event))
		}
	}
}
