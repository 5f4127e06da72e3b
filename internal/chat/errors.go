package chat

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the recoverable rejections this core can produce.
// Every kind is local to the triggering connection: nothing is mutated and
// nothing is broadcast when an event is rejected.
type ErrorKind string

const (
	// KindInvalidInput covers empty or overlong message content and a join
	// missing its username or room.
	KindInvalidInput ErrorKind = "invalid-input"
	// KindNotAMember covers messages and typing signals from a connection
	// that is not currently seated in the addressed room.
	KindNotAMember ErrorKind = "not-a-member"
	// KindAlreadySeated covers a join from a connection that is already in a
	// room; the caller should have used switch-room.
	KindAlreadySeated ErrorKind = "already-seated"
)

// ErrShuttingDown is returned for events that arrive after hub shutdown has
// begun. It is not part of the client-facing error contract.
var ErrShuttingDown = errors.New("hub is shutting down")

// Error is a recoverable rejection reported back to the offending connection.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// KindOf extracts the error kind, or "" for errors outside the contract.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func invalidInputf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

func notAMemberf(format string, args ...any) *Error {
	return &Error{Kind: KindNotAMember, Msg: fmt.Sprintf(format, args...)}
}

func alreadySeatedf(format string, args ...any) *Error {
	return &Error{Kind: KindAlreadySeated, Msg: fmt.Sprintf(format, args...)}
}
