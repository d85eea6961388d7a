package service

import (
	"errors"
)

// User-input violations surface as errors with a user-visible message.
// Authorization violations never do: they are silent no-ops, reaching one
// means the UI exposed a control it should not have.
var (
	ErrSessionExists   = errors.New("a session for this player is already open")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoPendingGame   = errors.New("no pending game request, choose a table first")
	ErrItemNotFound    = errors.New("market item not found")
	ErrInvalidAmount   = errors.New("settlement amount must be greater than zero")
	ErrNoDebts         = errors.New("no outstanding debts for this player")
	ErrShiftOpen       = errors.New("staff member already has an open shift")
	ErrNoShiftOpen     = errors.New("staff member has no open shift")
)
