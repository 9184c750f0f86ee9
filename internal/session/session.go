// Package session keeps per-conversant dialog state in memory.
package session

import "fmt"

// State is the step a conversation is currently waiting on.
type State int

const (
	StateInitial State = iota
	StateAwaitingStartConfirmation
	StateAwaitingName
	StateAwaitingEmail
	StateAwaitingService
	StateAwaitingDateTime
	StateAwaitingConfirmation
)

var stateNames = [...]string{
	StateInitial:                   "initial",
	StateAwaitingStartConfirmation: "awaiting_start_confirmation",
	StateAwaitingName:              "awaiting_name",
	StateAwaitingEmail:             "awaiting_email",
	StateAwaitingService:           "awaiting_service",
	StateAwaitingDateTime:          "awaiting_date_time",
	StateAwaitingConfirmation:      "awaiting_confirmation",
}

// String returns the snake_case name used in logs and metrics.
func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	return s >= StateInitial && int(s) < len(stateNames)
}

// Session is the mutable record for one conversant. The zero value is a
// fresh conversation in StateInitial with nothing collected.
type Session struct {
	State    State
	Name     string
	Email    string
	Service  string
	DateTime string
}

// Cleared reports whether no booking data has been collected.
func (s Session) Cleared() bool {
	return s.Name == "" && s.Email == "" && s.Service == "" && s.DateTime == ""
}
