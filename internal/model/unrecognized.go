package model

import "time"

// UnrecognizedTerm is a token that failed category resolution and is waiting
// for the user to assign it.
type UnrecognizedTerm struct {
	FirstSeen time.Time
	LastSeen  time.Time
	ID        string
	UserID    string
	Term      string
	Source    Source
	Frequency int
}
