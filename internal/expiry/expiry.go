// Package expiry evaluates grant expiry instants against the clock. It is
// pure: no I/O, no suspension, safe to re-run on every timer tick.
package expiry

import (
	"fmt"
	"time"
)

type State int

const (
	// Unbounded means no expiry: the stored instant is 0 (or absent).
	// 0 is always the unbounded sentinel, never a real unix timestamp.
	Unbounded State = iota
	Active
	Expired
)

func (s State) String() string {
	switch s {
	case Unbounded:
		return "unbounded"
	case Active:
		return "active"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Remaining is a duration decomposed for countdown display.
type Remaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func (r Remaining) String() string {
	if r.Days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", r.Days, r.Hours, r.Minutes, r.Seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", r.Hours, r.Minutes, r.Seconds)
}

type Status struct {
	State     State     `json:"state"`
	Remaining Remaining `json:"remaining"`
}

// Evaluate determines the status of an expiry instant (unix seconds) at now.
// Expired at now >= expiresAt.
func Evaluate(expiresAt int64, now time.Time) Status {
	if expiresAt == 0 {
		return Status{State: Unbounded}
	}

	left := expiresAt - now.Unix()
	if left <= 0 {
		return Status{State: Expired}
	}

	return Status{
		State: Active,
		Remaining: Remaining{
			Days:    int(left / 86400),
			Hours:   int(left % 86400 / 3600),
			Minutes: int(left % 3600 / 60),
			Seconds: int(left % 60),
		},
	}
}
