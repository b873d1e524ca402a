// Package tunnelpool manages the fleet of outbound encrypted transport
// tunnels a packet-forwarding daemon sends traffic over: a per-tunnel
// state machine, a weighted probabilistic selector, background
// activation/reconnection, and durable persistence of tunnel identity
// and age across restarts.
package tunnelpool

import "github.com/DaviWei/reqrypt/transport"

// State is a tunnel's position in the lifecycle described in
// SPEC_FULL.md's tunnel state machine section.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateDead
	StateClosing
	StateDeleting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateDead:
		return "dead"
	case StateClosing:
		return "closing"
	case StateDeleting:
		return "deleting"
	default:
		return "unknown"
	}
}

const (
	// TunnelInitAge is the age a record receives on successful open or
	// on add.
	TunnelInitAge uint8 = 16

	// MaxURLLength bounds the stable identity key. URLs longer than
	// this, or containing whitespace, are rejected by add and by the
	// cache file parser.
	MaxURLLength = 2048

	minWeight = 0.005
	maxWeight = 1.0
)

// Record is a single tunnel's identity, lifecycle state, and handle to
// the external transport. All field access outside of tunnelpool goes
// through Pool methods, which hold the pool mutex for the duration.
type Record struct {
	URL       string
	State     State
	Reconnect bool
	ID        uint16
	Age       uint8
	Weight    float64
	Transport transport.Handle
}

// newRecord builds a record in Closed state with the given age and
// full initial weight, ready to be handed to the Activator.
func newRecord(url string, id uint16, age uint8) *Record {
	return &Record{
		URL:    url,
		State:  StateClosed,
		ID:     id,
		Age:    age,
		Weight: maxWeight,
	}
}

// ageDown decrements age, saturating at 0.
func (r *Record) ageDown() {
	if r.Age > 0 {
		r.Age--
	}
}

// clampWeight enforces invariant 5: weight stays within [minWeight, maxWeight].
func clampWeight(w float64) float64 {
	if w < minWeight {
		return minWeight
	}
	if w > maxWeight {
		return maxWeight
	}
	return w
}
