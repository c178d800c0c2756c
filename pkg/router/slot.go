package router

import "Storefront-Analytics-Bridge/pkg/snapshot"

type slotState int

const (
	slotEmpty slotState = iota
	slotPending
)

func (s slotState) String() string {
	if s == slotPending {
		return "pending"
	}
	return "empty"
}

// pendingSlot holds at most one unconsumed order snapshot.
// ORDER_CREATE is the only writer and ORDER_SUBMISSION_SUCCESS the only
// consumer; handlers never interleave, so it needs no lock.
type pendingSlot struct {
	state slotState
	snap  snapshot.OrderSnapshot
}

// store replaces the slot's content and reports whether an unconsumed
// snapshot was overwritten.
func (s *pendingSlot) store(snap snapshot.OrderSnapshot) (overwrote bool) {
	overwrote = s.state == slotPending
	s.snap = snap
	s.state = slotPending
	return overwrote
}

// take returns the pending snapshot and empties the slot.
func (s *pendingSlot) take() (snapshot.OrderSnapshot, bool) {
	if s.state != slotPending {
		return snapshot.OrderSnapshot{}, false
	}
	snap := s.snap
	s.snap = snapshot.OrderSnapshot{}
	s.state = slotEmpty
	return snap, true
}
