package model

// ReservationStatus is the closed set of lifecycle states.
type ReservationStatus string

const (
	StatusPending        ReservationStatus = "pending"
	StatusApproved       ReservationStatus = "approved"
	StatusConfirmed      ReservationStatus = "confirmed"
	StatusCounterOffered ReservationStatus = "counter_offered"
	StatusDeclined       ReservationStatus = "declined"
	StatusArrived        ReservationStatus = "arrived"
	StatusSeated         ReservationStatus = "seated"
	StatusCompleted      ReservationStatus = "completed"
	StatusCancelled      ReservationStatus = "cancelled"
	StatusNoShow         ReservationStatus = "no_show"
	StatusExpired        ReservationStatus = "expired"
)

// transitions lists every legal move. Anything absent is a conflict.
var transitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:        {StatusApproved, StatusDeclined, StatusCounterOffered, StatusCancelled, StatusExpired},
	StatusApproved:       {StatusConfirmed, StatusArrived, StatusSeated, StatusNoShow, StatusCancelled, StatusExpired},
	StatusConfirmed:      {StatusArrived, StatusSeated, StatusNoShow, StatusCancelled},
	StatusCounterOffered: {StatusConfirmed, StatusArrived, StatusCancelled},
	StatusArrived:        {StatusSeated, StatusCancelled},
	StatusSeated:         {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to ReservationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known states.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusConfirmed, StatusCounterOffered, StatusDeclined,
		StatusArrived, StatusSeated, StatusCompleted, StatusCancelled, StatusNoShow, StatusExpired:
		return true
	}
	return false
}

// Terminal states accept no further transitions.
func (s ReservationStatus) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// HoldsCapacity reports whether a reservation in this state consumes covers
// and a table for availability math.
func (s ReservationStatus) HoldsCapacity() bool {
	switch s {
	case StatusPending, StatusApproved, StatusConfirmed, StatusCounterOffered, StatusArrived, StatusSeated:
		return true
	}
	return false
}

// HoldsTable reports whether a reservation in this state must not share its
// assigned table with an overlapping reservation.
func (s ReservationStatus) HoldsTable() bool {
	switch s {
	case StatusApproved, StatusConfirmed, StatusArrived, StatusSeated:
		return true
	}
	return false
}

// TableHoldingStatuses lists the states for which HoldsTable is true.
var TableHoldingStatuses = []ReservationStatus{StatusApproved, StatusConfirmed, StatusArrived, StatusSeated}
