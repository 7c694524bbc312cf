package bookings

import "fmt"

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
	StatusRefunded       Status = "REFUNDED"
)

// transitions is the booking state machine. COMPLETED, CANCELLED and
// REFUNDED are terminal.
var transitions = map[Status][]Status{
	StatusPendingPayment: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusCompleted, StatusCancelled, StatusRefunded},
}

// CanTransitionTo reports whether the state machine defines s -> target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition is defined out of s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus maps a wire-level status string onto a known Status.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPendingPayment, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRefunded:
		return Status(raw), nil
	}
	return "", fmt.Errorf("unknown booking status %q", raw)
}
