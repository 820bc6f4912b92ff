package order

import "github.com/medplatform/orders/internal/domain"

// Status is an order lifecycle state, §4.2.
type Status string

const (
	StatusCreated            Status = "created"
	StatusAcceptedByPharmacy Status = "accepted_by_pharmacy"
	StatusPrepared           Status = "prepared"
	StatusDriverAssigned     Status = "driver_assigned"
	StatusInTransit          Status = "in_transit"
	StatusDelivered          Status = "delivered"
	StatusCancelled          Status = "cancelled"
	StatusFailed             Status = "failed"
)

// PaymentStatus is the parallel attribute §4.2 describes: it does not gate
// status transitions directly.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// transitions is the allowed-transition graph from §4.2's table. Terminal
// states (delivered, cancelled, failed) have no outgoing edges.
var transitions = map[Status][]Status{
	StatusCreated:            {StatusAcceptedByPharmacy, StatusCancelled},
	StatusAcceptedByPharmacy: {StatusPrepared, StatusCancelled},
	StatusPrepared:           {StatusDriverAssigned, StatusCancelled},
	StatusDriverAssigned:     {StatusInTransit, StatusCancelled},
	StatusInTransit:          {StatusDelivered, StatusFailed},
}

// cancellableFrom lists the statuses a customer may cancel from, per §4.2:
// "the customer may only cancel while status ∈ {created,
// accepted_by_pharmacy, prepared}." Cancellation from driver_assigned is
// forbidden here per the resolved Open Question (b) — see DESIGN.md.
var cancellableFrom = map[Status]bool{
	StatusCreated:            true,
	StatusAcceptedByPharmacy: true,
	StatusPrepared:           true,
}

// CanTransition reports whether from -> to is an edge in the §4.2 graph.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether status has no outgoing transitions.
func IsTerminal(status Status) bool {
	_, ok := transitions[status]
	return !ok
}

// ValidateTransition returns domain.ErrInvalidTransition when from -> to is
// not an allowed edge.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return domain.ErrInvalidTransition
}

// ValidateCancel returns domain.ErrOrderCannotCancel unless from is a
// cancellable state.
func ValidateCancel(from Status) error {
	if cancellableFrom[from] {
		return nil
	}
	return domain.ErrOrderCannotCancel
}
