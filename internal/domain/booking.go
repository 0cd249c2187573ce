package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition may leave this status.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CanTransitionTo reports whether the status machine permits moving from s to
// next: pending may confirm or cancel, confirmed may complete. The UI only
// offers valid transitions, but the synchronizer enforces the table as well.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCompleted
	}
	return false
}

// Booking reserves one service for one customer at one date and time slot.
// TotalAmount is copied from the service price at creation and never
// repriced. Participants always holds exactly the customer and provider ids
// and backs the access-scoped fallback query.
type Booking struct {
	ID           string        `json:"id"`
	CustomerID   string        `json:"customer_id"`
	ServiceID    string        `json:"service_id"`
	ProviderID   string        `json:"provider_id"`
	BookingDate  string        `json:"booking_date"`
	BookingTime  string        `json:"booking_time"`
	Message      string        `json:"message,omitempty"`
	Status       BookingStatus `json:"status"`
	TotalAmount  float64       `json:"total_amount"`
	Participants []string      `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ReviewableBy reports whether the actor may leave the one-time review that a
// completed booking unlocks.
func (b Booking) ReviewableBy(actor Actor) bool {
	return b.Status == BookingStatusCompleted && actor.Role == RoleCustomer && actor.ID == b.CustomerID
}
