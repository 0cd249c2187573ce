package notifier

import (
	"encoding/json"
	"fmt"
)

// Routing keys the worker consumes. Booking keys are published by the
// synchronizer; review.created comes from the review write path.
const (
	RKBookingRequested = "booking.requested"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCompleted = "booking.completed"
	RKBookingCancelled = "booking.cancelled"
	RKReviewCreated    = "review.created"
)

type BookingEvent struct {
	BookingID    string  `json:"booking_id"`
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name,omitempty"`
	ProviderID   string  `json:"provider_id"`
	ServiceID    string  `json:"service_id"`
	ServiceTitle string  `json:"service_title,omitempty"`
	BookingDate  string  `json:"booking_date,omitempty"`
	BookingTime  string  `json:"booking_time,omitempty"`
	TotalAmount  float64 `json:"total_amount,omitempty"`
}

type ReviewEvent struct {
	ReviewID     string `json:"review_id"`
	ServiceID    string `json:"service_id"`
	ProviderID   string `json:"provider_id"`
	CustomerName string `json:"customer_name,omitempty"`
	Rating       int    `json:"rating"`
}

func decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
