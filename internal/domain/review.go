package domain

import "time"

// Review links a rating to a completed booking. Read-only for this service;
// aggregate display uses the summaries embedded in Service.
type Review struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	ServiceID  string    `json:"service_id"`
	CustomerID string    `json:"customer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
