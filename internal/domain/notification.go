package domain

import "time"

type NotificationType string

const (
	NotificationBookingRequest   NotificationType = "booking_request"
	NotificationBookingConfirmed NotificationType = "booking_confirmed"
	NotificationBookingCompleted NotificationType = "booking_completed"
	NotificationNewReview        NotificationType = "new_review"
)

// Notification is an asynchronous event addressed to one user. The core only
// reads notifications and flips the read flag; creation happens in the
// notifier worker.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	RelatedID string           `json:"related_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
