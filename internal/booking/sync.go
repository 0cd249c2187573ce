// Package booking keeps each role's view of bookings consistent with the
// store: role-scoped reads, booking creation and guarded status-transition
// writes. The local list is a cache, never the source of truth; writes are
// followed by a full refetch instead of a cache patch.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Dracarys0904/ServiceGo/internal/clock"
	"github.com/Dracarys0904/ServiceGo/internal/domain"
	"github.com/Dracarys0904/ServiceGo/internal/store"
)

const collectionBookings = "bookings"

// Event routing keys published after booking writes. The notifier worker
// turns these into Notification documents; the synchronizer itself never
// writes to the notifications collection.
const (
	EventBookingRequested = "booking.requested"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCompleted = "booking.completed"
	EventBookingCancelled = "booking.cancelled"
)

// Publisher pushes booking events to the broker. *mq.Publisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type Synchronizer struct {
	store store.Store
	pub   Publisher
	clock clock.Clock

	mu       sync.RWMutex
	bookings []domain.Booking
	loading  bool
}

func NewSynchronizer(st store.Store, pub Publisher, clk clock.Clock) *Synchronizer {
	return &Synchronizer{store: st, pub: pub, clock: clk}
}

// List fetches the actor's bookings. The query shape is role-dependent on
// purpose:
//
//   - provider: provider_id equality, no ordering. Ordering by created_at on
//     top of that equality would need a composite index in the store, and the
//     trade was made to drop ordering for this role instead of requiring one.
//   - customer: customer_id equality ordered by created_at descending, which
//     needs no composite index.
//   - unknown role: participants containment, unordered.
//
// Do not unify these into one query.
func (s *Synchronizer) List(ctx context.Context, actor domain.Actor) ([]domain.Booking, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	var q store.Query
	switch actor.Role {
	case domain.RoleProvider:
		q = store.Query{Filters: []store.Filter{store.Eq("provider_id", actor.ID)}}
	case domain.RoleCustomer:
		q = store.Query{
			Filters: []store.Filter{store.Eq("customer_id", actor.ID)},
			OrderBy: "created_at",
			Desc:    true,
		}
	default:
		q = store.Query{Filters: []store.Filter{store.ArrayContains("participants", actor.ID)}}
	}

	docs, err := s.store.Query(ctx, collectionBookings, q)
	if err != nil {
		return nil, fmt.Errorf("%w: list bookings: %v", domain.ErrStoreUnavailable, err)
	}
	bookings, err := store.DecodeAll[domain.Booking](docs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	s.bookings = bookings
	s.mu.Unlock()
	return bookings, nil
}

func (s *Synchronizer) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Bookings returns the cached list from the last List call.
func (s *Synchronizer) Bookings() []domain.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}

type CreateInput struct {
	Service  domain.Service
	Customer domain.Actor
	Date     string // calendar date, YYYY-MM-DD
	TimeSlot string
	Message  string
}

// Create submits a new booking with status pending. The total amount is
// copied from the service price at this moment and never repriced, and
// participants is exactly {customer, provider} so the fallback query can
// scope by membership.
func (s *Synchronizer) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	switch {
	case in.Date == "":
		return domain.Booking{}, fmt.Errorf("%w: booking date not set", domain.ErrInvalidBooking)
	case in.TimeSlot == "":
		return domain.Booking{}, fmt.Errorf("%w: booking time not set", domain.ErrInvalidBooking)
	case in.Service.ID == "":
		return domain.Booking{}, fmt.Errorf("%w: no service selected", domain.ErrInvalidBooking)
	case in.Customer.ID == "":
		return domain.Booking{}, fmt.Errorf("%w: no authenticated customer", domain.ErrInvalidBooking)
	}

	now := s.clock.Now()
	b := domain.Booking{
		CustomerID:   in.Customer.ID,
		ServiceID:    in.Service.ID,
		ProviderID:   in.Service.ProviderID,
		BookingDate:  in.Date,
		BookingTime:  in.TimeSlot,
		Message:      in.Message,
		Status:       domain.BookingStatusPending,
		TotalAmount:  in.Service.Price,
		Participants: []string{in.Customer.ID, in.Service.ProviderID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	fields, err := store.Fields(b)
	if err != nil {
		return domain.Booking{}, err
	}
	id, err := s.store.Create(ctx, collectionBookings, fields)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%w: create booking: %v", domain.ErrStoreUnavailable, err)
	}
	b.ID = id

	s.publish(ctx, EventBookingRequested, map[string]any{
		"booking_id":    b.ID,
		"customer_id":   b.CustomerID,
		"customer_name": in.Customer.DisplayName,
		"provider_id":   b.ProviderID,
		"service_id":    b.ServiceID,
		"service_title": in.Service.Title,
		"booking_date":  b.BookingDate,
		"booking_time":  b.BookingTime,
		"total_amount":  b.TotalAmount,
	})
	return b, nil
}

// UpdateStatus transitions one booking. Ownership and the transition table
// are checked here instead of trusting the UI to only offer valid actions: a
// provider may confirm, complete or cancel their own bookings, a customer may
// cancel their own pending booking. The write itself is a plain field merge
// with last-write-wins semantics, followed by a refetch of the actor's list.
func (s *Synchronizer) UpdateStatus(ctx context.Context, actor domain.Actor, bookingID string, next domain.BookingStatus) (domain.Booking, error) {
	if !next.Valid() {
		return domain.Booking{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, next)
	}

	doc, err := s.store.Get(ctx, collectionBookings, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Booking{}, fmt.Errorf("%w: booking %s", domain.ErrNotFound, bookingID)
		}
		return domain.Booking{}, fmt.Errorf("%w: load booking %s: %v", domain.ErrStoreUnavailable, bookingID, err)
	}
	var b domain.Booking
	if err := doc.Decode(&b); err != nil {
		return domain.Booking{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if err := authorizeTransition(actor, b, next); err != nil {
		return domain.Booking{}, err
	}
	if !b.Status.CanTransitionTo(next) {
		return domain.Booking{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, b.Status, next)
	}

	now := s.clock.Now()
	err = s.store.Update(ctx, collectionBookings, bookingID, map[string]any{
		"status":     next,
		"updated_at": now,
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%w: update booking %s: %v", domain.ErrStoreUnavailable, bookingID, err)
	}
	b.Status = next
	b.UpdatedAt = now

	if _, err := s.List(ctx, actor); err != nil {
		log.Printf("[booking] refetch after status update: %v", err)
	}

	s.publish(ctx, eventForStatus(next), map[string]any{
		"booking_id":  b.ID,
		"customer_id": b.CustomerID,
		"provider_id": b.ProviderID,
		"service_id":  b.ServiceID,
	})
	return b, nil
}

func authorizeTransition(actor domain.Actor, b domain.Booking, next domain.BookingStatus) error {
	switch actor.Role {
	case domain.RoleProvider:
		if b.ProviderID != actor.ID {
			return fmt.Errorf("%w: booking %s does not belong to provider %s", domain.ErrForbidden, b.ID, actor.ID)
		}
		return nil
	case domain.RoleCustomer:
		if b.CustomerID != actor.ID {
			return fmt.Errorf("%w: booking %s does not belong to customer %s", domain.ErrForbidden, b.ID, actor.ID)
		}
		if next != domain.BookingStatusCancelled {
			return fmt.Errorf("%w: customers may only cancel", domain.ErrForbidden)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown role", domain.ErrForbidden)
}

func eventForStatus(status domain.BookingStatus) string {
	switch status {
	case domain.BookingStatusConfirmed:
		return EventBookingConfirmed
	case domain.BookingStatusCompleted:
		return EventBookingCompleted
	default:
		return EventBookingCancelled
	}
}

func (s *Synchronizer) publish(ctx context.Context, key string, payload map[string]any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishJSON(ctx, key, payload); err != nil {
		log.Printf("[booking] publish %s: %v", key, err)
	}
}
