// Package bookingform orchestrates catalog, identity and the booking
// synchronizer to build and submit a new booking. It holds no state of its
// own beyond the caller's form values, so a failed submit leaves the form
// intact and retryable.
package bookingform

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Dracarys0904/ServiceGo/internal/booking"
	"github.com/Dracarys0904/ServiceGo/internal/catalog"
	"github.com/Dracarys0904/ServiceGo/internal/clock"
	"github.com/Dracarys0904/ServiceGo/internal/domain"
)

const dateLayout = "2006-01-02"

// TimeSlots is the fixed set of bookable slot labels.
var TimeSlots = []string{
	"09:00", "10:00", "11:00", "12:00",
	"13:00", "14:00", "15:00", "16:00", "17:00",
}

type Form struct {
	ServiceID string
	Date      string // YYYY-MM-DD
	TimeSlot  string
	Message   string
}

// Summary is the display recap shown before submission.
type Summary struct {
	ServiceTitle  string
	Location      string
	Price         float64
	AverageRating float64
	Date          string
	TimeSlot      string
}

type Flow struct {
	catalog  *catalog.Reader
	bookings *booking.Synchronizer
	clock    clock.Clock
}

func NewFlow(cat *catalog.Reader, bookings *booking.Synchronizer, clk clock.Clock) *Flow {
	return &Flow{catalog: cat, bookings: bookings, clock: clk}
}

// Validate checks the form the way submission gating does: the service must
// resolve from the cached catalog, both date and slot must be chosen, and the
// date may not be in the past.
func (f *Flow) Validate(form Form) error {
	if _, ok := f.catalog.Resolve(form.ServiceID); !ok {
		return fmt.Errorf("%w: service %s", domain.ErrNotFound, form.ServiceID)
	}
	if form.Date == "" || form.TimeSlot == "" {
		return fmt.Errorf("%w: select both date and time", domain.ErrInvalidBooking)
	}
	date, err := time.Parse(dateLayout, form.Date)
	if err != nil {
		return fmt.Errorf("%w: bad date %q", domain.ErrInvalidBooking, form.Date)
	}
	today, _ := time.Parse(dateLayout, f.clock.Now().Format(dateLayout))
	if date.Before(today) {
		return fmt.Errorf("%w: date %s is in the past", domain.ErrInvalidBooking, form.Date)
	}
	if !validSlot(form.TimeSlot) {
		return fmt.Errorf("%w: unknown time slot %q", domain.ErrInvalidBooking, form.TimeSlot)
	}
	return nil
}

// Summary resolves the service from the cached catalog (no fresh fetch) and
// computes the recap.
func (f *Flow) Summary(form Form) (Summary, error) {
	svc, ok := f.catalog.Resolve(form.ServiceID)
	if !ok {
		return Summary{}, fmt.Errorf("%w: service %s", domain.ErrNotFound, form.ServiceID)
	}
	return Summary{
		ServiceTitle:  svc.Title,
		Location:      svc.Location,
		Price:         svc.Price,
		AverageRating: svc.AverageRating(),
		Date:          form.Date,
		TimeSlot:      form.TimeSlot,
	}, nil
}

// Submit validates, delegates to the synchronizer and refreshes the
// customer's booking list so the new booking is visible right away. On error
// nothing is discarded; the caller can resubmit the same form.
func (f *Flow) Submit(ctx context.Context, customer domain.Actor, form Form) (domain.Booking, error) {
	if err := f.Validate(form); err != nil {
		return domain.Booking{}, err
	}
	svc, _ := f.catalog.Resolve(form.ServiceID)

	b, err := f.bookings.Create(ctx, booking.CreateInput{
		Service:  svc,
		Customer: customer,
		Date:     form.Date,
		TimeSlot: form.TimeSlot,
		Message:  form.Message,
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if _, err := f.bookings.List(ctx, customer); err != nil {
		log.Printf("[bookingform] refetch after submit: %v", err)
	}
	return b, nil
}

func validSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}
