// Package notifier is the trigger logic the notification stream observes: it
// consumes booking and review events from the broker and writes Notification
// documents addressed to the affected party. The core components never write
// notifications themselves.
package notifier

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Dracarys0904/ServiceGo/internal/clock"
	"github.com/Dracarys0904/ServiceGo/internal/domain"
	"github.com/Dracarys0904/ServiceGo/internal/store"
)

const collectionNotifications = "notifications"

// Source yields broker deliveries. *mq.Consumer satisfies it.
type Source interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type Worker struct {
	store  store.Store
	clock  clock.Clock
	source Source
}

func NewWorker(st store.Store, clk clock.Clock, src Source) *Worker {
	return &Worker{store: st, clock: clk, source: src}
}

func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.source.Deliveries(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := w.Handle(ctx, d.RoutingKey, d.Body); err != nil {
				log.Printf("[notifier] handle key=%s err=%v -> Nack&requeue", d.RoutingKey, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle maps one event to its Notification document. Unknown keys are
// acknowledged and skipped; booking.cancelled is skipped too since the
// notification type set does not include cancellations.
func (w *Worker) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case RKBookingRequested:
		ev, err := decode[BookingEvent](body)
		if err != nil {
			return err
		}
		return w.create(ctx, domain.Notification{
			UserID:    ev.ProviderID,
			Title:     "New Booking Request",
			Message:   fmt.Sprintf("%s requested %s on %s at %s.", orAnon(ev.CustomerName), ev.ServiceTitle, ev.BookingDate, ev.BookingTime),
			Type:      domain.NotificationBookingRequest,
			RelatedID: ev.BookingID,
		})

	case RKBookingConfirmed:
		ev, err := decode[BookingEvent](body)
		if err != nil {
			return err
		}
		return w.create(ctx, domain.Notification{
			UserID:    ev.CustomerID,
			Title:     "Booking Confirmed",
			Message:   "Your booking request has been accepted by the provider.",
			Type:      domain.NotificationBookingConfirmed,
			RelatedID: ev.BookingID,
		})

	case RKBookingCompleted:
		ev, err := decode[BookingEvent](body)
		if err != nil {
			return err
		}
		return w.create(ctx, domain.Notification{
			UserID:    ev.CustomerID,
			Title:     "Booking Completed",
			Message:   "Your booking is complete. You can now leave a review.",
			Type:      domain.NotificationBookingCompleted,
			RelatedID: ev.BookingID,
		})

	case RKReviewCreated:
		ev, err := decode[ReviewEvent](body)
		if err != nil {
			return err
		}
		return w.create(ctx, domain.Notification{
			UserID:    ev.ProviderID,
			Title:     "New Review",
			Message:   fmt.Sprintf("%s left a %d-star review on your service.", orAnon(ev.CustomerName), ev.Rating),
			Type:      domain.NotificationNewReview,
			RelatedID: ev.ReviewID,
		})

	case RKBookingCancelled:
		log.Printf("[notifier] skip key=%s", key)
		return nil

	default:
		log.Printf("[notifier] skip unknown key=%s", key)
		return nil
	}
}

func (w *Worker) create(ctx context.Context, n domain.Notification) error {
	n.IsRead = false
	n.CreatedAt = w.clock.Now()
	fields, err := store.Fields(n)
	if err != nil {
		return err
	}
	if _, err := w.store.Create(ctx, collectionNotifications, fields); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

func orAnon(name string) string {
	if name == "" {
		return "A customer"
	}
	return name
}
