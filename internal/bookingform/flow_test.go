package bookingform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dracarys0904/ServiceGo/internal/booking"
	"github.com/Dracarys0904/ServiceGo/internal/catalog"
	"github.com/Dracarys0904/ServiceGo/internal/clock"
	"github.com/Dracarys0904/ServiceGo/internal/domain"
	"github.com/Dracarys0904/ServiceGo/internal/store"
	"github.com/Dracarys0904/ServiceGo/internal/store/memstore"
)

var testNow = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

func newFlow(t *testing.T, services ...domain.Service) (*Flow, *booking.Synchronizer) {
	t.Helper()
	st := memstore.New()
	for _, svc := range services {
		fields, err := store.Fields(svc)
		if err != nil {
			t.Fatalf("fields: %v", err)
		}
		st.Seed("services", svc.ID, fields)
	}
	clk := clock.NewFixed(testNow)
	cat := catalog.NewReader(st, clk)
	if _, err := cat.List(context.Background()); err != nil {
		t.Fatalf("warm catalog: %v", err)
	}
	sync := booking.NewSynchronizer(st, nil, clk)
	return NewFlow(cat, sync, clk), sync
}

var cleaning = domain.Service{
	ID: "svc-1", Title: "Cleaning", Price: 50, Location: "Valencia",
	ProviderID: "p1", IsAvailable: true,
	Reviews: []domain.ReviewSummary{{Rating: 4}, {Rating: 5}},
}

func TestFlow_Validate(t *testing.T) {
	t.Parallel()

	flow, _ := newFlow(t, cleaning)

	cases := []struct {
		name string
		form Form
		want error
	}{
		{"valid", Form{ServiceID: "svc-1", Date: "2025-06-01", TimeSlot: "10:00"}, nil},
		{"today is allowed", Form{ServiceID: "svc-1", Date: "2025-05-10", TimeSlot: "09:00"}, nil},
		{"unknown service", Form{ServiceID: "ghost", Date: "2025-06-01", TimeSlot: "10:00"}, domain.ErrNotFound},
		{"missing date", Form{ServiceID: "svc-1", TimeSlot: "10:00"}, domain.ErrInvalidBooking},
		{"missing slot", Form{ServiceID: "svc-1", Date: "2025-06-01"}, domain.ErrInvalidBooking},
		{"past date", Form{ServiceID: "svc-1", Date: "2025-05-09", TimeSlot: "10:00"}, domain.ErrInvalidBooking},
		{"bad date", Form{ServiceID: "svc-1", Date: "June first", TimeSlot: "10:00"}, domain.ErrInvalidBooking},
		{"unknown slot", Form{ServiceID: "svc-1", Date: "2025-06-01", TimeSlot: "23:30"}, domain.ErrInvalidBooking},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := flow.Validate(tc.form)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFlow_Summary(t *testing.T) {
	t.Parallel()

	flow, _ := newFlow(t, cleaning)
	summary, err := flow.Summary(Form{ServiceID: "svc-1", Date: "2025-06-01", TimeSlot: "10:00"})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.ServiceTitle != "Cleaning" || summary.Price != 50 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.AverageRating != 4.5 {
		t.Fatalf("expected average rating 4.5, got %v", summary.AverageRating)
	}
}

func TestFlow_Submit(t *testing.T) {
	t.Parallel()

	customer := domain.Actor{ID: "c1", Role: domain.RoleCustomer, DisplayName: "Ada"}

	t.Run("creates booking and refreshes customer list", func(t *testing.T) {
		flow, sync := newFlow(t, cleaning)

		b, err := flow.Submit(context.Background(), customer, Form{
			ServiceID: "svc-1", Date: "2025-06-01", TimeSlot: "10:00", Message: "side entrance",
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if b.Status != domain.BookingStatusPending || b.TotalAmount != 50 {
			t.Fatalf("unexpected booking %+v", b)
		}
		if b.ProviderID != "p1" {
			t.Fatalf("expected provider from service, got %s", b.ProviderID)
		}

		cached := sync.Bookings()
		if len(cached) != 1 || cached[0].ID != b.ID {
			t.Fatalf("expected refreshed booking list, got %+v", cached)
		}
	})

	t.Run("invalid form never reaches the store", func(t *testing.T) {
		flow, sync := newFlow(t, cleaning)

		_, err := flow.Submit(context.Background(), customer, Form{
			ServiceID: "svc-1", Date: "2020-01-01", TimeSlot: "10:00",
		})
		if !errors.Is(err, domain.ErrInvalidBooking) {
			t.Fatalf("expected ErrInvalidBooking, got %v", err)
		}
		if len(sync.Bookings()) != 0 {
			t.Fatalf("expected no bookings after rejected submit")
		}
	})
}
