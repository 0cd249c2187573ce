package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dracarys0904/ServiceGo/internal/booking"
	"github.com/Dracarys0904/ServiceGo/internal/bookingform"
	"github.com/Dracarys0904/ServiceGo/internal/catalog"
	"github.com/Dracarys0904/ServiceGo/internal/clock"
	"github.com/Dracarys0904/ServiceGo/internal/domain"
	"github.com/Dracarys0904/ServiceGo/internal/notification"
	"github.com/Dracarys0904/ServiceGo/internal/store"
	"github.com/Dracarys0904/ServiceGo/internal/store/memstore"
	"github.com/Dracarys0904/ServiceGo/pkg/auth"
)

var testNow = time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	router *gin.Engine
	store  *memstore.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	st := memstore.New()
	clk := clock.NewFixed(testNow)
	cat := catalog.NewReader(st, clk)
	sync := booking.NewSynchronizer(st, nil, clk)
	flow := bookingform.NewFlow(cat, sync, clk)
	nh := NewNotificationHandler(notification.NewStream(st))
	t.Cleanup(nh.Close)

	return &testAPI{
		router: Router(NewServiceHandler(cat), NewBookingHandler(sync, flow), nh),
		store:  st,
	}
}

func (api *testAPI) seed(t *testing.T, collection, id string, v any) {
	t.Helper()
	fields, err := store.Fields(v)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	api.store.Seed(collection, id, fields)
}

func (api *testAPI) request(t *testing.T, method, path, body string, actor *domain.Actor) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		tok, err := auth.CreateAccessToken(actor.ID, string(actor.Role), actor.DisplayName, time.Hour)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	return rec
}

var (
	customer = domain.Actor{ID: "c1", Role: domain.RoleCustomer, DisplayName: "Ada"}
	provider = domain.Actor{ID: "p1", Role: domain.RoleProvider, DisplayName: "Bo"}
)

func TestRouter_AuthGating(t *testing.T) {
	api := newTestAPI(t)

	if rec := api.request(t, http.MethodGet, "/v1/bookings", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := api.request(t, http.MethodPost, "/v1/services", `{"title":"x","description":"y","price":10}`, &customer); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer creating service, got %d", rec.Code)
	}
	if rec := api.request(t, http.MethodPost, "/v1/bookings", `{"service_id":"s","booking_date":"2025-06-01","booking_time":"10:00"}`, &provider); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for provider creating booking, got %d", rec.Code)
	}
}

func TestRouter_BookingLifecycle(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "services", "svc-1", domain.Service{
		Title: "Cleaning", Description: "Standard clean", Price: 50,
		ProviderID: "p1", IsAvailable: true, CreatedAt: testNow.Add(-time.Hour),
	})

	// warm the catalog cache the way a dashboard would
	if rec := api.request(t, http.MethodGet, "/v1/services", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing services, got %d", rec.Code)
	}

	rec := api.request(t, http.MethodPost, "/v1/bookings",
		`{"service_id":"svc-1","booking_date":"2025-06-01","booking_time":"10:00","message":"hi"}`, &customer)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Booking domain.Booking `json:"booking"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Booking.Status != domain.BookingStatusPending || created.Booking.TotalAmount != 50 {
		t.Fatalf("unexpected booking %+v", created.Booking)
	}

	t.Run("provider confirms", func(t *testing.T) {
		rec := api.request(t, http.MethodPost, "/v1/bookings/"+created.Booking.ID+"/status",
			`{"status":"confirmed"}`, &provider)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("repeat confirm conflicts", func(t *testing.T) {
		rec := api.request(t, http.MethodPost, "/v1/bookings/"+created.Booking.ID+"/status",
			`{"status":"confirmed"}`, &provider)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("foreign provider forbidden", func(t *testing.T) {
		other := domain.Actor{ID: "p2", Role: domain.RoleProvider}
		rec := api.request(t, http.MethodPost, "/v1/bookings/"+created.Booking.ID+"/status",
			`{"status":"completed"}`, &other)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("missing booking", func(t *testing.T) {
		rec := api.request(t, http.MethodPost, "/v1/bookings/ghost/status", `{"status":"confirmed"}`, &provider)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestRouter_ServiceUpdateOwnership(t *testing.T) {
	seedService := func(api *testAPI) {
		api.seed(t, "services", "svc-1", domain.Service{
			Title: "Cleaning", Description: "Standard clean", Price: 50,
			ProviderID: "p1", IsAvailable: true, CreatedAt: testNow.Add(-time.Hour),
		})
	}
	storedPrice := func(api *testAPI) float64 {
		doc, err := api.store.Get(context.Background(), "services", "svc-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		price, _ := doc.Fields["price"].(float64)
		return price
	}

	t.Run("foreign provider rejected on cold cache", func(t *testing.T) {
		api := newTestAPI(t)
		seedService(api)
		other := domain.Actor{ID: "p2", Role: domain.RoleProvider}

		rec := api.request(t, http.MethodPatch, "/v1/services/svc-1", `{"price":1}`, &other)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
		}
		if p := storedPrice(api); p != 50 {
			t.Fatalf("price changed to %v", p)
		}
	})

	t.Run("owner updates on cold cache", func(t *testing.T) {
		api := newTestAPI(t)
		seedService(api)

		rec := api.request(t, http.MethodPatch, "/v1/services/svc-1", `{"price":60}`, &provider)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if p := storedPrice(api); p != 60 {
			t.Fatalf("price = %v", p)
		}
	})

	t.Run("missing service", func(t *testing.T) {
		api := newTestAPI(t)
		rec := api.request(t, http.MethodPatch, "/v1/services/ghost", `{"price":60}`, &provider)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestRouter_Notifications(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t, "notifications", "n1", domain.Notification{
		UserID: "c1", Title: "Booking Confirmed", IsRead: false,
		Type: domain.NotificationBookingConfirmed, CreatedAt: testNow,
	})

	// feed state fills asynchronously after the first request opens it
	deadline := time.Now().Add(2 * time.Second)
	var payload struct {
		Notifications []domain.Notification `json:"notifications"`
		UnreadCount   int                   `json:"unread_count"`
	}
	for {
		rec := api.request(t, http.MethodGet, "/v1/notifications", "", &customer)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload.UnreadCount == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if payload.UnreadCount != 1 {
		t.Fatalf("expected unread 1, got %d", payload.UnreadCount)
	}

	rec := api.request(t, http.MethodPost, "/v1/notifications/n1/read", "", &customer)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.UnreadCount != 0 {
		t.Fatalf("expected unread 0 after mark read, got %d", payload.UnreadCount)
	}

	doc, err := api.store.Get(context.Background(), "notifications", "n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Fields["is_read"] != true {
		t.Fatalf("expected store write, got %v", doc.Fields["is_read"])
	}
}
