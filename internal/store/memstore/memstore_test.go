package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dracarys0904/ServiceGo/internal/store"
)

func TestStore_QueryFiltersAndOrder(t *testing.T) {
	t.Parallel()

	s := New()
	s.Seed("bookings", "b1", map[string]any{
		"provider_id":  "p1",
		"customer_id":  "c1",
		"participants": []string{"c1", "p1"},
		"created_at":   "2025-05-01T10:00:00Z",
	})
	s.Seed("bookings", "b2", map[string]any{
		"provider_id":  "p2",
		"customer_id":  "c1",
		"participants": []string{"c1", "p2"},
		"created_at":   "2025-05-02T10:00:00Z",
	})
	s.Seed("bookings", "b3", map[string]any{
		"provider_id":  "p1",
		"customer_id":  "c2",
		"participants": []string{"c2", "p1"},
		"created_at":   "2025-05-03T10:00:00Z",
	})

	t.Run("equality filter", func(t *testing.T) {
		docs, err := s.Query(context.Background(), "bookings", store.Query{
			Filters: []store.Filter{store.Eq("provider_id", "p1")},
		})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 docs, got %d", len(docs))
		}
	})

	t.Run("array contains", func(t *testing.T) {
		docs, err := s.Query(context.Background(), "bookings", store.Query{
			Filters: []store.Filter{store.ArrayContains("participants", "c1")},
		})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 docs, got %d", len(docs))
		}
	})

	t.Run("order by created_at desc", func(t *testing.T) {
		docs, err := s.Query(context.Background(), "bookings", store.Query{
			Filters: []store.Filter{store.Eq("customer_id", "c1")},
			OrderBy: "created_at",
			Desc:    true,
		})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 docs, got %d", len(docs))
		}
		if docs[0].ID != "b2" || docs[1].ID != "b1" {
			t.Fatalf("expected [b2 b1], got [%s %s]", docs[0].ID, docs[1].ID)
		}
	})

	t.Run("no match", func(t *testing.T) {
		docs, err := s.Query(context.Background(), "bookings", store.Query{
			Filters: []store.Filter{store.Eq("provider_id", "nope")},
		})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(docs) != 0 {
			t.Fatalf("expected no docs, got %d", len(docs))
		}
	})
}

func TestStore_UpdateMergesFields(t *testing.T) {
	t.Parallel()

	s := New()
	s.Seed("bookings", "b1", map[string]any{
		"status":     "pending",
		"message":    "hello",
		"created_at": "2025-05-01T10:00:00Z",
	})

	if err := s.Update(context.Background(), "bookings", "b1", map[string]any{"status": "confirmed"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, err := s.Get(context.Background(), "bookings", "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Fields["status"] != "confirmed" {
		t.Fatalf("expected status confirmed, got %v", doc.Fields["status"])
	}
	if doc.Fields["message"] != "hello" {
		t.Fatalf("expected untouched message, got %v", doc.Fields["message"])
	}
}

func TestStore_UpdateMissingDocument(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.Update(context.Background(), "bookings", "ghost", map[string]any{"status": "confirmed"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SubscribePushesSnapshots(t *testing.T) {
	t.Parallel()

	s := New()
	s.Seed("notifications", "n1", map[string]any{
		"user_id":    "u1",
		"is_read":    false,
		"created_at": "2025-05-01T10:00:00Z",
	})

	sub, err := s.Subscribe(context.Background(), "notifications", store.Query{
		Filters: []store.Filter{store.Eq("user_id", "u1")},
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	first := nextSnapshot(t, sub)
	if len(first) != 1 {
		t.Fatalf("expected initial snapshot of 1, got %d", len(first))
	}

	if _, err := s.Create(context.Background(), "notifications", map[string]any{
		"user_id":    "u1",
		"is_read":    false,
		"created_at": "2025-05-02T10:00:00Z",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	second := nextSnapshot(t, sub)
	if len(second) != 2 {
		t.Fatalf("expected snapshot of 2 after create, got %d", len(second))
	}
	if second[0].Fields["created_at"] != "2025-05-02T10:00:00Z" {
		t.Fatalf("expected newest first, got %v", second[0].Fields["created_at"])
	}

	// documents for other users never reach this subscription
	if _, err := s.Create(context.Background(), "notifications", map[string]any{
		"user_id":    "u2",
		"is_read":    false,
		"created_at": "2025-05-03T10:00:00Z",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	third := nextSnapshot(t, sub)
	if len(third) != 2 {
		t.Fatalf("expected snapshot unchanged at 2, got %d", len(third))
	}
}

func TestStore_CloseStopsDeliveries(t *testing.T) {
	t.Parallel()

	s := New()
	sub, err := s.Subscribe(context.Background(), "notifications", store.Query{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	nextSnapshot(t, sub)
	sub.Close()

	if _, ok := <-sub.Snapshots(); ok {
		t.Fatalf("expected snapshot channel to be closed")
	}
}

func TestStore_SetError(t *testing.T) {
	t.Parallel()

	s := New()
	boom := errors.New("boom")
	s.SetError(boom)

	if _, err := s.Query(context.Background(), "bookings", store.Query{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if _, err := s.Create(context.Background(), "bookings", map[string]any{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	s.SetError(nil)
	if _, err := s.Query(context.Background(), "bookings", store.Query{}); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}

func nextSnapshot(t *testing.T, sub store.Subscription) []store.Document {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if !ok {
			t.Fatalf("snapshot channel closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return nil
	}
}
