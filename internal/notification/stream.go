// Package notification delivers a user's in-app notifications as a live
// feed with read/unread tracking. Each push replaces the full local list;
// read-state mutations apply optimistically and are reconciled by the next
// push delivery.
package notification

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Dracarys0904/ServiceGo/internal/domain"
	"github.com/Dracarys0904/ServiceGo/internal/store"
)

const collectionNotifications = "notifications"

// Stream opens per-user notification feeds.
type Stream struct {
	store store.Store
}

func NewStream(st store.Store) *Stream {
	return &Stream{store: st}
}

// Open subscribes to the user's notifications, newest first. The returned
// feed keeps itself current until Close is called; after Close no further
// local updates happen and the underlying push channel is released.
func (s *Stream) Open(ctx context.Context, userID string) (*Feed, error) {
	sub, err := s.store.Subscribe(ctx, collectionNotifications, store.Query{
		Filters: []store.Filter{store.Eq("user_id", userID)},
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe notifications: %v", domain.ErrStoreUnavailable, err)
	}
	f := &Feed{
		store:     s.store,
		userID:    userID,
		sub:       sub,
		loading:   true,
		listeners: make(map[int]chan struct{}),
		done:      make(chan struct{}),
	}
	go f.run()
	return f, nil
}

// Feed is one user's live notification view.
type Feed struct {
	store  store.Store
	userID string
	sub    store.Subscription

	mu            sync.RWMutex
	notifications []domain.Notification
	unread        int
	loading       bool
	listeners     map[int]chan struct{}
	nextListener  int

	done      chan struct{}
	closeOnce sync.Once
}

func (f *Feed) run() {
	defer close(f.done)
	for snapshot := range f.sub.Snapshots() {
		notifications, err := store.DecodeAll[domain.Notification](snapshot)
		if err != nil {
			log.Printf("[notification] decode snapshot: %v", err)
			continue
		}
		unread := 0
		for _, n := range notifications {
			if !n.IsRead {
				unread++
			}
		}
		f.mu.Lock()
		f.notifications = notifications
		f.unread = unread
		f.loading = false
		f.mu.Unlock()
		f.signal()
	}
}

func (f *Feed) signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch registers an update listener and returns its channel plus a cancel
// func. Every registered listener is woken on each state change, coalescing
// bursts per listener, so concurrent consumers such as multiple open stream
// connections each see every delivery.
func (f *Feed) Watch() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextListener
	f.nextListener++
	ch := make(chan struct{}, 1)
	f.listeners[id] = ch
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *Feed) Notifications() []domain.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]domain.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out
}

func (f *Feed) UnreadCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.unread
}

func (f *Feed) Loading() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loading
}

// Close cancels the subscription and waits for the delivery loop to stop.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.sub.Close()
		<-f.done
	})
}

// MarkAsRead flips one notification's read flag. The local state updates
// optimistically before the store write; a failed write is logged and the
// local flip is deliberately kept, since the next push delivery reconciles
// either way. Marking an already-read notification is a no-op locally.
func (f *Feed) MarkAsRead(ctx context.Context, notificationID string) error {
	f.mu.Lock()
	for i, n := range f.notifications {
		if n.ID != notificationID || n.IsRead {
			continue
		}
		f.notifications[i].IsRead = true
		if f.unread > 0 {
			f.unread--
		}
		break
	}
	f.mu.Unlock()
	f.signal()

	err := f.store.Update(ctx, collectionNotifications, notificationID, map[string]any{"is_read": true})
	if err != nil {
		log.Printf("[notification] mark read %s: %v", notificationID, err)
		return fmt.Errorf("%w: mark read: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// MarkAllAsRead queries the user's unread notifications and issues one update
// per document concurrently. The updates are batched, not atomic: partial
// failure surfaces only as the aggregate error and the local state is still
// marked fully read, best-effort, until the next delivery reconciles.
func (f *Feed) MarkAllAsRead(ctx context.Context) error {
	docs, err := f.store.Query(ctx, collectionNotifications, store.Query{
		Filters: []store.Filter{
			store.Eq("user_id", f.userID),
			store.Eq("is_read", false),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: list unread: %v", domain.ErrStoreUnavailable, err)
	}

	// plain group: one failed write must not cancel the sibling updates
	var g errgroup.Group
	for _, doc := range docs {
		id := doc.ID
		g.Go(func() error {
			return f.store.Update(ctx, collectionNotifications, id, map[string]any{"is_read": true})
		})
	}
	waitErr := g.Wait()

	f.mu.Lock()
	for i := range f.notifications {
		f.notifications[i].IsRead = true
	}
	f.unread = 0
	f.mu.Unlock()
	f.signal()

	if waitErr != nil {
		log.Printf("[notification] mark all read for %s: %v", f.userID, waitErr)
		return fmt.Errorf("%w: mark all read: %v", domain.ErrStoreUnavailable, waitErr)
	}
	return nil
}
