// Package catalog reads and mutates the service catalog. The cached list is
// a disposable projection of the store: every mutation triggers a full
// refetch rather than patching the cache, which buys read-after-write
// consistency at a cost that is acceptable for a human-paced catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Dracarys0904/ServiceGo/internal/clock"
	"github.com/Dracarys0904/ServiceGo/internal/domain"
	"github.com/Dracarys0904/ServiceGo/internal/store"
)

const (
	collectionServices   = "services"
	collectionCategories = "service_categories"
)

type Reader struct {
	store store.Store
	clock clock.Clock

	mu       sync.RWMutex
	services []domain.Service
	loading  bool
}

func NewReader(st store.Store, clk clock.Clock) *Reader {
	return &Reader{store: st, clock: clk}
}

// List fetches the full catalog ordered by creation time, newest first, and
// replaces the cache. On store failure the previous cache is left in place
// and the loading flag still drops back to false.
func (r *Reader) List(ctx context.Context) ([]domain.Service, error) {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.loading = false
		r.mu.Unlock()
	}()

	docs, err := r.store.Query(ctx, collectionServices, store.Query{
		OrderBy: "created_at",
		Desc:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list services: %v", domain.ErrStoreUnavailable, err)
	}
	services, err := store.DecodeAll[domain.Service](docs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	r.mu.Lock()
	r.services = services
	r.mu.Unlock()
	return services, nil
}

func (r *Reader) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// Services returns the cached catalog without touching the store.
func (r *Reader) Services() []domain.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Service, len(r.services))
	copy(out, r.services)
	return out
}

// Resolve looks a service up in the cached list. It never queries the store;
// callers that need a fresh view run List first.
func (r *Reader) Resolve(id string) (domain.Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, svc := range r.services {
		if svc.ID == id {
			return svc, true
		}
	}
	return domain.Service{}, false
}

// Fetch resolves a service from the cache, falling back to a store read when
// the cache misses. Guards that must see the real owner use this instead of
// Resolve so a cold cache cannot skip them.
func (r *Reader) Fetch(ctx context.Context, id string) (domain.Service, error) {
	if svc, ok := r.Resolve(id); ok {
		return svc, nil
	}
	doc, err := r.store.Get(ctx, collectionServices, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Service{}, fmt.Errorf("%w: service %s", domain.ErrNotFound, id)
		}
		return domain.Service{}, fmt.Errorf("%w: get service %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	var svc domain.Service
	if err := doc.Decode(&svc); err != nil {
		return domain.Service{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return svc, nil
}

type CreateServiceInput struct {
	Title       string
	Description string
	Price       float64
	Location    string
	Images      []string
	ProviderID  string
	CategoryID  string
}

// Create writes a new service with availability defaulted to true and
// refetches the catalog so the caller immediately sees its own write.
func (r *Reader) Create(ctx context.Context, in CreateServiceInput) error {
	now := r.clock.Now()
	svc := domain.Service{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Location:    in.Location,
		IsAvailable: true,
		Images:      in.Images,
		ProviderID:  in.ProviderID,
		CategoryID:  in.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	fields, err := store.Fields(svc)
	if err != nil {
		return err
	}
	if _, err := r.store.Create(ctx, collectionServices, fields); err != nil {
		return fmt.Errorf("%w: create service: %v", domain.ErrStoreUnavailable, err)
	}
	_, err = r.List(ctx)
	return err
}

// Update merges the given fields into an existing service (unspecified fields
// untouched) and refetches the catalog.
func (r *Reader) Update(ctx context.Context, id string, fields map[string]any) error {
	patch := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		patch[k] = v
	}
	patch["updated_at"] = r.clock.Now()
	if err := r.store.Update(ctx, collectionServices, id, patch); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: service %s", domain.ErrNotFound, id)
		}
		return fmt.Errorf("%w: update service %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	_, err := r.List(ctx)
	return err
}

// Categories lists the catalog groupings ordered by name.
func (r *Reader) Categories(ctx context.Context) ([]domain.ServiceCategory, error) {
	docs, err := r.store.Query(ctx, collectionCategories, store.Query{OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("%w: list categories: %v", domain.ErrStoreUnavailable, err)
	}
	return store.DecodeAll[domain.ServiceCategory](docs)
}
