// Package memstore is an in-memory store.Store with push subscriptions. It
// backs the test suites and local development; the production backend lives
// in store/pgstore.
package memstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dracarys0904/ServiceGo/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	subs        map[int]*subscription
	nextSubID   int
	err         error
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[int]*subscription),
	}
}

// SetError makes every subsequent operation fail with err until cleared with
// SetError(nil). Used to exercise the StoreUnavailable paths.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Seed inserts a document with a caller-chosen id without notifying
// subscribers, for test fixtures.
func (s *Store) Seed(collection, id string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.collection(collection)
	coll[id] = normalize(fields)
}

func (s *Store) Query(_ context.Context, collection string, q store.Query) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.runQuery(collection, q), nil
}

func (s *Store) Get(_ context.Context, collection, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return store.Document{}, s.err
	}
	fields, ok := s.collections[collection][id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: id, Fields: cloneMap(fields)}, nil
}

func (s *Store) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	id := uuid.NewString()
	coll := s.collection(collection)
	coll[id] = normalize(fields)
	s.broadcast(collection)
	return id, nil
}

func (s *Store) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	existing, ok := s.collections[collection][id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range normalize(fields) {
		existing[k] = v
	}
	s.broadcast(collection)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, q store.Query) (store.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	id := s.nextSubID
	s.nextSubID++
	sub := &subscription{
		store:      s,
		id:         id,
		collection: collection,
		query:      q,
		ch:         make(chan []store.Document, 8),
	}
	s.subs[id] = sub
	sub.push(s.runQuery(collection, q))
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Close()
		}()
	}
	return sub, nil
}

// collection returns the live map for a collection, creating it on first use.
// Callers must hold the write lock.
func (s *Store) collection(name string) map[string]map[string]any {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[name] = coll
	}
	return coll
}

func (s *Store) runQuery(collection string, q store.Query) []store.Document {
	var out []store.Document
	for id, fields := range s.collections[collection] {
		if matches(fields, q.Filters) {
			out = append(out, store.Document{ID: id, Fields: cloneMap(fields)})
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			less := compareValues(out[i].Fields[q.OrderBy], out[j].Fields[q.OrderBy]) < 0
			if q.Desc {
				return !less
			}
			return less
		})
	} else {
		// stable iteration for callers that diff snapshots
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	return out
}

// broadcast re-runs every subscription query on the collection and pushes the
// fresh snapshot. Callers must hold the write lock.
func (s *Store) broadcast(collection string) {
	for _, sub := range s.subs {
		if sub.collection != collection {
			continue
		}
		sub.push(s.runQuery(collection, sub.query))
	}
}

type subscription struct {
	store      *Store
	id         int
	collection string
	query      store.Query
	ch         chan []store.Document

	closeOnce sync.Once
}

func (sub *subscription) Snapshots() <-chan []store.Document {
	return sub.ch
}

func (sub *subscription) push(snapshot []store.Document) {
	for {
		select {
		case sub.ch <- snapshot:
			return
		default:
			// drop the oldest pending snapshot; only the latest matters
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}

func (sub *subscription) Close() {
	sub.closeOnce.Do(func() {
		sub.store.mu.Lock()
		delete(sub.store.subs, sub.id)
		sub.store.mu.Unlock()
		close(sub.ch)
	})
}

func matches(fields map[string]any, filters []store.Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case store.OpEqual:
			if !equalValues(v, normalizeValue(f.Value)) {
				return false
			}
		case store.OpArrayContains:
			arr, ok := v.([]any)
			if !ok {
				return false
			}
			want := normalizeValue(f.Value)
			found := false
			for _, item := range arr {
				if equalValues(item, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// compareValues orders two field values. Timestamp strings compare as
// instants so mixed-precision RFC3339 values still sort correctly.
func compareValues(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		at, errA := time.Parse(time.RFC3339, as)
		bt, errB := time.Parse(time.RFC3339, bs)
		if errA == nil && errB == nil {
			return at.Compare(bt)
		}
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	}
	return 0
}

// normalize passes a field map through JSON so stored values use the same
// shapes queries compare against (float64, string, bool, []any, nested maps).
func normalize(fields map[string]any) map[string]any {
	out, _ := normalizeValue(fields).(map[string]any)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}

func normalizeValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out, _ := normalizeValue(m).(map[string]any)
	return out
}
