// Package pgstore implements store.Store on postgres via gorm. Every record
// is a jsonb document in a single table keyed by (collection, id), which
// keeps the store schemaless the way the components expect. Subscriptions
// combine an in-process hub (bumped after each local commit) with a poll
// ticker that picks up writes from other processes, e.g. the notifier worker.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Dracarys0904/ServiceGo/internal/store"
)

const defaultPollInterval = 2 * time.Second

type document struct {
	Collection string         `gorm:"primaryKey;size:64"`
	ID         string         `gorm:"primaryKey;size:64"`
	Data       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (document) TableName() string { return "documents" }

type Store struct {
	db   *gorm.DB
	hub  *hub
	poll time.Duration
}

type Option func(*Store)

// WithPollInterval overrides how often open subscriptions re-query to catch
// writes from other processes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.poll = d
		}
	}
}

func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if err := db.AutoMigrate(&document{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	s := &Store{db: db, hub: newHub(), poll: defaultPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	tx := s.db.WithContext(ctx).Model(&document{}).Where("collection = ?", collection)
	for _, f := range q.Filters {
		if err := validField(f.Field); err != nil {
			return nil, err
		}
		switch f.Op {
		case store.OpEqual:
			text, err := jsonText(f.Value)
			if err != nil {
				return nil, err
			}
			tx = tx.Where("data ->> ? = ?", f.Field, text)
		case store.OpArrayContains:
			elem, err := json.Marshal([]any{f.Value})
			if err != nil {
				return nil, err
			}
			tx = tx.Where("data -> ? @> ?::jsonb", f.Field, string(elem))
		default:
			return nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	if q.OrderBy != "" {
		if err := validField(q.OrderBy); err != nil {
			return nil, err
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		tx = tx.Order(fmt.Sprintf("data ->> '%s' %s", q.OrderBy, dir))
	}
	var rows []document
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	out := make([]store.Document, 0, len(rows))
	for _, row := range rows {
		fields, err := decodeData(row.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, row.ID, err)
		}
		out = append(out, store.Document{ID: row.ID, Fields: fields})
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var row document
	err := s.db.WithContext(ctx).First(&row, "collection = ? AND id = ?", collection, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	fields, err := decodeData(row.Data)
	if err != nil {
		return store.Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return store.Document{ID: id, Fields: fields}, nil
}

func (s *Store) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	row := document{Collection: collection, ID: uuid.NewString(), Data: datatypes.JSON(data)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create in %s: %w", collection, err)
	}
	s.hub.bump(collection)
	return row.ID, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Exec(
		"UPDATE documents SET data = data || ?::jsonb, updated_at = ? WHERE collection = ? AND id = ?",
		string(patch), time.Now().UTC(), collection, id,
	)
	if res.Error != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	s.hub.bump(collection)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, q store.Query) (store.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan []store.Document, 8),
		cancel: cancel,
	}
	bumps := s.hub.register(collection)
	go func() {
		defer s.hub.unregister(collection, bumps)
		defer close(sub.ch)
		var last string
		deliver := func(force bool) {
			docs, err := s.Query(subCtx, collection, q)
			if err != nil {
				if subCtx.Err() == nil {
					log.Printf("[pgstore] subscription query %s: %v", collection, err)
				}
				return
			}
			key := snapshotKey(docs)
			if !force && key == last {
				return
			}
			last = key
			sub.push(docs)
		}
		deliver(true)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-bumps:
				deliver(false)
			case <-ticker.C:
				deliver(false)
			}
		}
	}()
	return sub, nil
}

type subscription struct {
	ch     chan []store.Document
	cancel context.CancelFunc
	once   sync.Once
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
			select {
			case <-sub.ch:
			default:
			}
		}
	}
}

func (sub *subscription) Close() {
	sub.once.Do(sub.cancel)
}

// hub fans out "collection changed" signals to open subscriptions in this
// process so local writes surface without waiting for the next poll.
type hub struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string][]chan struct{})}
}

func (h *hub) register(collection string) chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[collection] = append(h.subs[collection], ch)
	h.mu.Unlock()
	return ch
}

func (h *hub) unregister(collection string, ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	chans := h.subs[collection]
	for i, c := range chans {
		if c == ch {
			h.subs[collection] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
}

func (h *hub) bump(collection string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func decodeData(data datatypes.JSON) (map[string]any, error) {
	fields := make(map[string]any)
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// jsonText renders a filter value the way postgres' ->> operator renders the
// stored field: strings bare, everything else as its JSON literal.
func jsonText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// validField guards the identifiers interpolated into jsonb path expressions.
// Field names come from component constants, never from request input.
func validField(name string) error {
	if name == "" {
		return fmt.Errorf("empty field name")
	}
	for _, r := range name {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !ok {
			return fmt.Errorf("invalid field name %q", name)
		}
	}
	if strings.HasPrefix(name, "_") {
		return fmt.Errorf("invalid field name %q", name)
	}
	return nil
}

func snapshotKey(docs []store.Document) string {
	b, err := json.Marshal(docs)
	if err != nil {
		return ""
	}
	return string(b)
}
