package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"eduportal/internal/metrics"
	"eduportal/internal/securestore"
)

// ErrIDCollision is returned when a fresh identifier keeps colliding with existing records
var ErrIDCollision = errors.New("could not generate a unique record id")

const maxIDAttempts = 10

// Record is an entity held by a Collection
type Record interface {
	RecordID() string
}

// Clock returns the current time
type Clock func() time.Time

// SystemClock returns the wall clock in UTC without a monotonic reading,
// so stamped values survive a serialize/load round trip unchanged.
func SystemClock() time.Time {
	return time.Now().UTC().Round(0)
}

// Collection is an insertion-ordered sequence of records mirrored to a
// single storage slot as one JSON blob.
//
// Every mutation persists the full new sequence before it becomes visible in
// memory, so a failed write leaves memory and storage in agreement. Mutations
// are serialized: mu is held across the read-modify-write including the
// storage write.
type Collection[T Record] struct {
	slot   string
	store  securestore.Store
	logger *slog.Logger

	mu      sync.Mutex
	itemsMu sync.RWMutex
	items   []T
	loading atomic.Bool
}

// NewCollection creates an empty collection bound to slot
func NewCollection[T Record](store securestore.Store, slot string) *Collection[T] {
	return &Collection[T]{
		slot:   slot,
		store:  store,
		logger: slog.Default().With("collection", slot),
	}
}

// Load hydrates the collection from storage. Absent or unreadable data leaves
// the current contents in place; the failure is logged, never returned.
func (c *Collection[T]) Load(ctx context.Context) {
	c.loading.Store(true)
	defer c.loading.Store(false)

	raw, err := c.store.Get(ctx, c.slot)
	if errors.Is(err, securestore.ErrNotFound) {
		c.logger.Debug("no stored records")
		metrics.StoreOperations.WithLabelValues(c.slot, "load", "empty").Inc()
		return
	}
	if err != nil {
		c.logger.Error("failed to read stored records", "error", err)
		metrics.StoreOperations.WithLabelValues(c.slot, "load", "error").Inc()
		return
	}

	var loaded []T
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		c.logger.Error("failed to decode stored records", "error", err)
		metrics.StoreOperations.WithLabelValues(c.slot, "load", "error").Inc()
		return
	}

	c.commit(loaded)
	metrics.StoreOperations.WithLabelValues(c.slot, "load", "ok").Inc()
	c.logger.Debug("records loaded", "count", len(loaded))
}

// IsLoading reports whether a Load is in progress
func (c *Collection[T]) IsLoading() bool {
	return c.loading.Load()
}

// Insert appends the record produced by build. build is called again when
// the produced id already exists, up to a bounded number of attempts.
func (c *Collection[T]) Insert(ctx context.Context, build func() T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot()
	var rec T
	unique := false
	for i := 0; i < maxIDAttempts; i++ {
		rec = build()
		if indexOf(current, rec.RecordID()) < 0 {
			unique = true
			break
		}
	}
	if !unique {
		var zero T
		return zero, ErrIDCollision
	}

	next := append(current, rec)
	if err := c.persist(ctx, "add", next); err != nil {
		var zero T
		return zero, err
	}
	c.commit(next)
	return rec, nil
}

// Update replaces the first record matching id with fn(record). An unknown id
// is a no-op: nothing is written and ok is false.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(T) T) (updated T, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot()
	i := indexOf(current, id)
	if i < 0 {
		metrics.StoreOperations.WithLabelValues(c.slot, "update", "missing").Inc()
		return updated, false, nil
	}

	current[i] = fn(current[i])
	if err := c.persist(ctx, "update", current); err != nil {
		return updated, false, err
	}
	c.commit(current)
	return current[i], true, nil
}

// UpdateWhere applies fn to every record matching pred in a single write and
// returns how many records changed.
func (c *Collection[T]) UpdateWhere(ctx context.Context, pred func(T) bool, fn func(T) T) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot()
	changed := 0
	for i := range current {
		if pred(current[i]) {
			current[i] = fn(current[i])
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}

	if err := c.persist(ctx, "update", current); err != nil {
		return 0, err
	}
	c.commit(current)
	return changed, nil
}

// Delete removes the first record matching id. An unknown id is a no-op.
func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.snapshot()
	i := indexOf(current, id)
	if i < 0 {
		metrics.StoreOperations.WithLabelValues(c.slot, "delete", "missing").Inc()
		return false, nil
	}

	next := append(current[:i:i], current[i+1:]...)
	if err := c.persist(ctx, "delete", next); err != nil {
		return false, err
	}
	c.commit(next)
	return true, nil
}

// ReplaceAll swaps the whole sequence, persisting it first
func (c *Collection[T]) ReplaceAll(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := append([]T(nil), items...)
	if err := c.persist(ctx, "replace", next); err != nil {
		return err
	}
	c.commit(next)
	return nil
}

// Get returns the first record matching id
func (c *Collection[T]) Get(id string) (T, bool) {
	c.itemsMu.RLock()
	defer c.itemsMu.RUnlock()

	if i := indexOf(c.items, id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// All returns a copy of the sequence in insertion order
func (c *Collection[T]) All() []T {
	return c.snapshot()
}

// Filter returns the records matching pred in insertion order
func (c *Collection[T]) Filter(pred func(T) bool) []T {
	c.itemsMu.RLock()
	defer c.itemsMu.RUnlock()

	out := make([]T, 0)
	for _, item := range c.items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Len returns the number of records
func (c *Collection[T]) Len() int {
	c.itemsMu.RLock()
	defer c.itemsMu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) snapshot() []T {
	c.itemsMu.RLock()
	defer c.itemsMu.RUnlock()
	return append(make([]T, 0, len(c.items)+1), c.items...)
}

func (c *Collection[T]) commit(items []T) {
	c.itemsMu.Lock()
	c.items = items
	c.itemsMu.Unlock()
	metrics.StoreRecords.WithLabelValues(c.slot).Set(float64(len(items)))
}

func (c *Collection[T]) persist(ctx context.Context, op string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		metrics.StoreOperations.WithLabelValues(c.slot, op, "error").Inc()
		return fmt.Errorf("failed to encode %s: %w", c.slot, err)
	}

	start := time.Now()
	err = c.store.Set(ctx, c.slot, string(data))
	metrics.PersistDuration.WithLabelValues(c.slot).Observe(time.Since(start).Seconds())
	metrics.StoreOperations.WithLabelValues(c.slot, op, metrics.Result(err)).Inc()
	if err != nil {
		c.logger.Error("failed to persist records", "operation", op, "error", err)
		return fmt.Errorf("failed to save %s: %w", c.slot, err)
	}
	return nil
}

func indexOf[T Record](items []T, id string) int {
	for i, item := range items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

// newRecordID builds "<prefix>_<unix millis>_<9 random hex chars>"
func newRecordID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}

// nextStamp returns now, or a moment just after prev when the clock has not advanced
func nextStamp(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Millisecond)
}
